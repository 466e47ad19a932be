package gitver

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
)

// GitDir is the name of the repository metadata entry looked for by FindRoot
const GitDir = ".git"

// maxRootDepth bounds the upward walk; lexical parents reach "/" long before this
const maxRootDepth = 4096

// FindRoot walks from start towards the filesystem root and returns the first
// directory containing a .git entry. start may name a file or a directory.
// Parents are computed lexically, so symlinks are never followed upwards.
func FindRoot(fs billy.Filesystem, start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", start, err)
	}

	for depth := 0; depth < maxRootDepth; depth++ {
		// A .git file is what worktrees and submodules leave behind
		if _, err := fs.Lstat(filepath.Join(dir, GitDir)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", &RootNotFoundError{Start: start}
}
