package gitver

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

var testSignature = &object.Signature{
	Name:  "test",
	Email: "test@example.com",
	When:  time.Now(),
}

// testRepoCreate creates a new in-memory git repository for testing
func testRepoCreate() (*git.Repository, error) {
	storage := memory.NewStorage()
	fs := memfs.New()
	return git.Init(storage, fs)
}

// testRepoCommit writes filename and commits it
func testRepoCommit(repo *git.Repository, filename, content string) (plumbing.Hash, error) {
	workTree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	if err := writeFile(workTree.Filesystem, filename, content); err != nil {
		return plumbing.ZeroHash, err
	}

	if _, err := workTree.Add(filename); err != nil {
		return plumbing.ZeroHash, err
	}

	return workTree.Commit("Commit "+filename, &git.CommitOptions{Author: testSignature})
}

// testRepoTaggedHistory commits once, tags that commit with tag and then
// commits after more times.
func testRepoTaggedHistory(t *testing.T, tag string, after int) *git.Repository {
	t.Helper()

	repo, err := testRepoCreate()
	require.NoError(t, err)

	tagged, err := testRepoCommit(repo, "release.txt", "release")
	require.NoError(t, err)

	if tag != "" {
		_, err = repo.CreateTag(tag, tagged, nil)
		require.NoError(t, err)
	}

	for i := 0; i < after; i++ {
		_, err = testRepoCommit(repo, "change.txt", "change "+strconv.Itoa(i))
		require.NoError(t, err)
	}

	return repo
}

// openRepo returns an Open func for RepositoryDescriber that ignores root
func openRepo(repo *git.Repository) func(string) (*git.Repository, error) {
	return func(string) (*git.Repository, error) {
		return repo, nil
	}
}

// writeFile writes content to a file in the given filesystem
func writeFile(fs billy.Filesystem, filename, content string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	file, err := fs.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write([]byte(content))
	return err
}

// testTree builds a memfs from path -> content; paths ending in "/" are directories
func testTree(t *testing.T, entries map[string]string) billy.Filesystem {
	t.Helper()

	fs := memfs.New()
	for name, content := range entries {
		if strings.HasSuffix(name, "/") {
			require.NoError(t, fs.MkdirAll(strings.TrimSuffix(name, "/"), 0o755))
			continue
		}
		require.NoError(t, writeFile(fs, name, content))
	}
	return fs
}

// staticDescriber returns fixed describe output and records the root it was asked about
type staticDescriber struct {
	output string
	err    error
	root   *string
}

func (d staticDescriber) Describe(_ context.Context, root string) (string, error) {
	if d.root != nil {
		*d.root = root
	}
	return d.output, d.err
}
