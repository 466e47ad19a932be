// Package gitver derives version strings for source trees from git describe
// output, falling back to installed package metadata when no checkout exists.
//
// This file contains code adapted from pulumictl (https://github.com/pulumi/pulumictl)
// which is licensed under the Apache License 2.0. See NOTICE file for full attribution.
package gitver

import (
	"context"
	"fmt"
	"os/exec"
	"path"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// shortHashLen matches git's default abbreviation
const shortHashLen = 7

// OpenRepository opens a Git repository at the specified path
func OpenRepository(path string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

// RepositoryDescriber produces git describe output with go-git, so no git
// binary is needed. The commit count is the number of commits reachable from
// HEAD but not from the tagged commit, as git rev-list tag..HEAD counts them.
type RepositoryDescriber struct {
	// Open opens the repository at root (default: OpenRepository)
	Open func(root string) (*git.Repository, error)

	// Match restricts candidate tags to a path.Match glob
	Match string
}

// Describe returns <tag>-<count>-g<hash>[-dirty], or <hash>[-dirty] when no
// tag is reachable. Failures are reported as *DescribeInvocationError.
func (d RepositoryDescriber) Describe(ctx context.Context, root string) (string, error) {
	out, err := d.describe(ctx, root)
	if err != nil {
		return "", &DescribeInvocationError{
			Dir:  root,
			Args: []string{"go-git", "describe"},
			Err:  err,
		}
	}
	return out, nil
}

func (d RepositoryDescriber) describe(ctx context.Context, root string) (string, error) {
	open := d.Open
	if open == nil {
		open = OpenRepository
	}

	repo, err := open(root)
	if err != nil {
		return "", fmt.Errorf("opening repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}

	tagFilter, err := d.tagFilter()
	if err != nil {
		return "", err
	}

	tag, distance, err := mostRecentTag(ctx, repo, head.Hash(), tagFilter)
	if err != nil {
		return "", fmt.Errorf("finding recent tag: %w", err)
	}

	isDirty, err := workTreeIsDirty(ctx, repo)
	if err != nil {
		return "", fmt.Errorf("checking if worktree is dirty: %w", err)
	}

	shortHash := head.Hash().String()[:shortHashLen]

	var out string
	if tag != nil {
		out = tag.Name().Short() + "-" + strconv.Itoa(distance) + "-g" + shortHash
	} else {
		out = shortHash
	}
	if isDirty {
		out += "-" + DirtyMarker
	}

	return out, nil
}

func (d RepositoryDescriber) tagFilter() (func(string) bool, error) {
	if d.Match == "" {
		return nil, nil
	}
	if _, err := path.Match(d.Match, ""); err != nil {
		return nil, fmt.Errorf("invalid match pattern %q: %w", d.Match, err)
	}
	return func(tag string) bool {
		ok, _ := path.Match(d.Match, tag)
		return ok
	}, nil
}

type tagCandidate struct {
	ref       *plumbing.Reference
	annotated bool
}

// tagsByCommit maps each tagged commit to the tag describe would name for it:
// annotated tags win over lightweight ones, then the lowest name.
func tagsByCommit(repo *git.Repository, tagFilter func(string) bool) (map[plumbing.Hash]tagCandidate, error) {
	tags, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	byCommit := make(map[plumbing.Hash]tagCandidate)
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}

		if tagFilter != nil && !tagFilter(strings.TrimPrefix(ref.Name().String(), "refs/tags/")) {
			return nil
		}

		candidate := tagCandidate{ref: ref}
		target := ref.Hash()

		obj, err := repo.TagObject(ref.Hash())
		switch err {
		case nil:
			// Annotated tag
			if obj.TargetType != plumbing.CommitObject {
				return nil
			}
			target = obj.Target
			candidate.annotated = true
		case plumbing.ErrObjectNotFound:
			// Lightweight tag
		default:
			return err
		}

		if current, ok := byCommit[target]; ok && !preferTag(candidate, current) {
			return nil
		}
		byCommit[target] = candidate
		return nil
	})

	return byCommit, err
}

func preferTag(a, b tagCandidate) bool {
	if a.annotated != b.annotated {
		return a.annotated
	}
	return a.ref.Name().String() < b.ref.Name().String()
}

// mostRecentTag returns the first tag met walking back from ref and the
// number of commits reachable from ref but not from the tagged commit.
func mostRecentTag(ctx context.Context, repo *git.Repository, ref plumbing.Hash,
	tagFilter func(string) bool) (*plumbing.Reference, int, error) {

	tags, err := tagsByCommit(repo, tagFilter)
	if err != nil {
		return nil, 0, err
	}

	commit, err := repo.CommitObject(ref)
	if err != nil {
		return nil, 0, fmt.Errorf("getting commit object: %w", err)
	}

	var (
		found     *plumbing.Reference
		tagCommit *object.Commit
	)
	walker := object.NewCommitPreorderIter(commit, nil, nil)
	defer walker.Close()

	err = walker.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if tag, ok := tags[c.Hash]; ok {
			found = tag.ref
			tagCommit = c
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if found == nil {
		return nil, 0, nil
	}

	distance, err := commitsSince(ctx, commit, tagCommit)
	if err != nil {
		return nil, 0, err
	}

	return found, distance, nil
}

// commitsSince counts commits reachable from head that are not reachable from
// base, like git rev-list --count base..head.
func commitsSince(ctx context.Context, head, base *object.Commit) (int, error) {
	seen := make(map[plumbing.Hash]bool)
	baseIter := object.NewCommitPreorderIter(base, nil, nil)
	defer baseIter.Close()

	err := baseIter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen[c.Hash] = true
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walking tagged history: %w", err)
	}

	var count int
	headIter := object.NewCommitPreorderIter(head, seen, nil)
	defer headIter.Close()

	err = headIter.ForEach(func(*object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("counting commits since tag: %w", err)
	}

	return count, nil
}

func workTreeIsDirty(ctx context.Context, repo *git.Repository) (bool, error) {
	workTree, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("getting worktree: %w", err)
	}

	// Fast path for filesystem storage, when a git binary is around
	if _, ok := repo.Storer.(*filesystem.Storage); ok {
		if _, err := exec.LookPath("git"); err == nil {
			return checkDirtyWithGitCommand(ctx, workTree.Filesystem.Root())
		}
	}

	status, err := workTree.Status()
	if err != nil {
		return false, fmt.Errorf("getting git status: %w", err)
	}

	// Untracked files do not make a tree dirty for git describe
	for _, s := range status {
		if s.Worktree == git.Untracked && s.Staging == git.Untracked {
			continue
		}
		if s.Worktree != git.Unmodified || s.Staging != git.Unmodified {
			return true, nil
		}
	}

	return false, nil
}

func checkDirtyWithGitCommand(ctx context.Context, repoPath string) (bool, error) {
	// Refresh index first
	cmd := exec.CommandContext(ctx, "git", "update-index", "-q", "--refresh")
	cmd.Dir = repoPath
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		// If update-index fails, assume dirty
		return true, nil
	}

	cmd = exec.CommandContext(ctx, "git", "diff-index", "--quiet", "HEAD", "--")
	cmd.Dir = repoPath
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		if _, ok := err.(*exec.ExitError); ok {
			return true, nil
		}
		return false, err
	}

	return false, nil
}
