package provenance

import (
	"errors"
	"fmt"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Info records where an analyzed dataset came from. It is only populated
// when the file lives inside a git worktree.
type Info struct {
	RepoRoot string `json:"repo_root"`
	Branch   string `json:"branch"`
	Commit   string `json:"commit"`
	Dirty    bool   `json:"dirty"`
	RelPath  string `json:"rel_path"`
}

// Collect looks up git provenance for the dataset at path. It returns
// (nil, nil) when the file is not tracked inside a repository, including
// repositories without any commits.
func Collect(path string) (*Info, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(filepath.Dir(absPath), &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	workTree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	info := &Info{
		RepoRoot: workTree.Filesystem.Root(),
		Commit:   head.Hash().String(),
		Branch:   "HEAD",
	}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	if relPath, err := filepath.Rel(info.RepoRoot, absPath); err == nil {
		info.RelPath = relPath
	}

	status, err := workTree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get repository status: %w", err)
	}
	info.Dirty = !status.IsClean()

	return info, nil
}

// Metadata renders the provenance as report metadata entries.
func (i *Info) Metadata() map[string]any {
	if i == nil {
		return nil
	}
	return map[string]any{
		"git_branch": i.Branch,
		"git_commit": i.Commit,
		"git_dirty":  i.Dirty,
		"git_path":   i.RelPath,
	}
}

// Describe renders a short human-readable provenance line.
func (i *Info) Describe() string {
	if i == nil {
		return ""
	}
	commit := i.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if i.Dirty {
		return fmt.Sprintf("%s@%s (dirty)", i.Branch, commit)
	}
	return fmt.Sprintf("%s@%s", i.Branch, commit)
}
