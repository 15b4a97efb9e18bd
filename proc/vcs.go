package proc

import (
	"context"
	"strings"

	mvcs "github.com/Masterminds/vcs"
	"github.com/pkg/errors"
)

// VCS wraps the version-control tool collaborator (spec'd as a black box
// supporting init/fetch/push/pull_rebase/add/rm_cached/commit/reset/
// diff_exit_code/diff_staged_exit_code/ls_remote). Git is the only version
// control system this workspace model assumes a staging index and a
// "detached HEAD vs branch" distinction for, so VCS shells out to `git`
// directly; Masterminds/vcs's GitRepo is used instead of a raw invocation
// only for Init.
type VCS struct {
	// Tool is the git binary name, overridable for tests.
	Tool string
}

// NewVCS returns a VCS that shells out to the system git.
func NewVCS() *VCS {
	return &VCS{Tool: "git"}
}

func (v *VCS) tool() string {
	if v.Tool == "" {
		return "git"
	}
	return v.Tool
}

// Init creates a new repository at dir.
func (v *VCS) Init(ctx context.Context, dir string) error {
	repo, err := mvcs.NewGitRepo("", dir)
	if err != nil {
		return errors.Wrapf(err, "constructing git repo handle for %s", dir)
	}
	return repo.Init()
}

// Fetch updates remote-tracking refs without touching the working tree.
func (v *VCS) Fetch(ctx context.Context, dir string) error {
	_, _, err := run(ctx, v.tool(), dir, "fetch")
	return err
}

// Push pushes the current branch to remote. If force is true, pushes with
// --force-with-lease rather than failing on a non-fast-forward update.
func (v *VCS) Push(ctx context.Context, dir, remote string, force bool) error {
	args := []string{"push"}
	if force {
		args = append(args, "--force-with-lease")
	}
	args = append(args, remote)
	_, _, err := run(ctx, v.tool(), dir, args...)
	return err
}

// PullRebase fetches and rebases the current branch onto its upstream.
func (v *VCS) PullRebase(ctx context.Context, dir string) error {
	_, _, err := run(ctx, v.tool(), dir, "pull", "--rebase")
	return err
}

// Add stages file.
func (v *VCS) Add(ctx context.Context, dir, file string) error {
	_, _, err := run(ctx, v.tool(), dir, "add", file)
	return err
}

// RmCached unstages file without touching the working tree copy.
func (v *VCS) RmCached(ctx context.Context, dir, file string) error {
	_, _, err := run(ctx, v.tool(), dir, "rm", "--cached", file)
	return err
}

// Commit commits the current index with message.
func (v *VCS) Commit(ctx context.Context, dir, message string) error {
	_, _, err := run(ctx, v.tool(), dir, "commit", "-m", message)
	return err
}

// Reset discards staged changes, leaving the working tree untouched.
func (v *VCS) Reset(ctx context.Context, dir string) error {
	_, _, err := run(ctx, v.tool(), dir, "reset")
	return err
}

// DiffExitCode reports whether file has unstaged changes. A non-zero exit
// from `git diff --exit-code` is the tool's legitimate "changed" signal,
// not an error.
func (v *VCS) DiffExitCode(ctx context.Context, dir, file string) (bool, error) {
	return v.diffExitCode(ctx, dir, file, "diff")
}

// DiffStagedExitCode reports whether file has staged (index) changes.
func (v *VCS) DiffStagedExitCode(ctx context.Context, dir, file string) (bool, error) {
	return v.diffExitCode(ctx, dir, file, "diff", "--staged")
}

func (v *VCS) diffExitCode(ctx context.Context, dir, file string, args ...string) (bool, error) {
	full := append(append([]string{}, args...), "--exit-code", "--", file)
	_, _, err := run(ctx, v.tool(), dir, full...)
	if err == nil {
		return false, nil
	}
	if se, ok := err.(*SubprocessError); ok && se.Exit == 1 {
		return true, nil
	}
	return false, err
}

// RemoteRef is one entry of an ls-remote listing.
type RemoteRef struct {
	Rev string
	Ref string
}

// LsRemote lists refs at url, ordered by v:refname (ascending,
// semantic-version-aware for tags) — the same order `git ls-remote
// --sort=v:refname` produces. Strategy resolution relies on this order
// rather than re-sorting tags itself.
func (v *VCS) LsRemote(ctx context.Context, url string) ([]RemoteRef, error) {
	stdout, _, err := run(ctx, v.tool(), "", "ls-remote", "--sort=v:refname", url)
	if err != nil {
		return nil, err
	}
	return parseLsRemote(stdout), nil
}

func parseLsRemote(out string) []RemoteRef {
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	refs := make([]RemoteRef, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			continue
		}
		refs = append(refs, RemoteRef{Rev: fields[0], Ref: fields[1]})
	}
	return refs
}
