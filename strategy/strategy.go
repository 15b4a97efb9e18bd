// Package strategy implements the update-strategy resolver (C3): given a
// reference and a policy, compute a new pinned revision by consulting a
// remote listing, then fetch canonical metadata for the resulting pin.
package strategy

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/chadac/nixspace/proc"
	"github.com/chadac/nixspace/ref"
)

// Policy is the closed set of update policies: Latest, Freeze, LatestTag,
// Branch. GetRev inspects a remote listing and returns the rev to pin, or
// false if the policy declines to change the rev (Freeze always, LatestTag
// when no tag matches). Latest and Branch return an error instead when the
// listing has no matching entry.
type Policy interface {
	GetRev(revs []proc.RemoteRef) (string, bool, error)
}

// Latest tracks the revision at the remote's HEAD.
type Latest struct{}

// Freeze never changes the pinned revision.
type Freeze struct{}

// LatestTag tracks the last tag matching Glob (default "*") in the
// version-control tool's own sort order.
type LatestTag struct {
	Glob string
}

// Branch tracks the head of a named branch.
type Branch struct {
	Name string
}

func (Latest) GetRev(revs []proc.RemoteRef) (string, bool, error) {
	for _, r := range revs {
		if r.Ref == "HEAD" {
			return r.Rev, true, nil
		}
	}
	return "", false, errors.New("could not find HEAD in remote listing")
}

func (Freeze) GetRev(revs []proc.RemoteRef) (string, bool, error) {
	return "", false, nil
}

func (p LatestTag) GetRev(revs []proc.RemoteRef) (string, bool, error) {
	glob := p.Glob
	if glob == "" {
		glob = "*"
	}
	pattern := "refs/tags/" + glob
	var last string
	var found bool
	for _, r := range revs {
		if ok, _ := filepath.Match(pattern, r.Ref); ok {
			last = r.Rev
			found = true
		}
	}
	return last, found, nil
}

func (p Branch) GetRev(revs []proc.RemoteRef) (string, bool, error) {
	for _, r := range revs {
		if r.Ref == p.Name {
			return r.Rev, true, nil
		}
	}
	return "", false, errors.Errorf("could not find branch %q in remote listing", p.Name)
}

// Kind returns the TOML/JSON tag for a policy variant — used by the
// workspace config layer's manual tagged-union (de)serialization, since a
// plain struct-tag unmarshaler can't express "the key names the variant".
func Kind(p Policy) string {
	switch p.(type) {
	case Latest:
		return "latest"
	case Freeze:
		return "freeze"
	case LatestTag:
		return "latest-tag"
	case Branch:
		return "branch"
	default:
		return ""
	}
}

// Update resolves a new pin for reference under policy:
//  1. If reference has a git remote URL, list it and ask policy for a rev.
//  2. If a rev was returned, substitute it into reference before querying
//     metadata; otherwise query metadata for the reference unchanged.
//  3. Fetch and return builder.FlakeMetadata(target) — the metadata is
//     authoritative and is consumed verbatim by the merge engine.
func Update(ctx context.Context, reference ref.Ref, policy Policy, vcs *proc.VCS, builder *proc.Builder) (proc.FlakeMetadata, error) {
	target := reference

	if remote, ok := reference.GitRemoteURL(); ok {
		revs, err := vcs.LsRemote(ctx, remote)
		if err != nil {
			return proc.FlakeMetadata{}, errors.Wrapf(err, "listing remote refs for %s", remote)
		}
		rev, ok, err := policy.GetRev(revs)
		if err != nil {
			return proc.FlakeMetadata{}, err
		}
		if ok {
			target = ref.WithRev(reference, rev)
		}
	}

	meta, err := builder.FlakeMetadata(ctx, target.FlakeURL())
	if err != nil {
		return proc.FlakeMetadata{}, errors.Wrapf(err, "fetching flake metadata for %s", target.FlakeURL())
	}
	return meta, nil
}

// ParsePolicy builds a Policy from its TOML/JSON tag and payload, mirroring
// the external shape documented in spec.md §6: "latest"/"freeze" carry no
// payload, "latest-tag" carries an optional glob, "branch" carries a
// required string.
func ParsePolicy(kind string, payload string) (Policy, error) {
	switch strings.ToLower(kind) {
	case "latest":
		return Latest{}, nil
	case "freeze":
		return Freeze{}, nil
	case "latest-tag":
		return LatestTag{Glob: payload}, nil
	case "branch":
		if payload == "" {
			return nil, errors.New(`"branch" strategy requires a branch name`)
		}
		return Branch{Name: payload}, nil
	default:
		return nil, errors.Errorf("unknown update strategy %q", kind)
	}
}
