// Package ref implements the flake-reference URL algebra: parsing and
// printing a closed set of reference schemes (indirect, path, git+{...},
// mc+{...} for mercurial, tarball+{...}, github, gitlab, sourcehut), each exposing a
// uniform capability interface regardless of its concrete shape.
package ref

import (
	"strings"

	"github.com/chadac/nixspace/lockfile"
)

// Ref is a parsed flake reference. Every variant satisfies the same
// capability set; callers that don't know the concrete variant can still
// round-trip it, print it, and project it to an InputSpec.
type Ref interface {
	// FlakeURL renders the canonical string form. parse(r.FlakeURL()) must
	// produce a Ref equal to r.
	FlakeURL() string
	// FlakeType returns the discriminator recorded on an InputSpec built
	// from this reference.
	FlakeType() lockfile.FlakeType
	// GitRemoteURL returns the remote URL usable by the version-control
	// tool, if this variant has one.
	GitRemoteURL() (string, bool)
	// Arg is a best-effort, case-sensitive lookup over named components.
	Arg(name string) (string, bool)
}

// WithRev returns a copy of r with its pinned revision set to rev. Only
// Git and SimpleGit have a remote notion (GitRemoteURL present); r is
// returned unchanged for every other variant, since strategy resolution
// only ever substitutes a rev into a reference that has one.
func WithRev(r Ref, rev string) Ref {
	switch v := r.(type) {
	case Git:
		v.Params = setParam(v.Params, "rev", rev)
		return v
	case SimpleGit:
		v.RevOrRef = rev
		return v
	default:
		return r
	}
}

func setParam(params []kv, key, val string) []kv {
	for i, p := range params {
		if p.key == key {
			out := make([]kv, len(params))
			copy(out, params)
			out[i].val = val
			return out
		}
	}
	return append(append([]kv{}, params...), kv{key: key, val: val})
}

// InferName returns arg("repo") if present.
func InferName(r Ref) (string, bool) {
	return r.Arg("repo")
}

// InputSpec projects a Ref to the canonical flat record used in lockfiles.
// NarHash, RevCount and LastModified are never populated here; they're
// filled in later from builder metadata.
func InputSpec(r Ref) lockfile.InputSpec {
	spec := lockfile.InputSpec{
		Type: r.FlakeType(),
		URL:  r.FlakeURL(),
	}
	if v, ok := r.Arg("owner"); ok {
		spec.Owner = v
	}
	if v, ok := r.Arg("repo"); ok {
		spec.Repo = v
	}
	if v, ok := r.Arg("dir"); ok {
		spec.Dir = v
	}
	if v, ok := r.Arg("rev"); ok {
		spec.Rev = v
	}
	if v, ok := r.Arg("ref"); ok {
		spec.Ref = v
	}
	return spec
}

// ErrUnknownScheme is returned when Parse encounters a scheme token that
// isn't in the exact dispatch table.
type ErrUnknownScheme struct {
	Scheme string
}

func (e *ErrUnknownScheme) Error() string {
	return "unrecognized flake scheme: " + e.Scheme
}

// ErrBadReference is returned when a scheme is recognized but its remainder
// doesn't match the variant's required shape.
type ErrBadReference struct {
	URL string
	Msg string
}

func (e *ErrBadReference) Error() string {
	return "malformed reference \"" + e.URL + "\": " + e.Msg
}

// Parse splits s once on the first ':' into a scheme token and a remainder,
// then dispatches to the matching variant parser. Dispatch is an exact
// table lookup — no prefix matching.
func Parse(s string) (Ref, error) {
	scheme, rest, ok := splitScheme(s)
	if !ok {
		return nil, &ErrBadReference{URL: s, Msg: "missing ':' separating scheme from remainder"}
	}

	switch scheme {
	case "flake":
		return parseIndirect(rest)
	case "path":
		return parsePath(rest)
	case "git+http":
		return parseGit("http", rest)
	case "git+https":
		return parseGit("https", rest)
	case "git+ssh":
		return parseGit("ssh", rest)
	case "git+file":
		return parseGit("file", rest)
	case "mc+http":
		return parseMercurial("http", rest)
	case "mc+https":
		return parseMercurial("https", rest)
	case "mc+ssh":
		return parseMercurial("ssh", rest)
	case "mc+file":
		return parseMercurial("file", rest)
	case "tarball+http":
		return parseTarball("http", rest)
	case "tarball+https":
		return parseTarball("https", rest)
	case "tarball+file":
		return parseTarball("file", rest)
	case "github":
		return parseSimpleGit("github", "github.com/", rest)
	case "gitlab":
		return parseSimpleGit("gitlab", "gitlab.com/", rest)
	case "sourcehut":
		return parseSimpleGit("sourcehut", "git.sr.ht/~", rest)
	default:
		return nil, &ErrUnknownScheme{Scheme: scheme}
	}
}

// splitScheme splits "<scheme>:<rest>" on the first colon.
func splitScheme(s string) (scheme, rest string, ok bool) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

