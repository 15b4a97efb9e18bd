package ref

import (
	"regexp"

	"github.com/chadac/nixspace/lockfile"
)

var indirectRe = regexp.MustCompile(`^([^/]+)(?:/([^/]+)(?:/([^/]+))?)?$`)

// Indirect is a registry-resolved reference: flake:<id>[/<rev-or-ref>[/<rev>]].
type Indirect struct {
	ID       string
	RevOrRef string // ref("ref") — empty when absent
	Rev      string // ref("rev") — empty when absent
}

func parseIndirect(rest string) (Ref, error) {
	m := indirectRe.FindStringSubmatch(rest)
	if m == nil {
		return nil, &ErrBadReference{URL: "flake:" + rest, Msg: "expected <id>[/<rev-or-ref>[/<rev>]]"}
	}
	return Indirect{ID: m[1], RevOrRef: m[2], Rev: m[3]}, nil
}

func (r Indirect) FlakeURL() string {
	url := "flake:" + r.ID
	if r.RevOrRef != "" {
		url += "/" + r.RevOrRef
	}
	if r.Rev != "" {
		url += "/" + r.Rev
	}
	return url
}

func (r Indirect) FlakeType() lockfile.FlakeType { return lockfile.TypeIndirect }

func (r Indirect) GitRemoteURL() (string, bool) { return "", false }

func (r Indirect) Arg(name string) (string, bool) {
	switch name {
	case "ref":
		if r.RevOrRef == "" {
			return "", false
		}
		return r.RevOrRef, true
	case "rev":
		if r.Rev == "" {
			return "", false
		}
		return r.Rev, true
	default:
		return "", false
	}
}
