package ref

import (
	"regexp"

	"github.com/chadac/nixspace/lockfile"
)

var simpleGitRe = regexp.MustCompile(`^([^/]+)/([^/]+)(?:/([^?]+))?(?:\?(.+))?$`)

// SimpleGit is a forge-shorthand reference: (github|gitlab|sourcehut):owner/repo[/rev-or-ref][?params].
type SimpleGit struct {
	Scheme   string // github, gitlab, or sourcehut
	Domain   string // per-provider host prefix used by GitRemoteURL
	Owner    string
	Repo     string
	RevOrRef string // empty when absent
	Params   []kv
}

func parseSimpleGit(scheme, domain, rest string) (Ref, error) {
	m := simpleGitRe.FindStringSubmatch(rest)
	if m == nil {
		return nil, &ErrBadReference{URL: scheme + ":" + rest, Msg: "expected owner/repo[/rev-or-ref][?params]"}
	}
	return SimpleGit{
		Scheme:   scheme,
		Domain:   domain,
		Owner:    m[1],
		Repo:     m[2],
		RevOrRef: m[3],
		Params:   parseQuery(m[4]),
	}, nil
}

func (r SimpleGit) FlakeURL() string {
	url := r.Scheme + ":" + r.Owner + "/" + r.Repo
	if r.RevOrRef != "" {
		url += "/" + r.RevOrRef
	}
	return url + formatQuery(r.Params)
}

func (r SimpleGit) FlakeType() lockfile.FlakeType {
	switch r.Scheme {
	case "gitlab":
		return lockfile.TypeGitLab
	case "sourcehut":
		return lockfile.TypeSourceHut
	default:
		return lockfile.TypeGitHub
	}
}

func (r SimpleGit) GitRemoteURL() (string, bool) {
	return "https://" + r.Domain + r.Owner + "/" + r.Repo + ".git", true
}

func (r SimpleGit) Arg(name string) (string, bool) {
	switch name {
	case "owner":
		return r.Owner, true
	case "repo":
		return r.Repo, true
	case "rev_or_ref":
		if r.RevOrRef == "" {
			return "", false
		}
		return r.RevOrRef, true
	default:
		return "", false
	}
}
