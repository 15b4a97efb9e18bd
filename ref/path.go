package ref

import (
	"regexp"

	"github.com/chadac/nixspace/lockfile"
)

var pathRe = regexp.MustCompile(`^([^?]+)(?:\?(.+))?$`)

// Path is a reference to a local filesystem path: path:<path>[?k=v&...].
type Path struct {
	Path   string
	Params []kv
}

func parsePath(rest string) (Ref, error) {
	m := pathRe.FindStringSubmatch(rest)
	if m == nil {
		return nil, &ErrBadReference{URL: "path:" + rest, Msg: "expected <path>[?params]"}
	}
	return Path{Path: m[1], Params: parseQuery(m[2])}, nil
}

func (r Path) FlakeURL() string {
	return "path:" + r.Path + formatQuery(r.Params)
}

func (r Path) FlakeType() lockfile.FlakeType { return lockfile.TypePath }

func (r Path) GitRemoteURL() (string, bool) { return "", false }

func (r Path) Arg(name string) (string, bool) {
	return queryArg(r.Params, name)
}
