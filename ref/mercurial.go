package ref

import "github.com/chadac/nixspace/lockfile"

// Mercurial is a direct Mercurial reference: mc+{http,https,ssh,file}:[//server]path[?params].
type Mercurial struct {
	Scheme string // one of http, https, ssh, file
	Server string // empty when absent
	Path   string
	Params []kv
}

func parseMercurial(scheme, rest string) (Ref, error) {
	server, path, params, ok := parseServerURL(rest)
	if !ok {
		return nil, &ErrBadReference{URL: "mc+" + scheme + ":" + rest, Msg: "expected [//server]path[?params]"}
	}
	return Mercurial{Scheme: scheme, Server: server, Path: path, Params: params}, nil
}

func (r Mercurial) FlakeURL() string {
	return "mc+" + r.Scheme + ":" + formatServer(r.Server) + r.Path + formatQuery(r.Params)
}

func (r Mercurial) FlakeType() lockfile.FlakeType { return lockfile.TypeMercurial }

// GitRemoteURL is always absent for Mercurial references — there is no git
// remote notion for a Mercurial repository.
func (r Mercurial) GitRemoteURL() (string, bool) { return "", false }

func (r Mercurial) Arg(name string) (string, bool) {
	return queryArg(r.Params, name)
}
