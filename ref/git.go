package ref

import "github.com/chadac/nixspace/lockfile"

// Git is a direct git reference: git+{http,https,ssh,file}:[//server]path[?params].
type Git struct {
	Scheme string // one of http, https, ssh, file
	Server string // empty when absent
	Path   string
	Params []kv
}

func parseGit(scheme, rest string) (Ref, error) {
	server, path, params, ok := parseServerURL(rest)
	if !ok {
		return nil, &ErrBadReference{URL: "git+" + scheme + ":" + rest, Msg: "expected [//server]path[?params]"}
	}
	return Git{Scheme: scheme, Server: server, Path: path, Params: params}, nil
}

func (r Git) FlakeURL() string {
	return "git+" + r.Scheme + ":" + formatServer(r.Server) + r.Path + formatQuery(r.Params)
}

func (r Git) FlakeType() lockfile.FlakeType { return lockfile.TypeGit }

func (r Git) GitRemoteURL() (string, bool) {
	return r.Scheme + ":" + formatServer(r.Server) + r.Path, true
}

func (r Git) Arg(name string) (string, bool) {
	return queryArg(r.Params, name)
}
