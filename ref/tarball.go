package ref

import (
	"regexp"

	"github.com/chadac/nixspace/lockfile"
)

var tarballRe = regexp.MustCompile(`^//(.+)$`)

// Tarball is a reference to a fetched tarball: tarball+{http,https,file}://url.
type Tarball struct {
	Scheme string // one of http, https, file
	URL    string
}

func parseTarball(scheme, rest string) (Ref, error) {
	m := tarballRe.FindStringSubmatch(rest)
	if m == nil {
		return nil, &ErrBadReference{URL: "tarball+" + scheme + ":" + rest, Msg: "expected //<url>"}
	}
	return Tarball{Scheme: scheme, URL: m[1]}, nil
}

func (r Tarball) FlakeURL() string {
	return "tarball+" + r.Scheme + "://" + r.URL
}

func (r Tarball) FlakeType() lockfile.FlakeType { return lockfile.TypeTarball }

func (r Tarball) GitRemoteURL() (string, bool) { return "", false }

// Arg is always absent for Tarball references — it has no named components.
func (r Tarball) Arg(name string) (string, bool) { return "", false }
