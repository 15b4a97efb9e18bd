package ref

import "regexp"

var serverURLRe = regexp.MustCompile(`^(?://([^/]+))?([^?]+)(?:\?(.+))?$`)

// parseServerURL parses the "(//<server>)?<path>(?<params>)?" shape shared
// by Git and Mercurial references.
func parseServerURL(rest string) (server, path string, params []kv, ok bool) {
	m := serverURLRe.FindStringSubmatch(rest)
	if m == nil {
		return "", "", nil, false
	}
	return m[1], m[2], parseQuery(m[3]), true
}

func formatServer(server string) string {
	if server == "" {
		return ""
	}
	return "//" + server
}
