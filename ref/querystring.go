package ref

import "strings"

// kv is a single query-string pair, kept in an ordered slice rather than a
// map so that "?a=1&b=2" and "?b=2&a=1" round-trip as distinct references.
type kv struct {
	key, val string
}

// parseQuery splits a "k=v&k2=v2" query string into ordered pairs. An empty
// string yields no pairs.
func parseQuery(qs string) []kv {
	if qs == "" {
		return nil
	}
	parts := strings.Split(qs, "&")
	pairs := make([]kv, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if i := strings.IndexByte(p, '='); i >= 0 {
			pairs = append(pairs, kv{key: p[:i], val: p[i+1:]})
		} else {
			pairs = append(pairs, kv{key: p, val: ""})
		}
	}
	return pairs
}

// queryArg looks up the first pair with the given key.
func queryArg(pairs []kv, key string) (string, bool) {
	for _, p := range pairs {
		if p.key == key {
			return p.val, true
		}
	}
	return "", false
}

// formatQuery renders pairs back to a "?k=v&k2=v2" suffix, or "" if pairs is
// empty — printing never introduces a bare "?" for an empty parameter list.
func formatQuery(pairs []kv) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.key + "=" + p.val
	}
	return "?" + strings.Join(parts, "&")
}
