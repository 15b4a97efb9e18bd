package lockfile

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// InputRef is an edge label inside a lockfile: either a Direct reference to
// another node by name, or a Path — a traversal that begins at a node and
// follows a sequence of child labels through that node's own inputs. It
// mirrors the "inputs" edge shape of a real flake.lock: a bare string for a
// direct node, or an array of strings for a followed path.
type InputRef struct {
	direct string
	path   []string
}

// Direct constructs an InputRef that resolves immediately to name.
func Direct(name string) InputRef {
	return InputRef{direct: name}
}

// PathRef constructs an InputRef that resolves by walking node n1, then
// label n2 in n1's inputs, then n3 in that node's referent, and so on.
func PathRef(names ...string) InputRef {
	if len(names) == 1 {
		return Direct(names[0])
	}
	p := make([]string, len(names))
	copy(p, names)
	return InputRef{path: p}
}

// IsDirect reports whether the ref is a Direct node reference.
func (r InputRef) IsDirect() bool { return r.path == nil }

// Name returns the direct node name. Only meaningful when IsDirect is true.
func (r InputRef) Name() string { return r.direct }

// Path returns the traversal path. Only meaningful when IsDirect is false.
func (r InputRef) Path() []string { return r.path }

// Head returns the first name consulted when resolving this ref — the
// entire value for Direct, the first element for Path.
func (r InputRef) Head() string {
	if r.IsDirect() {
		return r.direct
	}
	return r.path[0]
}

// Rename rewrites only the head of the ref if it equals old, leaving any
// trailing path elements untouched.
func (r InputRef) Rename(old, new string) InputRef {
	if r.IsDirect() {
		if r.direct == old {
			return Direct(new)
		}
		return r
	}
	if r.path[0] != old {
		return r
	}
	p := make([]string, len(r.path))
	copy(p, r.path)
	p[0] = new
	return InputRef{path: p}
}

func (r InputRef) MarshalJSON() ([]byte, error) {
	if r.IsDirect() {
		return json.Marshal(r.direct)
	}
	return json.Marshal(r.path)
}

func (r *InputRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = Direct(s)
		return nil
	}

	var p []string
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.Wrap(err, "input ref must be a string or an array of strings")
	}
	if len(p) == 0 {
		return errors.New("input ref path must not be empty")
	}
	*r = PathRef(p...)
	return nil
}
