package lockfile

import (
	"bytes"
	"encoding/json"
	"io/ioutil"

	"github.com/pkg/errors"
)

// CurrentVersion is the lockfile schema version this package reads and
// writes.
const CurrentVersion = 7

// RootName is the name reserved for the root node of every lockfile.
const RootName = "root"

// LockedRef is a single lockfile node: an optional flake marker, an
// optional pin (locked/original InputSpec pair), and optional child edges.
// The root node has Inputs set and Locked/Original absent; leaf pinned
// nodes have Locked/Original set and Inputs absent or empty.
type LockedRef struct {
	Flake    *bool                `json:"flake,omitempty"`
	Locked   *InputSpec           `json:"locked,omitempty"`
	Original *InputSpec           `json:"original,omitempty"`
	Inputs   map[string]InputRef  `json:"inputs,omitempty"`
}

// LockFile is a rooted, labelled DAG of LockedRefs.
type LockFile struct {
	Nodes   map[string]*LockedRef `json:"nodes"`
	Root    string                `json:"root"`
	Version int                   `json:"version"`
}

// Empty returns a new lockfile containing only a root node with no inputs.
func Empty() *LockFile {
	return &LockFile{
		Nodes: map[string]*LockedRef{
			RootName: {Inputs: map[string]InputRef{}},
		},
		Root:    RootName,
		Version: CurrentVersion,
	}
}

// MalformedError reports a structural problem in a lockfile: a dangling
// InputRef, a missing root, or similar.
type MalformedError struct {
	Msg string
}

func (e *MalformedError) Error() string { return "malformed lockfile: " + e.Msg }

// Read parses a LockFile from JSON bytes on disk.
func Read(path string) (*LockFile, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading lockfile %s", path)
	}
	var lf LockFile
	if err := json.Unmarshal(b, &lf); err != nil {
		return nil, errors.Wrapf(err, "parsing lockfile %s", path)
	}
	if _, ok := lf.Nodes[lf.Root]; !ok {
		return nil, &MalformedError{Msg: "root node \"" + lf.Root + "\" is not present in nodes"}
	}
	return &lf, nil
}

// Write serializes the LockFile as indented JSON and writes it to path.
func (lf *LockFile) Write(path string) error {
	b, err := lf.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "encoding lockfile")
	}
	if err := ioutil.WriteFile(path, b, 0644); err != nil {
		return errors.Wrapf(err, "writing lockfile %s", path)
	}
	return nil
}

// MarshalJSON renders the lockfile with stable indentation. encoding/json
// already emits map keys in sorted order, which is what gives the node map
// its deterministic, stable-across-runs ordering on write.
func (lf *LockFile) MarshalJSON() ([]byte, error) {
	type alias LockFile
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode((*alias)(lf)); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// GetInputSpec looks up the locked InputSpec for a node, if any.
func (lf *LockFile) GetInputSpec(name string) (InputSpec, bool) {
	n, ok := lf.Nodes[name]
	if !ok || n.Locked == nil {
		return InputSpec{}, false
	}
	return *n.Locked, true
}

// Rm removes a node from the lockfile and strips any reference to it from
// every other node's Inputs, including the root's. It does not trim
// transitive dependents that become unreachable as a result; call Trim for
// that. Removing a name that is not present is a no-op.
func (lf *LockFile) Rm(name string) {
	if _, ok := lf.Nodes[name]; !ok {
		return
	}
	delete(lf.Nodes, name)
	for _, n := range lf.Nodes {
		if n.Inputs == nil {
			continue
		}
		for k, ref := range n.Inputs {
			if ref.IsDirect() {
				if ref.Name() == name {
					delete(n.Inputs, k)
				}
				continue
			}
			if path := ref.Path(); len(path) > 0 && path[0] == name {
				delete(n.Inputs, k)
			}
		}
	}
}

// RenameInput renames node old to new everywhere it's referenced: every
// InputRef head across every node is rewritten, and the node itself is
// reinserted under the new key. A no-op if old is absent.
func (lf *LockFile) RenameInput(old, new string) {
	if _, ok := lf.Nodes[old]; !ok {
		return
	}

	for _, n := range lf.Nodes {
		if n.Inputs == nil {
			continue
		}
		for label, ref := range n.Inputs {
			n.Inputs[label] = ref.Rename(old, new)
		}
	}

	lf.Nodes[new] = lf.Nodes[old]
	delete(lf.Nodes, old)
	if lf.Root == old {
		lf.Root = new
	}
}

// ResolveInput follows an InputRef to the concrete node name it designates.
func (lf *LockFile) ResolveInput(ref InputRef) (string, error) {
	if ref.IsDirect() {
		if _, ok := lf.Nodes[ref.Name()]; !ok {
			return "", &MalformedError{Msg: "dangling input reference to \"" + ref.Name() + "\""}
		}
		return ref.Name(), nil
	}

	path := ref.Path()
	cur := path[0]
	if _, ok := lf.Nodes[cur]; !ok {
		return "", &MalformedError{Msg: "dangling input reference to \"" + cur + "\""}
	}
	for _, label := range path[1:] {
		n, ok := lf.Nodes[cur]
		if !ok {
			return "", &MalformedError{Msg: "dangling input reference to \"" + cur + "\""}
		}
		next, ok := n.Inputs[label]
		if !ok {
			return "", &MalformedError{Msg: "node \"" + cur + "\" has no input labelled \"" + label + "\""}
		}
		resolved, err := lf.resolveOne(next)
		if err != nil {
			return "", err
		}
		cur = resolved
	}
	return cur, nil
}

// resolveOne resolves a single-step InputRef (used internally while
// walking a Path) without re-walking the whole path again.
func (lf *LockFile) resolveOne(ref InputRef) (string, error) {
	if ref.IsDirect() {
		if _, ok := lf.Nodes[ref.Name()]; !ok {
			return "", &MalformedError{Msg: "dangling input reference to \"" + ref.Name() + "\""}
		}
		return ref.Name(), nil
	}
	return lf.ResolveInput(ref)
}

// resolveAndVisit follows ref to its terminal node name exactly as
// ResolveInput does, but additionally calls visit on every node name
// encountered along the way — the head of a Path and each subsequent
// hop's target — not just the final name. Closure relies on this: every
// node a Path ref passes through is part of the reachable set, not only
// the one it terminates at, or Trim would strand a node an Inputs path
// still references.
func (lf *LockFile) resolveAndVisit(ref InputRef, visit func(name string) error) (string, error) {
	if ref.IsDirect() {
		return lf.resolveOneAndVisit(ref, visit)
	}

	path := ref.Path()
	cur := path[0]
	if _, ok := lf.Nodes[cur]; !ok {
		return "", &MalformedError{Msg: "dangling input reference to \"" + cur + "\""}
	}
	if err := visit(cur); err != nil {
		return "", err
	}
	for _, label := range path[1:] {
		n, ok := lf.Nodes[cur]
		if !ok {
			return "", &MalformedError{Msg: "dangling input reference to \"" + cur + "\""}
		}
		next, ok := n.Inputs[label]
		if !ok {
			return "", &MalformedError{Msg: "node \"" + cur + "\" has no input labelled \"" + label + "\""}
		}
		resolved, err := lf.resolveAndVisit(next, visit)
		if err != nil {
			return "", err
		}
		cur = resolved
	}
	return cur, nil
}

// resolveOneAndVisit is resolveOne's counterpart for resolveAndVisit.
func (lf *LockFile) resolveOneAndVisit(ref InputRef, visit func(name string) error) (string, error) {
	if ref.IsDirect() {
		name := ref.Name()
		if _, ok := lf.Nodes[name]; !ok {
			return "", &MalformedError{Msg: "dangling input reference to \"" + name + "\""}
		}
		if err := visit(name); err != nil {
			return "", err
		}
		return name, nil
	}
	return lf.resolveAndVisit(ref, visit)
}

// Closure returns the set of node names reachable from the root, following
// every child edge. Every node encountered while resolving an edge — not
// just the one it ultimately resolves to — is added to the set. Visits
// are idempotent.
func (lf *LockFile) Closure() (map[string]bool, error) {
	visited := map[string]bool{}
	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		visited[name] = true
		n, ok := lf.Nodes[name]
		if !ok {
			return &MalformedError{Msg: "dangling input reference to \"" + name + "\""}
		}
		for _, ref := range n.Inputs {
			if _, err := lf.resolveAndVisit(ref, visit); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(lf.Root); err != nil {
		return nil, err
	}
	return visited, nil
}

// Trim computes the closure from the root and removes every node not
// present in it. After Trim, Closure(lf) == keys(lf.Nodes).
func (lf *LockFile) Trim() error {
	closure, err := lf.Closure()
	if err != nil {
		return err
	}
	for name := range lf.Nodes {
		if !closure[name] {
			delete(lf.Nodes, name)
		}
	}
	return nil
}
