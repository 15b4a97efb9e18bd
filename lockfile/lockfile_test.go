package lockfile

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestEmpty(t *testing.T) {
	lf := Empty()
	if lf.Root != RootName {
		t.Fatalf("root = %q, want %q", lf.Root, RootName)
	}
	if _, ok := lf.Nodes[RootName]; !ok {
		t.Fatalf("empty lockfile missing root node")
	}
	if lf.Nodes[RootName].Locked != nil {
		t.Fatalf("root node should have no locked pin")
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	lf := Empty()
	lf.Nodes["nixpkgs"] = &LockedRef{
		Locked:   &InputSpec{Type: TypeGitHub, Owner: "NixOS", Repo: "nixpkgs", Rev: "abc123"},
		Original: &InputSpec{Type: TypeGitHub, Owner: "NixOS", Repo: "nixpkgs"},
	}
	lf.Nodes[RootName].Inputs["nixpkgs"] = Direct("nixpkgs")

	dir := t.TempDir()
	path := filepath.Join(dir, "dev.lock")
	if err := lf.Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	b1, _ := lf.MarshalJSON()
	b2, _ := got.MarshalJSON()
	if string(b1) != string(b2) {
		t.Fatalf("round trip mismatch:\n%s\n---\n%s", b1, b2)
	}
}

func TestWriteIsStableAcrossRuns(t *testing.T) {
	lf := Empty()
	lf.Nodes["b"] = &LockedRef{Locked: &InputSpec{Type: TypeGit}}
	lf.Nodes["a"] = &LockedRef{Locked: &InputSpec{Type: TypeGit}}
	lf.Nodes[RootName].Inputs["b"] = Direct("b")
	lf.Nodes[RootName].Inputs["a"] = Direct("a")

	b1, _ := lf.MarshalJSON()
	b2, _ := lf.MarshalJSON()
	if string(b1) != string(b2) {
		t.Fatalf("serialization is not stable across runs")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b1, &raw); err != nil {
		t.Fatal(err)
	}
}

func TestRmNoopOnMissing(t *testing.T) {
	lf := Empty()
	before, _ := lf.MarshalJSON()
	lf.Rm("does-not-exist")
	after, _ := lf.MarshalJSON()
	if string(before) != string(after) {
		t.Fatalf("Rm on missing node should be a no-op")
	}
}

func TestTrimAfterRm(t *testing.T) {
	// root -> A -> B -> C
	lf := Empty()
	lf.Nodes["A"] = &LockedRef{Inputs: map[string]InputRef{"b": Direct("B")}}
	lf.Nodes["B"] = &LockedRef{Inputs: map[string]InputRef{"c": Direct("C")}}
	lf.Nodes["C"] = &LockedRef{Locked: &InputSpec{Type: TypeGit}}
	lf.Nodes[RootName].Inputs["a"] = Direct("A")

	lf.Rm("B")

	// Rm must strip B's dangling edge from A (its direct referrer), not
	// just from root's own inputs, or Trim/Closure would choke on a
	// reference to a node that no longer exists.
	if _, ok := lf.Nodes["A"].Inputs["b"]; ok {
		t.Fatalf("A should have had its dangling reference to B removed")
	}

	if err := lf.Trim(); err != nil {
		t.Fatalf("Trim: %v", err)
	}

	if _, ok := lf.Nodes["B"]; ok {
		t.Fatalf("B should have been trimmed")
	}
	if _, ok := lf.Nodes["C"]; ok {
		t.Fatalf("C should have been trimmed (unreachable after B removed)")
	}
	if _, ok := lf.Nodes["A"]; !ok {
		t.Fatalf("A should still be present: it remains directly reachable from root")
	}
	if len(lf.Nodes[RootName].Inputs) != 1 {
		t.Fatalf("root's own edge to A is untouched by removing B, got %v", lf.Nodes[RootName].Inputs)
	}
}

func TestTrimIdempotent(t *testing.T) {
	lf := Empty()
	lf.Nodes["A"] = &LockedRef{Locked: &InputSpec{Type: TypeGit}}
	lf.Nodes["orphan"] = &LockedRef{Locked: &InputSpec{Type: TypeGit}}
	lf.Nodes[RootName].Inputs["a"] = Direct("A")

	if err := lf.Trim(); err != nil {
		t.Fatal(err)
	}
	closure, err := lf.Closure()
	if err != nil {
		t.Fatal(err)
	}
	if len(closure) != len(lf.Nodes) {
		t.Fatalf("closure should equal node set after trim: %v vs %v", closure, lf.Nodes)
	}

	if err := lf.Trim(); err != nil {
		t.Fatal(err)
	}
	closure2, err := lf.Closure()
	if err != nil {
		t.Fatal(err)
	}
	if len(closure2) != len(closure) {
		t.Fatalf("trim should be idempotent")
	}
}

func TestClosureVisitsPathHeadOnlyReachableViaPath(t *testing.T) {
	// root -> A -> (path) B -> C, with B reachable only as the head of
	// A's PathRef("B", "c") — no other edge names B directly.
	lf := Empty()
	lf.Nodes["A"] = &LockedRef{Inputs: map[string]InputRef{"b": PathRef("B", "c")}}
	lf.Nodes["B"] = &LockedRef{Inputs: map[string]InputRef{"c": Direct("C")}}
	lf.Nodes["C"] = &LockedRef{Locked: &InputSpec{Type: TypeGit}}
	lf.Nodes[RootName].Inputs["a"] = Direct("A")

	closure, err := lf.Closure()
	if err != nil {
		t.Fatalf("Closure: %v", err)
	}
	for _, name := range []string{RootName, "A", "B", "C"} {
		if !closure[name] {
			t.Fatalf("expected %q in closure, got %v", name, closure)
		}
	}
}

func TestTrimKeepsPathHeadOnlyReachableViaPath(t *testing.T) {
	lf := Empty()
	lf.Nodes["A"] = &LockedRef{Inputs: map[string]InputRef{"b": PathRef("B", "c")}}
	lf.Nodes["B"] = &LockedRef{Inputs: map[string]InputRef{"c": Direct("C")}}
	lf.Nodes["C"] = &LockedRef{Locked: &InputSpec{Type: TypeGit}}
	lf.Nodes[RootName].Inputs["a"] = Direct("A")

	if err := lf.Trim(); err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if _, ok := lf.Nodes["B"]; !ok {
		t.Fatalf("B should survive trim: it's the head of A's path reference")
	}

	// Trim must be idempotent: a second Closure/Trim pass must not throw a
	// dangling-reference error because B was wrongly stranded.
	if _, err := lf.Closure(); err != nil {
		t.Fatalf("Closure after trim: %v", err)
	}
	if err := lf.Trim(); err != nil {
		t.Fatalf("second Trim: %v", err)
	}
}

func TestRenameInputRewritesHeadsOnly(t *testing.T) {
	lf := Empty()
	lf.Nodes["nixpkgs"] = &LockedRef{Locked: &InputSpec{Type: TypeGitHub}}
	lf.Nodes["flake-utils"] = &LockedRef{
		Inputs: map[string]InputRef{"nixpkgs": PathRef("nixpkgs", "nested")},
	}
	lf.Nodes[RootName].Inputs["nixpkgs"] = Direct("nixpkgs")
	lf.Nodes[RootName].Inputs["flake-utils"] = Direct("flake-utils")

	lf.RenameInput("nixpkgs", "nixpkgs_2")

	if _, ok := lf.Nodes["nixpkgs"]; ok {
		t.Fatalf("old name should be gone")
	}
	if _, ok := lf.Nodes["nixpkgs_2"]; !ok {
		t.Fatalf("new name should be present")
	}
	ref := lf.Nodes["flake-utils"].Inputs["nixpkgs"]
	if ref.IsDirect() || ref.Path()[0] != "nixpkgs_2" {
		t.Fatalf("path head should have been rewritten, got %v", ref)
	}
	if ref.Path()[1] != "nested" {
		t.Fatalf("path tail should be untouched, got %v", ref)
	}

	// R5: rename back is the identity when neither name exists elsewhere.
	lf.RenameInput("nixpkgs_2", "nixpkgs")
	ref2 := lf.Nodes["flake-utils"].Inputs["nixpkgs"]
	if ref2.Path()[0] != "nixpkgs" {
		t.Fatalf("rename back should restore original head")
	}
}

func TestRenameInputNoopOnMissing(t *testing.T) {
	lf := Empty()
	before, _ := lf.MarshalJSON()
	lf.RenameInput("missing", "whatever")
	after, _ := lf.MarshalJSON()
	if string(before) != string(after) {
		t.Fatalf("RenameInput on missing node should be a no-op")
	}
}

func TestClosureDanglingRefIsMalformed(t *testing.T) {
	lf := Empty()
	lf.Nodes[RootName].Inputs["missing"] = Direct("does-not-exist")
	if _, err := lf.Closure(); err == nil {
		t.Fatalf("expected malformed lockfile error for dangling ref")
	} else if _, ok := err.(*MalformedError); !ok {
		t.Fatalf("expected *MalformedError, got %T: %v", err, err)
	}
}

func TestReadMissingRootIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.lock")
	if err := ioutil.WriteFile(path, []byte(`{"nodes":{},"root":"root","version":7}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Fatalf("expected error reading lockfile with missing root node")
	}
}

func TestInputSpecEqual(t *testing.T) {
	a := InputSpec{Type: TypeGitHub, Owner: "NixOS", Repo: "nixpkgs", Rev: "abc"}
	b := InputSpec{Type: TypeGitHub, Owner: "NixOS", Repo: "nixpkgs", Rev: "abc"}
	if !a.Equal(b) {
		t.Fatalf("expected equal InputSpecs")
	}
	c := b
	c.Rev = "def"
	if a.Equal(c) {
		t.Fatalf("expected unequal InputSpecs")
	}
}

func TestInputSpecOmitsAbsentFields(t *testing.T) {
	s := InputSpec{Type: TypeIndirect}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	json.Unmarshal(b, &m)
	for _, k := range []string{"narHash", "url", "owner", "repo", "dir", "rev", "ref", "revCount", "lastModified"} {
		if _, ok := m[k]; ok {
			t.Fatalf("expected field %q to be omitted, got %s", k, b)
		}
	}
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
