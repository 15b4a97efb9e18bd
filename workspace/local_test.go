package workspace

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalReadMissingIsEmpty(t *testing.T) {
	dir := t.TempDir()
	l, err := ReadLocal(filepath.Join(dir, "local.json"))
	if err != nil {
		t.Fatalf("ReadLocal: %v", err)
	}
	if len(l.Projects) != 0 {
		t.Fatalf("expected empty overlay, got %#v", l.Projects)
	}
	if l.IsEditable("project-a") {
		t.Fatalf("absent project should default to non-editable")
	}
}

func TestLocalRoundTrip(t *testing.T) {
	l := NewLocal()
	l.SetEditable("project-a", true)
	l.SetEditable("project-b", false)

	dir := t.TempDir()
	path := filepath.Join(dir, "local.json")
	if err := l.Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := ReadLocal(path)
	if err != nil {
		t.Fatalf("ReadLocal: %v", err)
	}
	if !got.IsEditable("project-a") {
		t.Fatalf("project-a should be editable")
	}
	if got.IsEditable("project-b") {
		t.Fatalf("project-b should not be editable")
	}
}

func TestLocalWireShape(t *testing.T) {
	l := NewLocal()
	l.SetEditable("project-a", true)
	dir := t.TempDir()
	path := filepath.Join(dir, "local.json")
	if err := l.Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `"projects"`
	if !strings.Contains(string(b), want) {
		t.Fatalf("expected %q in %s", want, b)
	}
}

func TestLocalForget(t *testing.T) {
	l := NewLocal()
	l.SetEditable("project-a", true)
	l.Forget("project-a")
	if l.IsEditable("project-a") {
		t.Fatalf("expected project-a to be forgotten")
	}
}
