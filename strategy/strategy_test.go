package strategy

import (
	"testing"

	"github.com/chadac/nixspace/proc"
)

func sampleRevs() []proc.RemoteRef {
	return []proc.RemoteRef{
		{Rev: "head1", Ref: "HEAD"},
		{Rev: "tag1", Ref: "refs/tags/v1.0.0"},
		{Rev: "tag2", Ref: "refs/tags/v1.2.0"},
		{Rev: "tag3", Ref: "refs/tags/release-1"},
		{Rev: "tag4", Ref: "refs/tags/release-2"},
		{Rev: "branch1", Ref: "main"},
	}
}

func TestLatestFindsHead(t *testing.T) {
	rev, ok, err := Latest{}.GetRev(sampleRevs())
	if err != nil || !ok || rev != "head1" {
		t.Fatalf("rev=%q ok=%v err=%v", rev, ok, err)
	}
}

func TestLatestErrorsWithoutHead(t *testing.T) {
	revs := []proc.RemoteRef{{Rev: "x", Ref: "refs/tags/v1"}}
	_, _, err := Latest{}.GetRev(revs)
	if err == nil {
		t.Fatalf("expected error when HEAD is absent")
	}
}

func TestFreezeNeverChangesRev(t *testing.T) {
	_, ok, err := Freeze{}.GetRev(sampleRevs())
	if err != nil || ok {
		t.Fatalf("freeze should never return a rev: ok=%v err=%v", ok, err)
	}
}

func TestLatestTagDefaultGlobTakesLastMatch(t *testing.T) {
	rev, ok, err := LatestTag{}.GetRev(sampleRevs())
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if rev != "tag4" {
		t.Fatalf("expected last tag entry in listing order (tag4), got %q", rev)
	}
}

func TestLatestTagWithGlob(t *testing.T) {
	rev, ok, err := LatestTag{Glob: "release-*"}.GetRev(sampleRevs())
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if rev != "tag4" {
		t.Fatalf("expected last release-* match (tag4), got %q", rev)
	}
}

func TestLatestTagNoMatchIsAbsentNotError(t *testing.T) {
	_, ok, err := LatestTag{Glob: "nope-*"}.GetRev(sampleRevs())
	if err != nil {
		t.Fatalf("no match should not be an error: %v", err)
	}
	if ok {
		t.Fatalf("expected no match")
	}
}

func TestBranchFindsExactRef(t *testing.T) {
	rev, ok, err := Branch{Name: "main"}.GetRev(sampleRevs())
	if err != nil || !ok || rev != "branch1" {
		t.Fatalf("rev=%q ok=%v err=%v", rev, ok, err)
	}
}

func TestBranchErrorsWhenAbsent(t *testing.T) {
	_, _, err := Branch{Name: "does-not-exist"}.GetRev(sampleRevs())
	if err == nil {
		t.Fatalf("expected error for missing branch")
	}
}

func TestParsePolicy(t *testing.T) {
	cases := []struct {
		kind, payload string
		want          Policy
	}{
		{"latest", "", Latest{}},
		{"freeze", "", Freeze{}},
		{"latest-tag", "release-*", LatestTag{Glob: "release-*"}},
		{"branch", "main", Branch{Name: "main"}},
	}
	for _, c := range cases {
		got, err := ParsePolicy(c.kind, c.payload)
		if err != nil {
			t.Fatalf("ParsePolicy(%q, %q): %v", c.kind, c.payload, err)
		}
		if got != c.want {
			t.Fatalf("ParsePolicy(%q, %q) = %#v, want %#v", c.kind, c.payload, got, c.want)
		}
	}
}

func TestParsePolicyBranchRequiresName(t *testing.T) {
	if _, err := ParsePolicy("branch", ""); err == nil {
		t.Fatalf("expected error for branch strategy with no name")
	}
}

func TestParsePolicyUnknownKind(t *testing.T) {
	if _, err := ParsePolicy("bogus", ""); err == nil {
		t.Fatalf("expected error for unknown strategy kind")
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		p    Policy
		want string
	}{
		{Latest{}, "latest"},
		{Freeze{}, "freeze"},
		{LatestTag{}, "latest-tag"},
		{Branch{Name: "main"}, "branch"},
	}
	for _, c := range cases {
		if got := Kind(c.p); got != c.want {
			t.Fatalf("Kind(%#v) = %q, want %q", c.p, got, c.want)
		}
	}
}
