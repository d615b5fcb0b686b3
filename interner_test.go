package cairoprofiler

import (
	"testing"

	"github.com/google/pprof/profile"
)

func TestInternerFunctionIDIsIdempotent(t *testing.T) {
	in := NewInterner()
	a := in.FunctionID("F")
	b := in.FunctionID("F")
	if a != b {
		t.Fatalf("FunctionID(\"F\") returned distinct pointers: %p vs %p", a, b)
	}
	c := in.FunctionID("G")
	if c.ID == a.ID {
		t.Errorf("distinct names got the same id %d", a.ID)
	}
}

func TestInternerLocationRoundTrip(t *testing.T) {
	in := NewInterner()
	key := []FunctionCall{NonInlinedCall("A"), InlinedCall("B")}

	if _, ok := in.LookupLocation(key); ok {
		t.Fatal("expected no location before installation")
	}

	loc := &profile.Location{}
	in.InstallLocation(key, loc)

	got, ok := in.LookupLocation(key)
	if !ok || got != loc {
		t.Fatalf("LookupLocation did not return the installed location")
	}

	// A distinct key must not collide even if it happens to hash the same
	// bucket structurally (different content).
	other := []FunctionCall{NonInlinedCall("A"), InlinedCall("C")}
	if _, ok := in.LookupLocation(other); ok {
		t.Fatal("expected a miss for a distinct stack key")
	}
}
