package cairoprofiler

import "testing"

func TestBuildProfileLocationFoldingScenario5(t *testing.T) {
	// [A, B_noninline, Inlined(C_inner)] must fold into one location with
	// two lines, ordered [C_inner, B_noninline] after the final reverse.
	stack := CallStack{
		EntrypointCall("A"),
		NonInlinedCall("B"),
		InlinedCall("C"),
	}
	samples := []Sample{{CallStack: stack, Measurements: map[string]int64{"steps": 1}}}

	prof, err := BuildProfile(samples)
	if err != nil {
		t.Fatal(err)
	}

	if len(prof.Sample) != 1 {
		t.Fatalf("got %d samples, want 1", len(prof.Sample))
	}
	locs := prof.Sample[0].Location
	if len(locs) != 2 {
		t.Fatalf("got %d locations, want 2 (A alone, then B+Inlined(C) folded)", len(locs))
	}

	// leaf-first: locs[0] is the B+C run, locs[1] is the A run.
	bcRun := locs[0]
	if len(bcRun.Line) != 2 {
		t.Fatalf("folded location has %d lines, want 2", len(bcRun.Line))
	}
	if bcRun.Line[0].Function.Name != "C" || bcRun.Line[1].Function.Name != "B" {
		t.Fatalf("unexpected line order: %s, %s", bcRun.Line[0].Function.Name, bcRun.Line[1].Function.Name)
	}

	aRun := locs[1]
	if len(aRun.Line) != 1 || aRun.Line[0].Function.Name != "A" {
		t.Fatalf("unexpected outer run: %+v", aRun)
	}
}

func TestBuildProfileRejectsLeadingInlinedFrame(t *testing.T) {
	stack := CallStack{InlinedCall("C")}
	samples := []Sample{{CallStack: stack, Measurements: map[string]int64{"steps": 1}}}
	if _, err := BuildProfile(samples); err == nil {
		t.Fatal("expected an error: an inlined frame can never be the first frame of a location run")
	}
}

func TestBuildProfileFunctionAndLocationIDsAreDenseAndOneBased(t *testing.T) {
	samples := []Sample{
		{CallStack: CallStack{EntrypointCall("A")}, Measurements: map[string]int64{"steps": 1}},
		{CallStack: CallStack{EntrypointCall("B")}, Measurements: map[string]int64{"steps": 2}},
		{CallStack: CallStack{EntrypointCall("A")}, Measurements: map[string]int64{"steps": 3}},
	}

	prof, err := BuildProfile(samples)
	if err != nil {
		t.Fatal(err)
	}

	if len(prof.Function) != 2 {
		t.Fatalf("got %d functions, want 2 (A and B deduplicated)", len(prof.Function))
	}
	for i, fn := range prof.Function {
		if fn.ID != uint64(i+1) {
			t.Errorf("function[%d].ID = %d, want %d", i, fn.ID, i+1)
		}
	}
	for i, loc := range prof.Location {
		if loc.ID != uint64(i+1) {
			t.Errorf("location[%d].ID = %d, want %d", i, loc.ID, i+1)
		}
	}
}

func TestDiscoverUnitsOrdersKnownUnitsFirst(t *testing.T) {
	samples := []Sample{
		{Measurements: map[string]int64{"zeta": 1, "steps": 1, "calls": 1}},
	}
	units := discoverUnits(samples)
	if units[0] != unitCalls || units[1] != unitSteps {
		t.Fatalf("unexpected unit order: %v", units)
	}
}

func TestPrettifyUnit(t *testing.T) {
	if got := prettifyUnit("n_steps"); got != " steps" {
		t.Errorf("prettifyUnit(n_steps) = %q, want %q", got, " steps")
	}
	if got := prettifyUnit("memory_holes"); got != " memory holes" {
		t.Errorf("prettifyUnit(memory_holes) = %q, want %q", got, " memory holes")
	}
}
