package cairoprofiler

import (
	"regexp"
	"testing"
)

func TestTopFunctionsAttributesHiddenFramesToNextVisible(t *testing.T) {
	// Stack: A -> hidden -> B. With hide matching "hidden", the middle frame
	// drops out of the table entirely; the leaf B keeps its own flat value
	// and A still accounts for the whole sample cumulatively.
	samples := []Sample{
		{
			CallStack: CallStack{
				EntrypointCall("A"),
				NonInlinedCall("hidden"),
				NonInlinedCall("B"),
			},
			Measurements: map[string]int64{"steps": 10},
		},
	}

	prof, err := BuildProfile(samples)
	if err != nil {
		t.Fatal(err)
	}

	hide := regexp.MustCompile("^hidden$")
	rows, err := TopFunctions(prof, "steps", hide)
	if err != nil {
		t.Fatal(err)
	}

	byName := make(map[string]FunctionProfile)
	for _, r := range rows {
		byName[r.Name] = r
	}

	if _, ok := byName["hidden"]; ok {
		t.Errorf("hidden frame must not appear as its own row: %+v", rows)
	}
	if got := byName["B"].Flat; got != 10 {
		t.Errorf("B flat = %d, want 10 (leaf frame keeps its own value)", got)
	}
	if got := byName["A"].Cumulative; got != 10 {
		t.Errorf("A cumulative = %d, want 10", got)
	}
}

func TestTopFunctionsAttributesHiddenLeafToCaller(t *testing.T) {
	// When the leaf frame itself matches hide, its flat value goes to its
	// nearest visible caller (only the outermost frame is never hidden).
	samples := []Sample{
		{
			CallStack: CallStack{
				EntrypointCall("A"),
				NonInlinedCall("hidden"),
			},
			Measurements: map[string]int64{"steps": 5},
		},
	}

	prof, err := BuildProfile(samples)
	if err != nil {
		t.Fatal(err)
	}

	hide := regexp.MustCompile("^hidden$")
	rows, err := TopFunctions(prof, "steps", hide)
	if err != nil {
		t.Fatal(err)
	}

	byName := make(map[string]FunctionProfile)
	for _, r := range rows {
		byName[r.Name] = r
	}
	if _, ok := byName["hidden"]; ok {
		t.Errorf("hidden leaf frame must not appear as its own row: %+v", rows)
	}
	if got := byName["A"].Flat; got != 5 {
		t.Errorf("A flat = %d, want 5 (absorbs the hidden leaf's value)", got)
	}
}

func TestTopFunctionsUnknownSampleType(t *testing.T) {
	samples := []Sample{{CallStack: CallStack{EntrypointCall("A")}, Measurements: map[string]int64{"steps": 1}}}
	prof, err := BuildProfile(samples)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := TopFunctions(prof, "not_a_real_unit", nil); err == nil {
		t.Fatal("expected an error for an unknown sample type")
	}
}
