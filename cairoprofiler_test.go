package cairoprofiler

import (
	"bytes"
	"testing"

	"github.com/google/pprof/profile"
)

func TestBuildProfileFromTraceEndToEnd(t *testing.T) {
	const doc = `{"V1": {
		"entry_point": {"contract_address": "0x1", "entry_point_selector": "0x2", "entry_point_type": "EXTERNAL", "call_type": "Call"},
		"used_execution_resources": {"n_steps": 12, "n_memory_holes": 1, "builtin_instance_counter": {"pedersen": 2}, "syscall_counter": {}},
		"used_l1_resources": {"l2_l1_message_sizes": [3]},
		"nested_calls": []
	}}`

	prof, err := BuildProfileFromTrace([]byte(doc), NewReferenceCompiler(), OSResources{}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(prof.Sample) != 1 {
		t.Fatalf("got %d samples, want 1", len(prof.Sample))
	}

	var buf bytes.Buffer
	if err := prof.Write(&buf); err != nil {
		t.Fatal(err)
	}
	roundTripped, err := profile.Parse(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(roundTripped.Sample) != 1 {
		t.Fatalf("round-tripped profile has %d samples, want 1", len(roundTripped.Sample))
	}
}

func TestBuildProfileFromTraceRejectsMissingV1(t *testing.T) {
	if _, err := BuildProfileFromTrace([]byte(`{}`), NewReferenceCompiler(), OSResources{}, DefaultConfig()); err == nil {
		t.Fatal("expected an error for a trace envelope missing its V1 payload")
	}
}
