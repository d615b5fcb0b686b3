package cairoprofiler

import "testing"

func TestNormalizeFunctionName(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		splitGenerics bool
		want          string
	}{
		{"strips loop suffix", "core::loop[expr12]", false, "core::loop"},
		{"strips generics by default", "array::ArrayImpl::<felt252>::append", false, "array::ArrayImpl::::append"},
		{"keeps generics when split", "array::ArrayImpl::<felt252>::append", true, "array::ArrayImpl::<felt252>::append"},
		{"strips both, loop first", "foo[expr3]<u32>", false, "foo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeFunctionName(tt.raw, tt.splitGenerics); string(got) != tt.want {
				t.Errorf("NormalizeFunctionName(%q, %v) = %q, want %q", tt.raw, tt.splitGenerics, got, tt.want)
			}
		})
	}
}

func TestEntrypointDisplayNameScenario1(t *testing.T) {
	entry := CallEntryPoint{
		ContractAddress:    "0x0",
		EntryPointSelector: "0x0",
	}
	want := "Contract: <unknown>\nAddress: 0x0\nFunction: <unknown>\nSelector: 0x0\n"
	if got := EntrypointDisplayName(entry, false); string(got) != want {
		t.Errorf("EntrypointDisplayName = %q, want %q", got, want)
	}
}

func TestEntrypointDisplayNameKnownNames(t *testing.T) {
	contract := "MyContract"
	fn := "transfer"
	entry := CallEntryPoint{
		ContractName:       &contract,
		FunctionName:       &fn,
		ContractAddress:    "0x1",
		EntryPointSelector: "0x2",
	}
	want := "Contract: MyContract\nFunction: transfer\n"
	if got := EntrypointDisplayName(entry, false); string(got) != want {
		t.Errorf("EntrypointDisplayName = %q, want %q", got, want)
	}

	wantWithDetails := "Contract: MyContract\nAddress: 0x1\nFunction: transfer\nSelector: 0x2\n"
	if got := EntrypointDisplayName(entry, true); string(got) != wantWithDetails {
		t.Errorf("EntrypointDisplayName(showDetails) = %q, want %q", got, wantWithDetails)
	}
}
