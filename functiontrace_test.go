package cairoprofiler

import (
	"fmt"
	"testing"
)

// program with a single user function F that calls itself, followed by a
// return; used to drive the shadow call-stack machinery directly.
func recursiveProgram() (*Program, CasmDebugInfo) {
	program := &Program{
		Funcs: []SierraFunction{{ID: "F", EntryPoint: 0}},
		Statements: []Statement{
			{Kind: StatementFunctionCall, LibfuncName: "function_call"},
			{Kind: StatementReturn},
		},
	}
	debugInfo := CasmDebugInfo{SierraStatementInfo: []SierraStatementInfo{
		{StartOffset: 0, EndOffset: 1},
		{StartOffset: 1, EndOffset: 2},
	}}
	return program, debugInfo
}

func TestTraceFunctionLevelScenario4RecursiveCollapsing(t *testing.T) {
	program, debugInfo := recursiveProgram()

	// push F, push F, push F, return, return, return
	trace := []TraceEntry{
		{PC: 1}, {PC: 1}, {PC: 1},
		{PC: 2}, {PC: 2}, {PC: 2},
	}

	cfg := FunctionTraceConfig{MaxFunctionStackTraceDepth: 100}
	result, err := TraceFunctionLevel(trace, program, debugInfo, false, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.FunctionSamples) != 1 {
		t.Fatalf("got %d distinct function samples, want 1 (recursive calls must collapse)", len(result.FunctionSamples))
	}

	sample := result.FunctionSamples[0]
	if len(sample.Stack) != 1 {
		t.Fatalf("collapsed stack has %d frames, want 1: %+v", len(sample.Stack), sample.Stack)
	}
	if sample.Stack[0].Kind != CallNonInlined || sample.Stack[0].Name != "F" {
		t.Fatalf("unexpected collapsed frame: %+v", sample.Stack[0])
	}
	if sample.Steps <= 0 {
		t.Errorf("expected positive attributed steps, got %d", sample.Steps)
	}
}

func TestTraceFunctionLevelHeaderSteps(t *testing.T) {
	program := &Program{
		Funcs:      []SierraFunction{{ID: "F", EntryPoint: 0}},
		Statements: []Statement{{Kind: StatementOther}},
	}
	debugInfo := CasmDebugInfo{SierraStatementInfo: []SierraStatementInfo{{StartOffset: 0, EndOffset: 1}}}

	// Scenario 3: run_with_call_header=true, final entry pc=7 => real_pc_0=8;
	// every entry here has pc < real_pc_0, so all 3 are pre-header entries.
	trace := []TraceEntry{
		{PC: 5}, {PC: 6}, {PC: 7},
	}

	cfg := FunctionTraceConfig{MaxFunctionStackTraceDepth: 100}
	result, err := TraceFunctionLevel(trace, program, debugInfo, true, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if result.HeaderSteps != 3 {
		t.Errorf("HeaderSteps = %d, want 3", result.HeaderSteps)
	}
}

// program with three distinct user functions, main -> F -> G, used to check
// that a Return statement attributes its own function as the leaf frame
// rather than whatever function last pushed onto the stack.
func nestedDistinctFunctionsProgram() (*Program, CasmDebugInfo) {
	program := &Program{
		Funcs: []SierraFunction{
			{ID: "main", EntryPoint: 0},
			{ID: "F", EntryPoint: 2},
			{ID: "G", EntryPoint: 4},
		},
		Statements: []Statement{
			{Kind: StatementFunctionCall, LibfuncName: "function_call"}, // 0: main calls F
			{Kind: StatementReturn},                                    // 1: main returns
			{Kind: StatementFunctionCall, LibfuncName: "function_call"}, // 2: F calls G
			{Kind: StatementReturn},                                    // 3: F returns
			{Kind: StatementReturn},                                    // 4: G returns
		},
	}
	debugInfo := CasmDebugInfo{SierraStatementInfo: []SierraStatementInfo{
		{StartOffset: 0, EndOffset: 1},
		{StartOffset: 1, EndOffset: 2},
		{StartOffset: 2, EndOffset: 3},
		{StartOffset: 3, EndOffset: 4},
		{StartOffset: 4, EndOffset: 5},
	}}
	return program, debugInfo
}

func TestTraceFunctionLevelReturnAttributesOwnLeafFrame(t *testing.T) {
	program, debugInfo := nestedDistinctFunctionsProgram()

	// main calls F, F calls G, G returns, F returns, main returns.
	trace := []TraceEntry{
		{PC: 1}, {PC: 3}, {PC: 5}, {PC: 4}, {PC: 2},
	}

	cfg := FunctionTraceConfig{MaxFunctionStackTraceDepth: 100}
	result, err := TraceFunctionLevel(trace, program, debugInfo, false, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}

	stacks := make(map[string][]string)
	for _, s := range result.FunctionSamples {
		names := make([]string, len(s.Stack))
		for i, c := range s.Stack {
			names[i] = string(c.Name)
		}
		stacks[fmt.Sprint(names)] = names
	}

	want := []string{"main", "F", "G"}
	if _, ok := stacks[fmt.Sprint(want)]; !ok {
		t.Fatalf("missing sample with full [main F G] stack; got samples: %+v", stacks)
	}

	if _, ok := stacks[fmt.Sprint([]string{"main", "F"})]; !ok {
		t.Errorf("missing sample attributing F's own return; got samples: %+v", stacks)
	}
	if _, ok := stacks[fmt.Sprint([]string{"main"})]; !ok {
		t.Errorf("missing sample attributing main's own return (entrypoint self-steps); got samples: %+v", stacks)
	}
}

func TestOverlappingSuffixLengthScenario5(t *testing.T) {
	current := []FunctionName{"A", "B"}
	// annotation chain [C_inner, B_outer] (most-nested first) reversed to
	// [B_outer, C_inner].
	reversed := []FunctionName{"B", "C"}

	overlap := overlappingSuffixLength(current, reversed)
	if overlap != 1 {
		t.Fatalf("overlap = %d, want 1", overlap)
	}
	extra := reversed[overlap:]
	if len(extra) != 1 || extra[0] != "C" {
		t.Fatalf("extra = %+v, want [C]", extra)
	}
}
