package cairoprofiler

import "fmt"

// FunctionTraceConfig is the subset of Config the function-trace builder
// consults.
type FunctionTraceConfig struct {
	MaxFunctionStackTraceDepth int
	SplitGenerics              bool
	ShowInlinedFunctions       bool
	ShowLibfuncs               bool
}

// FunctionStackSample is one accumulated (call_stack -> steps) entry
// produced by replaying a VM trace.
type FunctionStackSample struct {
	Stack CallStack
	Steps int64
}

// SyscallStackSample is one accumulated (call_stack -> invocation count)
// entry; the stack's last frame names the syscall.
type SyscallStackSample struct {
	Stack CallStack
	Count int64
}

// FunctionTraceResult is the output of replaying one entrypoint's VM trace:
// per-call-stack step attributions, per-call-stack syscall invocation
// counts, and the steps consumed before the real program counter (the
// entrypoint's own header overhead).
type FunctionTraceResult struct {
	FunctionSamples []FunctionStackSample
	SyscallSamples  []SyscallStackSample
	HeaderSteps     int64
}

// openFrame is one entry of the bounded call stack: the caller that issued
// a function_call, and the caller's own current_function_steps value at
// the moment of the call, saved so it can be restored once the callee
// returns.
type openFrame struct {
	callerFuncIdx int
	savedSteps    int64
}

// TraceFunctionLevel replays a VM trace recorded for one entrypoint's Cairo
// execution info, mapping each program-counter step to its Sierra statement
// and user function, driving a shadow call stack across FunctionCall/Return
// instructions, and attributing VM steps to the resulting (possibly
// recursion-collapsed, possibly inlining-overlaid) call stacks.
func TraceFunctionLevel(
	vmTrace []TraceEntry,
	program *Program,
	debugInfo CasmDebugInfo,
	runWithCallHeader bool,
	statementsFunctions StatementsFunctionsMap,
	cfg FunctionTraceConfig,
) (FunctionTraceResult, error) {
	var realPC0 uint64 = 1
	if runWithCallHeader && len(vmTrace) > 0 {
		realPC0 = vmTrace[len(vmTrace)-1].PC + 1
	}

	maxDepth := cfg.MaxFunctionStackTraceDepth
	if maxDepth < 0 {
		maxDepth = 0
	}

	var (
		headerSteps          int64
		currentFunctionSteps int64
		stack                []openFrame
		stackDepth           int
		endOfProgramReached  bool
	)

	funcAccum := make(map[string]*FunctionStackSample)
	syscallAccum := make(map[string]*SyscallStackSample)

	accumulateFunc := func(stack CallStack, steps int64) {
		key := stackAccumKey(stack)
		entry, ok := funcAccum[key]
		if !ok {
			entry = &FunctionStackSample{Stack: stack.Clone()}
			funcAccum[key] = entry
		}
		entry.Steps += steps
	}
	accumulateSyscall := func(stack CallStack) {
		key := stackAccumKey(stack)
		entry, ok := syscallAccum[key]
		if !ok {
			entry = &SyscallStackSample{Stack: stack.Clone()}
			syscallAccum[key] = entry
		}
		entry.Count++
	}

	// namesOf maps the open-call stack's caller indices to normalized
	// names, collapsing adjacent duplicates so direct recursion does not
	// produce one frame per recursive call.
	namesOf := func(frames []openFrame) []FunctionName {
		raw := make([]FunctionName, len(frames))
		for i, f := range frames {
			raw[i] = NormalizeFunctionName(program.Funcs[f.callerFuncIdx].ID, cfg.SplitGenerics)
		}
		return collapseAdjacentNames(raw)
	}
	reportedNames := func() []FunctionName {
		return namesOf(stack)
	}

	// attribute builds the attribution stack for a Return: every open
	// caller on the stack, plus the function that owns the Return
	// statement itself (recomputed fresh, never read off the stack,
	// since the stack only ever holds caller identities) as the tail
	// frame — then collapses adjacent duplicate names so recursion
	// doesn't fragment the flame graph.
	attribute := func(statementIdx StatementIdx, leafUserFuncIdx int) {
		raw := make([]FunctionName, 0, len(stack)+1)
		for _, f := range stack {
			raw = append(raw, NormalizeFunctionName(program.Funcs[f.callerFuncIdx].ID, cfg.SplitGenerics))
		}
		raw = append(raw, NormalizeFunctionName(program.Funcs[leafUserFuncIdx].ID, cfg.SplitGenerics))
		names := collapseAdjacentNames(raw)

		calls := make(CallStack, 0, len(names))
		for _, n := range names {
			calls = append(calls, NonInlinedCall(n))
		}

		if cfg.ShowInlinedFunctions && statementsFunctions != nil {
			overlay := buildInlinedOverlay(names, statementIdx, statementsFunctions, cfg.SplitGenerics)
			calls = append(calls, overlay...)
		}

		accumulateFunc(calls, currentFunctionSteps)
	}

	for _, entry := range vmTrace {
		if runWithCallHeader && entry.PC < realPC0 {
			headerSteps++
			continue
		}
		if endOfProgramReached {
			return FunctionTraceResult{}, fmt.Errorf("cairoprofiler: end of program reached, but trace continues")
		}

		offset := int(entry.PC - realPC0)
		currentFunctionSteps++

		statementIdx, inArea := debugInfo.StatementIndexForOffset(offset)
		if !inArea {
			continue
		}

		stmt := program.Statements[statementIdx]
		switch stmt.Kind {
		case StatementFunctionCall:
			// The call statement belongs to the caller, not the callee
			// — the callee's identity is only discovered once its own
			// statements start executing.
			callerIdx := program.UserFunctionIndex(statementIdx)
			if stackDepth < maxDepth {
				stack = append(stack, openFrame{callerFuncIdx: callerIdx, savedSteps: currentFunctionSteps})
				currentFunctionSteps = 0
			}
			stackDepth++

		case StatementReturn:
			// The Return statement belongs to the function that is
			// actually returning, so its leaf frame is always
			// recomputed here rather than read off the stack, which
			// holds caller identities only.
			leafIdx := program.UserFunctionIndex(statementIdx)
			if stackDepth <= maxDepth {
				attribute(statementIdx, leafIdx)

				if len(stack) == 0 {
					endOfProgramReached = true
					continue
				}
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				currentFunctionSteps = top.savedSteps
			}
			stackDepth--

		case StatementSyscall:
			sel, _ := classifySyscallLibfunc(stmt.LibfuncName)
			names := reportedNames()
			calls := make(CallStack, 0, len(names)+1)
			for _, n := range names {
				calls = append(calls, NonInlinedCall(n))
			}
			calls = append(calls, SyscallCall(FunctionName("syscall: "+sel.String())))
			accumulateSyscall(calls)

		case StatementLibfunc:
			if cfg.ShowLibfuncs {
				names := reportedNames()
				calls := make(CallStack, 0, len(names)+1)
				for _, n := range names {
					calls = append(calls, NonInlinedCall(n))
				}
				calls = append(calls, LibfuncCall(FunctionName(stmt.LibfuncName)))
				accumulateFunc(calls, 1)
			}

		case StatementOther:
			// no call-stack effect
		}
	}

	result := FunctionTraceResult{HeaderSteps: headerSteps}
	for _, s := range funcAccum {
		result.FunctionSamples = append(result.FunctionSamples, *s)
	}
	for _, s := range syscallAccum {
		result.SyscallSamples = append(result.SyscallSamples, *s)
	}
	return result, nil
}

// collapseAdjacentNames consolidates consecutive repeats of the same
// function name into one, so that direct (or loop-expanded) recursion
// doesn't fragment a flame graph into one frame per call.
func collapseAdjacentNames(names []FunctionName) []FunctionName {
	if len(names) == 0 {
		return names
	}
	out := make([]FunctionName, 1, len(names))
	out[0] = names[0]
	for _, n := range names[1:] {
		if n != out[len(out)-1] {
			out = append(out, n)
		}
	}
	return out
}

// buildInlinedOverlay computes the Inlined(...) frames to append to an
// attribution stack, per the statement's inlined-function annotation.
func buildInlinedOverlay(currentStack []FunctionName, idx StatementIdx, sfm StatementsFunctionsMap, splitGenerics bool) []FunctionCall {
	chain, ok := sfm[idx]
	if !ok || len(chain) == 0 {
		return nil
	}

	// The annotation lists the most-nested inlined call first; the
	// overlay wants most-outer first.
	reversed := make([]FunctionName, len(chain))
	for i, n := range chain {
		reversed[len(chain)-1-i] = NormalizeFunctionName(string(n), splitGenerics)
	}

	overlap := overlappingSuffixLength(currentStack, reversed)
	extra := reversed[overlap:]
	out := make([]FunctionCall, len(extra))
	for i, n := range extra {
		out[i] = InlinedCall(n)
	}
	return out
}

// overlappingSuffixLength finds the longest suffix of current that matches
// a prefix of suffix, trying the longest candidate first so the longest
// match wins.
func overlappingSuffixLength(current, suffix []FunctionName) int {
	n := len(current)
	start := n - len(suffix)
	if start < 0 {
		start = 0
	}
	for i := start; i < n; i++ {
		length := n - i
		if length > len(suffix) {
			continue
		}
		match := true
		for j := 0; j < length; j++ {
			if suffix[j] != current[i+j] {
				match = false
				break
			}
		}
		if match {
			return length
		}
	}
	return 0
}

func stackAccumKey(stack CallStack) string {
	var buf []byte
	for _, c := range stack {
		buf = append(buf, byte(c.Kind), 0)
		buf = append(buf, c.Name...)
		buf = append(buf, 0)
	}
	return string(buf)
}
