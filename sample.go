package cairoprofiler

import "fmt"

// Sample is one row of the output profile: an ordered call stack (top-down,
// entrypoint first) and a map of measurement values, one per dynamically
// discovered unit.
type Sample struct {
	CallStack    CallStack
	Measurements map[string]int64
}

const (
	unitCalls              = "calls"
	unitSteps               = "steps"
	unitMemoryHoles         = "memory_holes"
	unitL2L1MessageSizes    = "l2_l1_message_sizes"
)

// BuildSamples walks trace's entrypoint tree depth-first, computing flat
// (self) resources at every node and collecting both entrypoint-level and
// function-level samples.
func BuildSamples(trace *CallTrace, artifacts *ArtifactsCache, osResources OSResources, cfg Config) ([]Sample, error) {
	walker := &sampleWalker{
		artifacts:   artifacts,
		osResources: osResources,
		cfg:         cfg,
	}
	if err := walker.walk(trace, nil); err != nil {
		return nil, err
	}
	return walker.samples, nil
}

type sampleWalker struct {
	artifacts   *ArtifactsCache
	osResources OSResources
	cfg         Config
	samples     []Sample
}

// walk processes trace, with stack holding the entrypoint-call frames of
// every ancestor, and returns the resources this node's subtree consumed
// (used by the caller to subtract from its own cumulative resources).
func (w *sampleWalker) walk(trace *CallTrace, stack CallStack) (ExecutionResources, error) {
	name := EntrypointDisplayName(trace.EntryPoint, w.cfg.ShowDetails)
	frameStack := append(stack.Clone(), EntrypointCall(name))

	var childrenResources ExecutionResources
	for _, node := range trace.NestedCalls {
		if node.IsDeployWithoutConstructor() {
			continue
		}
		childResources, err := w.walk(node.EntryPointCall, frameStack)
		if err != nil {
			return ExecutionResources{}, err
		}
		childrenResources = childrenResources.Add(childResources)
	}

	var headerSteps int64
	var haveHeaderSteps bool
	if trace.CairoExecutionInfo != nil {
		samples, hSteps, err := w.collectFunctionLevel(trace.CairoExecutionInfo, frameStack)
		if err != nil {
			return ExecutionResources{}, err
		}
		w.samples = append(w.samples, samples...)
		headerSteps = hSteps
		haveHeaderSteps = true
	}

	callResources := trace.CumulativeResources.Sub(childrenResources)
	if haveHeaderSteps {
		callResources.NSteps = headerSteps
	}

	measurements := map[string]int64{
		unitCalls:           1,
		unitSteps:           callResources.NSteps,
		unitMemoryHoles:     callResources.NMemoryHoles,
		unitL2L1MessageSizes: trace.UsedL1Resources.totalMessageSize(),
	}
	for builtin, count := range callResources.BuiltinInstanceCounter {
		measurements[builtin] = count
	}
	for syscall, count := range callResources.SyscallCounter {
		measurements[syscall] = count
	}

	w.samples = append(w.samples, Sample{CallStack: frameStack, Measurements: measurements})

	return trace.CumulativeResources, nil
}

// collectFunctionLevel runs the function-trace builder over one node's
// Cairo execution info and turns its raw output into fully measured
// samples, prefixed with the entrypoint stack the node lives under.
func (w *sampleWalker) collectFunctionLevel(info *CairoExecutionInfo, entrypointStack CallStack) ([]Sample, int64, error) {
	artifacts, err := w.artifacts.Get(info.SourceSierraPath)
	if err != nil {
		return nil, 0, err
	}

	traceCfg := FunctionTraceConfig{
		MaxFunctionStackTraceDepth: w.cfg.MaxFunctionStackTraceDepth,
		SplitGenerics:              w.cfg.SplitGenerics,
		ShowInlinedFunctions:       w.cfg.ShowInlinedFunctions,
		ShowLibfuncs:               w.cfg.ShowLibfuncs,
	}

	result, err := TraceFunctionLevel(
		info.CasmLevelInfo.VMTrace,
		artifacts.Program,
		artifacts.CasmDebugInfo,
		info.CasmLevelInfo.RunWithCallHeader,
		artifacts.StatementsFunctionsMap,
		traceCfg,
	)
	if err != nil {
		return nil, 0, err
	}

	if w.cfg.ShowInlinedFunctions && artifacts.StatementsFunctionsMap == nil {
		warnOnce(warnMissingInlineAnnotations, "no inlined-function annotations found for %s", info.SourceSierraPath)
	}

	var samples []Sample
	for _, fs := range result.FunctionSamples {
		samples = append(samples, Sample{
			CallStack:    append(entrypointStack.Clone(), fs.Stack...),
			Measurements: map[string]int64{unitSteps: fs.Steps},
		})
	}

	for _, ss := range result.SyscallSamples {
		sample, err := w.enrichSyscallSample(entrypointStack, ss)
		if err != nil {
			return nil, 0, err
		}
		samples = append(samples, sample)
	}

	return samples, result.HeaderSteps, nil
}

// enrichSyscallSample looks up the canonical per-invocation cost of the
// syscall named by the stack's last frame, scales it by the invocation
// count, and builds the resulting full-resource Sample.
func (w *sampleWalker) enrichSyscallSample(entrypointStack CallStack, ss SyscallStackSample) (Sample, error) {
	if len(ss.Stack) == 0 {
		return Sample{}, fmt.Errorf("cairoprofiler: syscall sample with empty call stack")
	}
	last := ss.Stack[len(ss.Stack)-1]
	selName := trimSyscallPrefix(string(last.Name))
	sel, err := ParseSyscallSelector(selName)
	if err != nil {
		return Sample{}, err
	}
	cost, err := w.osResources.CostFor(sel)
	if err != nil {
		return Sample{}, err
	}
	scaled, err := cost.ScaleByInvocations(ss.Count)
	if err != nil {
		return Sample{}, err
	}

	measurements := map[string]int64{
		unitSteps:       scaled.NSteps,
		unitMemoryHoles: scaled.NMemoryHoles,
	}
	for builtin, count := range scaled.BuiltinInstanceCounter {
		measurements[builtin] = count
	}

	return Sample{
		CallStack:    append(entrypointStack.Clone(), ss.Stack...),
		Measurements: measurements,
	}, nil
}

func trimSyscallPrefix(name string) string {
	const prefix = "syscall: "
	if len(name) > len(prefix) && name[:len(prefix)] == prefix {
		return name[len(prefix):]
	}
	return name
}
