package cairoprofiler

import "golang.org/x/exp/slices"

// CallKind discriminates the variants of FunctionCall.
type CallKind int

const (
	// CallEntrypoint is a top-level contract entrypoint invocation.
	CallEntrypoint CallKind = iota
	// CallNonInlined is a user function call that was not inlined away.
	CallNonInlined
	// CallInlined is a source-level function eliminated by the compiler,
	// recovered from debug annotations.
	CallInlined
	// CallSyscall is a starknet syscall libfunc invocation.
	CallSyscall
	// CallLibfunc is any other libfunc invocation of interest.
	CallLibfunc
)

// nonInlinable reports whether a frame of this kind must always start a new
// pprof location run (i.e. can never itself be an inlined continuation of
// a prior frame). Per the open question in the design notes, libfunc
// frames are treated as non-inlinable: they always start a new run.
func (k CallKind) nonInlinable() bool {
	return k != CallInlined
}

// FunctionCall is one frame of a sample's call stack: either a top-level
// entrypoint, or one of the internal-call variants (non-inlined user
// function, inlined function, syscall, or libfunc).
type FunctionCall struct {
	Kind CallKind
	Name FunctionName
}

func EntrypointCall(name FunctionName) FunctionCall {
	return FunctionCall{Kind: CallEntrypoint, Name: name}
}

func NonInlinedCall(name FunctionName) FunctionCall {
	return FunctionCall{Kind: CallNonInlined, Name: name}
}

func InlinedCall(name FunctionName) FunctionCall {
	return FunctionCall{Kind: CallInlined, Name: name}
}

func SyscallCall(name FunctionName) FunctionCall {
	return FunctionCall{Kind: CallSyscall, Name: name}
}

func LibfuncCall(name FunctionName) FunctionCall {
	return FunctionCall{Kind: CallLibfunc, Name: name}
}

// CallStack is an ordered sequence of FunctionCall, top-down (entrypoint
// first, innermost frame last) — the natural order produced while walking
// the trace. It is reversed only at pprof-encoding time (§4.6).
type CallStack []FunctionCall

// Clone returns an independent copy, used whenever a stack accumulator is
// about to be mutated in place but a snapshot must be kept (e.g. attributing
// a sample at the current stack depth before continuing to replay).
func (s CallStack) Clone() CallStack {
	return slices.Clone(s)
}

// key returns the stack's frames as a plain slice (not a copy) for use as an
// interner lookup key; the interner copies it when installing a location.
func (s CallStack) key() []FunctionCall {
	return []FunctionCall(s)
}
