package cairoprofiler

import (
	"github.com/cespare/xxhash/v2"
	"github.com/google/pprof/profile"
)

// Interner assigns stable, 1-based, dense integer ids to functions and
// multi-line locations, exactly once per distinct input. It owns no
// string table of its own for the pprof wire format (github.com/google/pprof/profile
// rebuilds that table, index 0 == "", when the profile is written) but it is
// the single place that decides whether two call-stack frames, or two
// FunctionNames, are "the same" for id-assignment purposes.
type Interner struct {
	functions map[FunctionName]*profile.Function
	locations map[uint64]*profile.Location
	// locationKeys guards against xxhash collisions between distinct
	// stacks by storing the exact key alongside each cached location.
	locationKeys map[uint64][]FunctionCall
	nextFuncID   uint64
	nextLocID    uint64
}

// NewInterner returns an empty Interner.
func NewInterner() *Interner {
	return &Interner{
		functions:    make(map[FunctionName]*profile.Function),
		locations:    make(map[uint64]*profile.Location),
		locationKeys: make(map[uint64][]FunctionCall),
	}
}

// FunctionID returns the (possibly newly assigned) *profile.Function for
// name, idempotently: the same name always yields the same pointer/id.
func (in *Interner) FunctionID(name FunctionName) *profile.Function {
	if fn, ok := in.functions[name]; ok {
		return fn
	}
	in.nextFuncID++
	fn := &profile.Function{
		ID:   in.nextFuncID,
		Name: string(name),
	}
	in.functions[name] = fn
	return fn
}

// LookupLocation returns the previously installed location for stackKey, if
// any.
func (in *Interner) LookupLocation(stackKey []FunctionCall) (*profile.Location, bool) {
	h := hashFunctionCalls(stackKey)
	if loc, ok := in.locations[h]; ok && sameFunctionCalls(in.locationKeys[h], stackKey) {
		return loc, true
	}
	return nil, false
}

// InstallLocation assigns a new id to stackKey and records loc under it.
// Calling this for a key that already has a location is a programming
// error in this package (callers always check LookupLocation first).
func (in *Interner) InstallLocation(stackKey []FunctionCall, loc *profile.Location) {
	in.nextLocID++
	loc.ID = in.nextLocID
	h := hashFunctionCalls(stackKey)
	in.locations[h] = loc
	in.locationKeys[h] = append([]FunctionCall(nil), stackKey...)
}

// Finish returns the dense, id-ordered function and location tables, ready
// for direct embedding in a pprof profile.
func (in *Interner) Finish() (functions []*profile.Function, locations []*profile.Location) {
	functions = make([]*profile.Function, in.nextFuncID)
	for _, fn := range in.functions {
		functions[fn.ID-1] = fn
	}
	locations = make([]*profile.Location, in.nextLocID)
	for _, loc := range in.locations {
		locations[loc.ID-1] = loc
	}
	return functions, locations
}

func hashFunctionCalls(calls []FunctionCall) uint64 {
	d := xxhash.New()
	for _, c := range calls {
		var tag byte
		switch c.Kind {
		case CallEntrypoint:
			tag = 'E'
		case CallNonInlined:
			tag = 'N'
		case CallInlined:
			tag = 'I'
		case CallSyscall:
			tag = 'S'
		case CallLibfunc:
			tag = 'L'
		}
		d.Write([]byte{tag, 0})
		d.Write([]byte(c.Name))
		d.Write([]byte{0})
	}
	return d.Sum64()
}

func sameFunctionCalls(a, b []FunctionCall) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
