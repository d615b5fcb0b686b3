package cairoprofiler

import "encoding/json"

// StatementIdx indexes a single Sierra statement within a compiled program.
type StatementIdx int

// Program is the minimal slice of a Sierra program this tool needs:
// enough to map a statement index to the user function it belongs to, and
// to classify each statement's invocation as a call, a return, a syscall,
// or a plain libfunc.
type Program struct {
	// Funcs is sorted by EntryPoint ascending; UserFunctionIndex performs a
	// binary search (partition point) over it.
	Funcs      []SierraFunction `json:"funcs"`
	Statements []Statement      `json:"statements"`
}

// SierraFunction is one user-visible (possibly generic, possibly
// loop-expanded) function entry in the program.
type SierraFunction struct {
	ID         string       `json:"id"`
	EntryPoint StatementIdx `json:"entry_point"`
}

// StatementKind classifies a Sierra statement for the purposes of the
// function-trace builder. It is computed from the libfunc debug name found
// on the invocation, since this tool has no access to a real Sierra
// CoreConcreteLibfunc enum.
type StatementKind int

const (
	// StatementOther is any statement that doesn't affect the call stack
	// (the vast majority: arithmetic, memory, etc).
	StatementOther StatementKind = iota
	// StatementFunctionCall pushes a new frame.
	StatementFunctionCall
	// StatementReturn pops the current frame.
	StatementReturn
	// StatementSyscall is a starknet syscall libfunc invocation.
	StatementSyscall
	// StatementLibfunc is any other libfunc invocation of interest when
	// --show-libfuncs is set.
	StatementLibfunc
)

// Statement is one Sierra instruction: either an invocation of some libfunc
// or a return. The libfunc name drives StatementKind classification.
type Statement struct {
	Kind        StatementKind
	LibfuncName string
}

// UnmarshalJSON accepts two shapes, matching the externally tagged Sierra
// GenStatement enum: {"Invocation": {"libfunc_id": "..."}} or the bare
// string "Return".
func (s *Statement) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		s.Kind = StatementReturn
		return nil
	}

	var wrapped struct {
		Invocation *struct {
			LibfuncID string `json:"libfunc_id"`
		} `json:"Invocation"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Invocation == nil {
		s.Kind = StatementOther
		return nil
	}
	s.LibfuncName = wrapped.Invocation.LibfuncID
	s.Kind = classifyLibfunc(s.LibfuncName)
	return nil
}

func classifyLibfunc(name string) StatementKind {
	if name == "function_call" || hasPrefix(name, "function_call<") {
		return StatementFunctionCall
	}
	if _, ok := classifySyscallLibfunc(name); ok {
		return StatementSyscall
	}
	if name == "" {
		return StatementOther
	}
	return StatementLibfunc
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// UserFunctionIndex returns the index into Funcs of the user function that
// owns statement idx, via the same binary-search-minus-one (partition
// point) technique used for PC-to-statement mapping: the greatest index
// whose EntryPoint is <= idx.
func (p *Program) UserFunctionIndex(idx StatementIdx) int {
	lo, hi := 0, len(p.Funcs)
	for lo < hi {
		mid := (lo + hi) / 2
		if p.Funcs[mid].EntryPoint <= idx {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}
