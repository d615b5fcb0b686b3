package cairoprofiler

import "fmt"

// SierraStatementInfo is the CASM byte-offset range occupied by one Sierra
// statement's compiled code.
type SierraStatementInfo struct {
	StartOffset int
	EndOffset   int
}

// CasmDebugInfo is the per-statement offset table produced by compiling a
// Sierra program to CASM: SierraStatementInfo[i] is the byte range of
// Program.Statements[i]'s compiled form.
type CasmDebugInfo struct {
	SierraStatementInfo []SierraStatementInfo
}

// BytecodeLength is the offset one past the end of the compiled program.
func (d CasmDebugInfo) BytecodeLength() int {
	if len(d.SierraStatementInfo) == 0 {
		return 0
	}
	return d.SierraStatementInfo[len(d.SierraStatementInfo)-1].EndOffset
}

// StatementIndexForOffset returns the statement index whose range contains
// offset (partition point over StartOffset, minus one), or false when
// offset falls outside the compiled program entirely.
func (d CasmDebugInfo) StatementIndexForOffset(offset int) (StatementIdx, bool) {
	if offset >= d.BytecodeLength() {
		return 0, false
	}
	lo, hi := 0, len(d.SierraStatementInfo)
	for lo < hi {
		mid := (lo + hi) / 2
		if d.SierraStatementInfo[mid].StartOffset <= offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return StatementIdx(lo - 1), true
}

// StatementsFunctionsMap carries, per Sierra statement, the chain of
// inlined-function names the compiler recorded for that statement, ordered
// from most-nested inlined call down to the innermost user-visible source
// function (the order the annotation is authored in; callers that want
// most-outer-first must reverse it, see buildInlinedOverlay).
type StatementsFunctionsMap map[StatementIdx][]FunctionName

// SierraCompiler is the external collaborator this tool treats the real
// Sierra-to-CASM compiler as: given a program, it returns the debug info
// needed to map PCs to statements. The actual compiler
// (cairo-lang-sierra-to-casm) lives outside this module's scope entirely;
// only this narrow interface crosses the boundary.
type SierraCompiler interface {
	Compile(program *Program) (CasmDebugInfo, error)
}

// referenceCompiler is a stand-in SierraCompiler: it derives a
// deterministic one-CASM-word-per-statement debug info table directly from
// the statement count, which is sufficient to exercise the rest of the
// pipeline (PC replay, stack discipline, inlining overlay) without a real
// Sierra-to-CASM backend. It never encounters malformed input since it
// only consumes a Program already parsed by this tool.
type referenceCompiler struct {
	// wordsPerStatement, when > 1, spreads each statement over multiple
	// CASM offsets, which lets tests exercise PCs that land mid-statement.
	wordsPerStatement int
}

// NewReferenceCompiler returns a SierraCompiler producing one CASM offset
// per Sierra statement.
func NewReferenceCompiler() SierraCompiler {
	return &referenceCompiler{wordsPerStatement: 1}
}

func (c *referenceCompiler) Compile(program *Program) (CasmDebugInfo, error) {
	if program == nil {
		return CasmDebugInfo{}, fmt.Errorf("cairoprofiler: cannot compile a nil sierra program")
	}
	words := c.wordsPerStatement
	if words <= 0 {
		words = 1
	}
	info := make([]SierraStatementInfo, len(program.Statements))
	offset := 0
	for i := range program.Statements {
		info[i] = SierraStatementInfo{StartOffset: offset, EndOffset: offset + words}
		offset += words
	}
	return CasmDebugInfo{SierraStatementInfo: info}, nil
}
