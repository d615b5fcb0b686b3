package cairoprofiler

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// CompiledArtifacts is everything the function-trace builder needs for one
// Sierra source: the program itself, its compiled CASM debug info, and an
// optional per-statement inlined-function annotation map.
type CompiledArtifacts struct {
	Program                 *Program
	CasmDebugInfo           CasmDebugInfo
	StatementsFunctionsMap  StatementsFunctionsMap // nil if the artifact carries no annotations
}

// ArtifactsCache loads, compiles, and memoises CompiledArtifacts keyed by
// canonical source path. One cache is used for the lifetime of a single
// profile build.
type ArtifactsCache struct {
	compiler SierraCompiler
	entries  map[string]CompiledArtifacts
}

// NewArtifactsCache returns an empty cache that compiles programs through
// compiler.
func NewArtifactsCache(compiler SierraCompiler) *ArtifactsCache {
	return &ArtifactsCache{compiler: compiler, entries: make(map[string]CompiledArtifacts)}
}

// Get returns the compiled artifacts for path, loading and compiling on
// first access and serving the cached value on every subsequent one.
func (c *ArtifactsCache) Get(path string) (CompiledArtifacts, error) {
	key, err := canonicalPath(path)
	if err != nil {
		return CompiledArtifacts{}, fmt.Errorf("cairoprofiler: canonicalizing sierra path %q: %w", path, err)
	}
	if artifacts, ok := c.entries[key]; ok {
		return artifacts, nil
	}

	raw, err := os.ReadFile(key)
	if err != nil {
		return CompiledArtifacts{}, fmt.Errorf("cairoprofiler: reading sierra source %q: %w", key, err)
	}

	program, statementsFunctions, err := decodeSierraSource(raw)
	if err != nil {
		return CompiledArtifacts{}, fmt.Errorf("cairoprofiler: could not deserialise sierra source %q: %w", key, err)
	}

	debugInfo, err := c.compiler.Compile(program)
	if err != nil {
		return CompiledArtifacts{}, fmt.Errorf("cairoprofiler: compiling sierra source %q: %w", key, err)
	}

	artifacts := CompiledArtifacts{
		Program:                program,
		CasmDebugInfo:          debugInfo,
		StatementsFunctionsMap: statementsFunctions,
	}
	c.entries[key] = artifacts
	return artifacts, nil
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// sierraAnnotationsKey is the key under which the inlined-function map is
// published in a compiled contract class's debug_info.annotations, matching
// the annotation namespace the upstream profiler publishes into.
const sierraAnnotationsKey = "github.com/software-mansion/cairo-profiler"

// contractClassShape is the on-disk shape produced when a Sierra program is
// embedded in a full Starknet contract class artifact.
type contractClassShape struct {
	SierraProgramDebugInfo *struct {
		Annotations map[string]json.RawMessage `json:"annotations"`
	} `json:"sierra_program_debug_info"`
	SierraProgram *Program `json:"sierra_program"`
}

// versionedProgramShape is the on-disk shape of a bare versioned Sierra
// program with no surrounding contract-class envelope.
type versionedProgramShape struct {
	DebugInfo *struct {
		Annotations map[string]json.RawMessage `json:"annotations"`
	} `json:"debug_info"`
	Program *Program `json:"program"`
}

// decodeSierraSource tries the contract-class shape first, then the bare
// versioned-program shape; the first shape that parses wins, and decoding
// fails when neither does.
func decodeSierraSource(raw []byte) (*Program, StatementsFunctionsMap, error) {
	var cc contractClassShape
	if err := json.Unmarshal(raw, &cc); err == nil && cc.SierraProgram != nil {
		var annotations map[string]json.RawMessage
		if cc.SierraProgramDebugInfo != nil {
			annotations = cc.SierraProgramDebugInfo.Annotations
		}
		return cc.SierraProgram, extractStatementsFunctions(annotations), nil
	}

	var vp versionedProgramShape
	if err := json.Unmarshal(raw, &vp); err == nil && vp.Program != nil {
		var annotations map[string]json.RawMessage
		if vp.DebugInfo != nil {
			annotations = vp.DebugInfo.Annotations
		}
		return vp.Program, extractStatementsFunctions(annotations), nil
	}

	return nil, nil, fmt.Errorf("neither contract-class nor versioned-program shape recognised")
}

// extractStatementsFunctions pulls the cairo-profiler annotation namespace
// out of a debug-info annotations map, if present, and parses its
// statements_functions entry.
func extractStatementsFunctions(annotations map[string]json.RawMessage) StatementsFunctionsMap {
	if annotations == nil {
		return nil
	}
	raw, ok := annotations[sierraAnnotationsKey]
	if !ok {
		return nil
	}

	var namespace struct {
		StatementsFunctions map[string][]string `json:"statements_functions"`
	}
	if err := json.Unmarshal(raw, &namespace); err != nil {
		log.Printf("[WARNING] cairoprofiler: malformed statements_functions annotation: %s", err)
		return nil
	}
	if namespace.StatementsFunctions == nil {
		return nil
	}

	out := make(StatementsFunctionsMap, len(namespace.StatementsFunctions))
	for idxStr, names := range namespace.StatementsFunctions {
		idx, err := parseStatementIdx(idxStr)
		if err != nil {
			continue
		}
		chain := make([]FunctionName, len(names))
		for i, n := range names {
			chain[i] = FunctionName(n)
		}
		out[idx] = chain
	}
	return out
}

func parseStatementIdx(s string) (StatementIdx, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	return StatementIdx(n), nil
}
