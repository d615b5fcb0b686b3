// Package cairoprofiler converts a Cairo/Starknet VM call-trace JSON into a
// gzipped pprof profile.
package cairoprofiler

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/pprof/profile"
)

// Config is the single immutable record threaded through the sample builder
// and the function-trace builder.
type Config struct {
	ShowDetails                bool
	MaxFunctionStackTraceDepth int
	SplitGenerics              bool
	ShowInlinedFunctions       bool
	ShowLibfuncs               bool
}

// DefaultConfig mirrors the CLI's default flag values.
func DefaultConfig() Config {
	return Config{
		MaxFunctionStackTraceDepth: 100,
	}
}

// BuildProfileFromTrace decodes a trace JSON document and converts it into a
// pprof profile, using compiler to turn any referenced Sierra sources into
// CASM debug info and osResources to price syscall samples.
func BuildProfileFromTrace(traceJSON []byte, compiler SierraCompiler, osResources OSResources, cfg Config) (*profile.Profile, error) {
	var envelope TraceEnvelope
	if err := json.Unmarshal(traceJSON, &envelope); err != nil {
		return nil, fmt.Errorf("cairoprofiler: decoding trace: %w", err)
	}
	if envelope.V1 == nil {
		return nil, fmt.Errorf("cairoprofiler: trace envelope missing V1 payload")
	}

	artifacts := NewArtifactsCache(compiler)
	samples, err := BuildSamples(envelope.V1, artifacts, osResources, cfg)
	if err != nil {
		return nil, err
	}
	return BuildProfile(samples)
}

// BuildProfileFromTraceFile is the end-to-end entry point the CLI drives:
// read the trace file and the versioned-constants document (or fall back to
// the embedded default), build the profile, and write it to outputPath.
func BuildProfileFromTraceFile(tracePath, outputPath, versionedConstantsPath string, compiler SierraCompiler, cfg Config) error {
	traceJSON, err := os.ReadFile(tracePath)
	if err != nil {
		return fmt.Errorf("cairoprofiler: reading trace file: %w", err)
	}

	osResources, err := loadOSResources(versionedConstantsPath)
	if err != nil {
		return err
	}

	prof, err := BuildProfileFromTrace(traceJSON, compiler, osResources, cfg)
	if err != nil {
		return err
	}

	if err := WriteProfile(outputPath, prof); err != nil {
		return err
	}
	return nil
}

func loadOSResources(path string) (OSResources, error) {
	if path == "" {
		return DefaultOSResources()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return OSResources{}, fmt.Errorf("cairoprofiler: reading versioned constants file: %w", err)
	}
	return LoadOSResources(data)
}
