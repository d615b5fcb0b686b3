package cairoprofiler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/pprof/profile"
)

// preferredUnitOrder lists the units that, when present in any sample, come
// first and in this order, ahead of whatever dynamically discovered units
// (builtins, syscalls) follow in sorted order.
var preferredUnitOrder = []string{unitCalls, unitSteps, unitMemoryHoles, unitL2L1MessageSizes}

// BuildProfile assembles a *profile.Profile from samples: it discovers the
// measurement unit universe, folds each call stack into pprof locations
// (one location per run of a non-inlined frame followed by its inlined
// continuations), and projects every sample's measurement map onto the
// fixed unit ordering.
func BuildProfile(samples []Sample) (*profile.Profile, error) {
	units := discoverUnits(samples)

	prof := &profile.Profile{
		SampleType: make([]*profile.ValueType, len(units)),
	}
	for i, u := range units {
		prof.SampleType[i] = &profile.ValueType{Type: u, Unit: prettifyUnit(u)}
	}

	interner := NewInterner()

	for _, sample := range samples {
		locations, err := locationsForStack(interner, sample.CallStack)
		if err != nil {
			return nil, err
		}

		values := make([]int64, len(units))
		for i, u := range units {
			values[i] = sample.Measurements[u]
		}

		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: locations,
			Value:    values,
		})
	}

	prof.Function, prof.Location = interner.Finish()
	return prof, nil
}

func discoverUnits(samples []Sample) []string {
	seen := make(map[string]bool)
	for _, s := range samples {
		for u := range s.Measurements {
			seen[u] = true
		}
	}

	var extra []string
	for u := range seen {
		if !isPreferredUnit(u) {
			extra = append(extra, u)
		}
	}
	sort.Strings(extra)

	units := make([]string, 0, len(seen))
	for _, u := range preferredUnitOrder {
		if seen[u] {
			units = append(units, u)
		}
	}
	units = append(units, extra...)
	return units
}

func isPreferredUnit(u string) bool {
	for _, p := range preferredUnitOrder {
		if u == p {
			return true
		}
	}
	return false
}

// prettifyUnit replaces underscores with spaces and strips a leading "n "
// prefix, then prefixes the result with a single space, matching the
// original profiler's unit-string convention.
func prettifyUnit(unit string) string {
	pretty := strings.ReplaceAll(unit, "_", " ")
	pretty = strings.TrimPrefix(pretty, "n ")
	return " " + pretty
}

// locationsForStack segments stack into maximal runs (one non-inlined
// frame followed by zero or more inlined frames), interns each run as one
// pprof location with one Line per frame (reversed, pprof wants
// least-meaningful-first within a location), and returns the location list
// in pprof's leaf-first sample order.
func locationsForStack(interner *Interner, stack CallStack) ([]*profile.Location, error) {
	runs, err := segmentRuns(stack)
	if err != nil {
		return nil, err
	}

	locations := make([]*profile.Location, len(runs))
	for i, run := range runs {
		loc, err := locationForRun(interner, run)
		if err != nil {
			return nil, err
		}
		locations[i] = loc
	}

	// pprof wants the sample's location_id list least-meaningful (leaf)
	// frame first; runs were built outer-to-inner, so reverse.
	for i, j := 0, len(locations)-1; i < j; i, j = i+1, j-1 {
		locations[i], locations[j] = locations[j], locations[i]
	}
	return locations, nil
}

func segmentRuns(stack CallStack) ([]CallStack, error) {
	var runs []CallStack
	for _, call := range stack {
		if call.Kind == CallInlined {
			if len(runs) == 0 {
				return nil, fmt.Errorf("cairoprofiler: first frame of a location run is inlined")
			}
			runs[len(runs)-1] = append(runs[len(runs)-1], call)
			continue
		}
		runs = append(runs, CallStack{call})
	}
	return runs, nil
}

func locationForRun(interner *Interner, run CallStack) (*profile.Location, error) {
	key := run.key()
	if loc, ok := interner.LookupLocation(key); ok {
		return loc, nil
	}

	lines := make([]profile.Line, len(run))
	for i, call := range run {
		fn := interner.FunctionID(call.Name)
		// pprof expects lines within a location to start with the most
		// deeply inlined call and end with the non-inlined frame that
		// starts the run, so they're filled in reverse.
		lines[len(run)-1-i] = profile.Line{Function: fn}
	}

	loc := &profile.Location{Line: lines}
	interner.InstallLocation(key, loc)
	return loc, nil
}

// WriteProfile gzips and writes prof to path, creating parent directories
// as needed.
func WriteProfile(path string, prof *profile.Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cairoprofiler: creating output directory: %w", err)
	}
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cairoprofiler: creating output file: %w", err)
	}
	defer w.Close()
	if err := prof.Write(w); err != nil {
		return fmt.Errorf("cairoprofiler: writing profile: %w", err)
	}
	return nil
}

// ReadProfile reads and gunzips a pprof profile from r.
func ReadProfile(r io.Reader) (*profile.Profile, error) {
	prof, err := profile.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("cairoprofiler: decoding profile: %w", err)
	}
	return prof, nil
}
