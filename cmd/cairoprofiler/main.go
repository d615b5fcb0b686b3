// Command cairoprofiler converts a Cairo/Starknet call-trace JSON into a
// gzipped pprof profile, and can view the resulting profile's top
// functions.
package main

import (
	"fmt"
	"log"
	"os"
	"regexp"

	"github.com/google/pprof/profile"
	"github.com/spf13/pflag"

	"github.com/stealthrocket/cairoprofiler"
)

func main() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "build-profile":
			return runBuildProfile(args[1:])
		case "view":
			return runView(args[1:])
		}
	}
	// Legacy default mode: no subcommand given, behave like build-profile.
	return runBuildProfile(args)
}

func runBuildProfile(args []string) error {
	flags := pflag.NewFlagSet("build-profile", pflag.ContinueOnError)

	output := flags.StringP("output", "o", "profile.pb.gz", "output profile path")
	showDetails := flags.Bool("show-details", false, "always show contract/function addresses and selectors")
	maxDepth := flags.Int("max-function-stack-trace-depth", 100, "bound on the function-level call stack depth")
	splitGenerics := flags.Bool("split-generics", false, "keep monomorphisation parameters in function names")
	showInlined := flags.Bool("show-inlined-functions", false, "overlay inlined-function frames from debug annotations")
	showLibfuncs := flags.Bool("show-libfuncs", false, "emit a frame for every libfunc invocation")
	versionedConstantsPath := flags.String("versioned-constants-path", "", "override the embedded versioned-constants document")
	view := flags.Bool("view", false, "print the top-N view after building the profile")
	sample := flags.String("sample", "calls", "sample type to rank by when --view is set")
	limit := flags.Int("limit", 10, "number of rows to print when --view is set (0 = all)")
	hide := flags.String("hide", "", "regex of frame names to fold into their caller when --view is set")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("build-profile: expected exactly one trace file argument")
	}
	tracePath := flags.Arg(0)

	cfg := cairoprofiler.Config{
		ShowDetails:                *showDetails,
		MaxFunctionStackTraceDepth: *maxDepth,
		SplitGenerics:              *splitGenerics,
		ShowInlinedFunctions:       *showInlined,
		ShowLibfuncs:               *showLibfuncs,
	}

	compiler := cairoprofiler.NewReferenceCompiler()
	if err := cairoprofiler.BuildProfileFromTraceFile(tracePath, *output, *versionedConstantsPath, compiler, cfg); err != nil {
		return err
	}

	if !*view {
		return nil
	}
	return viewProfile(*output, *sample, *limit, *hide)
}

func runView(args []string) error {
	flags := pflag.NewFlagSet("view", pflag.ContinueOnError)

	sample := flags.String("sample", "steps", "sample type to rank by")
	listSamples := flags.BoolP("list-samples", "l", false, "list the sample types available in the profile and exit")
	limit := flags.Int("limit", 10, "number of rows to print (must be positive)")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("view: expected exactly one profile file argument")
	}
	profilePath := flags.Arg(0)

	if *listSamples {
		return listProfileSamples(profilePath)
	}
	if *limit <= 0 {
		return fmt.Errorf("view: --limit must be a positive integer")
	}
	return viewProfile(profilePath, *sample, *limit, "")
}

func listProfileSamples(path string) error {
	prof, err := readProfileFile(path)
	if err != nil {
		return err
	}
	for _, name := range cairoprofiler.SampleNames(prof) {
		fmt.Println(name)
	}
	return nil
}

func viewProfile(path, sample string, limit int, hidePattern string) error {
	prof, err := readProfileFile(path)
	if err != nil {
		return err
	}

	var hide *regexp.Regexp
	if hidePattern != "" {
		hide, err = regexp.Compile(hidePattern)
		if err != nil {
			return fmt.Errorf("view: invalid --hide regex: %w", err)
		}
	}

	rows, err := cairoprofiler.TopFunctions(prof, sample, hide)
	if err != nil {
		return err
	}
	cairoprofiler.PrintTop(os.Stdout, rows, limit, hidePattern)
	return nil
}

func readProfileFile(path string) (*profile.Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile file: %w", err)
	}
	defer f.Close()
	return cairoprofiler.ReadProfile(f)
}
