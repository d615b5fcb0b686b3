package cairoprofiler

import (
	"fmt"
	"regexp"
)

// reLoopFunc matches the compiler-generated loop-expression suffix appended
// to a Sierra function id, e.g. "foo[expr12]".
var reLoopFunc = regexp.MustCompile(`\[expr\d*\]`)

// reMonomorphization matches a generic function's monomorphisation
// parameter list, e.g. "array::ArrayImpl::<felt252>::append".
var reMonomorphization = regexp.MustCompile(`<.*>`)

// FunctionName is a normalised, display-ready function identifier. Order of
// stripping matters: the loop-expression suffix is always removed first,
// monomorphisation parameters only when splitGenerics is false.
type FunctionName string

// NormalizeFunctionName strips the loop-expression suffix unconditionally,
// then the monomorphisation parameters unless splitGenerics is set.
func NormalizeFunctionName(raw string, splitGenerics bool) FunctionName {
	name := reLoopFunc.ReplaceAllString(raw, "")
	if !splitGenerics {
		name = reMonomorphization.ReplaceAllString(name, "")
	}
	return FunctionName(name)
}

// EntrypointDisplayName renders the display name of a top-level entrypoint
// call. Address/selector lines are included when showDetails is set, or
// when the corresponding human name is missing (so the caller never loses
// the only identifying information available).
func EntrypointDisplayName(entry CallEntryPoint, showDetails bool) FunctionName {
	contractName, addressLine := contractIdentity(entry, showDetails)
	functionName, selectorLine := functionIdentity(entry, showDetails)

	return FunctionName(fmt.Sprintf("Contract: %s\n%sFunction: %s\n%s",
		contractName, addressLine, functionName, selectorLine))
}

func contractIdentity(entry CallEntryPoint, showDetails bool) (name string, addressLine string) {
	switch {
	case entry.ContractName != nil && showDetails:
		return *entry.ContractName, fmt.Sprintf("Address: %s\n", entry.ContractAddress)
	case entry.ContractName != nil:
		return *entry.ContractName, ""
	default:
		return "<unknown>", fmt.Sprintf("Address: %s\n", entry.ContractAddress)
	}
}

func functionIdentity(entry CallEntryPoint, showDetails bool) (name string, selectorLine string) {
	switch {
	case entry.FunctionName != nil && showDetails:
		return *entry.FunctionName, fmt.Sprintf("Selector: %s\n", entry.EntryPointSelector)
	case entry.FunctionName != nil:
		return *entry.FunctionName, ""
	default:
		return "<unknown>", fmt.Sprintf("Selector: %s\n", entry.EntryPointSelector)
	}
}
