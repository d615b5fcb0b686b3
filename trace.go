package cairoprofiler

import (
	"encoding/json"
	"fmt"
)

// ClassHash, ContractAddress and EntryPointSelector are opaque hex-encoded
// felt values; they are never arithmetically combined, only compared and
// printed, so they are kept as strings rather than a big.Int wrapper.
type ClassHash string

type ContractAddress string

type EntryPointSelector string

// TraceEnvelope is the versioned wrapper around the root call trace, the
// shape actually found on disk: {"V1": {...}}.
type TraceEnvelope struct {
	V1 *CallTrace `json:"V1"`
}

// CallTrace describes one entrypoint invocation, together with every
// resource it and its descendants consumed.
type CallTrace struct {
	EntryPoint               CallEntryPoint    `json:"entry_point"`
	CumulativeResources       ExecutionResources `json:"used_execution_resources"`
	UsedL1Resources           L1Resources        `json:"used_l1_resources"`
	NestedCalls               []CallTraceNode    `json:"nested_calls"`
	CairoExecutionInfo        *CairoExecutionInfo `json:"cairo_execution_info,omitempty"`
}

// CallEntryPoint identifies the contract/function being called.
type CallEntryPoint struct {
	ClassHash           *ClassHash          `json:"class_hash,omitempty"`
	EntryPointType      EntryPointType      `json:"entry_point_type"`
	EntryPointSelector  EntryPointSelector  `json:"entry_point_selector"`
	ContractAddress     ContractAddress     `json:"contract_address"`
	CallType            CallType            `json:"call_type"`
	ContractName        *string             `json:"contract_name,omitempty"`
	FunctionName        *string             `json:"function_name,omitempty"`
}

// EntryPointType mirrors the Starknet entry point kinds.
type EntryPointType string

const (
	EntryPointConstructor EntryPointType = "CONSTRUCTOR"
	EntryPointExternal    EntryPointType = "EXTERNAL"
	EntryPointL1Handler   EntryPointType = "L1_HANDLER"
)

// CallType distinguishes a plain call from a delegate (library) call.
type CallType int

const (
	CallTypeCall CallType = iota
	CallTypeDelegate
)

func (c CallType) MarshalJSON() ([]byte, error) {
	switch c {
	case CallTypeCall:
		return json.Marshal("Call")
	case CallTypeDelegate:
		return json.Marshal("Delegate")
	default:
		return nil, fmt.Errorf("cairoprofiler: unknown call type %d", c)
	}
}

func (c *CallType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Call", "":
		*c = CallTypeCall
	case "Delegate":
		*c = CallTypeDelegate
	default:
		return fmt.Errorf("cairoprofiler: unknown call type %q", s)
	}
	return nil
}

// CallTraceNode is a tagged union: either a nested entrypoint call, or a
// marker for a deployment that had no constructor to invoke (and thus
// contributes nothing to the sample tree). This mirrors the externally
// tagged shape Rust's serde derive produces for an enum with one tuple
// variant and one unit variant: {"EntryPointCall": {...}} or the bare
// string "DeployWithoutConstructor".
type CallTraceNode struct {
	EntryPointCall *CallTrace
}

func (n CallTraceNode) IsDeployWithoutConstructor() bool {
	return n.EntryPointCall == nil
}

func (n CallTraceNode) MarshalJSON() ([]byte, error) {
	if n.EntryPointCall == nil {
		return json.Marshal("DeployWithoutConstructor")
	}
	return json.Marshal(struct {
		EntryPointCall *CallTrace `json:"EntryPointCall"`
	}{n.EntryPointCall})
}

func (n *CallTraceNode) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != "DeployWithoutConstructor" {
			return fmt.Errorf("cairoprofiler: unrecognised call trace node tag %q", tag)
		}
		n.EntryPointCall = nil
		return nil
	}

	var wrapped struct {
		EntryPointCall *CallTrace `json:"EntryPointCall"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return fmt.Errorf("cairoprofiler: decoding call trace node: %w", err)
	}
	if wrapped.EntryPointCall == nil {
		return fmt.Errorf("cairoprofiler: call trace node missing EntryPointCall payload")
	}
	n.EntryPointCall = wrapped.EntryPointCall
	return nil
}

// CairoExecutionInfo points at the Sierra source compiled for this call and
// carries the raw CASM-level VM trace collected while running it.
type CairoExecutionInfo struct {
	SourceSierraPath string        `json:"source_sierra_path"`
	CasmLevelInfo    CasmLevelInfo `json:"casm_level_info"`
}

// CasmLevelInfo is the low-level VM trace for one entrypoint invocation.
type CasmLevelInfo struct {
	RunWithCallHeader bool          `json:"run_with_call_header"`
	VMTrace           []TraceEntry  `json:"vm_trace"`
}

// TraceEntry is one step of CASM execution: program counter, allocation
// pointer, frame pointer.
type TraceEntry struct {
	PC uint64 `json:"pc"`
	AP uint64 `json:"ap"`
	FP uint64 `json:"fp"`
}

// L1Resources lists the sizes (in felts) of every L2->L1 message emitted
// during this call.
type L1Resources struct {
	L2L1MessageSizes []uint64 `json:"l2_l1_message_sizes"`
}

func (r L1Resources) totalMessageSize() int64 {
	var total int64
	for _, size := range r.L2L1MessageSizes {
		total += int64(size)
	}
	return total
}
