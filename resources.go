package cairoprofiler

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

// ExecutionResources is the element-wise resource vector a CallTrace (or any
// run of CASM) consumed: VM steps and memory holes, plus per-builtin and
// per-syscall invocation counters.
type ExecutionResources struct {
	NSteps                 int64            `json:"n_steps"`
	NMemoryHoles           int64            `json:"n_memory_holes"`
	BuiltinInstanceCounter map[string]int64 `json:"builtin_instance_counter"`
	SyscallCounter         map[string]int64 `json:"syscall_counter"`
}

// Add returns the element-wise sum of r and other.
func (r ExecutionResources) Add(other ExecutionResources) ExecutionResources {
	out := ExecutionResources{
		NSteps:       r.NSteps + other.NSteps,
		NMemoryHoles: r.NMemoryHoles + other.NMemoryHoles,
	}
	out.BuiltinInstanceCounter = addCounters(r.BuiltinInstanceCounter, other.BuiltinInstanceCounter)
	out.SyscallCounter = addCounters(r.SyscallCounter, other.SyscallCounter)
	return out
}

// Sub returns r minus other. Builtin counters saturate at zero; n_steps and
// n_memory_holes do not (a malformed trace where children exceed the
// parent is a pre-existing invariant violation in the input, never
// asserted, per the data model).
func (r ExecutionResources) Sub(other ExecutionResources) ExecutionResources {
	out := ExecutionResources{
		NSteps:       r.NSteps - other.NSteps,
		NMemoryHoles: r.NMemoryHoles - other.NMemoryHoles,
	}
	out.BuiltinInstanceCounter = subCountersSaturating(r.BuiltinInstanceCounter, other.BuiltinInstanceCounter)
	out.SyscallCounter = subCountersSaturating(r.SyscallCounter, other.SyscallCounter)
	return out
}

func addCounters(a, b map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] += v
	}
	return out
}

func subCountersSaturating(a, b map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(a))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		rem := out[k] - v
		if rem < 0 {
			rem = 0
		}
		out[k] = rem
	}
	return out
}

// SyscallSelector is the closed set of Starknet syscalls. String <-> selector
// mapping is total over this set and fails explicitly outside it.
type SyscallSelector int

const (
	SyscallCallContract SyscallSelector = iota
	SyscallDelegateCall
	SyscallDelegateL1Handler
	SyscallDeploy
	SyscallEmitEvent
	SyscallGetBlockHash
	SyscallGetBlockNumber
	SyscallGetBlockTimestamp
	SyscallGetCallerAddress
	SyscallGetContractAddress
	SyscallGetExecutionInfo
	SyscallGetSequencerAddress
	SyscallGetTxInfo
	SyscallGetTxSignature
	SyscallKeccak
	SyscallLibraryCall
	SyscallLibraryCallL1Handler
	SyscallReplaceClass
	SyscallSecp256k1Add
	SyscallSecp256k1GetPointFromX
	SyscallSecp256k1GetXy
	SyscallSecp256k1Mul
	SyscallSecp256k1New
	SyscallSecp256r1Add
	SyscallSecp256r1GetPointFromX
	SyscallSecp256r1GetXy
	SyscallSecp256r1Mul
	SyscallSecp256r1New
	SyscallSendMessageToL1
	SyscallStorageRead
	SyscallStorageWrite
	SyscallSha256ProcessBlock
)

var syscallNames = [...]string{
	SyscallCallContract:           "CallContract",
	SyscallDelegateCall:           "DelegateCall",
	SyscallDelegateL1Handler:      "DelegateL1Handler",
	SyscallDeploy:                 "Deploy",
	SyscallEmitEvent:              "EmitEvent",
	SyscallGetBlockHash:           "GetBlockHash",
	SyscallGetBlockNumber:         "GetBlockNumber",
	SyscallGetBlockTimestamp:      "GetBlockTimestamp",
	SyscallGetCallerAddress:       "GetCallerAddress",
	SyscallGetContractAddress:     "GetContractAddress",
	SyscallGetExecutionInfo:       "GetExecutionInfo",
	SyscallGetSequencerAddress:    "GetSequencerAddress",
	SyscallGetTxInfo:              "GetTxInfo",
	SyscallGetTxSignature:         "GetTxSignature",
	SyscallKeccak:                 "Keccak",
	SyscallLibraryCall:            "LibraryCall",
	SyscallLibraryCallL1Handler:   "LibraryCallL1Handler",
	SyscallReplaceClass:           "ReplaceClass",
	SyscallSecp256k1Add:           "Secp256k1Add",
	SyscallSecp256k1GetPointFromX: "Secp256k1GetPointFromX",
	SyscallSecp256k1GetXy:         "Secp256k1GetXy",
	SyscallSecp256k1Mul:           "Secp256k1Mul",
	SyscallSecp256k1New:           "Secp256k1New",
	SyscallSecp256r1Add:           "Secp256r1Add",
	SyscallSecp256r1GetPointFromX: "Secp256r1GetPointFromX",
	SyscallSecp256r1GetXy:         "Secp256r1GetXy",
	SyscallSecp256r1Mul:           "Secp256r1Mul",
	SyscallSecp256r1New:           "Secp256r1New",
	SyscallSendMessageToL1:        "SendMessageToL1",
	SyscallStorageRead:            "StorageRead",
	SyscallStorageWrite:           "StorageWrite",
	SyscallSha256ProcessBlock:     "Sha256ProcessBlock",
}

var syscallsByName = func() map[string]SyscallSelector {
	m := make(map[string]SyscallSelector, len(syscallNames))
	for sel, name := range syscallNames {
		m[name] = SyscallSelector(sel)
	}
	return m
}()

// AllSyscallSelectors returns every selector in declaration order.
func AllSyscallSelectors() []SyscallSelector {
	out := make([]SyscallSelector, len(syscallNames))
	for i := range syscallNames {
		out[i] = SyscallSelector(i)
	}
	return out
}

func (s SyscallSelector) String() string {
	if int(s) < 0 || int(s) >= len(syscallNames) {
		return fmt.Sprintf("SyscallSelector(%d)", int(s))
	}
	return syscallNames[s]
}

// ParseSyscallSelector maps a syscall's identifier-cased name to its
// selector, failing explicitly for anything outside the fixed set.
func ParseSyscallSelector(name string) (SyscallSelector, error) {
	sel, ok := syscallsByName[name]
	if !ok {
		return 0, fmt.Errorf("cairoprofiler: unknown syscall selector %q", name)
	}
	return sel, nil
}

// syscallLibfuncNames maps the Sierra libfunc debug name emitted for a
// syscall invocation to its selector. This is the string-based
// classification: the one usable without a real Sierra StarkNet-libfunc
// enum, matching how syscalls are actually named in CASM debug info.
var syscallLibfuncNames = map[string]SyscallSelector{
	"call_contract_syscall":            SyscallCallContract,
	"deploy_syscall":                   SyscallDeploy,
	"emit_event_syscall":               SyscallEmitEvent,
	"get_block_hash_syscall":           SyscallGetBlockHash,
	"get_execution_info_syscall":       SyscallGetExecutionInfo,
	"get_execution_info_v2_syscall":    SyscallGetExecutionInfo,
	"keccak_syscall":                   SyscallKeccak,
	"library_call_syscall":             SyscallLibraryCall,
	"replace_class_syscall":            SyscallReplaceClass,
	"send_message_to_l1_syscall":       SyscallSendMessageToL1,
	"storage_read_syscall":             SyscallStorageRead,
	"storage_write_syscall":            SyscallStorageWrite,
	"sha256_process_block_syscall":     SyscallSha256ProcessBlock,
	"secp256k1_add_syscall":            SyscallSecp256k1Add,
	"secp256k1_get_point_from_x_syscall": SyscallSecp256k1GetPointFromX,
	"secp256k1_get_xy_syscall":          SyscallSecp256k1GetXy,
	"secp256k1_mul_syscall":             SyscallSecp256k1Mul,
	"secp256k1_new_syscall":             SyscallSecp256k1New,
	"secp256r1_add_syscall":             SyscallSecp256r1Add,
	"secp256r1_get_point_from_x_syscall": SyscallSecp256r1GetPointFromX,
	"secp256r1_get_xy_syscall":           SyscallSecp256r1GetXy,
	"secp256r1_mul_syscall":             SyscallSecp256r1Mul,
	"secp256r1_new_syscall":             SyscallSecp256r1New,
}

// classifySyscallLibfunc reports whether a Sierra libfunc debug name denotes
// a syscall invocation, returning its selector when it does.
func classifySyscallLibfunc(libfuncName string) (SyscallSelector, bool) {
	sel, ok := syscallLibfuncNames[libfuncName]
	return sel, ok
}

//go:embed resources/versioned_constants.json
var defaultVersionedConstantsJSON []byte

// VMExecutionResources is the canonical per-invocation cost of one syscall,
// as recorded in the versioned-constants resource document.
type VMExecutionResources struct {
	NSteps                 int64            `json:"n_steps"`
	NMemoryHoles           int64            `json:"n_memory_holes"`
	BuiltinInstanceCounter map[string]int64 `json:"builtin_instance_counter"`
}

// OSResources is the subset of the versioned-constants document this tool
// consumes: the per-syscall resource costs used to enrich syscall samples.
type OSResources struct {
	ExecuteSyscalls map[string]VMExecutionResources `json:"execute_syscalls"`
}

type versionedConstantsDocument struct {
	OSResources OSResources `json:"os_resources"`
}

// LoadOSResources decodes a versioned-constants document from data and
// returns its os_resources section.
func LoadOSResources(data []byte) (OSResources, error) {
	var doc versionedConstantsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return OSResources{}, fmt.Errorf("cairoprofiler: decoding versioned constants: %w", err)
	}
	return doc.OSResources, nil
}

// DefaultOSResources returns the resource map embedded in the binary.
func DefaultOSResources() (OSResources, error) {
	return LoadOSResources(defaultVersionedConstantsJSON)
}

// CostFor looks up the canonical resource cost for a syscall, returning an
// error naming the missing selector (a fatal, non-localised invariant
// failure per the error handling design: a missing selector in the
// constants map is always an error).
func (r OSResources) CostFor(sel SyscallSelector) (VMExecutionResources, error) {
	cost, ok := r.ExecuteSyscalls[sel.String()]
	if !ok {
		return VMExecutionResources{}, fmt.Errorf("cairoprofiler: missing syscall %s in versioned constants map", sel)
	}
	return cost, nil
}

// ScaleByInvocations multiplies every resource in the cost by count,
// reporting an overflow error rather than silently wrapping (the measurement
// arithmetic overflow invariant of §7 is fatal).
func (c VMExecutionResources) ScaleByInvocations(count int64) (VMExecutionResources, error) {
	steps, err := checkedMul(c.NSteps, count)
	if err != nil {
		return VMExecutionResources{}, fmt.Errorf("n_steps: %w", err)
	}
	holes, err := checkedMul(c.NMemoryHoles, count)
	if err != nil {
		return VMExecutionResources{}, fmt.Errorf("n_memory_holes: %w", err)
	}
	builtins := make(map[string]int64, len(c.BuiltinInstanceCounter))
	for name, v := range c.BuiltinInstanceCounter {
		scaled, err := checkedMul(v, count)
		if err != nil {
			return VMExecutionResources{}, fmt.Errorf("builtin %s: %w", name, err)
		}
		builtins[name] = scaled
	}
	return VMExecutionResources{NSteps: steps, NMemoryHoles: holes, BuiltinInstanceCounter: builtins}, nil
}

func checkedMul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	result := a * b
	if result/b != a {
		return 0, fmt.Errorf("cairoprofiler: measurement arithmetic overflow computing %d*%d", a, b)
	}
	return result, nil
}
