package replay

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/google/uuid"
	"github.com/shadow-hq/shadow/chain/types"
	"github.com/shopspring/decimal"
)

// DiffReport compares the baseline execution of a transaction with its execution over shadow bytecode.
type DiffReport struct {
	// ID is derived from the transaction, its block and the substituted code, so replaying the same transaction
	// against the same group yields the same ID.
	ID uuid.UUID `json:"id"`

	TxHash      common.Hash `json:"txHash"`
	BlockNumber uint64      `json:"blockNumber"`

	// Overrides lists the addresses whose code was substituted in the shadow execution.
	Overrides []common.Address `json:"overrides"`

	Baseline *types.ExecutionTrace `json:"baseline"`
	Shadow   *types.ExecutionTrace `json:"shadow"`

	BaselineLogs []types.Log `json:"baselineLogs"`
	ShadowLogs   []types.Log `json:"shadowLogs"`

	// AddedLogs are the shadow logs not matched to a baseline log, and AddedLogIndexes their positions in ShadowLogs.
	AddedLogs       []types.Log `json:"addedLogs"`
	AddedLogIndexes []int       `json:"addedLogIndexes"`

	// MissingLogs are the baseline logs that could not be matched, in order, within the shadow logs.
	MissingLogs []types.Log `json:"missingLogs"`

	// BehaviorPreserved holds when return data and success are identical and the baseline logs appear unchanged and
	// in order within the shadow logs.
	BehaviorPreserved bool `json:"behaviorPreserved"`

	// ReceiptMismatch is set when the baseline log count differs from the on-chain receipt's.
	ReceiptMismatch bool `json:"receiptMismatch"`

	// GasDelta is the shadow execution's gas change relative to the baseline, in percent.
	GasDelta decimal.Decimal `json:"gasDelta"`
}

// ComputeDiff compares two traces of the same message. Baseline logs are matched greedily, in order, against the
// earliest structurally equal shadow log; shadow logs left unmatched are the added logs. Gas is reported but never
// affects BehaviorPreserved.
func ComputeDiff(baseline, shadow *types.ExecutionTrace) *DiffReport {
	report := &DiffReport{
		Baseline:        baseline,
		Shadow:          shadow,
		BaselineLogs:    baseline.Logs,
		ShadowLogs:      shadow.Logs,
		AddedLogs:       make([]types.Log, 0),
		AddedLogIndexes: make([]int, 0),
		MissingLogs:     make([]types.Log, 0),
		GasDelta:        gasDelta(baseline.GasUsed, shadow.GasUsed),
	}

	matched := make([]bool, len(shadow.Logs))
	next := 0
	for _, log := range baseline.Logs {
		found := false
		for j := next; j < len(shadow.Logs); j++ {
			if log.Equal(shadow.Logs[j]) {
				matched[j] = true
				next = j + 1
				found = true
				break
			}
		}
		if !found {
			report.MissingLogs = append(report.MissingLogs, log)
		}
	}
	for i, log := range shadow.Logs {
		if !matched[i] {
			report.AddedLogs = append(report.AddedLogs, log)
			report.AddedLogIndexes = append(report.AddedLogIndexes, i)
		}
	}

	report.BehaviorPreserved = baseline.Success == shadow.Success &&
		bytes.Equal(baseline.ReturnData, shadow.ReturnData) &&
		len(report.MissingLogs) == 0
	return report
}

// reportNamespace is the name-based UUID namespace of report IDs.
var reportNamespace = uuid.MustParse("5b0c6a4e-8d3f-4f7a-9e21-3c6d2b1a7f90")

// NewReportID derives a report ID from the replayed transaction, its block and the override bytecode of every
// substituted address, visited in ascending address order.
func NewReportID(txHash common.Hash, blockNumber uint64, overrides types.OverrideMap) uuid.UUID {
	name := make([]byte, 0, common.HashLength+8+len(overrides)*(common.AddressLength+common.HashLength))
	name = append(name, txHash.Bytes()...)
	name = binary.BigEndian.AppendUint64(name, blockNumber)
	for _, address := range overrides.Addresses() {
		code, _ := overrides.Code(address)
		name = append(name, address.Bytes()...)
		name = append(name, crypto.Keccak256(code)...)
	}
	return uuid.NewSHA1(reportNamespace, name)
}

// gasDelta returns (shadow - baseline) / baseline as a percentage rounded to two places. A zero baseline yields zero.
func gasDelta(baseline, shadow uint64) decimal.Decimal {
	if baseline == 0 {
		return decimal.Zero
	}
	base := decimal.NewFromInt(int64(baseline))
	diff := decimal.NewFromInt(int64(shadow)).Sub(base)
	return diff.Div(base).Mul(decimal.NewFromInt(100)).Round(2)
}

// BehaviorDivergence describes how a shadow execution diverged from the baseline. It is a finding, not an error.
type BehaviorDivergence struct {
	SuccessChanged    bool
	ReturnDataChanged bool

	// MissingLogs are the baseline logs the shadow execution did not reproduce in order.
	MissingLogs []types.Log
}

// String summarizes the divergence.
func (d *BehaviorDivergence) String() string {
	reasons := make([]string, 0)
	if d.SuccessChanged {
		reasons = append(reasons, "success status changed")
	}
	if d.ReturnDataChanged {
		reasons = append(reasons, "return data changed")
	}
	if len(d.MissingLogs) > 0 {
		reasons = append(reasons, fmt.Sprintf("%d baseline log(s) missing or reordered", len(d.MissingLogs)))
	}
	return strings.Join(reasons, "; ")
}

// Divergence returns what differed between the executions, or nil if behavior was preserved.
func (r *DiffReport) Divergence() *BehaviorDivergence {
	if r.BehaviorPreserved {
		return nil
	}
	return &BehaviorDivergence{
		SuccessChanged:    r.Baseline.Success != r.Shadow.Success,
		ReturnDataChanged: !bytes.Equal(r.Baseline.ReturnData, r.Shadow.ReturnData),
		MissingLogs:       r.MissingLogs,
	}
}
