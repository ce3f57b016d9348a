package replay

import (
	"fmt"
	"strings"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/shadow-hq/shadow/chain/types"
	"github.com/shadow-hq/shadow/compilation/abiutils"
	"github.com/shadow-hq/shadow/logging"
	"github.com/shadow-hq/shadow/logging/colors"
)

// Log returns a logging.LogBuffer describing the report. When abis are provided, logs and revert data are decoded
// against them; otherwise they are shown raw.
func (r *DiffReport) Log(abis []*abi.ABI) *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	buffer.Append(colors.Bold, "[Replay] ", colors.Reset, r.TxHash.Hex(), " at block ", r.BlockNumber, "\n")

	overrides := make([]string, len(r.Overrides))
	for i, address := range r.Overrides {
		overrides[i] = address.Hex()
	}
	if len(overrides) == 0 {
		overrides = append(overrides, "<none>")
	}
	buffer.Append("Overrides: ", strings.Join(overrides, ", "), "\n")

	buffer.Append("Baseline:  ", describeTrace(r.Baseline, abis), "\n")
	buffer.Append("Shadow:    ", describeTrace(r.Shadow, abis), fmt.Sprintf(" (%s%%)", formatGasDelta(r)), "\n")

	if divergence := r.Divergence(); divergence != nil {
		buffer.Append(colors.RedBold, colors.CROSS_MARK, " behavior diverged: ", divergence.String(), colors.Reset, "\n")
	} else {
		buffer.Append(colors.GreenBold, colors.CHECK_MARK, " behavior preserved", colors.Reset, "\n")
	}
	if r.ReceiptMismatch {
		buffer.Append(colors.Yellow, "The baseline log count differs from the on-chain receipt, intra-block state may be missing", colors.Reset, "\n")
	}

	buffer.Append(colors.Bold, fmt.Sprintf("Added logs (%d):", len(r.AddedLogs)), colors.Reset, "\n")
	for i, log := range r.AddedLogs {
		buffer.Append(describeLog(r.AddedLogIndexes[i], log, abis))
	}
	if len(r.MissingLogs) > 0 {
		buffer.Append(colors.Bold, fmt.Sprintf("Missing baseline logs (%d):", len(r.MissingLogs)), colors.Reset, "\n")
		for _, log := range r.MissingLogs {
			buffer.Append(describeLog(-1, log, abis))
		}
	}
	return buffer
}

// String returns the undecoded, uncolored report.
func (r *DiffReport) String() string {
	return r.Log(nil).String()
}

func formatGasDelta(r *DiffReport) string {
	if r.GasDelta.IsPositive() {
		return "+" + r.GasDelta.StringFixed(2)
	}
	return r.GasDelta.StringFixed(2)
}

func describeTrace(trace *types.ExecutionTrace, abis []*abi.ABI) string {
	status := "success"
	if !trace.Success {
		status = fmt.Sprintf("reverted (%s)", abiutils.DescribeRevert(trace.ReturnData, abis...))
		if trace.Err != "" && trace.Err != "execution reverted" {
			status = fmt.Sprintf("failed (%s)", trace.Err)
		}
	}
	return fmt.Sprintf("%s, gas %d, %d log(s)", status, trace.GasUsed, len(trace.Logs))
}

// describeLog renders one log with its position in the transaction. A negative index is omitted.
func describeLog(index int, log types.Log, abis []*abi.ABI) *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	if index >= 0 {
		buffer.Append("  Transaction Log Index: ", index, "\n")
	}
	buffer.Append("  Address: ", log.Address.Hex(), "\n")

	topic0, ok := log.Topic0()
	if !ok {
		buffer.Append("  Event Selector: <anonymous>\n")
	} else {
		buffer.Append("  Event Selector: ", topic0.Hex(), "\n")
	}

	event, values := abiutils.UnpackEventFromAny(abis, log.Topics, log.Data)
	if event != nil {
		buffer.Append("  Signature: ", colors.Cyan, event.Sig, colors.Reset, "\n")
	} else {
		buffer.Append("  Signature: <unknown>\n")
	}

	buffer.Append("  Topics: ", joinHashes(log.Topics), "\n")
	if event != nil {
		buffer.Append("  Data: ", formatEventValues(event, values), "\n")
	} else {
		buffer.Append("  Data: ", hexutil.Encode(log.Data), "\n")
	}
	return buffer
}

func joinHashes(hashes []common.Hash) string {
	parts := make([]string, len(hashes))
	for i, hash := range hashes {
		parts[i] = hash.Hex()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatEventValues(event *abi.Event, values []any) string {
	parts := make([]string, len(values))
	for i, value := range values {
		name := fmt.Sprintf("arg%d", i)
		if i < len(event.Inputs) && event.Inputs[i].Name != "" {
			name = event.Inputs[i].Name
		}
		parts[i] = fmt.Sprintf("%s=%v", name, value)
	}
	return strings.Join(parts, ", ")
}
