package replay

import (
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/shadow-hq/shadow/chain/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog(address byte, topic byte, data ...byte) types.Log {
	return types.Log{
		Address: common.BytesToAddress([]byte{address}),
		Topics:  []common.Hash{common.BytesToHash([]byte{topic})},
		Data:    data,
	}
}

func TestComputeDiffSubsequence(t *testing.T) {
	a, b, c := testLog(1, 1), testLog(1, 2), testLog(2, 1, 0xff)
	added1, added2 := testLog(9, 9), testLog(9, 8)

	tests := []struct {
		name       string
		baseline   []types.Log
		shadow     []types.Log
		preserved  bool
		added      []int
		missingLen int
	}{
		{name: "identical", baseline: []types.Log{a, b}, shadow: []types.Log{a, b}, preserved: true, added: []int{}},
		{name: "interleaved", baseline: []types.Log{a, b, c}, shadow: []types.Log{added1, a, b, added2, c}, preserved: true, added: []int{0, 3}},
		{name: "appended", baseline: []types.Log{a}, shadow: []types.Log{a, added1}, preserved: true, added: []int{1}},
		{name: "no baseline logs", baseline: []types.Log{}, shadow: []types.Log{added1}, preserved: true, added: []int{0}},
		{name: "reordered", baseline: []types.Log{a, b}, shadow: []types.Log{b, a}, preserved: false, added: []int{0}, missingLen: 1},
		{name: "removed", baseline: []types.Log{a, b}, shadow: []types.Log{a}, preserved: false, added: []int{}, missingLen: 1},
		{name: "data changed", baseline: []types.Log{c}, shadow: []types.Log{testLog(2, 1, 0xfe)}, preserved: false, added: []int{0}, missingLen: 1},
		{name: "duplicate baseline logs", baseline: []types.Log{a, a}, shadow: []types.Log{a, added1, a}, preserved: true, added: []int{1}},
		{name: "duplicate needs two matches", baseline: []types.Log{a, a}, shadow: []types.Log{a, added1}, preserved: false, added: []int{1}, missingLen: 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			baseline := &types.ExecutionTrace{Success: true, Logs: test.baseline, GasUsed: 100}
			shadow := &types.ExecutionTrace{Success: true, Logs: test.shadow, GasUsed: 100}

			report := ComputeDiff(baseline, shadow)
			assert.Equal(t, test.preserved, report.BehaviorPreserved)
			assert.Equal(t, test.added, report.AddedLogIndexes)
			assert.Len(t, report.AddedLogs, len(test.added))
			for i, index := range test.added {
				assert.Equal(t, test.shadow[index], report.AddedLogs[i])
			}
			assert.Len(t, report.MissingLogs, test.missingLen)
		})
	}
}

func TestComputeDiffReturnDataAndSuccess(t *testing.T) {
	baseline := &types.ExecutionTrace{Success: true, ReturnData: []byte{0x01}, Logs: []types.Log{}}

	shadow := &types.ExecutionTrace{Success: true, ReturnData: []byte{0x02}, Logs: []types.Log{}}
	report := ComputeDiff(baseline, shadow)
	assert.False(t, report.BehaviorPreserved)
	require.NotNil(t, report.Divergence())
	assert.True(t, report.Divergence().ReturnDataChanged)
	assert.False(t, report.Divergence().SuccessChanged)

	shadow = &types.ExecutionTrace{Success: false, ReturnData: []byte{0x01}, Logs: []types.Log{}}
	report = ComputeDiff(baseline, shadow)
	assert.False(t, report.BehaviorPreserved)
	assert.True(t, report.Divergence().SuccessChanged)
	assert.Equal(t, "success status changed", report.Divergence().String())
}

func TestComputeDiffGasDelta(t *testing.T) {
	diff := func(baseline, shadow uint64) decimal.Decimal {
		return ComputeDiff(
			&types.ExecutionTrace{Success: true, GasUsed: baseline},
			&types.ExecutionTrace{Success: true, GasUsed: shadow},
		).GasDelta
	}

	assert.True(t, decimal.NewFromInt(25).Equal(diff(40_000, 50_000)))
	assert.True(t, decimal.NewFromFloat(-12.5).Equal(diff(40_000, 35_000)))
	assert.True(t, decimal.RequireFromString("33.33").Equal(diff(30_000, 40_000)))
	assert.True(t, diff(0, 50_000).IsZero())

	// Gas never affects equivalence.
	assert.True(t, ComputeDiff(
		&types.ExecutionTrace{Success: true, GasUsed: 1},
		&types.ExecutionTrace{Success: true, GasUsed: 1_000_000},
	).BehaviorPreserved)
}

func TestNewReportID(t *testing.T) {
	txHash := common.HexToHash("0x01")
	a := common.HexToAddress("0xaa")
	b := common.HexToAddress("0xbb")
	overrides := types.OverrideMap{a: {0x60, 0x01}, b: {0x60, 0x02}}

	id := NewReportID(txHash, 10, overrides)
	assert.Equal(t, id, NewReportID(txHash, 10, overrides.Clone()))
	assert.Equal(t, id, NewReportID(txHash, 10, types.OverrideMap{b: {0x60, 0x02}, a: {0x60, 0x01}}))

	assert.NotEqual(t, id, NewReportID(common.HexToHash("0x02"), 10, overrides))
	assert.NotEqual(t, id, NewReportID(txHash, 11, overrides))
	assert.NotEqual(t, id, NewReportID(txHash, 10, types.OverrideMap{a: {0x60, 0x01}, b: {0x60, 0x03}}))
	assert.NotEqual(t, id, NewReportID(txHash, 10, types.OverrideMap{a: {0x60, 0x01}}))
	assert.NotEqual(t, NewReportID(txHash, 10, nil), NewReportID(txHash, 10, overrides))
}
