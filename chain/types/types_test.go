package types

import (
	"math/big"
	"testing"

	"github.com/crytic/medusa-geth/common"
	coreTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverrideMap_CloneAndAddresses(t *testing.T) {
	a := common.HexToAddress("0x02")
	b := common.HexToAddress("0x01")
	overrides := OverrideMap{a: {0x60, 0x00}, b: {0x00}}

	assert.Equal(t, []common.Address{b, a}, overrides.Addresses())

	clone := overrides.Clone()
	clone[a][0] = 0xff
	assert.Equal(t, byte(0x60), overrides[a][0])

	_, ok := overrides.Code(common.HexToAddress("0x03"))
	assert.False(t, ok)
}

func TestLog_Equal(t *testing.T) {
	log := Log{Address: common.HexToAddress("0x01"), Topics: []common.Hash{{0x01}}, Data: []byte{0x02}}
	same := NewLogFromGethLog(&coreTypes.Log{Address: common.HexToAddress("0x01"), Topics: []common.Hash{{0x01}}, Data: []byte{0x02}, Index: 9})
	assert.True(t, log.Equal(same))

	different := same
	different.Data = []byte{0x03}
	assert.False(t, log.Equal(different))

	assert.True(t, LogsEqual([]Log{log}, []Log{same}))
	assert.False(t, LogsEqual([]Log{log}, []Log{log, same}))

	topic, ok := log.Topic0()
	require.True(t, ok)
	assert.Equal(t, common.Hash{0x01}, topic)
}

func TestExecutionTrace_EquivalentTo(t *testing.T) {
	baseline := &ExecutionTrace{ReturnData: []byte{0x01}, Success: true, GasUsed: 21000}
	shadow := &ExecutionTrace{ReturnData: []byte{0x01}, Success: true, GasUsed: 25000}
	assert.True(t, baseline.EquivalentTo(shadow))

	shadow.Success = false
	assert.False(t, baseline.EquivalentTo(shadow))
}

func TestReplayMessage_ToCoreMessage(t *testing.T) {
	to := common.HexToAddress("0x1234")
	msg := &ReplayMessage{
		From:      common.HexToAddress("0xabcd"),
		To:        &to,
		Nonce:     7,
		Value:     big.NewInt(1),
		GasLimit:  100_000,
		GasPrice:  big.NewInt(50),
		GasFeeCap: big.NewInt(50),
		GasTipCap: big.NewInt(2),
	}

	coreMsg := msg.ToCoreMessage(big.NewInt(10), false, 30_000_000)
	assert.Equal(t, big.NewInt(12), coreMsg.GasPrice)
	assert.Equal(t, uint64(100_000), coreMsg.GasLimit)
	assert.Equal(t, uint64(7), coreMsg.Nonce)

	coreMsg = msg.ToCoreMessage(big.NewInt(100), false, 30_000_000)
	assert.Equal(t, big.NewInt(50), coreMsg.GasPrice)

	coreMsg = msg.ToCoreMessage(big.NewInt(10), true, 30_000_000)
	assert.Equal(t, 0, coreMsg.GasPrice.Sign())
	assert.Equal(t, uint64(30_000_000), coreMsg.GasLimit)
}

func TestBlockEnvironment(t *testing.T) {
	header := &coreTypes.Header{Number: big.NewInt(100), Time: 1_700_000_000, GasLimit: 30_000_000, BaseFee: big.NewInt(7)}
	env := NewBlockEnvironment(header, big.NewInt(1))

	header.Time = 0
	assert.Equal(t, uint64(100), env.Number())
	assert.Equal(t, uint64(1_700_000_000), env.Time())
	assert.Equal(t, big.NewInt(7), env.BaseFee())
}
