package state

import (
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core/tracing"
	"github.com/holiman/uint256"
	"github.com/shadow-hq/shadow/chain/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStateDBImportsFromView checks that a forked StateDB serves the view's accounts and slots.
func TestStateDBImportsFromView(t *testing.T) {
	fixture := newPrePopulatedBackendFixture()
	stateDB, provider, err := NewStateDB(newFixtureSnapshot(fixture))
	require.NoError(t, err)

	assert.True(t, stateDB.Exist(fixture.StateObjectContractAddress))
	assert.True(t, stateDB.Exist(fixture.StateObjectEOAAddress))
	assert.Equal(t, fixture.StateObjectContract.Balance, stateDB.GetBalance(fixture.StateObjectContractAddress))
	assert.EqualValues(t, fixture.StateObjectContract.Nonce, stateDB.GetNonce(fixture.StateObjectContractAddress))
	assert.Equal(t, fixture.StateObjectContract.Code, stateDB.GetCode(fixture.StateObjectContractAddress))
	assert.Equal(t, fixture.StorageSlotPopulatedData, stateDB.GetState(fixture.StateObjectContractAddress, fixture.StorageSlotPopulatedKey))
	assert.Equal(t, fixture.StateObjectEOA.Balance, stateDB.GetBalance(fixture.StateObjectEOAAddress))
	assert.NoError(t, provider.Err())
}

// TestStateDBsAreIndependent checks that writes stay in the StateDB which made them, so one snapshot can back any
// number of executions.
func TestStateDBsAreIndependent(t *testing.T) {
	fixture := newPrePopulatedBackendFixture()
	snapshot := newFixtureSnapshot(fixture)

	first, _, err := NewStateDB(snapshot)
	require.NoError(t, err)
	second, _, err := NewStateDB(snapshot)
	require.NoError(t, err)

	valueAdded := uint256.NewInt(100)
	expectedSum := new(uint256.Int).Add(fixture.StateObjectEOA.Balance, valueAdded)
	first.AddBalance(fixture.StateObjectEOAAddress, valueAdded, tracing.BalanceChangeUnspecified)
	first.SetState(fixture.StateObjectContractAddress, fixture.StorageSlotPopulatedKey, common.HexToHash("0x01"))
	assert.Equal(t, expectedSum, first.GetBalance(fixture.StateObjectEOAAddress))

	assert.Equal(t, fixture.StateObjectEOA.Balance, second.GetBalance(fixture.StateObjectEOAAddress))
	assert.Equal(t, fixture.StorageSlotPopulatedData, second.GetState(fixture.StateObjectContractAddress, fixture.StorageSlotPopulatedKey))

	obj, err := snapshot.GetStateObject(fixture.StateObjectEOAAddress)
	require.NoError(t, err)
	assert.Equal(t, fixture.StateObjectEOA.Balance, obj.Balance)
}

// TestStateDBRevertRestoresForkedState checks that reverting a StateDB snapshot makes reverted writes disappear
// while imported state stays readable.
func TestStateDBRevertRestoresForkedState(t *testing.T) {
	fixture := newPrePopulatedBackendFixture()
	stateDB, _, err := NewStateDB(newFixtureSnapshot(fixture))
	require.NoError(t, err)

	before := stateDB.Snapshot()
	stateDB.SetState(fixture.StateObjectContractAddress, fixture.StorageSlotPopulatedKey, common.HexToHash("0x02"))
	stateDB.AddBalance(fixture.StateObjectContractAddress, uint256.NewInt(1), tracing.BalanceChangeUnspecified)
	stateDB.RevertToSnapshot(before)

	assert.Equal(t, fixture.StorageSlotPopulatedData, stateDB.GetState(fixture.StateObjectContractAddress, fixture.StorageSlotPopulatedKey))
	assert.Equal(t, fixture.StateObjectContract.Balance, stateDB.GetBalance(fixture.StateObjectContractAddress))
}

// TestStateDBOverOverlay checks that a StateDB built on an overlay executes against the substituted code while
// reading the original storage.
func TestStateDBOverOverlay(t *testing.T) {
	fixture := newPrePopulatedBackendFixture()
	snapshot := newFixtureSnapshot(fixture)
	shadowCode := []byte{0x60, 0x01, 0x60, 0x00, 0x55}
	overlay := ApplyOverrides(snapshot, types.OverrideMap{fixture.StateObjectContractAddress: shadowCode})

	shadowDB, _, err := NewStateDB(overlay)
	require.NoError(t, err)
	baselineDB, _, err := NewStateDB(snapshot)
	require.NoError(t, err)

	assert.Equal(t, shadowCode, shadowDB.GetCode(fixture.StateObjectContractAddress))
	assert.Equal(t, fixture.StateObjectContract.Code, baselineDB.GetCode(fixture.StateObjectContractAddress))
	assert.Equal(t, fixture.StorageSlotPopulatedData, shadowDB.GetState(fixture.StateObjectContractAddress, fixture.StorageSlotPopulatedKey))
	assert.Equal(t, fixture.StateObjectContract.Balance, shadowDB.GetBalance(fixture.StateObjectContractAddress))
}
