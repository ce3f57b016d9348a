package state

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core/state"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

var _ state.RemoteStateProvider = (*RemoteStateProvider)(nil)

/*
RemoteStateProvider feeds a forked StateDB from a StateView. The StateDB imports an account or slot the first time it
touches it; from then on the StateDB owns the value, so a second import is refused as dirty until the StateDB reverts
to a snapshot taken before the import.

The first fetch failure is recorded and reported by Err, since the StateDB cannot return it through the EVM.
*/
type RemoteStateProvider struct {
	view StateView

	accounts importJournal[common.Address]
	slots    importJournal[slotKey]
	deployed importJournal[common.Address]

	fetchErr error
}

type slotKey struct {
	addr common.Address
	slot common.Hash
}

func newRemoteStateProvider(view StateView) *RemoteStateProvider {
	return &RemoteStateProvider{
		view:     view,
		accounts: newImportJournal[common.Address](),
		slots:    newImportJournal[slotKey](),
		deployed: newImportJournal[common.Address](),
	}
}

// Err returns the first error the view returned, or nil.
func (s *RemoteStateProvider) Err() error {
	return s.fetchErr
}

func (s *RemoteStateProvider) recordError(err error) {
	if s.fetchErr == nil {
		s.fetchErr = err
	}
}

// ImportStateObject returns a copy of the account at addr from the view.
func (s *RemoteStateProvider) ImportStateObject(addr common.Address, snapId int) (*uint256.Int, uint64, []byte, *state.RemoteStateError) {
	if s.accounts.contains(addr) {
		return nil, 0, nil, &state.RemoteStateError{
			CannotQueryDirtyAccount: true,
			Error:                   errors.Errorf("state object %s was already imported", addr.Hex()),
		}
	}

	obj, err := s.view.GetStateObject(addr)
	if err != nil {
		s.recordError(err)
		return uint256.NewInt(0), 0, nil, &state.RemoteStateError{
			CannotQueryDirtyAccount: false,
			Error:                   err,
		}
	}
	s.accounts.record(addr, snapId)

	// The StateDB takes ownership of what it imports, the view's values are shared
	balance := uint256.NewInt(0)
	if obj.Balance != nil {
		balance = obj.Balance.Clone()
	}
	return balance, obj.Nonce, slices.Clone(obj.Code), nil
}

// ImportStorageAt returns the value of a slot from the view.
func (s *RemoteStateProvider) ImportStorageAt(addr common.Address, slot common.Hash, snapId int) (common.Hash, *state.RemoteStorageError) {
	// A contract created during execution has no remote storage
	if s.deployed.contains(addr) {
		return common.Hash{}, &state.RemoteStorageError{
			CannotQueryDirtySlot: true,
			Error:                errors.Errorf("slot %s of %s belongs to a contract deployed during execution", slot.Hex(), addr.Hex()),
		}
	}

	key := slotKey{addr: addr, slot: slot}
	if s.slots.contains(key) {
		return common.Hash{}, &state.RemoteStorageError{
			CannotQueryDirtySlot: true,
			Error:                errors.Errorf("slot %s of %s was already imported", slot.Hex(), addr.Hex()),
		}
	}

	value, err := s.view.GetStorageAt(addr, slot)
	if err != nil {
		s.recordError(err)
		return common.Hash{}, &state.RemoteStorageError{
			CannotQueryDirtySlot: false,
			Error:                err,
		}
	}
	s.slots.record(key, snapId)
	return value, nil
}

// MarkSlotWritten marks a slot as owned by the StateDB.
func (s *RemoteStateProvider) MarkSlotWritten(addr common.Address, slot common.Hash, snapId int) {
	s.slots.record(slotKey{addr: addr, slot: slot}, snapId)
}

// MarkContractDeployed marks an address as created by the execution.
func (s *RemoteStateProvider) MarkContractDeployed(addr common.Address, snapId int) {
	s.deployed.record(addr, snapId)
}

// NotifyRevertedToSnapshot forgets every import and mark made after snapId.
func (s *RemoteStateProvider) NotifyRevertedToSnapshot(snapId int) {
	s.accounts.revertTo(snapId)
	s.slots.revertTo(snapId)
	s.deployed.revertTo(snapId)
}

// importJournal tracks which keys were imported, grouped by the StateDB snapshot id they were recorded under. A key
// recorded under several snapshots stays imported until every one of them is reverted.
type importJournal[K comparable] struct {
	records    map[K]int
	bySnapshot map[int][]K
}

func newImportJournal[K comparable]() importJournal[K] {
	return importJournal[K]{
		records:    make(map[K]int),
		bySnapshot: make(map[int][]K),
	}
}

func (j importJournal[K]) contains(key K) bool {
	return j.records[key] > 0
}

func (j importJournal[K]) record(key K, snapId int) {
	j.records[key]++
	j.bySnapshot[snapId] = append(j.bySnapshot[snapId], key)
}

// revertTo drops every record made under a snapshot id greater than snapId. Records made at snapId itself stay.
func (j importJournal[K]) revertTo(snapId int) {
	for id, keys := range j.bySnapshot {
		if id <= snapId {
			continue
		}
		for _, key := range keys {
			if j.records[key]--; j.records[key] <= 0 {
				delete(j.records, key)
			}
		}
		delete(j.bySnapshot, id)
	}
}
