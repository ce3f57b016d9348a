package state

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core/rawdb"
	gethState "github.com/crytic/medusa-geth/core/state"
	coreTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/core/vm"
	"github.com/crytic/medusa-geth/triedb"
	"github.com/crytic/medusa-geth/triedb/hashdb"
	"github.com/pkg/errors"
)

// StateDB is the subset of the forked StateDB the executor drives.
type StateDB interface {
	vm.StateDB
	Finalise(bool)
	SetTxContext(common.Hash, int)
	GetLogs(common.Hash, uint64, common.Hash) []*coreTypes.Log
}

// NewStateDB creates a disposable in-memory StateDB which imports every account and slot it touches from view. The
// returned provider reports fetch errors the StateDB could not surface. Writes stay in the StateDB; the view is
// never modified.
func NewStateDB(view StateView) (StateDB, *RemoteStateProvider, error) {
	db := rawdb.NewMemoryDatabase()
	trieDB := triedb.NewDatabase(db, &triedb.Config{HashDB: hashdb.Defaults})
	stateDatabase := gethState.NewDatabase(trieDB, nil)

	provider := newRemoteStateProvider(view)
	stateDB, err := gethState.NewForkedStateDb(coreTypes.EmptyRootHash, stateDatabase, provider)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	return stateDB, provider, nil
}
