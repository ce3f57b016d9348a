package chain

import (
	"math/big"
	"sync"

	"github.com/crytic/medusa-geth/params"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/utils"
)

// knownChainConfigs maps the chain ids with a published fork schedule to that schedule.
var knownChainConfigs = map[uint64]*params.ChainConfig{
	params.MainnetChainConfig.ChainID.Uint64(): params.MainnetChainConfig,
	params.SepoliaChainConfig.ChainID.Uint64(): params.SepoliaChainConfig,
	params.HoleskyChainConfig.ChainID.Uint64(): params.HoleskyChainConfig,
}

// derivedChainConfigs memoizes the configs derived for chain ids without a published schedule.
var derivedChainConfigs sync.Map

// ChainConfigForID returns the fork schedule used to execute transactions of the given chain. Chains without a
// known schedule use a copy of the mainnet schedule with the chain id replaced.
// The returned config is shared and must not be modified.
func ChainConfigForID(chainID *big.Int) (*params.ChainConfig, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, errors.Errorf("invalid chain id %v", chainID)
	}
	if !chainID.IsUint64() {
		return nil, errors.Errorf("chain id %v is out of range", chainID)
	}

	id := chainID.Uint64()
	if config, ok := knownChainConfigs[id]; ok {
		return config, nil
	}
	if config, ok := derivedChainConfigs.Load(id); ok {
		return config.(*params.ChainConfig), nil
	}

	config, err := utils.CopyChainConfig(params.MainnetChainConfig)
	if err != nil {
		return nil, err
	}
	config.ChainID = new(big.Int).Set(chainID)

	actual, _ := derivedChainConfigs.LoadOrStore(id, config)
	return actual.(*params.ChainConfig), nil
}

// IsKnownChain reports whether the chain id has a published fork schedule.
func IsKnownChain(chainID *big.Int) bool {
	if chainID == nil || !chainID.IsUint64() {
		return false
	}
	_, ok := knownChainConfigs[chainID.Uint64()]
	return ok
}
