package group

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/shadow-hq/shadow/chain/types"
	"golang.org/x/exp/slices"
)

// Resolve builds the OverrideMap for a replay: every target bound in the group maps to a copy of its shadow bytecode.
// Targets outside the group get no entry and keep their original code. A nil group resolves to an empty map.
func Resolve(g *ContractGroup, targets []common.Address) types.OverrideMap {
	overrides := make(types.OverrideMap)
	if g == nil {
		return overrides
	}
	for _, target := range targets {
		binding := g.Binding(target)
		if binding == nil || binding.Artifact == nil {
			continue
		}
		overrides[target] = slices.Clone(binding.Artifact.DeployedBytecode)
	}
	return overrides
}
