package group

import (
	"time"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/shadow-hq/shadow/shadow"
)

// Metadata describes a contract group as a whole.
type Metadata struct {
	// DisplayName is a human readable name for the group.
	DisplayName string `json:"displayName"`

	// Creator is the address of whoever created the group, if known.
	Creator *common.Address `json:"creator"`

	// CreationDate is when the group was created.
	CreationDate time.Time `json:"creationDate"`
}

// Binding associates a deployed contract address with the shadow artifact replacing its code.
type Binding struct {
	// Address is the deployed contract address.
	Address common.Address

	// ChainID is the id of the chain the contract is deployed on.
	ChainID uint64

	// Artifact is the validated shadow artifact for the contract.
	Artifact *shadow.ShadowArtifact
}

// ContractGroup is an ordered set of shadow contracts that are replayed together. It is read-only once loaded.
type ContractGroup struct {
	Metadata Metadata

	// Bindings holds one entry per contract, in the order they were added to the group.
	Bindings []Binding
}

// NewContractGroup returns an empty ContractGroup with the given display name, created now.
func NewContractGroup(displayName string) *ContractGroup {
	return &ContractGroup{
		Metadata: Metadata{
			DisplayName:  displayName,
			CreationDate: time.Now().UTC(),
		},
		Bindings: make([]Binding, 0),
	}
}

// Addresses returns the addresses of every binding in binding order.
func (g *ContractGroup) Addresses() []common.Address {
	addresses := make([]common.Address, len(g.Bindings))
	for i, binding := range g.Bindings {
		addresses[i] = binding.Address
	}
	return addresses
}

// Binding returns the binding for an address, or nil if the address is not part of the group.
func (g *ContractGroup) Binding(address common.Address) *Binding {
	for i := range g.Bindings {
		if g.Bindings[i].Address == address {
			return &g.Bindings[i]
		}
	}
	return nil
}

// ABIs returns the ABI of every shadow artifact in binding order. It is used to decode logs in replay reports.
func (g *ContractGroup) ABIs() []*abi.ABI {
	abis := make([]*abi.ABI, 0, len(g.Bindings))
	for _, binding := range g.Bindings {
		abis = append(abis, &binding.Artifact.ABI)
	}
	return abis
}
