package group

import (
	"path/filepath"
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/compilation/types"
	"github.com/shadow-hq/shadow/shadow"
	"github.com/shadow-hq/shadow/utils"
)

const (
	// InfoFileName is the name of the file describing a contract group.
	InfoFileName = "info.json"

	// ArtifactFileName is the name of the per-contract file holding the original and shadow builds.
	ArtifactFileName = "artifact.json"

	// OverridesFileName is the default name of the exported address to bytecode map.
	OverridesFileName = "shadow.json"
)

// groupInfo is the on-disk form of info.json.
type groupInfo struct {
	Metadata
	Contracts []contractEntry `json:"contracts"`
}

// contractEntry identifies one contract of a group in info.json.
type contractEntry struct {
	Address common.Address `json:"address"`
	ChainID uint64         `json:"chain_id"`
}

// contractArtifacts is the on-disk form of a contract's artifact.json.
type contractArtifacts struct {
	Original *types.CompiledArtifact `json:"original"`
	Shadow   *types.CompiledArtifact `json:"shadow"`
}

// contractDirectory returns the directory holding a contract's files within a group directory.
func contractDirectory(dir string, address common.Address) string {
	return filepath.Join(dir, strings.ToLower(address.Hex()))
}

// LoadContractGroup reads a contract group directory: info.json lists the contracts, and each contract's
// <address>/artifact.json holds its original and shadow builds. Every pair is validated with shadow.Merge, so a group
// that loads successfully only contains valid shadow artifacts. Duplicate addresses are rejected.
func LoadContractGroup(dir string) (*ContractGroup, error) {
	var info groupInfo
	if err := utils.ReadJSONFile(filepath.Join(dir, InfoFileName), &info); err != nil {
		return nil, errors.Wrapf(err, "%s is not a contract group", dir)
	}

	group := &ContractGroup{
		Metadata: info.Metadata,
		Bindings: make([]Binding, 0, len(info.Contracts)),
	}
	for _, entry := range info.Contracts {
		if group.Binding(entry.Address) != nil {
			return nil, errors.Errorf("contract %s appears more than once in group %s", entry.Address.Hex(), dir)
		}

		var artifacts contractArtifacts
		path := filepath.Join(contractDirectory(dir, entry.Address), ArtifactFileName)
		if err := utils.ReadJSONFile(path, &artifacts); err != nil {
			return nil, err
		}
		if artifacts.Original == nil || artifacts.Shadow == nil {
			return nil, errors.Errorf("%s must contain both an original and a shadow build", path)
		}

		merged, err := shadow.Merge(artifacts.Original, artifacts.Shadow)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid shadow build for %s", entry.Address.Hex())
		}
		group.Bindings = append(group.Bindings, Binding{
			Address:  entry.Address,
			ChainID:  entry.ChainID,
			Artifact: merged,
		})
	}
	return group, nil
}

// InitContractGroup creates a new, empty contract group directory. It fails if dir already holds a group.
func InitContractGroup(dir string, displayName string, creator *common.Address) (*ContractGroup, error) {
	if utils.FileExists(filepath.Join(dir, InfoFileName)) {
		return nil, errors.Errorf("%s already contains a contract group", dir)
	}
	group := NewContractGroup(displayName)
	group.Metadata.Creator = creator
	if err := writeInfo(dir, group); err != nil {
		return nil, err
	}
	return group, nil
}

// AddContract validates a shadow build against the original build of a deployed contract and records both in the
// group directory. An existing entry for the address is replaced. The group is reloaded from disk before being
// updated, and the merged artifact is returned.
func AddContract(
	dir string,
	address common.Address,
	chainID uint64,
	original *types.CompiledArtifact,
	shadowBuild *types.CompiledArtifact,
) (*shadow.ShadowArtifact, error) {
	merged, err := shadow.Merge(original, shadowBuild)
	if err != nil {
		return nil, err
	}

	var info groupInfo
	if err = utils.ReadJSONFile(filepath.Join(dir, InfoFileName), &info); err != nil {
		return nil, errors.Wrapf(err, "%s is not a contract group", dir)
	}

	artifactPath := filepath.Join(contractDirectory(dir, address), ArtifactFileName)
	if err = utils.WriteJSONFile(artifactPath, contractArtifacts{Original: original, Shadow: shadowBuild}); err != nil {
		return nil, err
	}

	replaced := false
	for i := range info.Contracts {
		if info.Contracts[i].Address == address {
			info.Contracts[i].ChainID = chainID
			replaced = true
		}
	}
	if !replaced {
		info.Contracts = append(info.Contracts, contractEntry{Address: address, ChainID: chainID})
	}
	if err = utils.WriteJSONFile(filepath.Join(dir, InfoFileName), info); err != nil {
		return nil, err
	}
	return merged, nil
}

func writeInfo(dir string, g *ContractGroup) error {
	info := groupInfo{Metadata: g.Metadata, Contracts: make([]contractEntry, 0, len(g.Bindings))}
	for _, binding := range g.Bindings {
		info.Contracts = append(info.Contracts, contractEntry{Address: binding.Address, ChainID: binding.ChainID})
	}
	return utils.WriteJSONFile(filepath.Join(dir, InfoFileName), info)
}

// WriteOverridesFile exports the group as a JSON object mapping each address to its shadow bytecode. The file can be
// handed to node-side tooling which applies code overrides.
func (g *ContractGroup) WriteOverridesFile(path string) error {
	overrides := Resolve(g, g.Addresses())
	exported := make(map[common.Address]hexutil.Bytes, len(overrides))
	for address, code := range overrides {
		exported[address] = code
	}
	return utils.WriteJSONFile(path, exported)
}

// IsContractGroup reports whether dir contains a contract group.
func IsContractGroup(dir string) bool {
	return utils.FileExists(filepath.Join(dir, InfoFileName))
}
