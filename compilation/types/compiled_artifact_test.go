package types

import (
	"encoding/json"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const erc20TransferABI = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"Transfer","anonymous":false,
	 "inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},
	           {"name":"value","type":"uint256","indexed":false}]}
]`

func TestSelectorFromSignature(t *testing.T) {
	assert.Equal(t, "0xa9059cbb", SelectorFromSignature("transfer(address,uint256)").Hex())
	assert.Equal(t, "0x70a08231", SelectorFromSignature("balanceOf(address)").Hex())
}

func TestHexToSelector(t *testing.T) {
	selector, err := HexToSelector("a9059cbb")
	require.NoError(t, err)
	assert.Equal(t, SelectorFromSignature("transfer(address,uint256)"), selector)

	selector, err = HexToSelector("0xA9059CBB")
	require.NoError(t, err)
	assert.Equal(t, "0xa9059cbb", selector.Hex())

	_, err = HexToSelector("0xa9059c")
	assert.Error(t, err)
	_, err = HexToSelector("zzzzzzzz")
	assert.Error(t, err)
}

func TestNewCompiledArtifact_DerivesSelectorsFromABI(t *testing.T) {
	artifact, err := NewCompiledArtifact("Token", []byte(erc20TransferABI), []byte{0x60, 0x00}, nil, common.Hash{})
	require.NoError(t, err)

	assert.Len(t, artifact.MethodSelectors, 2)
	assert.Equal(t, "transfer(address,uint256)", artifact.MethodSelectors[SelectorFromSignature("transfer(address,uint256)")])
	assert.Equal(t, "balanceOf(address)", artifact.MethodSelectors[SelectorFromSignature("balanceOf(address)")])
	assert.Empty(t, artifact.MismatchedSelectors())

	events := artifact.EventIndex()
	transferTopic := common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	assert.Equal(t, []string{"Transfer(address,address,uint256)"}, events[transferTopic])
}

func TestNewCompiledArtifact_MethodIdentifiers(t *testing.T) {
	identifiers := map[string]string{
		"transfer(address,uint256)": "a9059cbb",
		"balanceOf(address)":        "deadbeef",
	}
	artifact, err := NewCompiledArtifact("Token", []byte(erc20TransferABI), nil, identifiers, common.Hash{})
	require.NoError(t, err)

	bogus, _ := HexToSelector("deadbeef")
	assert.Equal(t, []Selector{bogus}, artifact.MismatchedSelectors())

	// The ABI still contributes the real selector for balanceOf to the index.
	index := artifact.SelectorIndex()
	assert.Equal(t, []string{"balanceOf(address)"}, index[SelectorFromSignature("balanceOf(address)")])
	assert.Equal(t, []string{"balanceOf(address)"}, index[bogus])

	_, err = NewCompiledArtifact("Token", []byte(erc20TransferABI), nil, map[string]string{"x()": "0x12"}, common.Hash{})
	assert.Error(t, err)
}

func TestCompiledArtifact_JSONRoundTrip(t *testing.T) {
	artifact, err := NewCompiledArtifact("Token", []byte(erc20TransferABI), []byte{0x60, 0x80}, nil, common.Hash{0x01})
	require.NoError(t, err)
	artifact.CompilerVersion = "0.8.19"

	b, err := json.Marshal(artifact)
	require.NoError(t, err)

	var decoded CompiledArtifact
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, artifact.Name, decoded.Name)
	assert.Equal(t, artifact.DeployedBytecode, decoded.DeployedBytecode)
	assert.Equal(t, artifact.MethodSelectors, decoded.MethodSelectors)
	assert.Equal(t, artifact.SourceHash, decoded.SourceHash)
	assert.Equal(t, "0.8.19", decoded.CompilerVersion)
	assert.Len(t, decoded.ABI.Events, 1)
}

func TestContractMetadata(t *testing.T) {
	// a2 64 "ipfs" 58 22 <34 bytes> 64 "solc" 43 <3 bytes> 00 33
	metadata := []byte{0xa2, 0x64, 'i', 'p', 'f', 's', 0x58, 0x22}
	hash := make([]byte, 34)
	hash[0], hash[1] = 0x12, 0x20
	metadata = append(metadata, hash...)
	metadata = append(metadata, 0x64, 's', 'o', 'l', 'c', 0x43, 0x00, 0x08, 0x13)
	code := append([]byte{0x60, 0x80, 0x60, 0x40}, metadata...)
	code = append(code, 0x00, 0x33)

	extracted := ExtractContractMetadata(code)
	require.NotNil(t, extracted)
	assert.Equal(t, hash, extracted.ExtractBytecodeHash())
	assert.Equal(t, "0.8.19", extracted.CompilerVersion())
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40}, RemoveContractMetadata(code))

	assert.Nil(t, ExtractContractMetadata([]byte{0x60, 0x80}))
	assert.Equal(t, []byte{0x60, 0x80}, RemoveContractMetadata([]byte{0x60, 0x80}))

	// Code comparisons ignore the metadata tail
	rebuilt := append([]byte{0x60, 0x80, 0x60, 0x40}, metadata...)
	rebuilt[len(rebuilt)-20] ^= 0xff
	rebuilt = append(rebuilt, 0x00, 0x33)
	artifact := &CompiledArtifact{DeployedBytecode: rebuilt}
	assert.True(t, artifact.MatchesDeployedCode(code))
	assert.True(t, artifact.MatchesDeployedCode([]byte{0x60, 0x80, 0x60, 0x40}))
	assert.False(t, artifact.MatchesDeployedCode([]byte{0x60, 0x80, 0x60, 0x41}))
	assert.False(t, artifact.MatchesDeployedCode(nil))
}
