package types

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Selector describes the 4-byte function selector which prefixes calldata to dispatch a contract method.
type Selector [4]byte

// SelectorFromSignature computes the selector of a canonical method signature such as "transfer(address,uint256)".
func SelectorFromSignature(signature string) Selector {
	var s Selector
	copy(s[:], crypto.Keccak256([]byte(signature))[:4])
	return s
}

// HexToSelector parses a selector from a hex string, with or without a leading "0x".
func HexToSelector(s string) (Selector, error) {
	var selector Selector
	b, err := hexutil.Decode("0x" + strings.TrimPrefix(strings.ToLower(s), "0x"))
	if err != nil {
		return selector, errors.Errorf("invalid selector %q: %v", s, err)
	}
	if len(b) != len(selector) {
		return selector, errors.Errorf("invalid selector %q: expected 4 bytes, got %d", s, len(b))
	}
	copy(selector[:], b)
	return selector, nil
}

// Hex returns the 0x-prefixed hex representation of the selector.
func (s Selector) Hex() string {
	return hexutil.Encode(s[:])
}

// String implements fmt.Stringer.
func (s Selector) String() string {
	return s.Hex()
}

// MarshalText implements encoding.TextMarshaler so selectors can be used as JSON object keys.
func (s Selector) MarshalText() ([]byte, error) {
	return []byte(s.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Selector) UnmarshalText(text []byte) error {
	parsed, err := HexToSelector(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SortSelectors sorts selectors by numeric value in place and returns the slice.
func SortSelectors(selectors []Selector) []Selector {
	slices.SortFunc(selectors, func(a, b Selector) int {
		return bytes.Compare(a[:], b[:])
	})
	return selectors
}

// CompiledArtifact represents the output of a compiler for a single contract: its ABI, the runtime bytecode that is
// (or would be) deployed on-chain, and the method selector table emitted by the compiler.
type CompiledArtifact struct {
	// Name is the contract name as reported by the compiler.
	Name string

	// ABI describes the contract's functions, events and errors.
	ABI abi.ABI

	// DeployedBytecode is the runtime bytecode of the contract.
	DeployedBytecode []byte

	// MethodSelectors maps each 4-byte selector to the canonical signature it was derived from.
	MethodSelectors map[Selector]string

	// SourceHash identifies the source tree the artifact was compiled from.
	SourceHash common.Hash

	// CompilerVersion is the version string of the compiler which produced the artifact, if known.
	CompilerVersion string

	// rawABI holds the ABI JSON the artifact was created from, as abi.ABI cannot be serialized back.
	rawABI json.RawMessage
}

// NewCompiledArtifact creates a CompiledArtifact from raw compiler output. methodIdentifiers follows the solc
// "methodIdentifiers" format (signature to hex selector). If it is nil, the selector table is derived from the ABI.
func NewCompiledArtifact(
	name string,
	abiJSON []byte,
	deployedBytecode []byte,
	methodIdentifiers map[string]string,
	sourceHash common.Hash,
) (*CompiledArtifact, error) {
	contractAbi, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse abi for contract %s", name)
	}

	artifact := &CompiledArtifact{
		Name:             name,
		ABI:              contractAbi,
		DeployedBytecode: slices.Clone(deployedBytecode),
		MethodSelectors:  make(map[Selector]string),
		SourceHash:       sourceHash,
		rawABI:           slices.Clone(abiJSON),
	}

	if methodIdentifiers == nil {
		for _, method := range contractAbi.Methods {
			artifact.MethodSelectors[SelectorFromSignature(method.Sig)] = method.Sig
		}
		return artifact, nil
	}

	// Iterate signatures in order so that a selector shared by two signatures resolves the same way every time.
	signatures := make([]string, 0, len(methodIdentifiers))
	for signature := range methodIdentifiers {
		signatures = append(signatures, signature)
	}
	slices.Sort(signatures)
	for _, signature := range signatures {
		selector, err := HexToSelector(methodIdentifiers[signature])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid method identifier for %s in contract %s", signature, name)
		}
		if _, exists := artifact.MethodSelectors[selector]; !exists {
			artifact.MethodSelectors[selector] = signature
		}
	}
	return artifact, nil
}

// RawABI returns the ABI JSON the artifact was created from.
func (c *CompiledArtifact) RawABI() json.RawMessage {
	return c.rawABI
}

// SelectorIndex returns every signature known for each selector, drawn from both the selector table and the ABI
// method list. A selector mapping to more than one signature indicates a collision.
func (c *CompiledArtifact) SelectorIndex() map[Selector][]string {
	index := make(map[Selector][]string)
	add := func(selector Selector, signature string) {
		if !slices.Contains(index[selector], signature) {
			index[selector] = append(index[selector], signature)
		}
	}

	for selector, signature := range c.MethodSelectors {
		add(selector, signature)
	}
	for _, method := range c.ABI.Methods {
		add(SelectorFromSignature(method.Sig), method.Sig)
	}

	for selector := range index {
		slices.Sort(index[selector])
	}
	return index
}

// MismatchedSelectors returns, in ascending order, the declared selectors which are not the keccak256 prefix of the
// signature they map to.
func (c *CompiledArtifact) MismatchedSelectors() []Selector {
	mismatched := make([]Selector, 0)
	for selector, signature := range c.MethodSelectors {
		if SelectorFromSignature(signature) != selector {
			mismatched = append(mismatched, selector)
		}
	}
	return SortSelectors(mismatched)
}

// EventIndex returns every event signature in the ABI keyed by topic-0. Anonymous events carry no topic-0 and are
// excluded.
func (c *CompiledArtifact) EventIndex() map[common.Hash][]string {
	index := make(map[common.Hash][]string)
	for _, event := range c.ABI.Events {
		if event.Anonymous {
			continue
		}
		topic := crypto.Keccak256Hash([]byte(event.Sig))
		if !slices.Contains(index[topic], event.Sig) {
			index[topic] = append(index[topic], event.Sig)
		}
	}
	for topic := range index {
		slices.Sort(index[topic])
	}
	return index
}

// EventsByTopic returns the non-anonymous ABI events keyed by topic-0. If several events share a topic, the one whose
// signature sorts first is kept.
func (c *CompiledArtifact) EventsByTopic() map[common.Hash]abi.Event {
	events := make(map[common.Hash]abi.Event)
	for _, event := range c.ABI.Events {
		if event.Anonymous {
			continue
		}
		topic := crypto.Keccak256Hash([]byte(event.Sig))
		if existing, ok := events[topic]; !ok || event.Sig < existing.Sig {
			events[topic] = event
		}
	}
	return events
}

// MetadataHash returns the bytecode hash embedded in the solc CBOR metadata of the deployed bytecode, or nil if
// there is none.
func (c *CompiledArtifact) MetadataHash() []byte {
	metadata := ExtractContractMetadata(c.DeployedBytecode)
	if metadata == nil {
		return nil
	}
	return metadata.ExtractBytecodeHash()
}

// Clone returns a copy of the artifact which shares no bytecode, selector table or ABI map with the receiver.
func (c *CompiledArtifact) Clone() *CompiledArtifact {
	clone := *c
	clone.ABI.Methods = maps.Clone(c.ABI.Methods)
	clone.ABI.Events = maps.Clone(c.ABI.Events)
	clone.ABI.Errors = maps.Clone(c.ABI.Errors)
	clone.DeployedBytecode = slices.Clone(c.DeployedBytecode)
	clone.MethodSelectors = maps.Clone(c.MethodSelectors)
	clone.rawABI = slices.Clone(c.rawABI)
	return &clone
}

// MatchesDeployedCode reports whether code, as read from a chain, is the artifact's deployed bytecode. The solc
// metadata tail of both sides is ignored, since it changes with any source edit that does not change the code. Empty
// code never matches.
func (c *CompiledArtifact) MatchesDeployedCode(code []byte) bool {
	if len(code) == 0 {
		return false
	}
	return bytes.Equal(RemoveContractMetadata(c.DeployedBytecode), RemoveContractMetadata(code))
}

// compiledArtifactJSON is the serialized form of a CompiledArtifact.
type compiledArtifactJSON struct {
	Name              string            `json:"name"`
	ABI               json.RawMessage   `json:"abi"`
	DeployedBytecode  hexutil.Bytes     `json:"deployedBytecode"`
	MethodIdentifiers map[string]string `json:"methodIdentifiers"`
	SourceHash        common.Hash       `json:"sourceHash"`
	CompilerVersion   string            `json:"compilerVersion,omitempty"`
}

// MarshalJSON implements json.Marshaler. Selectors are written in the solc "methodIdentifiers" format.
func (c *CompiledArtifact) MarshalJSON() ([]byte, error) {
	identifiers := make(map[string]string, len(c.MethodSelectors))
	for selector, signature := range c.MethodSelectors {
		identifiers[signature] = strings.TrimPrefix(selector.Hex(), "0x")
	}
	rawABI := c.rawABI
	if rawABI == nil {
		rawABI = json.RawMessage("[]")
	}
	return json.Marshal(compiledArtifactJSON{
		Name:              c.Name,
		ABI:               rawABI,
		DeployedBytecode:  c.DeployedBytecode,
		MethodIdentifiers: identifiers,
		SourceHash:        c.SourceHash,
		CompilerVersion:   c.CompilerVersion,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *CompiledArtifact) UnmarshalJSON(data []byte) error {
	var decoded compiledArtifactJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return errors.WithStack(err)
	}
	if len(decoded.ABI) == 0 {
		decoded.ABI = json.RawMessage("[]")
	}
	artifact, err := NewCompiledArtifact(decoded.Name, decoded.ABI, decoded.DeployedBytecode, decoded.MethodIdentifiers, decoded.SourceHash)
	if err != nil {
		return err
	}
	artifact.CompilerVersion = decoded.CompilerVersion
	*c = *artifact
	return nil
}
