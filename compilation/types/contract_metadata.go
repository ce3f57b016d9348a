package types

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor"
)

// ContractMetadata is the CBOR map solc appends to runtime bytecode (unless told not to).
// Reference: https://docs.soliditylang.org/en/latest/metadata.html
type ContractMetadata map[string]any

// metadataPrefixes are the leading bytes of the CBOR metadata map for each known solc hash scheme.
var metadataPrefixes = [][]byte{
	{0xa1, 0x65, 'b', 'z', 'z', 'r', '0', 0x58, 0x20}, // solc <= 0.5.8
	{0xa2, 0x65, 'b', 'z', 'z', 'r', '0', 0x58, 0x20}, // solc >= 0.5.9
	{0xa2, 0x65, 'b', 'z', 'z', 'r', '1', 0x58, 0x20}, // solc >= 0.5.11
	{0xa2, 0x64, 'i', 'p', 'f', 's', 0x58, 0x22},      // solc >= 0.6.0, no experimental flag
	{0xa3, 0x64, 'i', 'p', 'f', 's', 0x58, 0x22},      // solc >= 0.6.0, with experimental flag
}

var bytecodeHashMetadataKeys = [...]string{"bzzr0", "bzzr1", "ipfs"}

// metadataOffset returns the offset of the CBOR metadata map in the bytecode, or -1.
func metadataOffset(bytecode []byte) int {
	for _, prefix := range metadataPrefixes {
		if offset := bytes.LastIndex(bytecode, prefix); offset != -1 {
			return offset
		}
	}
	return -1
}

// ExtractContractMetadata decodes the contract metadata embedded in bytecode, or returns nil if there is none.
func ExtractContractMetadata(bytecode []byte) *ContractMetadata {
	for _, prefix := range metadataPrefixes {
		offset := bytes.LastIndex(bytecode, prefix)
		if offset == -1 {
			continue
		}
		var metadata ContractMetadata
		if err := cbor.Unmarshal(bytecode[offset:], &metadata); err != nil {
			continue
		}
		return &metadata
	}
	return nil
}

// RemoveContractMetadata returns the bytecode without its trailing metadata, or the input unchanged if no metadata
// could be located.
func RemoveContractMetadata(bytecode []byte) []byte {
	if offset := metadataOffset(bytecode); offset != -1 {
		return bytecode[:offset]
	}
	return bytecode
}

// ExtractBytecodeHash returns the source/metadata hash recorded in the metadata, or nil.
func (m ContractMetadata) ExtractBytecodeHash() []byte {
	for _, key := range bytecodeHashMetadataKeys {
		if value, ok := m[key]; ok {
			if hash, ok := value.([]byte); ok {
				return hash
			}
		}
	}
	return nil
}

// CompilerVersion returns the solc version recorded in the metadata as "major.minor.patch", or an empty string.
func (m ContractMetadata) CompilerVersion() string {
	if value, ok := m["solc"]; ok {
		if version, ok := value.([]byte); ok && len(version) == 3 {
			return fmt.Sprintf("%d.%d.%d", version[0], version[1], version[2])
		}
	}
	return ""
}
