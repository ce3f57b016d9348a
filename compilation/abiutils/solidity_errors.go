package abiutils

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common/hexutil"
)

// Solidity `Panic(uint256)` codes.
// Reference: https://docs.soliditylang.org/en/latest/control-structures.html#panic-via-assert-and-error-via-require
const (
	PanicCodeCompilerInserted              = 0x00
	PanicCodeAssertFailed                  = 0x01
	PanicCodeArithmeticUnderOverflow       = 0x11
	PanicCodeDivideByZero                  = 0x12
	PanicCodeEnumTypeConversionOutOfBounds = 0x21
	PanicCodeIncorrectStorageAccess        = 0x22
	PanicCodePopEmptyArray                 = 0x31
	PanicCodeOutOfBoundsArrayAccess        = 0x32
	PanicCodeAllocateTooMuchMemory         = 0x41
	PanicCodeCallUninitializedVariable     = 0x51
)

var (
	uint256Type, _ = abi.NewType("uint256", "", nil)
	stringType, _  = abi.NewType("string", "", nil)

	panicMethod = abi.NewMethod("Panic", "Panic", abi.Function, "", false, false,
		abi.Arguments{{Type: uint256Type}}, abi.Arguments{})
	errorMethod = abi.NewMethod("Error", "Error", abi.Function, "", false, false,
		abi.Arguments{{Type: stringType}}, abi.Arguments{})
)

// GetSolidityPanicCode returns the code of a `Panic(uint256)` revert payload, or nil if the return data is not one.
func GetSolidityPanicCode(returnData []byte) *big.Int {
	if len(returnData) != 4+32 || !bytes.Equal(returnData[:4], panicMethod.ID) {
		return nil
	}
	values, err := panicMethod.Inputs.Unpack(returnData[4:])
	if err != nil || len(values) == 0 {
		return nil
	}
	code, _ := values[0].(*big.Int)
	return code
}

// GetSolidityRevertErrorString returns the message of an `Error(string)` revert payload, or nil.
func GetSolidityRevertErrorString(returnData []byte) *string {
	if len(returnData) <= 4 || !bytes.Equal(returnData[:4], errorMethod.ID) {
		return nil
	}
	values, err := errorMethod.Inputs.Unpack(returnData[4:])
	if err != nil || len(values) == 0 {
		return nil
	}
	message, ok := values[0].(string)
	if !ok {
		return nil
	}
	return &message
}

// GetSolidityCustomRevertError resolves a custom Solidity error from revert data against an ABI. Returns the error
// definition and its unpacked arguments, or nil for both.
func GetSolidityCustomRevertError(contractAbi *abi.ABI, returnData []byte) (*abi.Error, []any) {
	if contractAbi == nil || len(returnData) < 4 {
		return nil, nil
	}
	for _, abiError := range contractAbi.Errors {
		if !bytes.Equal(abiError.ID.Bytes()[:4], returnData[:4]) {
			continue
		}
		matched := abiError
		args, err := matched.Inputs.Unpack(returnData[4:])
		if err == nil {
			return &matched, args
		}
	}
	return nil, nil
}

// DescribeRevert renders revert data in a human-readable form, trying (in order) Error(string), Panic(uint256) and
// custom errors from the given ABIs. Unknown payloads are returned as hex.
func DescribeRevert(returnData []byte, contractAbis ...*abi.ABI) string {
	if message := GetSolidityRevertErrorString(returnData); message != nil {
		return fmt.Sprintf("Error(%q)", *message)
	}
	if code := GetSolidityPanicCode(returnData); code != nil {
		return GetPanicReason(code.Uint64())
	}
	for _, contractAbi := range contractAbis {
		if customError, args := GetSolidityCustomRevertError(contractAbi, returnData); customError != nil {
			return fmt.Sprintf("%s%v", customError.Name, args)
		}
	}
	if len(returnData) == 0 {
		return "<empty revert data>"
	}
	return hexutil.Encode(returnData)
}

// GetPanicReason returns the reason string for a Solidity panic code.
func GetPanicReason(panicCode uint64) string {
	switch panicCode {
	case PanicCodeCompilerInserted:
		return "panic: compiler inserted panic"
	case PanicCodeAssertFailed:
		return "panic: assertion failed"
	case PanicCodeArithmeticUnderOverflow:
		return "panic: arithmetic underflow"
	case PanicCodeDivideByZero:
		return "panic: division by zero"
	case PanicCodeEnumTypeConversionOutOfBounds:
		return "panic: enum access out of bounds"
	case PanicCodeIncorrectStorageAccess:
		return "panic: incorrect storage access"
	case PanicCodePopEmptyArray:
		return "panic: pop on empty array"
	case PanicCodeOutOfBoundsArrayAccess:
		return "panic: out of bounds array access"
	case PanicCodeAllocateTooMuchMemory:
		return "panic: overallocation of memory"
	case PanicCodeCallUninitializedVariable:
		return "panic: call on uninitialized variable"
	default:
		return fmt.Sprintf("unknown panic code(%v)", panicCode)
	}
}
