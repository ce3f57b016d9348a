package abiutils

import (
	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
)

// UnpackEventAndValues resolves the event definition for a log from the given ABI and unpacks its arguments in
// declaration order. Returns nil for both if no definition matches or the values could not be unpacked.
func UnpackEventAndValues(contractAbi *abi.ABI, topics []common.Hash, data []byte) (*abi.Event, []any) {
	if contractAbi == nil || len(topics) == 0 {
		return nil, nil
	}
	event, err := contractAbi.EventByID(topics[0])
	if err != nil {
		return nil, nil
	}

	// go-ethereum cannot unpack indexed arguments, so they are re-declared as non-indexed and decoded from the
	// concatenated topics, then merged back in declaration order.
	var indexedArgs, unindexedArgs abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexedArgs = append(indexedArgs, abi.Argument{Name: arg.Name, Type: arg.Type})
		} else {
			unindexedArgs = append(unindexedArgs, arg)
		}
	}
	if len(topics) != len(indexedArgs)+1 {
		return nil, nil
	}

	var indexedData []byte
	for _, topic := range topics[1:] {
		indexedData = append(indexedData, topic.Bytes()...)
	}
	unindexedValues, err := unindexedArgs.Unpack(data)
	if err != nil {
		return nil, nil
	}
	indexedValues, err := indexedArgs.Unpack(indexedData)
	if err != nil {
		return nil, nil
	}

	values := make([]any, 0, len(event.Inputs))
	var nextIndexed, nextUnindexed int
	for _, arg := range event.Inputs {
		if arg.Indexed {
			values = append(values, indexedValues[nextIndexed])
			nextIndexed++
		} else {
			values = append(values, unindexedValues[nextUnindexed])
			nextUnindexed++
		}
	}
	return event, values
}

// UnpackEventFromAny tries each ABI in turn and returns the first successful decoding.
func UnpackEventFromAny(contractAbis []*abi.ABI, topics []common.Hash, data []byte) (*abi.Event, []any) {
	for _, contractAbi := range contractAbis {
		if event, values := UnpackEventAndValues(contractAbi, topics, data); event != nil {
			return event, values
		}
	}
	return nil, nil
}
