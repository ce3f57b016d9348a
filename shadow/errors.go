package shadow

import (
	"fmt"
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/shadow-hq/shadow/compilation/types"
)

// ValidationErrorKind identifies which invariant a ValidationError reports.
type ValidationErrorKind string

const (
	// SelectorRemoved indicates a selector of the original contract is missing from the shadow build.
	SelectorRemoved ValidationErrorKind = "SelectorRemoved"

	// SelectorSignatureChanged indicates a selector present in both builds maps to different signatures.
	SelectorSignatureChanged ValidationErrorKind = "SelectorSignatureChanged"

	// SelectorCollision indicates two distinct signatures share a selector, or a declared selector does not
	// match its signature.
	SelectorCollision ValidationErrorKind = "SelectorCollision"

	// EventTopicCollision indicates two distinct event signatures share a topic-0.
	EventTopicCollision ValidationErrorKind = "EventTopicCollision"

	// InvalidTransaction indicates a transaction which cannot be replayed, such as one in the genesis block.
	InvalidTransaction ValidationErrorKind = "InvalidTransaction"
)

// ValidationError describes a violated invariant of a shadow build or a replay request.
type ValidationError struct {
	// Kind identifies the violated invariant.
	Kind ValidationErrorKind

	// Selector is the offending selector, for selector kinds.
	Selector *types.Selector

	// Topic is the offending topic-0, for EventTopicCollision.
	Topic *common.Hash

	// Signatures lists the signatures involved, original first where applicable.
	Signatures []string

	// Message is free-form detail, used by InvalidTransaction.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Selector != nil {
		b.WriteString(fmt.Sprintf(" at selector %s", e.Selector.Hex()))
	}
	if e.Topic != nil {
		b.WriteString(fmt.Sprintf(" at topic %s", e.Topic.Hex()))
	}
	if len(e.Signatures) > 0 {
		b.WriteString(fmt.Sprintf(" (%s)", strings.Join(e.Signatures, ", ")))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func newSelectorError(kind ValidationErrorKind, selector types.Selector, signatures ...string) *ValidationError {
	return &ValidationError{Kind: kind, Selector: &selector, Signatures: signatures}
}

func newTopicError(topic common.Hash, signatures ...string) *ValidationError {
	return &ValidationError{Kind: EventTopicCollision, Topic: &topic, Signatures: signatures}
}

// NewInvalidTransactionError returns a ValidationError for a transaction which cannot be replayed.
func NewInvalidTransactionError(format string, args ...any) *ValidationError {
	return &ValidationError{Kind: InvalidTransaction, Message: fmt.Sprintf(format, args...)}
}
