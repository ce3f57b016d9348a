package shadow

import (
	"bytes"
	"sort"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/compilation/types"
	"golang.org/x/exp/slices"
)

// Merge validates a freshly compiled shadow build against the original artifact and returns the resulting
// ShadowArtifact. Every original selector must survive with an unchanged signature, no two signatures in the shadow
// build may share a selector, and no two event signatures may share a topic-0. Violations are returned as a
// *ValidationError wrapped with a stack trace. Checks run in ascending selector and topic order, so the reported
// violation is the same on every run.
func Merge(original, shadowBuild *types.CompiledArtifact) (*ShadowArtifact, error) {
	if original == nil || shadowBuild == nil {
		return nil, errors.New("merge requires both an original artifact and a shadow build")
	}

	if err := checkSelectors(original, shadowBuild); err != nil {
		return nil, err
	}
	addedEvents, err := checkEvents(original, shadowBuild)
	if err != nil {
		return nil, err
	}

	addedSelectors := make([]types.Selector, 0)
	for selector := range shadowBuild.MethodSelectors {
		if _, exists := original.MethodSelectors[selector]; !exists {
			addedSelectors = append(addedSelectors, selector)
		}
	}

	return &ShadowArtifact{
		CompiledArtifact: shadowBuild.Clone(),
		AddedEvents:      addedEvents,
		AddedSelectors:   types.SortSelectors(addedSelectors),
	}, nil
}

func checkSelectors(original, shadowBuild *types.CompiledArtifact) error {
	shadowIndex := shadowBuild.SelectorIndex()

	// Original selectors must all be present with the same signature.
	for _, selector := range sortedSelectors(original.MethodSelectors) {
		originalSig := original.MethodSelectors[selector]
		signatures := shadowIndex[selector]
		switch {
		case len(signatures) == 0:
			return errors.WithStack(newSelectorError(SelectorRemoved, selector, originalSig))
		case !slices.Contains(signatures, originalSig):
			return errors.WithStack(newSelectorError(SelectorSignatureChanged, selector, append([]string{originalSig}, signatures...)...))
		case len(signatures) > 1:
			return errors.WithStack(newSelectorError(SelectorCollision, selector, signatures...))
		}
	}

	for _, selector := range sortedSelectors(shadowIndex) {
		if signatures := shadowIndex[selector]; len(signatures) > 1 {
			return errors.WithStack(newSelectorError(SelectorCollision, selector, signatures...))
		}
	}

	// A declared selector which is not the hash of its signature would dispatch calls meant for another function.
	if mismatched := shadowBuild.MismatchedSelectors(); len(mismatched) > 0 {
		selector := mismatched[0]
		return errors.WithStack(newSelectorError(SelectorCollision, selector, shadowBuild.MethodSelectors[selector]))
	}
	return nil
}

func checkEvents(original, shadowBuild *types.CompiledArtifact) ([]abi.Event, error) {
	originalIndex := original.EventIndex()
	shadowIndex := shadowBuild.EventIndex()

	for _, topic := range sortedTopics(shadowIndex) {
		signatures := shadowIndex[topic]
		if len(signatures) > 1 {
			return nil, errors.WithStack(newTopicError(topic, signatures...))
		}
		if originalSigs, exists := originalIndex[topic]; exists && !slices.Contains(originalSigs, signatures[0]) {
			return nil, errors.WithStack(newTopicError(topic, append(slices.Clone(originalSigs), signatures[0])...))
		}
	}

	shadowEvents := shadowBuild.EventsByTopic()
	added := make([]abi.Event, 0)
	for topic, event := range shadowEvents {
		if _, exists := originalIndex[topic]; !exists {
			added = append(added, event)
		}
	}
	sort.Slice(added, func(i, j int) bool {
		return added[i].Sig < added[j].Sig
	})
	return added, nil
}

func sortedSelectors[V any](m map[types.Selector]V) []types.Selector {
	selectors := make([]types.Selector, 0, len(m))
	for selector := range m {
		selectors = append(selectors, selector)
	}
	return types.SortSelectors(selectors)
}

func sortedTopics(m map[common.Hash][]string) []common.Hash {
	topics := make([]common.Hash, 0, len(m))
	for topic := range m {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool {
		return bytes.Compare(topics[i][:], topics[j][:]) < 0
	})
	return topics
}
