package shadow

import (
	"encoding/json"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/compilation/types"
)

// ShadowArtifact is a shadow build that has been validated against the original deployment. It preserves every
// original selector with its signature, so it is safe to substitute for the original bytecode.
type ShadowArtifact struct {
	*types.CompiledArtifact

	// AddedEvents are the events of the shadow build whose topic-0 does not appear in the original, sorted by
	// signature.
	AddedEvents []abi.Event

	// AddedSelectors are the selectors of the shadow build absent from the original, in ascending order.
	AddedSelectors []types.Selector
}

// shadowArtifactJSON is the serialized form of a ShadowArtifact. Added events and selectors are derived data and
// are written for readability only.
type shadowArtifactJSON struct {
	Artifact       *types.CompiledArtifact `json:"artifact"`
	AddedEvents    []string                `json:"addedEvents"`
	AddedSelectors []types.Selector        `json:"addedSelectors"`
}

// MarshalJSON implements json.Marshaler.
func (s *ShadowArtifact) MarshalJSON() ([]byte, error) {
	events := make([]string, 0, len(s.AddedEvents))
	for _, event := range s.AddedEvents {
		events = append(events, event.Sig)
	}
	return json.Marshal(shadowArtifactJSON{
		Artifact:       s.CompiledArtifact,
		AddedEvents:    events,
		AddedSelectors: s.AddedSelectors,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Added events are resolved against the artifact's ABI.
func (s *ShadowArtifact) UnmarshalJSON(data []byte) error {
	var decoded shadowArtifactJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return errors.WithStack(err)
	}
	if decoded.Artifact == nil {
		return errors.New("shadow artifact is missing its compiled artifact")
	}

	bySig := make(map[string]abi.Event, len(decoded.Artifact.ABI.Events))
	for _, event := range decoded.Artifact.ABI.Events {
		bySig[event.Sig] = event
	}
	events := make([]abi.Event, 0, len(decoded.AddedEvents))
	for _, sig := range decoded.AddedEvents {
		event, ok := bySig[sig]
		if !ok {
			return errors.Errorf("added event %s is not part of the shadow artifact abi", sig)
		}
		events = append(events, event)
	}

	s.CompiledArtifact = decoded.Artifact
	s.AddedEvents = events
	s.AddedSelectors = decoded.AddedSelectors
	if s.AddedSelectors == nil {
		s.AddedSelectors = []types.Selector{}
	}
	return nil
}
