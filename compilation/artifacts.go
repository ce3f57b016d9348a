package compilation

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/compilation/platforms"
	"github.com/shadow-hq/shadow/compilation/types"
)

// CompileError is returned when the external compiler fails.
type CompileError = platforms.CompileError

// FindArtifact selects the artifact for a contract name: an exact match first, then a case-insensitive match, then
// the artifact whose name shares the longest case-insensitive prefix with the requested name.
func FindArtifact(artifacts []*types.CompiledArtifact, name string) (*types.CompiledArtifact, error) {
	if len(artifacts) == 0 {
		return nil, errors.Errorf("no compiled artifacts to search for contract %s", name)
	}
	for _, artifact := range artifacts {
		if artifact.Name == name {
			return artifact, nil
		}
	}

	lowerName := strings.ToLower(name)
	for _, artifact := range artifacts {
		if strings.ToLower(artifact.Name) == lowerName {
			return artifact, nil
		}
	}

	var best *types.CompiledArtifact
	bestLength := 0
	for _, artifact := range artifacts {
		length := commonPrefixLength(strings.ToLower(artifact.Name), lowerName)
		if length > bestLength {
			best, bestLength = artifact, length
		}
	}
	if best == nil {
		return nil, errors.Errorf("no compiled artifact resembles contract %s", name)
	}
	return best, nil
}

func commonPrefixLength(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
