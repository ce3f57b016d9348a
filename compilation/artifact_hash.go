package compilation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/compilation/types"
	"github.com/shadow-hq/shadow/logging"
	"github.com/shadow-hq/shadow/logging/colors"
	"golang.org/x/crypto/sha3"
)

// ArtifactHashCacheFileName is the name of the file used to store the hash of the last shadow build.
const ArtifactHashCacheFileName = ".shadow-artifact-hash"

// ArtifactHashCache stores the hash of the last shadow build along with when it was produced.
type ArtifactHashCache struct {
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
}

// ComputeArtifactHash computes a keccak256 hash over the names and deployed bytecode of the given artifacts. The hash
// is independent of artifact order.
func ComputeArtifactHash(artifacts []*types.CompiledArtifact) string {
	sorted := make([]*types.CompiledArtifact, len(artifacts))
	copy(sorted, artifacts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	hasher := sha3.NewLegacyKeccak256()
	for _, artifact := range sorted {
		hasher.Write([]byte(artifact.Name))
		hasher.Write(artifact.DeployedBytecode)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// LoadArtifactHashCache loads the artifact hash cache from a directory. Returns nil if it is missing or unreadable.
func LoadArtifactHashCache(directory string) *ArtifactHashCache {
	data, err := os.ReadFile(filepath.Join(directory, ArtifactHashCacheFileName))
	if err != nil {
		return nil
	}
	var cache ArtifactHashCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil
	}
	return &cache
}

// SaveArtifactHashCache writes the artifact hash cache to a directory, creating it if needed.
func SaveArtifactHashCache(directory string, cache *ArtifactHashCache) error {
	if err := os.MkdirAll(directory, 0755); err != nil {
		return errors.Wrap(err, "failed to create cache directory")
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.WriteFile(filepath.Join(directory, ArtifactHashCacheFileName), data, 0644))
}

// NotifyArtifactHashStatus logs whether the shadow build differs from the previous one compiled in cacheDirectory and
// records the new hash. An unchanged build usually means the source edits were not saved.
func NotifyArtifactHashStatus(artifacts []*types.CompiledArtifact, cacheDirectory string, logger *logging.Logger) {
	if len(artifacts) == 0 {
		return
	}
	currentHash := ComputeArtifactHash(artifacts)
	cached := LoadArtifactHashCache(cacheDirectory)

	if cached == nil || cached.Hash != currentHash {
		logger.Info(colors.Bold, "artifacts: ", colors.Reset, "compiled a ", colors.GreenBold, "new", colors.Reset, " shadow build")
	} else {
		logger.Warn(
			colors.Bold, "artifacts: ", colors.Reset,
			"the shadow build is ", colors.YellowBold, "unchanged", colors.Reset,
			" since the last compile (", formatDuration(time.Since(cached.Timestamp)), " ago)",
		)
	}

	if err := SaveArtifactHashCache(cacheDirectory, &ArtifactHashCache{Hash: currentHash, Timestamp: time.Now()}); err != nil {
		logger.Warn("Failed to save artifact hash cache", err)
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		return pluralize(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return pluralize(int(d.Hours()), "hour")
	default:
		return pluralize(int(d.Hours()/24), "day")
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
