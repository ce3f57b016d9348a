package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoFormatting(t *testing.T) {
	info := Info{
		Version:       "0.1.0",
		GitCommit:     "0123456789abcdef",
		GitCommitTime: "2024-07-03T10:00:00Z",
		GitTreeDirty:  true,
		GoVersion:     "go1.23.0",
		Platform:      "linux/amd64",
	}
	assert.Equal(t, "0123456-dirty", info.ShortCommit())
	assert.Equal(t, "0.1.0+0123456-dirty", info.Short())
	assert.Contains(t, info.String(), "built:    2024-07-03 10:00:00 UTC")
	assert.Contains(t, info.String(), "go1.23.0 (linux/amd64)")

	bare := Info{Version: "0.1.0", GoVersion: "go1.23.0"}
	assert.Equal(t, "0.1.0", bare.Short())
	assert.NotContains(t, bare.String(), "commit:")
}

func TestFillFromBuildSettingsKeepsLdflags(t *testing.T) {
	defer func(commit, commitTime, dirty string) {
		GitCommit, GitCommitTime, GitTreeDirty = commit, commitTime, dirty
	}(GitCommit, GitCommitTime, GitTreeDirty)

	GitCommit, GitCommitTime, GitTreeDirty = "fromldflags", "", ""
	fillFromBuildSettings([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "fromvcs"},
		{Key: "vcs.time", Value: "2024-07-03T10:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
		{Key: "GOOS", Value: "linux"},
	})
	assert.Equal(t, "fromldflags", GitCommit)
	assert.Equal(t, "2024-07-03T10:00:00Z", GitCommitTime)
	assert.True(t, GetInfo().GitTreeDirty)
}
