// Package version reports build information for the shadow binary. Values come from ldflags when set, and from the
// VCS metadata embedded by the Go toolchain otherwise.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// These variables can be set via ldflags at build time, e.g.
// -X github.com/shadow-hq/shadow/version.Version=0.2.0
var (
	// Version is the semantic version of the build.
	Version = "0.1.0"
	// GitCommit is the git commit hash.
	GitCommit = ""
	// GitCommitTime is the RFC3339 timestamp of the git commit.
	GitCommitTime = ""
	// GitTreeDirty is "true" when the tree had uncommitted changes at build time.
	GitTreeDirty = ""
)

// Info describes a build of shadow.
type Info struct {
	Version       string `json:"version"`
	GitCommit     string `json:"gitCommit,omitempty"`
	GitCommitTime string `json:"gitCommitTime,omitempty"`
	GitTreeDirty  bool   `json:"gitTreeDirty"`
	GoVersion     string `json:"goVersion"`
	Platform      string `json:"platform"`
}

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	fillFromBuildSettings(info.Settings)
}

// fillFromBuildSettings copies VCS settings into any version variable ldflags left empty.
func fillFromBuildSettings(settings []debug.BuildSetting) {
	for _, setting := range settings {
		var target *string
		switch setting.Key {
		case "vcs.revision":
			target = &GitCommit
		case "vcs.time":
			target = &GitCommitTime
		case "vcs.modified":
			target = &GitTreeDirty
		default:
			continue
		}
		if *target == "" {
			*target = setting.Value
		}
	}
}

// GetInfo returns the version information of the running binary.
func GetInfo() Info {
	return Info{
		Version:       Version,
		GitCommit:     GitCommit,
		GitCommitTime: GitCommitTime,
		GitTreeDirty:  GitTreeDirty == "true",
		GoVersion:     runtime.Version(),
		Platform:      runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// ShortCommit returns the abbreviated commit hash, marked when the tree was dirty.
func (i Info) ShortCommit() string {
	commit := i.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if commit != "" && i.GitTreeDirty {
		commit += "-dirty"
	}
	return commit
}

// String renders the information on several lines for `shadow version`.
func (i Info) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("shadow %s\n", i.Version))
	if commit := i.ShortCommit(); commit != "" {
		sb.WriteString(fmt.Sprintf("  commit:   %s\n", commit))
	}
	if i.GitCommitTime != "" {
		built := i.GitCommitTime
		if t, err := time.Parse(time.RFC3339, built); err == nil {
			built = t.UTC().Format("2006-01-02 15:04:05 MST")
		}
		sb.WriteString(fmt.Sprintf("  built:    %s\n", built))
	}
	sb.WriteString(fmt.Sprintf("  go:       %s (%s)\n", i.GoVersion, i.Platform))
	return sb.String()
}

// Short returns the version with the abbreviated commit, as printed by `shadow --version`.
func (i Info) Short() string {
	if commit := i.ShortCommit(); commit != "" {
		return i.Version + "+" + commit
	}
	return i.Version
}
