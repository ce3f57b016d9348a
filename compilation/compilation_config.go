package compilation

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/logging"
	"github.com/shadow-hq/shadow/logging/colors"
	"github.com/shadow-hq/shadow/compilation/platforms"
	"github.com/shadow-hq/shadow/compilation/types"
)

// CompilationConfig describes the configuration options used to compile a shadow contract's source tree.
type CompilationConfig struct {
	// Platform references an identifier indicating which compilation platform to use.
	Platform string `json:"platform"`

	// PlatformConfig describes the Platform-specific configuration needed to compile.
	PlatformConfig *json.RawMessage `json:"platformConfig"`
}

// NewCompilationConfig returns a CompilationConfig with default values for a given platform identifier.
func NewCompilationConfig(platform string) (*CompilationConfig, error) {
	if !IsSupportedCompilationPlatform(platform) {
		return nil, errors.Errorf("could not get default compilation configs: platform '%s' is unsupported", platform)
	}
	return NewCompilationConfigFromPlatformConfig(GetDefaultPlatformConfig(platform))
}

// NewCompilationConfigFromPlatformConfig wraps a platforms.PlatformConfig in a generic CompilationConfig.
func NewCompilationConfigFromPlatformConfig(platformConfig platforms.PlatformConfig) (*CompilationConfig, error) {
	b, err := json.Marshal(platformConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	platformConfigMsg := (*json.RawMessage)(&b)
	return &CompilationConfig{Platform: platformConfig.Platform(), PlatformConfig: platformConfigMsg}, nil
}

// GetPlatformConfig deserializes the inner platform-specific configuration.
func (c *CompilationConfig) GetPlatformConfig() (platforms.PlatformConfig, error) {
	if !IsSupportedCompilationPlatform(c.Platform) {
		return nil, errors.Errorf("platform '%s' is unsupported", c.Platform)
	}

	// json.Unmarshal needs a concrete structure to populate, so start from the platform's defaults.
	platformConfig := GetDefaultPlatformConfig(c.Platform)
	if c.PlatformConfig != nil {
		if err := json.Unmarshal(*c.PlatformConfig, platformConfig); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return platformConfig, nil
}

// SetTarget updates the compilation target of the inner platform configuration.
func (c *CompilationConfig) SetTarget(target string) error {
	platformConfig, err := c.GetPlatformConfig()
	if err != nil {
		return err
	}
	platformConfig.SetTarget(target)

	updated, err := NewCompilationConfigFromPlatformConfig(platformConfig)
	if err != nil {
		return err
	}
	*c = *updated
	return nil
}

// Compile compiles the configured target. Returns the artifacts and the raw compiler output. Compiler failures are
// returned as a *CompileError.
func (c *CompilationConfig) Compile(ctx context.Context) ([]*types.CompiledArtifact, string, error) {
	platformConfig, err := c.GetPlatformConfig()
	if err != nil {
		return nil, "", err
	}
	return platformConfig.Compile(ctx)
}

// Compile compiles the source tree at sourceDir with the platform described by config and returns one artifact per
// contract. The configured target is replaced by sourceDir unless sourceDir is empty; config itself is not modified.
// Compiler failures are returned as a *CompileError carrying the compiler output.
func Compile(ctx context.Context, sourceDir string, config *CompilationConfig) ([]*types.CompiledArtifact, error) {
	if config == nil {
		return nil, errors.New("no compilation config was provided")
	}
	logger := logging.GlobalLogger.NewSubLogger("module", logging.COMPILATION_SERVICE)

	target := *config
	if sourceDir != "" {
		if err := target.SetTarget(sourceDir); err != nil {
			return nil, err
		}
	}

	logger.Info("Compiling with ", colors.Bold, target.Platform, colors.Reset)
	artifacts, output, err := target.Compile(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("Compiler output:\n", output)
	if len(artifacts) == 0 {
		return nil, errors.Errorf("%s produced no contract with deployed bytecode", target.Platform)
	}
	logger.Info("Compiled ", len(artifacts), " contract(s)")
	return artifacts, nil
}
