package config

import (
	"github.com/rs/zerolog"
	"github.com/shadow-hq/shadow/chain"
	"github.com/shadow-hq/shadow/compilation"
)

// GetDefaultProjectConfig obtains a default configuration for a project. It populates a default compilation config
// based on the provided platform, or a nil one if an empty string is provided.
func GetDefaultProjectConfig(platform string) (*ProjectConfig, error) {
	var (
		compilationConfig *compilation.CompilationConfig
		err               error
	)
	if platform != "" {
		compilationConfig, err = compilation.NewCompilationConfig(platform)
		if err != nil {
			return nil, err
		}
	}

	// Create a project configuration
	projectConfig := &ProjectConfig{
		RPC: RPCConfig{
			URL:              "",
			PoolSize:         4,
			RequestTimeoutMs: 30_000,
			MaxRetries:       3,
			RetryBackoffMs:   100,
			DiskCache:        false,
		},
		Replay: ReplayConfig{
			GasMode:         string(chain.GasModeTransaction),
			IntraBlockState: false,
			Parallelism:     4,
			DecodeLogs:      true,
		},
		Compilation: compilationConfig,
		Logging: LoggingConfig{
			Level:                zerolog.InfoLevel,
			EnableConsoleLogging: true,
			LogDirectory:         "",
		},
	}

	// Return the project configuration
	return projectConfig, nil
}
