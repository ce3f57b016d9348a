package config

import (
	"encoding/json"
	"net/url"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shadow-hq/shadow/chain"
	"github.com/shadow-hq/shadow/chain/state"
	"github.com/shadow-hq/shadow/chain/state/rpc"
	"github.com/shadow-hq/shadow/compilation"
)

// ProjectConfig describes the configuration of a shadow project: where chain state comes from, how transactions are
// replayed and how the shadow contracts are compiled.
type ProjectConfig struct {
	// RPC describes the remote node used to fetch transactions and chain state.
	RPC RPCConfig `json:"rpc"`

	// Replay describes the configuration used when replaying transactions.
	Replay ReplayConfig `json:"replay"`

	// Compilation describes the configuration used to compile the shadow contracts.
	Compilation *compilation.CompilationConfig `json:"compilation"`

	// Logging describes the configuration used for logging.
	Logging LoggingConfig `json:"logging"`
}

// RPCConfig describes the connection to the remote node.
type RPCConfig struct {
	// URL is the JSON-RPC endpoint of an archive node.
	URL string `json:"url"`

	// PoolSize is the number of connections opened to URL for state reads.
	PoolSize uint `json:"poolSize"`

	// RequestTimeoutMs bounds every individual remote call. Zero disables the timeout.
	RequestTimeoutMs uint64 `json:"requestTimeoutMs"`

	// MaxRetries is the number of attempts made for a state read before it fails.
	MaxRetries int `json:"maxRetries"`

	// RetryBackoffMs is the delay before the first retry. It doubles on every further retry.
	RetryBackoffMs uint64 `json:"retryBackoffMs"`

	// DiskCache persists fetched state so later runs against the same block do not refetch it.
	DiskCache bool `json:"diskCache"`

	// CacheDirectory is where the disk cache is kept. An empty string uses the default directory.
	CacheDirectory string `json:"cacheDirectory"`
}

// ReplayConfig describes the configuration options used by the replay.Engine.
type ReplayConfig struct {
	// GasMode selects how gas is accounted for during execution: "transaction" or "unlimited".
	GasMode string `json:"gasMode"`

	// IntraBlockState makes the target transaction observe the state left by the transactions before it in its
	// block, rather than the parent block's state.
	IntraBlockState bool `json:"intraBlockState"`

	// Parallelism is the number of transactions replayed at once in a batch.
	Parallelism int `json:"parallelism"`

	// DecodeLogs decodes logs in reports with the ABIs of the contract group.
	DecodeLogs bool `json:"decodeLogs"`
}

// LoggingConfig describes the configuration options used for logging
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or discarded.
	// Increasing level values represent more severe logs
	Level zerolog.Level `json:"level"`

	// EnableConsoleLogging describes whether console logging is enabled
	EnableConsoleLogging bool `json:"enableConsoleLogging"`

	// LogDirectory describes the directory where log files will be outputted. If the string is empty, then no log
	// files are kept
	LogDirectory string `json:"logDirectory"`

	// NoColor disables colored console output.
	NoColor bool `json:"noColor"`
}

// ClientPoolConfig converts the RPC settings into the client pool's configuration.
func (c RPCConfig) ClientPoolConfig() rpc.ClientPoolConfig {
	return rpc.ClientPoolConfig{
		RequestTimeout: c.RequestTimeout(),
		MaxRetries:     c.MaxRetries,
		RetryBackoff:   time.Duration(c.RetryBackoffMs) * time.Millisecond,
	}
}

// RequestTimeout returns the per-call timeout.
func (c RPCConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// ForkConfig converts the project settings into the state.ForkManager's configuration.
func (p *ProjectConfig) ForkConfig() state.ForkConfig {
	return state.ForkConfig{
		DiskCache:       p.RPC.DiskCache,
		CacheDirectory:  p.RPC.CacheDirectory,
		Endpoint:        p.RPC.URL,
		IntraBlockState: p.Replay.IntraBlockState,
	}
}

// ReadProjectConfigFromFile reads a JSON-serialized ProjectConfig from a provided file path. Values missing from the
// file keep their defaults.
// Returns the ProjectConfig if it succeeds, or an error if one occurs.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	// Read our project configuration file data
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Parse the project configuration over the defaults
	projectConfig, err := GetDefaultProjectConfig("")
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(b, projectConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse the project config at %s", path)
	}

	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path in a JSON-serialized format.
// Returns an error if one occurs.
func (p *ProjectConfig) WriteToFile(path string) error {
	// Serialize the configuration
	b, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}

	// Save it to the provided output path and return the result
	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Validate validates that the ProjectConfig meets certain requirements.
// Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	// The URL may be provided later on the command line, but must be well-formed when set
	if p.RPC.URL != "" {
		if _, err := url.ParseRequestURI(p.RPC.URL); err != nil {
			return errors.Errorf("malformed rpc url '%s'", p.RPC.URL)
		}
	}
	if p.RPC.PoolSize == 0 {
		return errors.Errorf("rpc pool size must be a positive number")
	}
	if p.RPC.MaxRetries <= 0 {
		return errors.Errorf("rpc max retries must be a positive number")
	}

	// Verify the replay options
	if _, err := chain.ParseGasMode(p.Replay.GasMode); err != nil {
		return err
	}
	if p.Replay.Parallelism <= 0 {
		return errors.Errorf("replay parallelism must be a positive number")
	}

	// Verify the compilation platform if one is configured
	if p.Compilation != nil {
		if _, err := p.Compilation.GetPlatformConfig(); err != nil {
			return err
		}
	}

	// Verify the log level is one zerolog knows
	if p.Logging.Level < zerolog.TraceLevel || p.Logging.Level > zerolog.Disabled {
		return errors.Errorf("unknown log level %d", p.Logging.Level)
	}
	return nil
}
