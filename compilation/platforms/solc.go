package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/compilation/types"
	"github.com/shadow-hq/shadow/utils"
)

// SolcCompilationConfig compiles Solidity sources with `solc --standard-json`. The settings mirror the compiler
// settings a block explorer reports for a verified contract, so that the shadow build is produced the same way as
// the original deployment.
type SolcCompilationConfig struct {
	// Target is a Solidity file, or a directory whose .sol files are all compiled.
	Target string `json:"target"`

	// CompilerVersion is a semver constraint the system solc must satisfy (e.g. "0.8.19" or "^0.8.0"). Empty means any.
	CompilerVersion string `json:"compilerVersion"`

	// OptimizerEnabled and OptimizerRuns configure the solc optimizer.
	OptimizerEnabled bool `json:"optimizerEnabled"`
	OptimizerRuns    int  `json:"optimizerRuns"`

	// EVMVersion is the target EVM version. Empty uses the compiler default.
	EVMVersion string `json:"evmVersion"`

	// ViaIR enables the IR-based code generator.
	ViaIR bool `json:"viaIR"`

	// Remappings are import remappings in solc format.
	Remappings []string `json:"remappings"`
}

// NewSolcCompilationConfig returns a SolcCompilationConfig with default values for the given target.
func NewSolcCompilationConfig(target string) *SolcCompilationConfig {
	return &SolcCompilationConfig{
		Target:        target,
		OptimizerRuns: 200,
		Remappings:    []string{},
	}
}

// Platform returns the platform identifier.
func (s *SolcCompilationConfig) Platform() string {
	return "solc"
}

// GetTarget returns the target for compilation
func (s *SolcCompilationConfig) GetTarget() string {
	return s.Target
}

// SetTarget sets the new target for compilation
func (s *SolcCompilationConfig) SetTarget(newTarget string) {
	s.Target = newTarget
}

// GetSystemSolcVersion runs `solc --version` and parses the reported version.
func GetSystemSolcVersion(ctx context.Context) (*semver.Version, error) {
	out, err := exec.CommandContext(ctx, "solc", "--version").CombinedOutput()
	if err != nil {
		return nil, errors.Errorf("error while executing solc:\nOUTPUT:\n%s\nERROR: %s\n", string(out), err.Error())
	}
	return ParseSolcVersion(string(out))
}

var solcVersionRegexp = regexp.MustCompile(`\d+\.\d+\.\d+`)

// ParseSolcVersion extracts the first semantic version found in solc's version output.
func ParseSolcVersion(output string) (*semver.Version, error) {
	versionStr := solcVersionRegexp.FindString(output)
	if versionStr == "" {
		return nil, errors.New("could not parse solc version using 'solc --version'")
	}
	return semver.NewVersion(versionStr)
}

// CheckCompilerVersion verifies a compiler version satisfies the configured constraint.
func (s *SolcCompilationConfig) CheckCompilerVersion(version *semver.Version) error {
	if s.CompilerVersion == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(strings.TrimPrefix(s.CompilerVersion, "v"))
	if err != nil {
		return errors.Wrapf(err, "invalid solc version constraint %q", s.CompilerVersion)
	}
	if !constraint.Check(version) {
		return errors.Errorf("system solc %s does not satisfy required version %s", version, s.CompilerVersion)
	}
	return nil
}

// solcStandardInput is the `--standard-json` input document.
type solcStandardInput struct {
	Language string                       `json:"language"`
	Sources  map[string]solcSourceContent `json:"sources"`
	Settings solcSettings                 `json:"settings"`
}

type solcSourceContent struct {
	Content string `json:"content"`
}

type solcSettings struct {
	Optimizer struct {
		Enabled bool `json:"enabled"`
		Runs    int  `json:"runs"`
	} `json:"optimizer"`
	EVMVersion      string                         `json:"evmVersion,omitempty"`
	ViaIR           bool                           `json:"viaIR,omitempty"`
	Remappings      []string                       `json:"remappings,omitempty"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

// solcStandardOutput is the subset of the `--standard-json` output document this package consumes.
type solcStandardOutput struct {
	Errors []struct {
		Severity         string `json:"severity"`
		FormattedMessage string `json:"formattedMessage"`
		Message          string `json:"message"`
	} `json:"errors"`
	Contracts map[string]map[string]struct {
		ABI json.RawMessage `json:"abi"`
		EVM struct {
			DeployedBytecode struct {
				Object string `json:"object"`
			} `json:"deployedBytecode"`
			MethodIdentifiers map[string]string `json:"methodIdentifiers"`
		} `json:"evm"`
	} `json:"contracts"`
}

// BuildStandardInput reads the target's sources and builds the standard JSON input document.
func (s *SolcCompilationConfig) BuildStandardInput() ([]byte, error) {
	input := solcStandardInput{
		Language: "Solidity",
		Sources:  make(map[string]solcSourceContent),
	}
	input.Settings.Optimizer.Enabled = s.OptimizerEnabled
	input.Settings.Optimizer.Runs = s.OptimizerRuns
	input.Settings.EVMVersion = s.EVMVersion
	input.Settings.ViaIR = s.ViaIR
	input.Settings.Remappings = s.Remappings
	input.Settings.OutputSelection = map[string]map[string][]string{
		"*": {"*": {"abi", "evm.deployedBytecode.object", "evm.methodIdentifiers"}},
	}

	info, err := os.Stat(s.Target)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	root := filepath.Dir(s.Target)
	var files []string
	if info.IsDir() {
		root = s.Target
		err = filepath.WalkDir(s.Target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".sol") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.WithStack(err)
		}
	} else {
		files = []string{s.Target}
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no solidity sources found at %s", s.Target)
	}

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		rel, err := filepath.Rel(root, file)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		input.Sources[filepath.ToSlash(rel)] = solcSourceContent{Content: string(content)}
	}

	b, err := json.Marshal(input)
	return b, errors.WithStack(err)
}

// Compile checks the system compiler version, then compiles the target through `solc --standard-json`.
func (s *SolcCompilationConfig) Compile(ctx context.Context) ([]*types.CompiledArtifact, string, error) {
	version, err := GetSystemSolcVersion(ctx)
	if err != nil {
		return nil, "", &CompileError{Platform: s.Platform(), Err: err}
	}
	if err = s.CheckCompilerVersion(version); err != nil {
		return nil, "", &CompileError{Platform: s.Platform(), Err: err}
	}

	input, err := s.BuildStandardInput()
	if err != nil {
		return nil, "", err
	}

	cmd := exec.CommandContext(ctx, "solc", "--standard-json", "--allow-paths", ".")
	cmd.Dir = s.Target
	if info, statErr := os.Stat(s.Target); statErr == nil && !info.IsDir() {
		cmd.Dir = filepath.Dir(s.Target)
	}
	cmd.Stdin = bytes.NewReader(input)
	stdout, _, combined, err := utils.RunCommandWithOutputAndError(cmd)
	if err != nil {
		return nil, string(combined), &CompileError{Platform: s.Platform(), Output: string(combined), Err: err}
	}

	sourceHash, err := types.HashSourceTree(s.Target)
	if err != nil {
		return nil, string(combined), err
	}
	artifacts, err := ParseSolcStandardOutput(stdout, sourceHash, version.String())
	if err != nil {
		return nil, string(combined), err
	}
	return artifacts, string(combined), nil
}

// ParseSolcStandardOutput parses a `--standard-json` output document into artifacts sorted by name. Any diagnostic
// with "error" severity fails the compilation with a CompileError.
func ParseSolcStandardOutput(output []byte, sourceHash common.Hash, compilerVersion string) ([]*types.CompiledArtifact, error) {
	var parsed solcStandardOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, errors.Wrap(err, "could not parse solc standard json output")
	}

	var diagnostics []string
	for _, diagnostic := range parsed.Errors {
		if strings.EqualFold(diagnostic.Severity, "error") {
			message := diagnostic.FormattedMessage
			if message == "" {
				message = diagnostic.Message
			}
			diagnostics = append(diagnostics, message)
		}
	}
	if len(diagnostics) > 0 {
		return nil, &CompileError{
			Platform: "solc",
			Output:   strings.Join(diagnostics, "\n"),
			Err:      fmt.Errorf("solc reported %d error(s)", len(diagnostics)),
		}
	}

	artifacts := make([]*types.CompiledArtifact, 0)
	for _, sourcePath := range sortedKeys(parsed.Contracts) {
		contracts := parsed.Contracts[sourcePath]
		for _, name := range sortedKeys(contracts) {
			contract := contracts[name]
			object := contract.EVM.DeployedBytecode.Object
			if object == "" {
				continue
			}
			bytecode, err := hexutil.Decode(ensureHexPrefix(object))
			if err != nil {
				continue
			}
			artifact, err := types.NewCompiledArtifact(name, contract.ABI, bytecode, contract.EVM.MethodIdentifiers, sourceHash)
			if err != nil {
				return nil, err
			}
			artifact.CompilerVersion = compilerVersion
			artifacts = append(artifacts, artifact)
		}
	}
	sort.SliceStable(artifacts, func(i, j int) bool {
		return artifacts[i].Name < artifacts[j].Name
	})
	return artifacts, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
