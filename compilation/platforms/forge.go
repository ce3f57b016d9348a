package platforms

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/compilation/types"
	"github.com/shadow-hq/shadow/utils"
)

// ForgeCompilationConfig compiles a foundry project with `forge build`.
type ForgeCompilationConfig struct {
	// Target is the root directory of the foundry project.
	Target string `json:"target"`

	// OutDirectory is the artifact directory relative to Target.
	OutDirectory string `json:"outDirectory"`

	// Args holds additional arguments passed to `forge build`.
	Args []string `json:"args"`
}

// NewForgeCompilationConfig returns a ForgeCompilationConfig with default values for the given project root.
func NewForgeCompilationConfig(target string) *ForgeCompilationConfig {
	return &ForgeCompilationConfig{
		Target:       target,
		OutDirectory: "out",
		Args:         []string{},
	}
}

// Platform returns the platform identifier.
func (f *ForgeCompilationConfig) Platform() string {
	return "forge"
}

// GetTarget returns the target for compilation
func (f *ForgeCompilationConfig) GetTarget() string {
	return f.Target
}

// SetTarget sets the new target for compilation
func (f *ForgeCompilationConfig) SetTarget(newTarget string) {
	f.Target = newTarget
}

// Compile runs a clean `forge build` and parses every artifact in the output directory.
func (f *ForgeCompilationConfig) Compile(ctx context.Context) ([]*types.CompiledArtifact, string, error) {
	// Caches are disabled so the artifacts always reflect the current source tree.
	args := append([]string{"build", "--force", "--no-cache", "--root", f.Target}, f.Args...)
	cmd := exec.CommandContext(ctx, "forge", args...)
	_, _, combined, err := utils.RunCommandWithOutputAndError(cmd)
	if err != nil {
		return nil, string(combined), &CompileError{Platform: f.Platform(), Output: string(combined), Err: err}
	}

	sourceHash, err := types.HashSourceTree(f.Target)
	if err != nil {
		return nil, string(combined), err
	}

	outDirectory := f.OutDirectory
	if outDirectory == "" {
		outDirectory = "out"
	}
	artifacts, err := ParseForgeArtifacts(filepath.Join(f.Target, outDirectory), sourceHash)
	if err != nil {
		return nil, string(combined), &CompileError{Platform: f.Platform(), Output: string(combined), Err: err}
	}
	return artifacts, string(combined), nil
}

// forgeArtifact is the subset of a forge output artifact this package consumes.
type forgeArtifact struct {
	ABI              json.RawMessage `json:"abi"`
	DeployedBytecode struct {
		Object string `json:"object"`
	} `json:"deployedBytecode"`
	MethodIdentifiers map[string]string `json:"methodIdentifiers"`
	Metadata          struct {
		Compiler struct {
			Version string `json:"version"`
		} `json:"compiler"`
	} `json:"metadata"`
}

// ParseForgeArtifacts parses forge artifacts (`<Source>.sol/<Contract>.json`) under outDirectory. Artifacts without
// deployed bytecode (interfaces, abstract contracts) are skipped. When several artifacts share a contract name,
// the first by sorted path wins. The returned artifacts are sorted by name.
func ParseForgeArtifacts(outDirectory string, sourceHash common.Hash) ([]*types.CompiledArtifact, error) {
	var paths []string
	err := filepath.WalkDir(outDirectory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not read forge output directory %s", outDirectory)
	}
	sort.Strings(paths)

	seen := make(map[string]struct{})
	artifacts := make([]*types.CompiledArtifact, 0)
	for _, path := range paths {
		// Multi-version builds are emitted as <Name>.<version>.json; the contract name is the first component.
		name := strings.SplitN(strings.TrimSuffix(filepath.Base(path), ".json"), ".", 2)[0]
		if _, exists := seen[name]; exists {
			continue
		}

		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		var parsed forgeArtifact
		if err = json.Unmarshal(b, &parsed); err != nil {
			return nil, errors.Wrapf(err, "could not parse forge artifact %s", path)
		}
		if len(parsed.ABI) == 0 || parsed.DeployedBytecode.Object == "" || parsed.DeployedBytecode.Object == "0x" {
			continue
		}

		// Bytecode with unlinked library placeholders is not valid hex and cannot be deployed as-is.
		bytecode, err := hexutil.Decode(ensureHexPrefix(parsed.DeployedBytecode.Object))
		if err != nil {
			continue
		}
		artifact, err := types.NewCompiledArtifact(name, parsed.ABI, bytecode, parsed.MethodIdentifiers, sourceHash)
		if err != nil {
			return nil, err
		}
		artifact.CompilerVersion = parsed.Metadata.Compiler.Version
		if artifact.CompilerVersion == "" {
			if metadata := types.ExtractContractMetadata(bytecode); metadata != nil {
				artifact.CompilerVersion = metadata.CompilerVersion()
			}
		}

		seen[name] = struct{}{}
		artifacts = append(artifacts, artifact)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name < artifacts[j].Name
	})
	return artifacts, nil
}

func ensureHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}
