package types

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, root string, rel string, content string) {
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestHashSourceTree(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/Vault.sol", "contract Vault {}")
	writeSource(t, root, "src/lib/Math.sol", "library Math {}")

	first, err := HashSourceTree(root)
	require.NoError(t, err)

	// Build output, dependencies and non-source files do not contribute
	writeSource(t, root, "out/Vault.sol/Vault.json", "{}")
	writeSource(t, root, "node_modules/dep/Dep.sol", "contract Dep {}")
	writeSource(t, root, "README.md", "notes")
	second, err := HashSourceTree(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Contents and renames both change the hash
	writeSource(t, root, "src/Vault.sol", "contract Vault { uint256 x; }")
	edited, err := HashSourceTree(root)
	require.NoError(t, err)
	assert.NotEqual(t, first, edited)

	require.NoError(t, os.Rename(filepath.Join(root, "src/lib/Math.sol"), filepath.Join(root, "src/lib/Maths.sol")))
	renamed, err := HashSourceTree(root)
	require.NoError(t, err)
	assert.NotEqual(t, edited, renamed)

	// A single file hashes relative to its directory
	single, err := HashSourceTree(filepath.Join(root, "src", "Vault.sol"))
	require.NoError(t, err)
	assert.NotEqual(t, renamed, single)

	_, err = HashSourceTree(filepath.Join(root, "missing"))
	assert.Error(t, err)
}
