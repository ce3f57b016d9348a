package types

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// SourceExtensions lists the file extensions considered part of a contract source tree.
var SourceExtensions = []string{".sol", ".vy"}

// skippedSourceDirectories are directories of build output or dependencies which never contribute to a source hash.
var skippedSourceDirectories = map[string]struct{}{
	"out":          {},
	"cache":        {},
	"node_modules": {},
	".git":         {},
}

// HashSourceTree computes a keccak256 hash over every source file under root. Files are visited in sorted order of
// their slash-separated relative path, and both the path and the contents are hashed, so the result is independent of
// file system iteration order and sensitive to renames. A single file may be passed as root.
func HashSourceTree(root string) (common.Hash, error) {
	info, err := os.Stat(root)
	if err != nil {
		return common.Hash{}, errors.WithStack(err)
	}

	var paths []string
	if info.IsDir() {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if _, skip := skippedSourceDirectories[d.Name()]; skip && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if isSourceFile(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return common.Hash{}, errors.WithStack(err)
		}
	} else {
		paths = []string{root}
		root = filepath.Dir(root)
	}
	sort.Slice(paths, func(i, j int) bool {
		return filepath.ToSlash(paths[i]) < filepath.ToSlash(paths[j])
	})

	hasher := sha3.NewLegacyKeccak256()
	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return common.Hash{}, errors.WithStack(err)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return common.Hash{}, errors.WithStack(err)
		}
		hasher.Write([]byte(filepath.ToSlash(rel)))
		hasher.Write([]byte{0})
		hasher.Write(content)
		hasher.Write([]byte{0})
	}
	return common.BytesToHash(hasher.Sum(nil)), nil
}

func isSourceFile(path string) bool {
	for _, ext := range SourceExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
