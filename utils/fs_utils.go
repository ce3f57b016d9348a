package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// MakeDirectory creates a directory at the given path, including any parent directories which do not exist.
// Returns an error, if one occurred.
func MakeDirectory(dirToMake string) error {
	dirInfo, err := os.Stat(dirToMake)
	if err != nil {
		// Directory does not exist, as expected.
		if os.IsNotExist(err) {
			return errors.WithStack(os.MkdirAll(dirToMake, 0755))
		}
		return errors.WithStack(err)
	}

	// dirToMake is a file, throw an error accordingly
	if !dirInfo.IsDir() {
		return fmt.Errorf("there is a file with the same name as %s", dirToMake)
	}
	return nil
}

// GetFileNameWithoutExtension obtains a filename without the extension. This does not contain any preceding directory
// paths.
func GetFileNameWithoutExtension(filePath string) string {
	base := filepath.Base(filePath)
	return base[:len(base)-len(filepath.Ext(base))]
}

// ReadJSONFile reads the file at path and decodes its JSON contents into out.
func ReadJSONFile(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if err = json.Unmarshal(b, out); err != nil {
		return errors.Wrapf(err, "could not parse %s", path)
	}
	return nil
}

// WriteJSONFile encodes value as indented JSON and writes it to path, creating parent directories as needed.
func WriteJSONFile(path string, value any) error {
	b, err := json.MarshalIndent(value, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err = MakeDirectory(dir); err != nil {
			return err
		}
	}
	return errors.WithStack(os.WriteFile(path, b, 0644))
}

// FileExists reports whether a regular file exists at path.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
