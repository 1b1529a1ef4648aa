package util

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/daedaleanai/nap/log"
	"gopkg.in/yaml.v2"
)

// FileMode is the default FileMode used when creating files.
const FileMode = 0664

// DirMode is the default FileMode used when creating directories.
const DirMode = 0775

// ManifestFileName is the name of the file describing the build requests of a project.
const ManifestFileName = "nap.yaml"

// FileExists checks whether some file exists.
func FileExists(file string) bool {
	stat, err := os.Stat(file)
	return err == nil && !stat.IsDir()
}

// FindFileUpwards walks from dir towards the filesystem root and returns the
// first directory that contains a file called name.
func FindFileUpwards(dir, name string) (string, error) {
	p := filepath.Clean(dir)
	for {
		if FileExists(filepath.Join(p, name)) {
			return p, nil
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", fmt.Errorf("no %s found in %s or any of its parents", name, dir)
		}
		p = parent
	}
}

// IsTerminal checks whether f is a character device such as a terminal.
func IsTerminal(f *os.File) bool {
	stat, err := f.Stat()
	return err == nil && stat.Mode()&os.ModeCharDevice != 0
}

// GetWorkingDir returns the current working directory.
func GetWorkingDir() string {
	workingDir, err := os.Getwd()
	if err != nil {
		log.Fatal("Could not get working directory: %s.\n", err)
	}
	return workingDir
}

// WriteFile writes data to a file, creating its parent directory if necessary.
func WriteFile(filePath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(filePath), DirMode); err != nil {
		return fmt.Errorf("creating directory for %s: %w", filePath, err)
	}
	return os.WriteFile(filePath, data, FileMode)
}

// ReadYaml reads a yaml file into v.
func ReadYaml(filePath string, v interface{}) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	if err := yaml.UnmarshalStrict(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filePath, err)
	}
	return nil
}

// WriteYaml serializes v as yaml into filePath.
func WriteYaml(filePath string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", filePath, err)
	}
	return WriteFile(filePath, data)
}
