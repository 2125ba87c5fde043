package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/skydrift/skydrift/internal/files"
)

// Filter is the selective-sync rule set, loaded from a YAML file kept
// next to the configuration. Remote paths it rejects are invisible to
// reconciliation: their cached rows are neither refreshed nor orphaned,
// and no content moves for them.
type Filter struct {
	// ExcludePaths lists remote paths to skip. A folder path excludes
	// its whole subtree.
	ExcludePaths []string `yaml:"exclude_paths"`

	// ExcludeExtensions lists file extensions to skip, without the dot.
	ExcludeExtensions []string `yaml:"exclude_extensions"`

	// ExcludeHidden skips dot-files and dot-folders.
	ExcludeHidden bool `yaml:"exclude_hidden"`
}

// LoadFilter reads a filter file. A missing file means no filter and
// returns nil without error.
func LoadFilter(path string) (*Filter, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading filter file: %w", err)
	}

	filter := &Filter{}
	if err := yaml.Unmarshal(data, filter); err != nil {
		return nil, fmt.Errorf("parsing filter file %s: %w", path, err)
	}

	return filter, nil
}

// Allow reports whether a remote path takes part in synchronization.
// A nil filter allows everything.
func (f *Filter) Allow(remotePath string) bool {
	if f == nil {
		return true
	}

	for _, excluded := range f.ExcludePaths {
		trimmed := strings.TrimSuffix(excluded, files.PathSeparator)
		if remotePath == excluded || strings.HasPrefix(remotePath, trimmed+files.PathSeparator) {
			return false
		}
	}

	name := path.Base(strings.TrimSuffix(remotePath, files.PathSeparator))

	if f.ExcludeHidden && strings.HasPrefix(name, ".") {
		return false
	}

	ext := strings.TrimPrefix(path.Ext(name), ".")
	for _, excluded := range f.ExcludeExtensions {
		if strings.EqualFold(excluded, ext) {
			return false
		}
	}

	return true
}
