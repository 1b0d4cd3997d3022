package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jobradar/jobradar/internal/filter"
)

// SourcesFile is the layout of the optional sources overlay.
type SourcesFile struct {
	Roles   map[string]filter.Rule `yaml:"roles"`
	Sources []Source               `yaml:"sources"`
}

// OverlaySources replaces cfg.Sources with the file's list when it has one
// and merges its role classes. A missing file is not an error.
func OverlaySources(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read sources file: %w", err)
	}

	var sf SourcesFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return fmt.Errorf("decode sources file %s: %w", path, err)
	}

	if len(sf.Sources) > 0 {
		cfg.Sources = sf.Sources
	}
	if len(sf.Roles) > 0 {
		if cfg.Roles == nil {
			cfg.Roles = map[string]filter.Rule{}
		}
		for name, r := range sf.Roles {
			cfg.Roles[name] = r
		}
	}
	return nil
}
