package hql

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ProjectConfig is the parsed shape of an hql.toml project manifest.
// Mirrors pkg/dang/project.go's ProjectConfig/LoadProjectConfig pair,
// which loads a project-root manifest the same way: walk up from a
// starting directory to find the file, parse it with a struct-tagged
// decoder, and fall back to defaults when absent.
type ProjectConfig struct {
	Name       string            `toml:"name"`
	Entry      string            `toml:"entry"`
	OutDir     string            `toml:"out_dir"`
	SourceMaps bool              `toml:"source_maps"`
	Target     string            `toml:"target"` // e.g. "es2022", "node"
	Aliases    map[string]string `toml:"aliases"`
}

// DefaultProjectConfig returns the configuration used when no hql.toml
// is found.
func DefaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Entry:      "main.hql",
		OutDir:     "dist",
		SourceMaps: true,
		Target:     "es2022",
	}
}

// LoadProjectConfig parses the hql.toml file at path.
func LoadProjectConfig(path string) (ProjectConfig, error) {
	cfg := DefaultProjectConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return ProjectConfig{}, err
	}
	return cfg, nil
}

// FindProjectConfig walks up from startDir looking for hql.toml,
// stopping at the first directory containing a .git entry (the
// project-root boundary) or the filesystem root. Returns
// DefaultProjectConfig with ok=false if none is found.
func FindProjectConfig(startDir string) (cfg ProjectConfig, dir string, ok bool) {
	dir = startDir
	for {
		candidate := filepath.Join(dir, "hql.toml")
		if _, err := os.Stat(candidate); err == nil {
			loaded, err := LoadProjectConfig(candidate)
			if err == nil {
				return loaded, dir, true
			}
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return DefaultProjectConfig(), startDir, false
}
