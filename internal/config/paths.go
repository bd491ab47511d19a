package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains every file system location the service touches.
// All entries are absolute once resolved.
type Paths struct {
	BaseDir      string
	ResourcesDir string
	DataDir      string
	LogsDir      string
	DatabaseFile string

	// OutputCSV is overwritten by each classification run
	OutputCSV string
}

// ResolvePaths turns the configured (possibly relative) paths into absolute ones
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		base = "."
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base dir %q: %w", cfg.BaseDir, err)
	}

	p := &Paths{
		BaseDir:      base,
		ResourcesDir: resolve(base, cfg.ResourcesDir, DefaultResourcesDir),
		DataDir:      resolve(base, cfg.DataDir, DefaultDataDir),
		LogsDir:      resolve(base, cfg.LogsDir, DefaultLogsDir),
		DatabaseFile: resolve(base, cfg.Database, DefaultDatabaseFile),
	}
	p.OutputCSV = filepath.Join(p.ResourcesDir, OutputFileName)
	return p, nil
}

func resolve(base, value, fallback string) string {
	if value == "" {
		value = fallback
	}
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(base, value)
}

// EnsureDirectories creates all required directories
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.ResourcesDir,
		p.DataDir,
		p.LogsDir,
		filepath.Dir(p.DatabaseFile),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
