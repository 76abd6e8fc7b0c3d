package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is one entry of the sources file.
type Source struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
	Pages   int    `yaml:"pages"`
}

type SourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// DefaultSources mirrors configs/sources.yaml and is used when the file is absent.
func DefaultSources() []Source {
	return []Source{
		{Name: "Banker.az", Enabled: true, Pages: 2},
		{Name: "Marja.az", Enabled: true, Pages: 2},
		{Name: "Report.az", Enabled: true, Pages: 1},
		{Name: "Fed.az", Enabled: true, Pages: 2},
		{Name: "Sonxeber.az", Enabled: true, Pages: 2},
		{Name: "Iqtisadiyyat.az", Enabled: true, Pages: 2},
		{Name: "Trend.az", Enabled: true, Pages: 1},
		{Name: "APA.az", Enabled: true, Pages: 2},
		{Name: "Qafqazinfo.az", Enabled: true, Pages: 2},
		{Name: "Oxu.az", Enabled: true, Pages: 2},
	}
}

// LoadSources reads the sources file. A missing file yields DefaultSources.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultSources(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var f SourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	seen := make(map[string]bool, len(f.Sources))
	for i, s := range f.Sources {
		if strings.TrimSpace(s.Name) == "" {
			return nil, fmt.Errorf("sources[%d]: name is required", i)
		}
		key := strings.ToLower(s.Name)
		if seen[key] {
			return nil, fmt.Errorf("sources[%d]: duplicate source %q", i, s.Name)
		}
		seen[key] = true
		if s.Pages <= 0 {
			f.Sources[i].Pages = 1
		}
	}
	return f.Sources, nil
}

// Enabled filters sources down to the enabled ones.
func Enabled(sources []Source) []Source {
	var out []Source
	for _, s := range sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}
