// Package fleet loads YAML fleet-template files describing a batch of jobs
// to submit to a broker, for use by the load-generator CLI.
package fleet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TemplateYAML is the structure of a single job entry in a fleet file.
type TemplateYAML struct {
	JobID   string         `yaml:"job_id"`
	GraphID string         `yaml:"graph_id"`
	Version string         `yaml:"version"`
	Width   int            `yaml:"width"`
	Height  int            `yaml:"height"`
	MinLon  float64        `yaml:"min_lon"`
	MinLat  float64        `yaml:"min_lat"`
	MaxLon  float64        `yaml:"max_lon"`
	MaxLat  float64        `yaml:"max_lat"`
	Payload map[string]any `yaml:"payload"`
}

// File is the top-level shape of a fleet-template YAML file.
type File struct {
	Jobs []TemplateYAML `yaml:"jobs"`
}

// Load reads and parses a fleet-template YAML file from baseDir. path must
// resolve inside baseDir; this guards against a malicious or mistyped
// --file flag escaping the intended templates directory.
func Load(baseDir, path string) (*File, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(baseDir, path))
	if err != nil {
		return nil, fmt.Errorf("resolve template path: %w", err)
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("template path %q escapes base directory %q", path, baseDir)
	}

	// #nosec G304 -- path is verified to resolve inside baseDir above
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read template file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("parse template YAML: %w", err)
	}
	if len(f.Jobs) == 0 {
		return nil, fmt.Errorf("no jobs found in template file: %s", path)
	}
	return &f, nil
}
