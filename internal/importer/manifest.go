package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest lists files to import together, optionally into a group.
//
//	group: gp-1a2b
//	files:
//	  - photos/beach.jpg
//	  - notes/trip.md
type Manifest struct {
	Group string   `yaml:"group"`
	Files []string `yaml:"files"`
}

// ReadManifest decodes a YAML manifest. Relative file paths are resolved
// against baseDir.
func ReadManifest(r io.Reader, baseDir string) (Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return m, fmt.Errorf("manifest is empty")
		}
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	m.Group = strings.TrimSpace(m.Group)
	files := make([]string, 0, len(m.Files))
	for _, f := range m.Files {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if !filepath.IsAbs(f) && baseDir != "" {
			f = filepath.Join(baseDir, f)
		}
		files = append(files, f)
	}
	m.Files = files
	return m, nil
}
