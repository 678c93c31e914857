// Package catalog holds the read-only theme catalog: theme name to an ordered
// list of face-value tokens (image references).
package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Catalog is immutable once built. All accessors return copies.
type Catalog struct {
	themes map[string][]string
	order  []string
}

// ThemeInfo describes one theme for setup screens.
type ThemeInfo struct {
	Name     string `json:"name"`
	MaxPairs int    `json:"maxPairs"`
}

// New builds a catalog from the given themes. Face-value order is preserved.
func New(themes map[string][]string) *Catalog {
	c := &Catalog{themes: make(map[string][]string, len(themes))}
	for name, faces := range themes {
		cp := make([]string, len(faces))
		copy(cp, faces)
		c.themes[name] = cp
		c.order = append(c.order, name)
	}
	sort.Strings(c.order)
	return c
}

// Default returns the built-in catalog: two themes of 18 images each.
func Default() *Catalog {
	return New(map[string][]string{
		"Paddington":    numberedFaces("/img/paddington%d.png", 18),
		"Lilo & Stitch": numberedFaces("/img/liloandstitch%d.png", 18),
	})
}

func numberedFaces(pattern string, n int) []string {
	faces := make([]string, n)
	for i := range faces {
		faces[i] = fmt.Sprintf(pattern, i+1)
	}
	return faces
}

// FaceValues returns a copy of the theme's face values in catalog order.
func (c *Catalog) FaceValues(theme string) ([]string, bool) {
	faces, ok := c.themes[theme]
	if !ok {
		return nil, false
	}
	cp := make([]string, len(faces))
	copy(cp, faces)
	return cp, true
}

// MaxPairs is the number of distinct face values a theme can supply, 0 if unknown.
func (c *Catalog) MaxPairs(theme string) int {
	return len(c.themes[theme])
}

// Themes lists every theme sorted by name.
func (c *Catalog) Themes() []ThemeInfo {
	out := make([]ThemeInfo, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, ThemeInfo{Name: name, MaxPairs: len(c.themes[name])})
	}
	return out
}

// catalogFile is the on-disk YAML layout:
//
//	themes:
//	  - name: Paddington
//	    faces: [/img/p1.png, /img/p2.png]
type catalogFile struct {
	Themes []struct {
		Name  string   `yaml:"name"`
		Faces []string `yaml:"faces"`
	} `yaml:"themes"`
}

// Parse decodes a YAML catalog. Theme names must be unique and non-empty,
// and face values within a theme must be distinct.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	themes := make(map[string][]string, len(f.Themes))
	for _, t := range f.Themes {
		if t.Name == "" {
			return nil, fmt.Errorf("catalog theme with empty name")
		}
		if _, dup := themes[t.Name]; dup {
			return nil, fmt.Errorf("duplicate catalog theme %q", t.Name)
		}
		seen := make(map[string]bool, len(t.Faces))
		for _, face := range t.Faces {
			if seen[face] {
				return nil, fmt.Errorf("theme %q lists face %q twice", t.Name, face)
			}
			seen[face] = true
		}
		themes[t.Name] = t.Faces
	}
	if len(themes) == 0 {
		return nil, fmt.Errorf("catalog has no themes")
	}
	return New(themes), nil
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}
