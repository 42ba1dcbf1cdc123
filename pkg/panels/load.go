package panels

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the panel tree from a YAML file, assigns stable identifiers to
// panels and actions that have none configured, and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading panels file: %w", err)
	}
	return Parse(raw)
}

// Parse builds a Config from raw YAML.
func Parse(raw []byte) (*Config, error) {
	var file struct {
		Panels []*Panel `yaml:"panels"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("error parsing panels file: %w", err)
	}

	c := &Config{
		Panels: file.Panels,
		byID:   make(map[string]*Panel, len(file.Panels)),
	}

	for pi, p := range c.Panels {
		if p == nil {
			return nil, fmt.Errorf("panel %d is empty", pi)
		}
		if p.Identifier == "" {
			return nil, fmt.Errorf("panel %d has no identifier", pi)
		}
		if p.ID == "" {
			p.ID = slug(p.Identifier)
		}
		if _, ok := c.byID[p.ID]; ok {
			return nil, fmt.Errorf("duplicate panel id %q", p.ID)
		}
		c.byID[p.ID] = p

		if p.Server != "" && p.SelectServer {
			return nil, fmt.Errorf("panel %q both fixes a server and selects one", p.ID)
		}

		seen := make(map[string]struct{})
		for ai, a := range p.Actions {
			if a == nil {
				// Empty slots are allowed; they keep the remaining
				// actions in place.
				continue
			}
			if a.ID == "" {
				if a.ButtonText != "" {
					a.ID = slug(a.ButtonText)
				} else {
					a.ID = fmt.Sprintf("action-%d", ai)
				}
			}
			if _, ok := seen[a.ID]; ok {
				return nil, fmt.Errorf("panel %q has duplicate action id %q", p.ID, a.ID)
			}
			seen[a.ID] = struct{}{}

			for fi, e := range a.FormEntries {
				if e == nil || e.Label == "" {
					return nil, fmt.Errorf("panel %q action %q form entry %d has no label", p.ID, a.ID, fi)
				}
				if e.MaxLength != 0 && e.MinLength > e.MaxLength {
					return nil, fmt.Errorf("panel %q action %q form entry %d has min length above max", p.ID, a.ID, fi)
				}
			}
		}
	}

	return c, nil
}

// slug derives a stable identifier from a display name: lowercased, with
// runs of non-alphanumeric characters collapsed to single dashes.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
