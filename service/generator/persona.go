package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Persona describes the character the generator writes as. Lore carries the
// identity paragraph, StyleRules append tone constraints sentence by
// sentence.
type Persona struct {
	Name       string   `yaml:"name" json:"name"`
	Lore       string   `yaml:"lore" json:"lore"`
	StyleRules []string `yaml:"styleRules,omitempty" json:"styleRules,omitempty"`
}

// DefaultPersona returns the built-in Mechapengu character used when no
// persona file is configured.
func DefaultPersona() *Persona {
	return &Persona{
		Name: "Mechapengu",
		Lore: "You are Mechapengu, a nice penguin robot who loves adventures, helping others, and sharing fun facts about technology and nature.",
		StyleRules: []string{
			"Keep tweets positive and engaging.",
		},
	}
}

// Identity renders the persona as a single instruction paragraph: lore
// followed by the style rules.
func (p *Persona) Identity() string {
	parts := make([]string, 0, 1+len(p.StyleRules))
	if p.Lore != "" {
		parts = append(parts, p.Lore)
	}
	for _, rule := range p.StyleRules {
		if rule != "" {
			parts = append(parts, rule)
		}
	}
	return strings.Join(parts, " ")
}

// LoadPersona reads a persona definition from the supplied YAML document URL
// (any scheme afs understands, typically a local file).
func LoadPersona(ctx context.Context, URL string) (*Persona, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona %s: %w", URL, err)
	}
	persona := &Persona{}
	if err := yaml.Unmarshal(data, persona); err != nil {
		return nil, fmt.Errorf("failed to parse persona %s: %w", URL, err)
	}
	if persona.Lore == "" {
		return nil, fmt.Errorf("persona %s has no lore", URL)
	}
	return persona, nil
}
