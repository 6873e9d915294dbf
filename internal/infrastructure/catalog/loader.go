// Package catalog loads reference data shipped with the binary: the badge
// catalog and the seed simulations. A file path overrides the embedded copy.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phishguard/phishguard-hub/internal/domain/badge"
	"github.com/phishguard/phishguard-hub/internal/domain/simulation"
)

//go:embed badges.yaml
var embeddedBadges []byte

//go:embed simulations.yaml
var embeddedSimulations []byte

// LoadBadges returns the validated badge catalog. An empty path selects the
// embedded catalog.
func LoadBadges(path string) (*badge.Catalog, error) {
	data, err := readOrEmbedded(path, embeddedBadges)
	if err != nil {
		return nil, err
	}
	return ParseBadges(data)
}

// ParseBadges decodes and validates a badge catalog document.
func ParseBadges(data []byte) (*badge.Catalog, error) {
	var c badge.Catalog
	if err := decodeStrict(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: decode badges: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return &c, nil
}

type simulationDoc struct {
	Title         string   `yaml:"title"`
	SenderName    string   `yaml:"sender_name"`
	SenderEmail   string   `yaml:"sender_email"`
	Subject       string   `yaml:"subject"`
	Content       string   `yaml:"content"`
	Difficulty    string   `yaml:"difficulty"`
	Category      string   `yaml:"category"`
	CorrectAction string   `yaml:"correct_action"`
	Explanation   string   `yaml:"explanation"`
	Indicators    []string `yaml:"indicators"`
	Inactive      bool     `yaml:"inactive"`
}

type simulationsFile struct {
	Simulations []simulationDoc `yaml:"simulations"`
}

// LoadSimulations returns the seed simulations. An empty path selects the
// embedded document.
func LoadSimulations(path string) ([]*simulation.Simulation, error) {
	data, err := readOrEmbedded(path, embeddedSimulations)
	if err != nil {
		return nil, err
	}
	return ParseSimulations(data)
}

// ParseSimulations decodes and validates seed simulations.
func ParseSimulations(data []byte) ([]*simulation.Simulation, error) {
	var f simulationsFile
	if err := decodeStrict(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: decode simulations: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Simulations))
	out := make([]*simulation.Simulation, 0, len(f.Simulations))
	for i, d := range f.Simulations {
		diff, err := simulation.ParseDifficulty(d.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("catalog: simulation #%d %q: %w", i+1, d.Title, err)
		}
		sim := &simulation.Simulation{
			Title:         strings.TrimSpace(d.Title),
			SenderName:    d.SenderName,
			SenderEmail:   d.SenderEmail,
			Subject:       d.Subject,
			Content:       strings.TrimSpace(d.Content),
			Difficulty:    diff,
			Category:      strings.ToLower(strings.TrimSpace(d.Category)),
			CorrectAction: strings.ToLower(strings.TrimSpace(d.CorrectAction)),
			Explanation:   d.Explanation,
			Indicators:    d.Indicators,
			IsActive:      !d.Inactive,
		}
		if err := sim.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: simulation #%d: %w", i+1, err)
		}
		if _, dup := seen[sim.Title]; dup {
			return nil, fmt.Errorf("catalog: duplicate simulation title %q", sim.Title)
		}
		seen[sim.Title] = struct{}{}
		out = append(out, sim)
	}
	return out, nil
}

func readOrEmbedded(path string, embedded []byte) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return embedded, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return data, nil
}

func decodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	return dec.Decode(v)
}
