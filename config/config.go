// Package config loads experiment definitions from YAML: the agent
// population, the orchestrator bounds and the analytics tolerance for one
// simulation run.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openagora/agora/core"
)

// Experiment is one simulation run definition.
type Experiment struct {
	Name               string                 `yaml:"name"`
	MaxSteps           int                    `yaml:"max_steps"`
	Concurrency        int                    `yaml:"concurrency"`
	FuzzyMatchDistance int                    `yaml:"fuzzy_match_distance"`
	Businesses         []core.BusinessProfile `yaml:"businesses"`
	Customers          []core.CustomerProfile `yaml:"customers"`
}

// Load reads a YAML experiment file and validates it.
func Load(path string) (*Experiment, error) {
	if path == "" {
		return nil, errors.New("experiment path cannot be empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read experiment config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML experiment definition.
func Parse(raw []byte) (*Experiment, error) {
	var exp Experiment
	if err := yaml.Unmarshal(raw, &exp); err != nil {
		return nil, fmt.Errorf("unmarshal experiment config: %w", err)
	}
	if exp.MaxSteps <= 0 {
		exp.MaxSteps = 20
	}
	if exp.Concurrency <= 0 {
		exp.Concurrency = 8
	}
	if err := exp.validate(); err != nil {
		return nil, err
	}
	return &exp, nil
}

func (e *Experiment) validate() error {
	if e.Name == "" {
		return errors.New("experiment name is required")
	}
	if e.FuzzyMatchDistance < 0 {
		return fmt.Errorf("fuzzy_match_distance must not be negative, got %d", e.FuzzyMatchDistance)
	}

	seen := make(map[string]bool)
	for i, b := range e.Businesses {
		if b.ID == "" {
			return fmt.Errorf("business %d is missing an id", i)
		}
		if seen[b.ID] {
			return fmt.Errorf("duplicate agent id %q", b.ID)
		}
		seen[b.ID] = true
		if len(b.Menu) == 0 {
			return fmt.Errorf("business %s has an empty menu", b.ID)
		}
		for item, price := range b.Menu {
			if price < 0 {
				return fmt.Errorf("business %s lists %q at a negative price", b.ID, item)
			}
		}
	}
	for i, c := range e.Customers {
		if c.ID == "" {
			return fmt.Errorf("customer %d is missing an id", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate agent id %q", c.ID)
		}
		seen[c.ID] = true
		if len(c.WTP) == 0 {
			return fmt.Errorf("customer %s requests no items", c.ID)
		}
	}
	return nil
}
