package content

import (
	"context"
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"phish-party-service/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the read-only training content shipped with the service.
type Catalog struct {
	modules    []domain.Module
	challenges []domain.Challenge
	sets       map[string]domain.QuestionSet
}

type catalogFile struct {
	Modules      []domain.Module      `yaml:"modules"`
	Challenges   []domain.Challenge   `yaml:"challenges"`
	QuestionSets []domain.QuestionSet `yaml:"questionSets"`
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes a YAML catalog and validates every question set in it.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{
		modules:    f.Modules,
		challenges: f.Challenges,
		sets:       make(map[string]domain.QuestionSet, len(f.QuestionSets)),
	}
	for _, set := range f.QuestionSets {
		if err := set.Validate(); err != nil {
			return nil, fmt.Errorf("catalog question set %s: %w", set.ID, err)
		}
		if _, dup := c.sets[set.ID]; dup {
			return nil, fmt.Errorf("catalog question set %s: duplicate id", set.ID)
		}
		c.sets[set.ID] = set
	}
	return c, nil
}

func (c *Catalog) Modules(context.Context) ([]domain.Module, error) {
	return append([]domain.Module(nil), c.modules...), nil
}

func (c *Catalog) Challenges(context.Context) ([]domain.Challenge, error) {
	return append([]domain.Challenge(nil), c.challenges...), nil
}

// QuestionSets returns the sets keyed by id, for static loaders and seeding.
func (c *Catalog) QuestionSets() map[string]domain.QuestionSet {
	out := make(map[string]domain.QuestionSet, len(c.sets))
	for id, set := range c.sets {
		out[id] = set
	}
	return out
}

// QuestionSetIDs lists the available sets in a stable order.
func (c *Catalog) QuestionSetIDs() []string {
	ids := make([]string, 0, len(c.sets))
	for id := range c.sets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
