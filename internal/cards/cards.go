// internal/cards/cards.go
package cards

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no template has the requested id.
var ErrNotFound = errors.New("card template not found")

// Type is the card category.
type Type int

const (
	Monster Type = iota
)

func (t Type) String() string {
	if t == Monster {
		return "monster"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// UnmarshalYAML accepts either the category name or its number.
func (t *Type) UnmarshalYAML(value *yaml.Node) error {
	switch value.Value {
	case "monster", "0":
		*t = Monster
		return nil
	}
	return fmt.Errorf("unknown card type %q on line %d", value.Value, value.Line)
}

// Template is the static description of a card.
type Template struct {
	ID            int32  `yaml:"id"`
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	Cost          int    `yaml:"cost"`
	Type          Type   `yaml:"type"`
	Health        int    `yaml:"health"`
	Damage        int    `yaml:"damage"`
	MovementRange int    `yaml:"movement_range"`
}

// Provider resolves card ids to templates.
type Provider interface {
	TemplateByID(id int32) (Template, error)
}

// Catalog is an in-memory Provider.
type Catalog struct {
	mu        sync.RWMutex
	templates map[int32]Template
}

func NewCatalog(templates ...Template) *Catalog {
	c := &Catalog{templates: make(map[int32]Template, len(templates))}
	for _, t := range templates {
		c.templates[t.ID] = t
	}
	return c
}

// Default holds the two starter monsters every default deck is built from.
func Default() *Catalog {
	return NewCatalog(
		Template{ID: 0, Title: "Goblin", Description: "Quick and cheap.", Cost: 1, Type: Monster, Health: 2, Damage: 1, MovementRange: 3},
		Template{ID: 1, Title: "Troll", Description: "Slow and sturdy.", Cost: 3, Type: Monster, Health: 6, Damage: 2, MovementRange: 1},
	)
}

func (c *Catalog) TemplateByID(id int32) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return t, nil
}

// IDs returns all known template ids in ascending order.
func (c *Catalog) IDs() []int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]int32, 0, len(c.templates))
	for id := range c.templates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type catalogFile struct {
	Cards []Template `yaml:"cards"`
}

// Parse reads a YAML catalog of the form `cards: [{id: 0, title: ..., ...}]`.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse card catalog: %w", err)
	}
	c := NewCatalog()
	for _, t := range file.Cards {
		if t.Title == "" {
			return nil, fmt.Errorf("card %d has no title", t.ID)
		}
		if t.Cost < 0 {
			return nil, fmt.Errorf("card %d has negative cost %d", t.ID, t.Cost)
		}
		if _, dup := c.templates[t.ID]; dup {
			return nil, fmt.Errorf("card id %d defined twice", t.ID)
		}
		c.templates[t.ID] = t
	}
	return c, nil
}

// Load reads a catalog file from disk.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read card catalog %s: %w", path, err)
	}
	return Parse(data)
}
