// Package catalog holds the static story data: fragments, milestones,
// synthesis recipes, dialogue scripts, guide books and day events.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/ithaca/internal/models"
)

//go:embed catalog.yaml
var defaultYAML []byte

// Catalog is immutable once parsed.
type Catalog struct {
	Fragments  []models.Fragment        `yaml:"fragments"`
	Milestones []models.Milestone       `yaml:"milestones"`
	Recipes    []models.Recipe          `yaml:"recipes"`
	GuideBooks []models.GuideBook       `yaml:"guide_books"`
	DayEvents  []models.DayEvent        `yaml:"day_events"`
	Scripts    map[string][]models.Line `yaml:"scripts"`

	fragments map[string]models.Fragment
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// LoadFile reads and parses a catalog override from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML. Day events are sorted by day so
// callers can rely on ascending order.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog: invalid: %w", err)
	}

	sort.SliceStable(c.DayEvents, func(i, j int) bool { return c.DayEvents[i].Day < c.DayEvents[j].Day })

	c.fragments = make(map[string]models.Fragment, len(c.Fragments))
	for _, f := range c.Fragments {
		c.fragments[f.ID] = f
	}
	return &c, nil
}

// Validate checks authoring mistakes that would break the story. Milestones
// may name fragments missing from the catalog; the progression engine
// tolerates that.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Fragments))
	for i := range c.Fragments {
		f := &c.Fragments[i]
		if err := validation.ValidateStruct(f,
			validation.Field(&f.ID, validation.Required),
			validation.Field(&f.Title, validation.Required),
		); err != nil {
			return fmt.Errorf("fragments[%d]: %w", i, err)
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("fragments[%d]: duplicate id %q", i, f.ID)
		}
		seen[f.ID] = struct{}{}
	}

	for i := range c.Milestones {
		m := &c.Milestones[i]
		if err := validation.ValidateStruct(m,
			validation.Field(&m.Threshold, validation.Min(0)),
			validation.Field(&m.FragmentID, validation.Required),
		); err != nil {
			return fmt.Errorf("milestones[%d]: %w", i, err)
		}
	}

	for i := range c.Recipes {
		r := &c.Recipes[i]
		if err := validation.ValidateStruct(r,
			validation.Field(&r.BookID, validation.Required),
			validation.Field(&r.Title, validation.Required),
			validation.Field(&r.RequiredFragments, validation.Required),
		); err != nil {
			return fmt.Errorf("recipes[%d]: %w", i, err)
		}
	}

	for key, lines := range c.Scripts {
		if len(lines) == 0 {
			return fmt.Errorf("scripts[%s]: no lines", key)
		}
		for i := range lines {
			l := &lines[i]
			if err := validation.ValidateStruct(l,
				validation.Field(&l.Speaker, validation.Required),
				validation.Field(&l.Text, validation.Required),
			); err != nil {
				return fmt.Errorf("scripts[%s][%d]: %w", key, i, err)
			}
		}
	}

	for i := range c.GuideBooks {
		g := &c.GuideBooks[i]
		if err := validation.ValidateStruct(g,
			validation.Field(&g.Number, validation.Required, validation.Min(1)),
			validation.Field(&g.ID, validation.Required),
			validation.Field(&g.Title, validation.Required),
		); err != nil {
			return fmt.Errorf("guide_books[%d]: %w", i, err)
		}
	}

	for i := range c.DayEvents {
		ev := &c.DayEvents[i]
		if err := validation.ValidateStruct(ev,
			validation.Field(&ev.Day, validation.Required, validation.Min(1)),
			validation.Field(&ev.BookID, validation.Required),
			validation.Field(&ev.ScriptID, validation.Required),
		); err != nil {
			return fmt.Errorf("day_events[%d]: %w", i, err)
		}
		if _, ok := c.Scripts[ev.ScriptID]; !ok {
			return fmt.Errorf("day_events[%d]: unknown script %q", i, ev.ScriptID)
		}
		// The shelved book is what marks the event as delivered.
		g, ok := c.GuideBook(ev.SystemBook)
		if !ok {
			return fmt.Errorf("day_events[%d]: unknown guide book %d", i, ev.SystemBook)
		}
		if g.ID != ev.BookID {
			return fmt.Errorf("day_events[%d]: book_id %q does not match guide book %d (%q)", i, ev.BookID, ev.SystemBook, g.ID)
		}
	}
	return nil
}

// Fragment looks up a fragment by id.
func (c *Catalog) Fragment(id string) (models.Fragment, bool) {
	f, ok := c.fragments[id]
	return f, ok
}

// Script looks up a dialogue script by id.
func (c *Catalog) Script(id string) ([]models.Line, bool) {
	lines, ok := c.Scripts[id]
	return lines, ok
}

// GuideBook looks up a system book by its number.
func (c *Catalog) GuideBook(n int) (models.GuideBook, bool) {
	for _, g := range c.GuideBooks {
		if g.Number == n {
			return g, true
		}
	}
	return models.GuideBook{}, false
}
