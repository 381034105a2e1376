package activity

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxStars is the top of the reward rating scale.
const MaxStars = 5

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Catalog errors
var (
	ErrEmptyCatalog     = errors.New("catalog has no activities")
	ErrMissingID        = errors.New("activity id is required")
	ErrDuplicateID      = errors.New("duplicate activity id")
	ErrMissingTitle     = errors.New("title is required")
	ErrRelativePathOnly = errors.New("activity path must be site-relative (start with /)")
	ErrStarsOutOfRange  = errors.New("reward stars must be between 0 and 5")
)

// Activity is an interactive exercise embedded in a frame while running.
type Activity struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"` // markdown
	Image       string `yaml:"image"`
	Path        string `yaml:"path"`
}

// Reward is an entry in the achievements gallery.
type Reward struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
	Stars       int    `yaml:"stars"`
}

// StarSlots returns MaxStars booleans, true for each earned star.
func (r Reward) StarSlots() []bool {
	slots := make([]bool, MaxStars)
	for i := range slots {
		slots[i] = i < r.Stars
	}
	return slots
}

// Catalog is the read-only set of activities and rewards offered to therapists.
type Catalog struct {
	Activities []Activity `yaml:"activities"`
	Rewards    []Reward   `yaml:"rewards"`
}

// ParseCatalog decodes and validates a YAML catalog.
// PRE: data is YAML
// POST: Returns a validated catalog or a descriptive error
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic("embedded catalog is invalid: " + err.Error())
	}
	return c
}

// Validate checks ids, titles, paths and star ratings.
// INVARIANT: Catalog is not mutated
func (c Catalog) Validate() error {
	if len(c.Activities) == 0 {
		return ErrEmptyCatalog
	}
	seen := make(map[string]bool, len(c.Activities))
	for i, a := range c.Activities {
		if strings.TrimSpace(a.ID) == "" {
			return fmt.Errorf("activity %d: %w", i, ErrMissingID)
		}
		if seen[a.ID] {
			return fmt.Errorf("activity %q: %w", a.ID, ErrDuplicateID)
		}
		seen[a.ID] = true
		if strings.TrimSpace(a.Title) == "" {
			return fmt.Errorf("activity %q: %w", a.ID, ErrMissingTitle)
		}
		if !strings.HasPrefix(a.Path, "/") || strings.HasPrefix(a.Path, "//") {
			return fmt.Errorf("activity %q: %w", a.ID, ErrRelativePathOnly)
		}
	}
	for i, r := range c.Rewards {
		if strings.TrimSpace(r.Title) == "" {
			return fmt.Errorf("reward %d: %w", i, ErrMissingTitle)
		}
		if r.Stars < 0 || r.Stars > MaxStars {
			return fmt.Errorf("reward %q: %w", r.Title, ErrStarsOutOfRange)
		}
	}
	return nil
}

// Find returns the activity with the given id.
func (c Catalog) Find(id string) (Activity, bool) {
	for _, a := range c.Activities {
		if a.ID == id {
			return a, true
		}
	}
	return Activity{}, false
}
