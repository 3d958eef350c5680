// Package catalog holds the static product catalog: the themes a site can use and the plans
// users can buy. A default catalog is embedded; deployments may override it with a YAML file.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"

	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/spf13/viper"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Theme struct {
	ID       string         `mapstructure:"id" json:"id"`
	Name     string         `mapstructure:"name" json:"name"`
	Defaults models.JSONMap `mapstructure:"defaults" json:"defaults"`
}

type Plan struct {
	Slug         string         `mapstructure:"slug"`
	Name         string         `mapstructure:"name"`
	Price        int64          `mapstructure:"price"`
	Currency     string         `mapstructure:"currency"`
	IntervalDays int            `mapstructure:"interval_days"`
	Features     models.JSONMap `mapstructure:"features"`
}

type Catalog struct {
	Themes []Theme `mapstructure:"themes"`
	Plans  []Plan  `mapstructure:"plans"`

	themes map[string]Theme
}

// Load reads the embedded catalog and, when path is not empty, merges the YAML file at path
// over it. Top-level lists in the file replace the embedded ones.
func Load(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultCatalog)); err != nil {
		return nil, fmt.Errorf("reading embedded catalog: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading catalog %s: %w", path, err)
		}
	}

	var c Catalog
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Load("")
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) index() error {
	c.themes = make(map[string]Theme, len(c.Themes))
	for _, t := range c.Themes {
		if t.ID == "" {
			return fmt.Errorf("catalog: theme %q has no id", t.Name)
		}
		if _, dup := c.themes[t.ID]; dup {
			return fmt.Errorf("catalog: duplicate theme %q", t.ID)
		}
		c.themes[t.ID] = t
	}

	slugs := make(map[string]bool, len(c.Plans))
	for _, p := range c.Plans {
		if p.Slug == "" {
			return fmt.Errorf("catalog: plan %q has no slug", p.Name)
		}
		if slugs[p.Slug] {
			return fmt.Errorf("catalog: duplicate plan %q", p.Slug)
		}
		slugs[p.Slug] = true
	}
	return nil
}

// Theme looks a theme up by id. The returned defaults are a copy.
func (c *Catalog) Theme(id string) (Theme, bool) {
	t, ok := c.themes[id]
	if !ok {
		return Theme{}, false
	}
	t.Defaults = models.JSONMap{}.Merge(t.Defaults)
	return t, true
}

// ThemeList returns all themes sorted by id.
func (c *Catalog) ThemeList() []Theme {
	out := make([]Theme, 0, len(c.themes))
	for id := range c.themes {
		t, _ := c.Theme(id)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PlanModels converts the catalog plans into rows for seeding.
func (c *Catalog) PlanModels() []*models.Plan {
	out := make([]*models.Plan, 0, len(c.Plans))
	for _, p := range c.Plans {
		out = append(out, &models.Plan{
			Slug:         p.Slug,
			Name:         p.Name,
			Price:        p.Price,
			Currency:     p.Currency,
			IntervalDays: p.IntervalDays,
			Features:     models.JSONMap{}.Merge(p.Features),
		})
	}
	return out
}
