package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/linkfolio/linkfolio/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := catalog.Default()

	theme, ok := c.Theme("minimal")
	require.True(t, ok)
	assert.Equal(t, "Minimal", theme.Name)
	assert.Equal(t, "#ffffff", theme.Defaults["background"])

	_, ok = c.Theme("nope")
	assert.False(t, ok)

	ids := []string{}
	for _, th := range c.ThemeList() {
		ids = append(ids, th.ID)
	}
	assert.Equal(t, []string{"midnight", "minimal", "sunset"}, ids)

	plans := c.PlanModels()
	require.Len(t, plans, 3)
	assert.Equal(t, "pro", plans[1].Slug)
	assert.Equal(t, int64(900), plans[1].Price)
	assert.Equal(t, 30, plans[1].IntervalDays)
	assert.Equal(t, true, plans[1].Features["custom_domain"])
}

func TestThemeDefaultsAreCopied(t *testing.T) {
	c := catalog.Default()

	theme, _ := c.Theme("minimal")
	theme.Defaults["background"] = "#000000"

	again, _ := c.Theme("minimal")
	assert.Equal(t, "#ffffff", again.Defaults["background"])
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
themes:
  - id: brand
    name: Brand
    defaults:
      accent: "#ff0000"
`), 0o600))

	c, err := catalog.Load(path)
	require.NoError(t, err)

	_, ok := c.Theme("minimal")
	assert.False(t, ok, "themes list is replaced")
	brand, ok := c.Theme("brand")
	require.True(t, ok)
	assert.Equal(t, "#ff0000", brand.Defaults["accent"])

	assert.Len(t, c.PlanModels(), 3, "plans fall back to the embedded list")
}

func TestLoadRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
themes:
  - id: a
    name: A
  - id: a
    name: Again
`), 0o600))

	_, err := catalog.Load(path)
	require.ErrorContains(t, err, "duplicate theme")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := catalog.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
