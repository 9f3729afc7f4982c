package roles

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_BandBoundaries(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		category Category
		value    float64
		want     string
		tier     int
	}{
		{CategoryMood, 80, "Radiant", 2},
		{CategoryMood, 79.999, "Cheerful", 1},
		{CategoryMood, 60, "Cheerful", 1},
		{CategoryMood, 59.999, "Balanced", 0},
		{CategoryMood, 40, "Balanced", 0},
		{CategoryMood, 20, "Down", 1},
		{CategoryMood, 19.999, "Gloomy", 2},
		{CategoryMood, 0, "Gloomy", 2},
		{CategoryMood, -3, "Gloomy", 2},
		{CategoryMood, 100, "Radiant", 2},
		{CategoryMood, 140, "Radiant", 2},
		{CategoryEnergy, 10, "Exhausted", 2},
		{CategoryEnergy, 45, "Steady", 0},
		{CategoryEnergy, 80, "Hyperactive", 2},
		{CategoryActivity, 0, "Lurker", 0},
		{CategoryActivity, 20, "Casual", 0},
		{CategoryActivity, 49.999, "Casual", 0},
		{CategoryActivity, 50, "Active", 0},
		{CategoryActivity, 80, "Unstoppable", 0},
	}
	for _, tt := range tests {
		got, ok := c.Classify(tt.category, tt.value)
		require.True(t, ok, "%s=%v", tt.category, tt.value)
		assert.Equal(t, Label{Name: tt.want, Category: tt.category, Tier: tt.tier}, got, "%s=%v", tt.category, tt.value)
	}
}

func TestClassify_Unclassifiable(t *testing.T) {
	c := DefaultCatalog()

	_, ok := c.Classify(CategoryMood, math.NaN())
	assert.False(t, ok)

	_, ok = c.Classify(CategoryTime, 50)
	assert.False(t, ok)
}

func TestClassify_Deterministic(t *testing.T) {
	c := DefaultCatalog()
	for v := -10.0; v <= 110; v += 0.5 {
		first, _ := c.Classify(CategoryEnergy, v)
		second, _ := c.Classify(CategoryEnergy, v)
		require.Equal(t, first, second)
	}
}

func TestTimeLabel_Total(t *testing.T) {
	c := DefaultCatalog()
	seen := map[string]bool{}
	for _, p := range Periods {
		l, ok := c.TimeLabel(p)
		require.True(t, ok, "period %s", p)
		assert.Equal(t, CategoryTime, l.Category)
		assert.False(t, seen[l.Name], "time label %q repeated", l.Name)
		seen[l.Name] = true
	}
}

func TestCatalog_Lookup(t *testing.T) {
	c := DefaultCatalog()

	l, ok := c.Lookup("Chaos: Gremlin")
	require.True(t, ok)
	assert.Equal(t, CategoryChaos, l.Category)

	_, ok = c.Lookup("Moderator")
	assert.False(t, ok)

	assert.Len(t, c.Labels(), 20)
	assert.Equal(t, "en", c.Locale())
}

func TestNewCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CatalogSpec)
	}{
		{"missing mood band", func(s *CatalogSpec) { s.Mood = s.Mood[:4] }},
		{"wrong cut point", func(s *CatalogSpec) { s.Activity[2].Min = 40 }},
		{"unnamed band", func(s *CatalogSpec) { s.Energy[0].Name = "" }},
		{"tier out of range", func(s *CatalogSpec) { s.Mood[0].Tier = 4 }},
		{"duplicate label", func(s *CatalogSpec) { s.Energy[4].Name = "Radiant" }},
		{"missing period", func(s *CatalogSpec) { delete(s.Times, PeriodEvening) }},
		{"unknown period", func(s *CatalogSpec) { s.Times["dawn"] = "Early Bird" }},
		{"empty chaos label", func(s *CatalogSpec) { s.Chaos = append(s.Chaos, "") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := DefaultCatalogSpec()
			tt.mutate(&spec)
			_, err := NewCatalog(spec)
			assert.Error(t, err)
		})
	}
}

func TestNewCatalog_UnsortedBands(t *testing.T) {
	spec := DefaultCatalogSpec()
	spec.Mood[0], spec.Mood[4] = spec.Mood[4], spec.Mood[0]

	c, err := NewCatalog(spec)
	require.NoError(t, err)

	l, ok := c.Classify(CategoryMood, 90)
	require.True(t, ok)
	assert.Equal(t, "Radiant", l.Name)
}

func TestGuildCatalogs(t *testing.T) {
	fallback := DefaultCatalog()
	spec := DefaultCatalogSpec()
	spec.Locale = "de"
	spec.Times[PeriodDay] = "Tagaktiv"
	german, err := NewCatalog(spec)
	require.NoError(t, err)

	catalogs := NewGuildCatalogs(fallback, map[string]*Catalog{"g-de": german})
	assert.Same(t, german, catalogs.CatalogFor("g-de"))
	assert.Same(t, fallback, catalogs.CatalogFor("g-other"))
}
