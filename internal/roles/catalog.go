package roles

import (
	"fmt"
	"math"
	"sort"
)

type Category string

const (
	CategoryMood     Category = "mood"
	CategoryEnergy   Category = "energy"
	CategoryActivity Category = "activity"
	CategoryTime     Category = "time"
	CategoryChaos    Category = "chaos"
)

type Period string

const (
	PeriodNight   Period = "night"
	PeriodDay     Period = "day"
	PeriodEvening Period = "evening"
)

var Periods = []Period{PeriodNight, PeriodDay, PeriodEvening}

// Label is a managed role name tagged with its category and priority tier.
// Tier 0 is the baseline; higher tiers are more extreme bands.
type Label struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Tier     int      `json:"tier"`
}

// Band maps values >= Min (up to the next band's Min) to Name.
type Band struct {
	Min  float64 `json:"min" yaml:"min"`
	Name string  `json:"name" yaml:"name"`
	Tier int     `json:"tier" yaml:"tier"`
}

var (
	moodEnergyCuts = []float64{0, 20, 40, 60, 80}
	activityCuts   = []float64{0, 20, 50, 80}
)

const maxTier = 3

// CatalogSpec is the raw description of a catalog, usually read from a preset
// file.
type CatalogSpec struct {
	Locale   string
	Mood     []Band
	Energy   []Band
	Activity []Band
	Times    map[Period]string
	Chaos    []string
}

// Catalog is the closed set of role labels the engine may add or remove.
type Catalog struct {
	locale string
	bands  map[Category][]Band
	times  map[Period]Label
	chaos  map[string]Label
	byName map[string]Label
}

func NewCatalog(spec CatalogSpec) (*Catalog, error) {
	c := &Catalog{
		locale: spec.Locale,
		bands:  make(map[Category][]Band, 3),
		times:  make(map[Period]Label, len(Periods)),
		chaos:  make(map[string]Label, len(spec.Chaos)),
		byName: make(map[string]Label),
	}

	banded := []struct {
		category Category
		bands    []Band
		cuts     []float64
	}{
		{CategoryMood, spec.Mood, moodEnergyCuts},
		{CategoryEnergy, spec.Energy, moodEnergyCuts},
		{CategoryActivity, spec.Activity, activityCuts},
	}
	for _, b := range banded {
		bands, err := normalizeBands(b.category, b.bands, b.cuts)
		if err != nil {
			return nil, err
		}
		c.bands[b.category] = bands
		for _, band := range bands {
			if err := c.add(Label{Name: band.Name, Category: b.category, Tier: band.Tier}); err != nil {
				return nil, err
			}
		}
	}

	for _, p := range Periods {
		name := spec.Times[p]
		if name == "" {
			return nil, fmt.Errorf("time label for period %q is required", p)
		}
		l := Label{Name: name, Category: CategoryTime}
		if err := c.add(l); err != nil {
			return nil, err
		}
		c.times[p] = l
	}
	for p := range spec.Times {
		if !p.Valid() {
			return nil, fmt.Errorf("unknown period %q", p)
		}
	}

	for _, name := range spec.Chaos {
		if name == "" {
			return nil, fmt.Errorf("chaos label must not be empty")
		}
		l := Label{Name: name, Category: CategoryChaos}
		if err := c.add(l); err != nil {
			return nil, err
		}
		c.chaos[name] = l
	}

	return c, nil
}

func normalizeBands(category Category, bands []Band, cuts []float64) ([]Band, error) {
	if len(bands) != len(cuts) {
		return nil, fmt.Errorf("%s: expected %d bands, got %d", category, len(cuts), len(bands))
	}
	sorted := append([]Band(nil), bands...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	for i, band := range sorted {
		if band.Min != cuts[i] {
			return nil, fmt.Errorf("%s: band %d must start at %v, got %v", category, i, cuts[i], band.Min)
		}
		if band.Name == "" {
			return nil, fmt.Errorf("%s: band at %v has no name", category, band.Min)
		}
		if band.Tier < 0 || band.Tier > maxTier {
			return nil, fmt.Errorf("%s: band %q tier must be between 0 and %d", category, band.Name, maxTier)
		}
	}
	return sorted, nil
}

func (c *Catalog) add(l Label) error {
	if _, dup := c.byName[l.Name]; dup {
		return fmt.Errorf("duplicate label %q", l.Name)
	}
	c.byName[l.Name] = l
	return nil
}

func (p Period) Valid() bool {
	for _, known := range Periods {
		if p == known {
			return true
		}
	}
	return false
}

func (c *Catalog) Locale() string {
	return c.locale
}

// Classify maps a mood, energy or activity value to its band label. Lower
// bounds are inclusive. Values below zero fall in the bottom band and values
// above 100 in the top band. NaN yields no label.
func (c *Catalog) Classify(category Category, v float64) (Label, bool) {
	bands, ok := c.bands[category]
	if !ok || math.IsNaN(v) {
		return Label{}, false
	}
	idx := 0
	for i, band := range bands {
		if v >= band.Min {
			idx = i
		}
	}
	band := bands[idx]
	return Label{Name: band.Name, Category: category, Tier: band.Tier}, true
}

// Bands returns a copy of the bands of category in ascending order.
func (c *Catalog) Bands(category Category) []Band {
	return append([]Band(nil), c.bands[category]...)
}

func (c *Catalog) TimeLabel(p Period) (Label, bool) {
	l, ok := c.times[p]
	return l, ok
}

func (c *Catalog) ChaosLabel(name string) (Label, bool) {
	l, ok := c.chaos[name]
	return l, ok
}

// Lookup reports whether name is a managed label.
func (c *Catalog) Lookup(name string) (Label, bool) {
	l, ok := c.byName[name]
	return l, ok
}

// Labels returns every managed label grouped by category.
func (c *Catalog) Labels() []Label {
	labels := make([]Label, 0, len(c.byName))
	for _, category := range []Category{CategoryMood, CategoryEnergy, CategoryActivity} {
		for _, band := range c.bands[category] {
			labels = append(labels, Label{Name: band.Name, Category: category, Tier: band.Tier})
		}
	}
	for _, p := range Periods {
		labels = append(labels, c.times[p])
	}
	chaos := make([]string, 0, len(c.chaos))
	for name := range c.chaos {
		chaos = append(chaos, name)
	}
	sort.Strings(chaos)
	for _, name := range chaos {
		labels = append(labels, c.chaos[name])
	}
	return labels
}

// CatalogFor lets a single catalog serve every guild.
func (c *Catalog) CatalogFor(string) *Catalog {
	return c
}

// CatalogSource picks the catalog for a guild.
type CatalogSource interface {
	CatalogFor(guildID string) *Catalog
}

// GuildCatalogs maps guilds to catalogs built for their locale.
type GuildCatalogs struct {
	byGuild  map[string]*Catalog
	fallback *Catalog
}

func NewGuildCatalogs(fallback *Catalog, byGuild map[string]*Catalog) *GuildCatalogs {
	return &GuildCatalogs{byGuild: byGuild, fallback: fallback}
}

func (g *GuildCatalogs) CatalogFor(guildID string) *Catalog {
	if c, ok := g.byGuild[guildID]; ok {
		return c
	}
	return g.fallback
}

// DefaultCatalogSpec is the built-in English catalog.
func DefaultCatalogSpec() CatalogSpec {
	return CatalogSpec{
		Locale: "en",
		Mood: []Band{
			{Min: 0, Name: "Gloomy", Tier: 2},
			{Min: 20, Name: "Down", Tier: 1},
			{Min: 40, Name: "Balanced", Tier: 0},
			{Min: 60, Name: "Cheerful", Tier: 1},
			{Min: 80, Name: "Radiant", Tier: 2},
		},
		Energy: []Band{
			{Min: 0, Name: "Exhausted", Tier: 2},
			{Min: 20, Name: "Tired", Tier: 1},
			{Min: 40, Name: "Steady", Tier: 0},
			{Min: 60, Name: "Energetic", Tier: 1},
			{Min: 80, Name: "Hyperactive", Tier: 2},
		},
		Activity: []Band{
			{Min: 0, Name: "Lurker"},
			{Min: 20, Name: "Casual"},
			{Min: 50, Name: "Active"},
			{Min: 80, Name: "Unstoppable"},
		},
		Times: map[Period]string{
			PeriodNight:   "Night Owl",
			PeriodDay:     "Daywalker",
			PeriodEvening: "Evening Star",
		},
		Chaos: []string{"Chaos: Gremlin", "Chaos: Lucky Star", "Chaos: Cursed"},
	}
}

// DefaultCatalog builds the catalog from DefaultCatalogSpec.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultCatalogSpec())
	if err != nil {
		panic(fmt.Sprintf("default catalog: %v", err))
	}
	return c
}
