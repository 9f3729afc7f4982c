package roles

import (
	"sort"
	"time"
)

const DefaultMaxRoles = 2

// Assignment is the per-category classification of one snapshot. Nil
// categories had no usable value.
type Assignment struct {
	Mood     *Label `json:"mood,omitempty"`
	Energy   *Label `json:"energy,omitempty"`
	Activity *Label `json:"activity,omitempty"`
	Time     Label  `json:"time"`
}

// Assign classifies the snapshot's stats and the time period.
func (c *Catalog) Assign(snap Snapshot, period Period) Assignment {
	var a Assignment
	if l, ok := c.Classify(CategoryMood, snap.Mood); ok {
		a.Mood = &l
	}
	if l, ok := c.Classify(CategoryEnergy, snap.Energy); ok {
		a.Energy = &l
	}
	if l, ok := c.Classify(CategoryActivity, snap.Activity); ok {
		a.Activity = &l
	}
	a.Time, _ = c.TimeLabel(period)
	return a
}

// ActiveChaos returns the snapshot's chaos label while it has not expired.
// Labels outside the catalog are ignored.
func (c *Catalog) ActiveChaos(snap Snapshot, now time.Time) *Label {
	if snap.ChaosLabel == "" || snap.ChaosExpiresAt == nil || !snap.ChaosExpiresAt.After(now) {
		return nil
	}
	l, ok := c.ChaosLabel(snap.ChaosLabel)
	if !ok {
		return nil
	}
	return &l
}

// Target is the priority-ordered role set the member should hold.
func (c *Catalog) Target(snap Snapshot, period Period, now time.Time, maxRoles int) []Label {
	return SelectPriorityRoles(Candidates(c.Assign(snap, period), c.ActiveChaos(snap, now)), maxRoles)
}

// Candidates lists the assignment in tie-break order: mood, energy, activity,
// time, chaos.
func Candidates(a Assignment, chaos *Label) []Label {
	candidates := make([]Label, 0, 5)
	for _, l := range []*Label{a.Mood, a.Energy, a.Activity} {
		if l != nil {
			candidates = append(candidates, *l)
		}
	}
	if a.Time.Name != "" {
		candidates = append(candidates, a.Time)
	}
	if chaos != nil {
		candidates = append(candidates, *chaos)
	}
	return candidates
}

// Score ranks a label. Chaos outranks everything, mood and energy outrank
// activity, and activity outranks time. Tiers order labels within a class.
func Score(l Label) int {
	switch l.Category {
	case CategoryChaos:
		return 1000 + l.Tier
	case CategoryMood, CategoryEnergy:
		return 100 + 10*l.Tier
	case CategoryActivity:
		return 50 + l.Tier
	case CategoryTime:
		return 10 + l.Tier
	}
	return 0
}

// SelectPriorityRoles sorts candidates by descending score, keeping the
// original order for ties, drops repeated names and returns at most maxRoles
// labels.
func SelectPriorityRoles(candidates []Label, maxRoles int) []Label {
	if maxRoles <= 0 {
		return []Label{}
	}
	sorted := append([]Label(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return Score(sorted[i]) > Score(sorted[j]) })

	selected := make([]Label, 0, maxRoles)
	seen := make(map[string]bool, len(sorted))
	for _, l := range sorted {
		if seen[l.Name] {
			continue
		}
		seen[l.Name] = true
		selected = append(selected, l)
		if len(selected) == maxRoles {
			break
		}
	}
	return selected
}

// Names returns the label names in order.
func Names(labels []Label) []string {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.Name
	}
	return names
}
