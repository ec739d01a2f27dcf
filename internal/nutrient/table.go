// Package nutrient maps food names to per-100 g macronutrient profiles.
package nutrient

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/gutlog/internal/model"
)

// NormalizeKey trims s and converts it to Unicode NFC so that composed and
// decomposed Hangul compare equal.
func NormalizeKey(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Table is an in-memory reference table keyed by normalized food name.
type Table struct {
	rows map[string]model.NutrientProfile
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{rows: make(map[string]model.NutrientProfile)}
}

// Add stores profile under name unless the name is blank or already
// present. It reports whether the row was stored.
func (t *Table) Add(name string, profile model.NutrientProfile) bool {
	key := NormalizeKey(name)
	if key == "" {
		return false
	}
	if _, ok := t.rows[key]; ok {
		return false
	}
	t.rows[key] = profile
	return true
}

// Lookup returns the profile for name and whether it was found.
func (t *Table) Lookup(name string) (model.NutrientProfile, bool) {
	if t == nil {
		return model.NutrientProfile{}, false
	}
	p, ok := t.rows[NormalizeKey(name)]
	return p, ok
}

// Resolve returns the profile for name, or the default profile on a miss.
func (t *Table) Resolve(name string) model.NutrientProfile {
	if p, ok := t.Lookup(name); ok {
		return p
	}
	return model.DefaultNutrientProfile
}

// Len returns the number of foods in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Names returns the table's keys in sorted order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.rows))
	for k := range t.rows {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Resolve looks name up in table, falling back to the default profile.
// A nil table always yields the default.
func Resolve(name string, table *Table) model.NutrientProfile {
	return table.Resolve(name)
}
