// Package ledger tracks the estimated mass currently in transit for one user.
package ledger

import (
	"math"
	"sort"
	"time"

	"github.com/sells-group/gutlog/internal/model"
)

// Ledger is the running stock in grams. It is never negative.
type Ledger struct {
	stock float64
}

// New returns a ledger starting at stock, floored at zero.
func New(stock float64) *Ledger {
	return &Ledger{stock: nonNegative(stock)}
}

// Stock returns the current value.
func (l *Ledger) Stock() float64 {
	return l.stock
}

// ApplyMeal adds a meal's predicted excretion.
func (l *Ledger) ApplyMeal(predictedExcretionG float64) {
	l.stock += nonNegative(predictedExcretionG)
}

// ApplyElimination removes up to dischargedG and returns how much was
// actually removed from the tracked stock.
func (l *Ledger) ApplyElimination(dischargedG float64) float64 {
	dischargedG = nonNegative(dischargedG)
	actual := math.Min(dischargedG, l.stock)
	l.stock = math.Max(0, l.stock-dischargedG)
	return actual
}

// Reset empties the stock and returns the amount that was cleared.
func (l *Ledger) Reset() float64 {
	cleared := l.stock
	l.stock = 0
	return cleared
}

// EntryKind distinguishes replayed events.
type EntryKind int

const (
	EntryMeal EntryKind = iota
	EntryElimination
)

// Entry is one event in replay form.
type Entry struct {
	At    time.Time
	Kind  EntryKind
	MassG float64
	Full  bool
}

// Entries flattens a user's log into replay entries.
func Entries(meals []model.MealEvent, elims []model.EliminationEvent) []Entry {
	out := make([]Entry, 0, len(meals)+len(elims))
	for _, m := range meals {
		out = append(out, Entry{At: m.Timestamp, Kind: EntryMeal, MassG: m.PredictedExcretionG})
	}
	for _, e := range elims {
		out = append(out, Entry{At: e.Timestamp, Kind: EntryElimination, MassG: e.DischargedMassG, Full: e.Full})
	}
	return out
}

// Rebuild replays entries in chronological order from zero, ignoring any
// previously cached value. At equal timestamps meals apply before
// eliminations; otherwise input order is kept.
func Rebuild(entries []Entry) *Ledger {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].At.Equal(sorted[j].At) {
			return sorted[i].At.Before(sorted[j].At)
		}
		return sorted[i].Kind < sorted[j].Kind
	})

	l := New(0)
	for _, e := range sorted {
		switch {
		case e.Kind == EntryMeal:
			l.ApplyMeal(e.MassG)
		case e.Full:
			l.Reset()
		default:
			l.ApplyElimination(e.MassG)
		}
	}
	return l
}

// StockBefore replays the entries that sort ahead of a new event of kind
// at time at and returns the stock the new event would see. A new event
// sorts after existing events with the same time and kind.
func StockBefore(entries []Entry, at time.Time, kind EntryKind) float64 {
	ahead := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.At.Before(at) || (e.At.Equal(at) && e.Kind <= kind) {
			ahead = append(ahead, e)
		}
	}
	return Rebuild(ahead).Stock()
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
