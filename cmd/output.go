package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sells-group/gutlog/internal/model"
	"github.com/sells-group/gutlog/internal/tracker"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return model.FormatTimestamp(*t)
}

func formatDraft(w io.Writer, d *tracker.MealDraft) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Food:\t%s\n", d.Recognition.FoodName)
	if d.Recognition.Comment != "" {
		fmt.Fprintf(tw, "Comment:\t%s\n", d.Recognition.Comment)
	}
	fmt.Fprintf(tw, "Dish mass:\t%.1f g\n", d.Recognition.TotalMassG)
	fmt.Fprintf(tw, "Diners:\t%d (ratio %.2f)\n", d.Portion.DinerCount, d.Portion.Ratio)
	fmt.Fprintf(tw, "Your share:\t%.1f g\n", d.PersonalMassG)
	if !d.ProfileFound {
		fmt.Fprintf(tw, "Nutrients:\tnot in table, using default profile\n")
	}
	fmt.Fprintf(tw, "Protein/Fat/Carbs/Fiber:\t%.1f / %.1f / %.1f / %.1f g\n",
		d.Nutrients.ProteinG, d.Nutrients.FatG, d.Nutrients.CarbsG, d.Nutrients.FiberG)
	if d.CaloriesKcal > 0 {
		fmt.Fprintf(tw, "Calories:\t%.0f kcal\n", d.CaloriesKcal)
	}
	fmt.Fprintf(tw, "Predicted excretion:\t%.1f g\n", d.PredictedExcretionG)
	tw.Flush() //nolint:errcheck
}

func formatMealReceipt(w io.Writer, r *tracker.MealReceipt) {
	fmt.Fprintf(w, "Recorded %s at %s: %.1f g eaten, +%.1f g. Stock now %.1f g.\n",
		r.Meal.FoodLabel, model.FormatTimestamp(r.Meal.Timestamp),
		r.Meal.PersonalMassG, r.Meal.PredictedExcretionG, r.StockG)
}

func formatEliminationReceipt(w io.Writer, r *tracker.EliminationReceipt) {
	e := r.Elimination
	if e.Full {
		fmt.Fprintf(w, "Reset at %s: cleared %.1f g. Stock now %.1f g.\n",
			model.FormatTimestamp(e.Timestamp), r.RemovedG, r.StockG)
	} else {
		fmt.Fprintf(w, "Recorded %.1f g at %s. Stock now %.1f g.\n",
			e.DischargedMassG, model.FormatTimestamp(e.Timestamp), r.StockG)
	}
	if e.ErrorMinutes != nil {
		fmt.Fprintf(w, "Predicted %s, off by %+d min.\n", formatTime(e.PredictedAt), *e.ErrorMinutes)
	}
}

func formatStatus(w io.Writer, s *tracker.Status) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "User:\t%s\n", s.User)
	fmt.Fprintf(tw, "Stock:\t%.1f g\n", s.StockG)
	fmt.Fprintf(tw, "Last elimination:\t%s\n", formatTime(s.LastElimination))
	fmt.Fprintf(tw, "Latest meal:\t%s\n", formatTime(s.LatestMeal))
	fmt.Fprintf(tw, "Meals since:\t%d\n", len(s.MealsSinceElimination))

	d := s.Transit.Diagnostics
	fmt.Fprintf(tw, "Transit samples:\t%d (meals %d, eliminations %d)\n", d.SampleCount, d.MealCount, d.EliminationCount)
	if s.Transit.MedianHours != nil {
		fmt.Fprintf(tw, "Median transit:\t%.1f h\n", *s.Transit.MedianHours)
	}

	switch {
	case s.PredictedAt != nil:
		fmt.Fprintf(tw, "Next elimination:\t%s\n", formatTime(s.PredictedAt))
	case s.ColdStart != nil:
		fmt.Fprintf(tw, "Next elimination:\tinsufficient data; rough guess %s (%s)\n",
			model.FormatTimestamp(s.ColdStart.At), s.ColdStart.Reason)
	default:
		fmt.Fprintf(tw, "Next elimination:\tinsufficient data\n")
	}
	tw.Flush() //nolint:errcheck

	if len(s.MealsSinceElimination) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tFOOD\tEATEN (g)\tEXCRETION (g)")
		for _, m := range s.MealsSinceElimination {
			fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.1f\n",
				model.FormatTimestamp(m.Timestamp), m.FoodLabel, m.PersonalMassG, m.PredictedExcretionG)
		}
		tw.Flush() //nolint:errcheck
	}
}

func formatRebuild(w io.Writer, results []tracker.RebuildResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tCACHED (g)\tREBUILT (g)\tREPAIRED")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%t\n", r.User, r.CachedG, r.RebuiltG, r.Repaired)
	}
	tw.Flush() //nolint:errcheck
}

func formatNutrients(w io.Writer, l tracker.NutrientLookup) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Food:\t%s\n", l.Name)
	if !l.Found {
		fmt.Fprintf(tw, "Source:\tnot in table, default profile\n")
	}
	fmt.Fprintf(tw, "Per 100 g:\tprotein %.1f, fat %.1f, carbs %.1f, fiber %.1f\n",
		l.Profile.ProteinG, l.Profile.FatG, l.Profile.CarbsG, l.Profile.FiberG)
	tw.Flush() //nolint:errcheck
}
