package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/gutlog/internal/config"
	"github.com/sells-group/gutlog/internal/model"
	"github.com/sells-group/gutlog/internal/recognize"
	"github.com/sells-group/gutlog/internal/tracker"
)

var mealCmd = &cobra.Command{
	Use:   "meal",
	Short: "Analyze and record meals",
}

// -- meal analyze --

var mealAnalyzeCmd = &cobra.Command{
	Use:   "analyze <photo>",
	Short: "Recognize a meal photo and estimate its excretion mass",
	Long:  "Sends the photo to the recognizer, splits the dish between diners and prints the estimate. With --record the meal is stored; --food and --mass correct the recognized values first.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		photo, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read photo")
		}
		in, err := portionFlags(cmd)
		if err != nil {
			return err
		}
		at, err := atFlag(cmd)
		if err != nil {
			return err
		}

		e, err := initEnv(ctx, config.ModeAnalyze)
		if err != nil {
			return err
		}
		defer e.Close()

		req := tracker.Request{User: userName, Now: at}
		draft, err := e.Tracker.AnalyzePhoto(ctx, req, photo, in)
		if err != nil {
			if errors.Is(err, recognize.ErrRecognitionFailed) || errors.Is(err, recognize.ErrUnsupportedImage) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Could not recognize the photo. Enter the meal by hand with: gutlog meal add --food <name> --mass <grams>")
			}
			return err
		}

		if cmd.Flags().Changed("food") || cmd.Flags().Changed("mass") {
			result := draft.Recognition
			if cmd.Flags().Changed("food") {
				result.FoodName, _ = cmd.Flags().GetString("food")
			}
			if cmd.Flags().Changed("mass") {
				result.TotalMassG, _ = cmd.Flags().GetFloat64("mass")
			}
			if draft, err = e.Tracker.BuildDraft(result, in); err != nil {
				return err
			}
		}

		record, _ := cmd.Flags().GetBool("record")
		if !record {
			if jsonOutput {
				return printJSON(out, draft)
			}
			formatDraft(out, draft)
			return nil
		}

		receipt, err := e.Tracker.RecordMeal(ctx, req, draft)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out, receipt)
		}
		formatDraft(out, draft)
		formatMealReceipt(out, receipt)
		return nil
	},
}

// -- meal add --

var mealAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a meal entered by hand",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		food, _ := cmd.Flags().GetString("food")
		mass, _ := cmd.Flags().GetFloat64("mass")
		calories, _ := cmd.Flags().GetFloat64("calories")
		in, err := portionFlags(cmd)
		if err != nil {
			return err
		}
		at, err := atFlag(cmd)
		if err != nil {
			return err
		}

		e, err := initEnv(ctx, config.ModeRecord)
		if err != nil {
			return err
		}
		defer e.Close()

		draft, err := e.Tracker.BuildDraft(model.FoodRecognitionResult{
			FoodName:     food,
			TotalMassG:   mass,
			CaloriesKcal: calories,
		}, in)
		if err != nil {
			return err
		}

		receipt, err := e.Tracker.RecordMeal(ctx, tracker.Request{User: userName, Now: at}, draft)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out, receipt)
		}
		formatMealReceipt(out, receipt)
		return nil
	},
}

func portionFlags(cmd *cobra.Command) (tracker.PortionInput, error) {
	diners, _ := cmd.Flags().GetInt("diners")
	ratio, _ := cmd.Flags().GetFloat64("ratio")
	mealType, _ := cmd.Flags().GetString("meal-type")

	in := tracker.PortionInput{DinerCount: diners, Ratio: ratio, MealType: model.MealType(mealType)}
	if !in.MealType.Valid() {
		return in, eris.Wrapf(tracker.ErrInvalidMealType, "--meal-type %q", mealType)
	}
	return in, nil
}

// atFlag reads --at. Unset means now.
func atFlag(cmd *cobra.Command) (time.Time, error) {
	s, _ := cmd.Flags().GetString("at")
	if s == "" {
		return time.Time{}, nil
	}
	return model.ParseTimestamp(s)
}

func addPortionFlags(cmd *cobra.Command) {
	cmd.Flags().Int("diners", 1, "number of people sharing the dish")
	cmd.Flags().Float64("ratio", 1, "your consumption ratio relative to an even share")
	cmd.Flags().String("meal-type", "", "breakfast, lunch, dinner or snack")
	cmd.Flags().String("at", "", "event time as YYYY-MM-DD HH:MM (default now)")
}

func init() {
	addPortionFlags(mealAnalyzeCmd)
	mealAnalyzeCmd.Flags().Bool("record", false, "store the meal after analysis")
	mealAnalyzeCmd.Flags().String("food", "", "correct the recognized food name")
	mealAnalyzeCmd.Flags().Float64("mass", 0, "correct the recognized dish mass in grams")

	addPortionFlags(mealAddCmd)
	mealAddCmd.Flags().String("food", "", "food name")
	mealAddCmd.Flags().Float64("mass", 0, "total dish mass in grams")
	mealAddCmd.Flags().Float64("calories", 0, "total dish calories (optional)")
	_ = mealAddCmd.MarkFlagRequired("food")
	_ = mealAddCmd.MarkFlagRequired("mass")

	mealCmd.AddCommand(mealAnalyzeCmd, mealAddCmd)
	rootCmd.AddCommand(mealCmd)
}
