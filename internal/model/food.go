package model

// FoodRecognitionResult is a validated estimate of what was photographed.
type FoodRecognitionResult struct {
	FoodName     string  `json:"food_name"`
	TotalMassG   float64 `json:"total_mass_g"`
	Comment      string  `json:"comment"`
	CaloriesKcal float64 `json:"calories_kcal,omitempty"` // 0 when the recognizer gave none
}

// NutrientProfile holds macro-nutrient grams per 100 g of a food.
type NutrientProfile struct {
	ProteinG float64 `json:"protein_g_per_100g"`
	FatG     float64 `json:"fat_g_per_100g"`
	CarbsG   float64 `json:"carbs_g_per_100g"`
	FiberG   float64 `json:"fiber_g_per_100g"`
}

// DefaultNutrientProfile is used for any food missing from the reference table.
var DefaultNutrientProfile = NutrientProfile{
	ProteinG: 5,
	FatG:     5,
	CarbsG:   20,
	FiberG:   2,
}

// Nutrients holds absolute macro-nutrient grams for one personal share.
type Nutrients struct {
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbsG   float64 `json:"carbs_g"`
	FiberG   float64 `json:"fiber_g"`
}
