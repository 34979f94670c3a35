package nutrition

import (
	"strings"

	"github.com/peakform/coach/domain"
)

// Fixed macro split for synthesized items: 15% protein, 50% carbs, 35% fat,
// converted at 4/4/9 kcal per gram.
const (
	fallbackProteinShare = 0.15
	fallbackCarbsShare   = 0.50
	fallbackFatShare     = 0.35
	fallbackConfidence   = 0.3
)

// fallbackResult synthesizes a single deterministic item from the input text
// and meal type. The name is the first token longer than two characters;
// calories come from the meal-type default table.
func fallbackResult(text string, mealType domain.MealType) domain.NutritionResult {
	calories := mealType.DefaultCalories()
	item := domain.FoodItem{
		Name:       firstRealToken(text),
		Quantity:   1,
		Unit:       "serving",
		Calories:   calories,
		ProteinG:   calories * fallbackProteinShare / 4,
		CarbsG:     calories * fallbackCarbsShare / 4,
		FatG:       calories * fallbackFatShare / 9,
		Confidence: fallbackConfidence,
	}
	result := domain.NutritionResult{
		Items:    []domain.FoodItem{item},
		Strategy: domain.ParseStrategyFallback,
	}
	result.Totals()
	return result
}

// firstRealToken returns the first whitespace-separated token of length > 2,
// or "food" when none exists.
func firstRealToken(text string) string {
	for _, token := range strings.Fields(text) {
		token = strings.Trim(token, ".,!?")
		if len(token) > 2 {
			return strings.ToLower(token)
		}
	}
	return "food"
}
