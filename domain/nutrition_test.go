package domain

import "testing"

func TestFoodItemValid(t *testing.T) {
	base := FoodItem{Name: "chicken", Calories: 280, ProteinG: 52, CarbsG: 0, FatG: 6}
	if !base.Valid() {
		t.Fatalf("expected valid item")
	}

	cases := []struct {
		name   string
		mutate func(*FoodItem)
	}{
		{"zero calories", func(f *FoodItem) { f.Calories = 0 }},
		{"negative calories", func(f *FoodItem) { f.Calories = -10 }},
		{"calories at bound", func(f *FoodItem) { f.Calories = 5000 }},
		{"protein at bound", func(f *FoodItem) { f.ProteinG = 300 }},
		{"negative protein", func(f *FoodItem) { f.ProteinG = -1 }},
		{"carbs at bound", func(f *FoodItem) { f.CarbsG = 1000 }},
		{"fat at bound", func(f *FoodItem) { f.FatG = 500 }},
	}
	for _, tc := range cases {
		item := base
		tc.mutate(&item)
		if item.Valid() {
			t.Errorf("%s: expected invalid", tc.name)
		}
	}

	edge := FoodItem{Calories: 4999, ProteinG: 299, CarbsG: 999, FatG: 499}
	if !edge.Valid() {
		t.Fatalf("expected values just inside the bounds to be valid")
	}
}

func TestNutritionResultTotals(t *testing.T) {
	r := NutritionResult{Items: []FoodItem{
		{Calories: 100, Confidence: 0.8},
		{Calories: 200, Confidence: 0.4},
	}}
	r.Totals()

	if r.TotalCalories != 300 {
		t.Fatalf("expected 300 total calories, got %f", r.TotalCalories)
	}
	if r.Confidence != 0.6 {
		t.Fatalf("expected 0.6 confidence, got %f", r.Confidence)
	}
}

func TestMealTypeDefaultCalories(t *testing.T) {
	cases := map[MealType]float64{
		MealTypeBreakfast:   250,
		MealTypeLunch:       400,
		MealTypeDinner:      500,
		MealTypeSnack:       150,
		MealTypePreWorkout:  200,
		MealTypePostWorkout: 300,
		MealType("unknown"): 400,
	}
	for meal, want := range cases {
		if got := meal.DefaultCalories(); got != want {
			t.Errorf("%s: expected %f, got %f", meal, want, got)
		}
	}
}
