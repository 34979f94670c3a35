package domain

// FoodItem is one parsed food component. Validation bounds are enforced by
// the nutrition parser; an item outside the bounds is dropped, not clamped.
type FoodItem struct {
	Name       string   `json:"name"`
	Brand      string   `json:"brand,omitempty"`
	Quantity   float64  `json:"quantity"`
	Unit       string   `json:"unit,omitempty"`
	Calories   float64  `json:"calories"`
	ProteinG   float64  `json:"protein_g"`
	CarbsG     float64  `json:"carbs_g"`
	FatG       float64  `json:"fat_g"`
	FiberG     *float64 `json:"fiber_g,omitempty"`
	SugarG     *float64 `json:"sugar_g,omitempty"`
	SodiumMg   *float64 `json:"sodium_mg,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Valid reports whether the item is nutritionally plausible.
func (f FoodItem) Valid() bool {
	if f.Calories <= 0 || f.Calories >= 5000 {
		return false
	}
	if f.ProteinG < 0 || f.ProteinG >= 300 {
		return false
	}
	if f.CarbsG < 0 || f.CarbsG >= 1000 {
		return false
	}
	if f.FatG < 0 || f.FatG >= 500 {
		return false
	}
	return true
}

// NutritionResult is the outcome of one parse. It always contains at least
// one item; when the model output cannot be used, a single fallback item is
// synthesized instead.
type NutritionResult struct {
	Items         []FoodItem    `json:"items"`
	TotalCalories float64       `json:"total_calories"`
	Confidence    float64       `json:"confidence"`
	Strategy      ParseStrategy `json:"strategy"`
}

// Totals recomputes the aggregate calories and average confidence from the
// item list.
func (r *NutritionResult) Totals() {
	var calories, confidence float64
	for _, item := range r.Items {
		calories += item.Calories
		confidence += item.Confidence
	}
	r.TotalCalories = calories
	if len(r.Items) > 0 {
		r.Confidence = confidence / float64(len(r.Items))
	}
}
