package dispatch

import "github.com/peakform/coach/provider"

// Schemas returns the function schemas advertised to the completion provider
// so it can emit well-formed calls. The list is static and mirrors the
// registered handlers.
func Schemas() []provider.Tool {
	return []provider.Tool{
		fn("log_nutrition", "Log a food entry for the user. Use when the user reports something they ate.", obj(map[string]interface{}{
			"name":      prop("string", "Food name"),
			"meal_type": enumProp("Meal this belongs to", "breakfast", "lunch", "dinner", "snack", "pre_workout", "post_workout"),
			"calories":  prop("number", "Estimated calories"),
			"protein_g": prop("number", "Protein grams"),
			"carbs_g":   prop("number", "Carb grams"),
			"fat_g":     prop("number", "Fat grams"),
		})),
		fn("create_goal", "Create a fitness or nutrition goal for the user.", obj(map[string]interface{}{
			"title":    prop("string", "Short goal title"),
			"target":   prop("string", "Measurable target, e.g. '80kg' or '5k in 25min'"),
			"deadline": prop("string", "Target date, ISO 8601"),
		})),
		fn("generate_workout_plan", "Generate and save a workout plan. Use when the user asks for a program or routine.", obj(map[string]interface{}{
			"focus":         prop("string", "Primary focus, e.g. 'strength', 'hypertrophy', 'endurance'"),
			"days_per_week": prop("integer", "Training days per week (1-7)"),
		})),
		fn("query_nutrition", "Query nutrition history. Use when the user asks about eating patterns or macro totals.", obj(map[string]interface{}{
			"days": prop("integer", "Number of days to query (1-30, default 7)"),
		})),
		fn("query_goals", "List the user's current goals.", obj(map[string]interface{}{})),
		fn("query_workouts", "Query saved workout plans and training focus. Use when the user asks what their program is.", obj(map[string]interface{}{
			"limit": prop("integer", "Max plans to return (default 3)"),
		})),
		fn("query_body_comp", "Query body composition trends. Use when the user asks about weight, body fat, or lean mass progress.", obj(map[string]interface{}{
			"days": prop("integer", "Number of days to query (30-365, default 90)"),
		})),
		fn("query_recovery", "Query recovery metrics. Use when the user mentions sleep, HRV, fatigue, or readiness.", obj(map[string]interface{}{
			"days": prop("integer", "Number of days to query (7-30, default 14)"),
		})),
		fn("query_insights", "Query stored insights. Use when the user asks about patterns, correlations, or what has been noticed.", obj(map[string]interface{}{
			"category": enumProp("Filter by insight category", "correlation", "trend", "anomaly", "milestone", "nudge"),
			"limit":    prop("integer", "Max insights to return (1-10, default 5)"),
		})),
	}
}

func fn(name, description string, params map[string]interface{}) provider.Tool {
	return provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}

func obj(properties map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func enumProp(description string, values ...string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description, "enum": values}
}
