package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/peakform/coach/domain"
	"github.com/peakform/coach/store"
)

func handleLogNutrition(ctx context.Context, args map[string]domain.Value, user domain.UserProfile, s store.Store) (string, map[string]domain.Value, error) {
	mealType := domain.MealType(args["meal_type"].StringOr(string(domain.MealTypeSnack)))
	entry := &domain.NutritionEntry{
		EntryID:   "nut_" + uuid.New().String()[:8],
		UserID:    user.UserID,
		Name:      args["name"].StringOr("food"),
		MealType:  mealType,
		Calories:  args["calories"].FloatOr(mealType.DefaultCalories()),
		ProteinG:  args["protein_g"].FloatOr(0),
		CarbsG:    args["carbs_g"].FloatOr(0),
		FatG:      args["fat_g"].FloatOr(0),
		CreatedAt: time.Now(),
	}
	if err := s.CreateNutritionEntry(ctx, entry); err != nil {
		return "", nil, fmt.Errorf("failed to save nutrition entry: %w", err)
	}

	message := fmt.Sprintf("Logged %s for %s: %.0f kcal (%.0fP/%.0fC/%.0fF).",
		entry.Name, entry.MealType, entry.Calories, entry.ProteinG, entry.CarbsG, entry.FatG)
	data := map[string]domain.Value{
		"entry_id": domain.StringValue(entry.EntryID),
		"calories": domain.DoubleValue(entry.Calories),
	}
	return message, data, nil
}

func handleCreateGoal(ctx context.Context, args map[string]domain.Value, user domain.UserProfile, s store.Store) (string, map[string]domain.Value, error) {
	goal := &domain.Goal{
		GoalID:    "goal_" + uuid.New().String()[:8],
		UserID:    user.UserID,
		Title:     args["title"].StringOr("New goal"),
		Target:    args["target"].StringOr(""),
		Deadline:  args["deadline"].StringOr(""),
		CreatedAt: time.Now(),
	}
	if err := s.CreateGoal(ctx, goal); err != nil {
		return "", nil, fmt.Errorf("failed to save goal: %w", err)
	}

	message := fmt.Sprintf("Created goal %q", goal.Title)
	if goal.Target != "" {
		message += fmt.Sprintf(" targeting %s", goal.Target)
	}
	if goal.Deadline != "" {
		message += fmt.Sprintf(" by %s", goal.Deadline)
	}
	message += "."
	return message, map[string]domain.Value{"goal_id": domain.StringValue(goal.GoalID)}, nil
}

func handleGenerateWorkoutPlan(ctx context.Context, args map[string]domain.Value, user domain.UserProfile, s store.Store) (string, map[string]domain.Value, error) {
	focus := args["focus"].StringOr("general fitness")
	days := int(args["days_per_week"].IntOr(3))
	if days < 1 || days > 7 {
		days = 3
	}

	plan := &domain.WorkoutPlan{
		PlanID:    "plan_" + uuid.New().String()[:8],
		UserID:    user.UserID,
		Focus:     focus,
		DaysPerWk: days,
		Summary:   planSummary(focus, days),
		CreatedAt: time.Now(),
	}
	if err := s.CreateWorkoutPlan(ctx, plan); err != nil {
		return "", nil, fmt.Errorf("failed to save workout plan: %w", err)
	}

	message := fmt.Sprintf("Generated a %d-day %s plan.\n%s", days, focus, plan.Summary)
	return message, map[string]domain.Value{"plan_id": domain.StringValue(plan.PlanID)}, nil
}

// planSummary produces a deterministic split layout for the plan. Detailed
// exercise selection is a provider concern upstream; the handler records the
// structure.
func planSummary(focus string, days int) string {
	splits := map[int][]string{
		1: {"Full body"},
		2: {"Upper body", "Lower body"},
		3: {"Push", "Pull", "Legs"},
		4: {"Upper body", "Lower body", "Upper body", "Lower body"},
		5: {"Push", "Pull", "Legs", "Upper body", "Lower body"},
		6: {"Push", "Pull", "Legs", "Push", "Pull", "Legs"},
		7: {"Push", "Pull", "Legs", "Push", "Pull", "Legs", "Active recovery"},
	}
	var b strings.Builder
	for i, day := range splits[days] {
		fmt.Fprintf(&b, "Day %d: %s (%s emphasis)\n", i+1, day, focus)
	}
	return strings.TrimSpace(b.String())
}

func handleQueryNutrition(ctx context.Context, args map[string]domain.Value, user domain.UserProfile, s store.Store) (string, map[string]domain.Value, error) {
	days := int(args["days"].IntOr(7))
	if days < 1 || days > 30 {
		days = 7
	}

	since := time.Now().AddDate(0, 0, -days)
	entries, err := s.GetNutritionEntries(ctx, user.UserID, since)
	if err != nil {
		return "", nil, fmt.Errorf("failed to query nutrition entries: %w", err)
	}

	var calories, protein, carbs, fat float64
	for _, e := range entries {
		calories += e.Calories
		protein += e.ProteinG
		carbs += e.CarbsG
		fat += e.FatG
	}

	message := fmt.Sprintf("Last %d days: %d entries, %.0f kcal total (%.0fP/%.0fC/%.0fF).",
		days, len(entries), calories, protein, carbs, fat)
	data := map[string]domain.Value{
		"entries":        domain.IntValue(int64(len(entries))),
		"total_calories": domain.DoubleValue(calories),
		"protein_g":      domain.DoubleValue(protein),
		"carbs_g":        domain.DoubleValue(carbs),
		"fat_g":          domain.DoubleValue(fat),
	}
	return message, data, nil
}

func handleQueryGoals(ctx context.Context, args map[string]domain.Value, user domain.UserProfile, s store.Store) (string, map[string]domain.Value, error) {
	goals, err := s.GetGoals(ctx, user.UserID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to query goals: %w", err)
	}
	if len(goals) == 0 {
		return "No goals set yet.", map[string]domain.Value{"count": domain.IntValue(0)}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d active goals:\n", len(goals))
	for _, g := range goals {
		fmt.Fprintf(&b, "- %s", g.Title)
		if g.Target != "" {
			fmt.Fprintf(&b, " (%s)", g.Target)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), map[string]domain.Value{"count": domain.IntValue(int64(len(goals)))}, nil
}

func handleQueryBodyComp(ctx context.Context, args map[string]domain.Value, user domain.UserProfile, s store.Store) (string, map[string]domain.Value, error) {
	days := int(args["days"].IntOr(90))
	if days < 30 || days > 365 {
		days = 90
	}

	since := time.Now().AddDate(0, 0, -days)
	snaps, err := s.GetBodySnapshots(ctx, user.UserID, since)
	if err != nil {
		return "", nil, fmt.Errorf("failed to query body snapshots: %w", err)
	}
	if len(snaps) == 0 {
		return "No body composition data recorded yet.", map[string]domain.Value{"readings": domain.IntValue(0)}, nil
	}

	first, last := snaps[0], snaps[len(snaps)-1]
	change := last.WeightKg - first.WeightKg
	message := fmt.Sprintf("Last %d days: weight %.1fkg (%+.1fkg from %.1fkg, %d readings).",
		days, last.WeightKg, change, first.WeightKg, len(snaps))
	if last.BodyFatPct > 0 {
		message += fmt.Sprintf(" Body fat %.1f%%.", last.BodyFatPct)
	}

	data := map[string]domain.Value{
		"current_kg": domain.DoubleValue(last.WeightKg),
		"change_kg":  domain.DoubleValue(change),
		"readings":   domain.IntValue(int64(len(snaps))),
	}
	return message, data, nil
}

func handleQueryRecovery(ctx context.Context, args map[string]domain.Value, user domain.UserProfile, s store.Store) (string, map[string]domain.Value, error) {
	days := int(args["days"].IntOr(14))
	if days < 7 || days > 30 {
		days = 14
	}

	since := time.Now().AddDate(0, 0, -days)
	snaps, err := s.GetRecoverySnapshots(ctx, user.UserID, since)
	if err != nil {
		return "", nil, fmt.Errorf("failed to query recovery snapshots: %w", err)
	}
	if len(snaps) == 0 {
		return "No recovery data recorded yet.", map[string]domain.Value{"readings": domain.IntValue(0)}, nil
	}

	// Average each metric over the readings that carry it; a snapshot may
	// hold sleep without HRV or the other way around.
	var sleepSum, hrvSum, rhrSum float64
	var sleepN, hrvN, rhrN int
	for _, r := range snaps {
		if r.SleepHours > 0 {
			sleepSum += r.SleepHours
			sleepN++
		}
		if r.HrvMs > 0 {
			hrvSum += r.HrvMs
			hrvN++
		}
		if r.RestingHr > 0 {
			rhrSum += r.RestingHr
			rhrN++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Last %d days:", days)
	data := map[string]domain.Value{"readings": domain.IntValue(int64(len(snaps)))}
	if sleepN > 0 {
		avg := sleepSum / float64(sleepN)
		fmt.Fprintf(&b, " sleep avg %.1fh over %d nights.", avg, sleepN)
		data["sleep_avg_hours"] = domain.DoubleValue(avg)
	}
	if hrvN > 0 {
		avg := hrvSum / float64(hrvN)
		fmt.Fprintf(&b, " HRV avg %.0fms.", avg)
		data["hrv_avg_ms"] = domain.DoubleValue(avg)
	}
	if rhrN > 0 {
		avg := rhrSum / float64(rhrN)
		fmt.Fprintf(&b, " Resting HR avg %.0fbpm.", avg)
		data["resting_hr_avg"] = domain.DoubleValue(avg)
	}
	return b.String(), data, nil
}

func handleQueryInsights(ctx context.Context, args map[string]domain.Value, user domain.UserProfile, s store.Store) (string, map[string]domain.Value, error) {
	category := args["category"].StringOr("")
	limit := int(args["limit"].IntOr(5))
	if limit < 1 || limit > 10 {
		limit = 5
	}

	insights, err := s.GetInsights(ctx, user.UserID, category, limit)
	if err != nil {
		return "", nil, fmt.Errorf("failed to query insights: %w", err)
	}
	if len(insights) == 0 {
		if category != "" {
			return fmt.Sprintf("No %s insights yet.", category), map[string]domain.Value{"count": domain.IntValue(0)}, nil
		}
		return "No insights generated yet.", map[string]domain.Value{"count": domain.IntValue(0)}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d insights:\n", len(insights))
	for _, i := range insights {
		fmt.Fprintf(&b, "- [%s] %s\n", i.Category, i.Content)
	}
	return strings.TrimSpace(b.String()), map[string]domain.Value{"count": domain.IntValue(int64(len(insights)))}, nil
}

func handleQueryWorkouts(ctx context.Context, args map[string]domain.Value, user domain.UserProfile, s store.Store) (string, map[string]domain.Value, error) {
	limit := int(args["limit"].IntOr(3))
	plans, err := s.GetWorkoutPlans(ctx, user.UserID, limit)
	if err != nil {
		return "", nil, fmt.Errorf("failed to query workout plans: %w", err)
	}
	if len(plans) == 0 {
		return "No workout plans saved yet.", map[string]domain.Value{"count": domain.IntValue(0)}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d saved plans:\n", len(plans))
	for _, p := range plans {
		fmt.Fprintf(&b, "- %s, %d days/week (created %s)\n", p.Focus, p.DaysPerWk, p.CreatedAt.Format("2006-01-02"))
	}
	return strings.TrimSpace(b.String()), map[string]domain.Value{"count": domain.IntValue(int64(len(plans)))}, nil
}
