package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/peakform/coach/domain"
	"github.com/peakform/coach/internal/nutrition"
	"github.com/peakform/coach/provider"
)

// Direct entry points: deterministic operations callable outside the
// conversational flow (and by the API layer). They bypass routing entirely.

// ParseNaturalLanguageFood parses a food description without persisting
// anything. The result always contains at least one item.
func (o *Orchestrator) ParseNaturalLanguageFood(ctx context.Context, text string, mealType domain.MealType, user domain.UserProfile) domain.NutritionResult {
	return o.nutrition.ParseNaturalLanguageFood(ctx, text, mealType, user)
}

// ParseAndLogNutritionDirect parses a food description and persists every
// resulting item as a nutrition entry. The parse itself never fails; only
// storage errors propagate.
func (o *Orchestrator) ParseAndLogNutritionDirect(ctx context.Context, text string, mealType domain.MealType, user domain.UserProfile) (domain.NutritionResult, error) {
	result := o.nutrition.ParseNaturalLanguageFood(ctx, text, mealType, user)

	for _, item := range result.Items {
		entry := &domain.NutritionEntry{
			EntryID:   "nut_" + uuid.New().String()[:8],
			UserID:    user.UserID,
			Name:      item.Name,
			MealType:  mealType,
			Calories:  item.Calories,
			ProteinG:  item.ProteinG,
			CarbsG:    item.CarbsG,
			FatG:      item.FatG,
			CreatedAt: time.Now(),
		}
		if err := o.store.CreateNutritionEntry(ctx, entry); err != nil {
			return result, fmt.Errorf("failed to save nutrition entry: %w", err)
		}
	}
	return result, nil
}

// CorrectNutritionEntry applies a natural-language correction to an existing
// item. On any failure the original item comes back unchanged.
func (o *Orchestrator) CorrectNutritionEntry(ctx context.Context, original domain.FoodItem, correction string) domain.FoodItem {
	return o.nutrition.Correct(ctx, original, correction)
}

// MacroStatus summarizes today's intake against the user's daily targets.
func (o *Orchestrator) MacroStatus(ctx context.Context, user domain.UserProfile) (string, error) {
	calories, protein, carbs, fat, err := o.todayTotals(ctx, user.UserID)
	if err != nil {
		return "", err
	}
	return o.nutrition.MacroFeedback(ctx, calories, protein, carbs, fat, user.TrainingDay), nil
}

// GeneratePostWorkoutAnalysis produces a short recovery-focused summary for
// a completed workout.
func (o *Orchestrator) GeneratePostWorkoutAnalysis(ctx context.Context, workoutSummary string, user domain.UserProfile) (string, error) {
	targets := nutrition.TargetsFor(user.TrainingDay)
	prompt := fmt.Sprintf(`The user just finished this workout:
%s

Daily targets: %.0f cal, %.0fg protein.
Give a 2-3 sentence post-workout analysis: one observation about the session
and one concrete recovery or nutrition suggestion.`,
		workoutSummary, targets.Calories, targets.ProteinG)

	resp, err := o.client.CreateChatCompletion(ctx, &provider.ChatRequest{
		Model:    o.cfg.ProviderModel,
		Messages: []provider.ChatMessage{{Role: domain.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("post-workout analysis failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return "", fmt.Errorf("post-workout analysis returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// DashboardContent is the aggregate snapshot backing the dashboard view.
type DashboardContent struct {
	TodayCalories float64                `json:"today_calories"`
	TodayProteinG float64                `json:"today_protein_g"`
	TodayCarbsG   float64                `json:"today_carbs_g"`
	TodayFatG     float64                `json:"today_fat_g"`
	Targets       nutrition.MacroTargets `json:"targets"`
	Goals         []domain.Goal          `json:"goals"`
	RecentPlans   []domain.WorkoutPlan   `json:"recent_plans"`
	StatusLine    string                 `json:"status_line"`
}

// GenerateDashboardContent assembles today's totals, goals, and recent plans
// into one snapshot. The provider status line is best-effort; store errors
// on secondary data degrade to empty slices.
func (o *Orchestrator) GenerateDashboardContent(ctx context.Context, user domain.UserProfile) (*DashboardContent, error) {
	calories, protein, carbs, fat, err := o.todayTotals(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	goals, err := o.store.GetGoals(ctx, user.UserID)
	if err != nil {
		log.Printf("WARN: failed to load goals for dashboard: %v", err)
		goals = nil
	}
	plans, err := o.store.GetWorkoutPlans(ctx, user.UserID, 3)
	if err != nil {
		log.Printf("WARN: failed to load plans for dashboard: %v", err)
		plans = nil
	}

	return &DashboardContent{
		TodayCalories: calories,
		TodayProteinG: protein,
		TodayCarbsG:   carbs,
		TodayFatG:     fat,
		Targets:       nutrition.TargetsFor(user.TrainingDay),
		Goals:         goals,
		RecentPlans:   plans,
		StatusLine:    o.nutrition.MacroFeedback(ctx, calories, protein, carbs, fat, user.TrainingDay),
	}, nil
}

// RegenerateLastResponse replays the session's last user message through a
// fresh turn. The previous assistant reply stays in history; clients show
// the newest message.
func (o *Orchestrator) RegenerateLastResponse(ctx context.Context, user domain.UserProfile) error {
	session, err := o.store.GetActiveSession(ctx, user.UserID)
	if err != nil {
		return fmt.Errorf("failed to get active session: %w", err)
	}
	if session == nil {
		return ErrNoActiveSession
	}

	recent, err := o.store.GetRecentMessages(ctx, session.SessionID, o.conv.OptimalHistoryLimit(domain.MessageTypeConversation))
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	var lastUser *domain.Message
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Role == domain.RoleUser && strings.TrimSpace(recent[i].Content) != "" {
			lastUser = &recent[i]
			break
		}
	}
	if lastUser == nil {
		return ErrNothingToRegenerate
	}
	return o.ProcessUserMessage(ctx, lastUser.Content, user)
}

func (o *Orchestrator) todayTotals(ctx context.Context, userID string) (calories, protein, carbs, fat float64, err error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	entries, err := o.store.GetNutritionEntries(ctx, userID, midnight)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to load nutrition entries: %w", err)
	}
	for _, e := range entries {
		calories += e.Calories
		protein += e.ProteinG
		carbs += e.CarbsG
		fat += e.FatG
	}
	return calories, protein, carbs, fat, nil
}
