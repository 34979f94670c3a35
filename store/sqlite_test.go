package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/peakform/coach/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	session := &domain.Session{SessionID: "s1", UserID: "u1", PersonaID: "coach", CreatedAt: now, Active: true, LastActivity: now}
	if err := s.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil || got.UserID != "u1" || !got.Active {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := s.TouchSession(ctx, "s1", true); err != nil {
		t.Fatalf("TouchSession failed: %v", err)
	}
	got, _ = s.GetSession(ctx, "s1")
	if got.MessageCount != 1 {
		t.Fatalf("expected message_count 1, got %d", got.MessageCount)
	}

	if err := s.TouchSession(ctx, "missing", false); err == nil {
		t.Fatalf("touching a missing session should fail")
	}

	n, err := s.CloseUserSessions(ctx, "u1")
	if err != nil || n != 1 {
		t.Fatalf("CloseUserSessions = %d, %v", n, err)
	}
	active, err := s.GetActiveSession(ctx, "u1")
	if err != nil {
		t.Fatalf("GetActiveSession failed: %v", err)
	}
	if active != nil {
		t.Fatalf("expected no active session")
	}
}

func TestMessagesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := &domain.Session{SessionID: "s1", UserID: "u1", CreatedAt: time.Now(), Active: true, LastActivity: time.Now()}
	if err := s.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	base := time.Now()
	for i := 0; i < 5; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		msg := &domain.Message{
			MessageID: "m" + string(rune('a'+i)),
			SessionID: "s1",
			Role:      role,
			Content:   "msg",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if i == 3 {
			msg.FunctionCall = &domain.FunctionCall{
				Name:      "log_nutrition",
				Arguments: map[string]domain.Value{"calories": domain.DoubleValue(350)},
			}
			msg.Classification = domain.MessageTypeNutrition
		}
		if err := s.CreateMessage(ctx, msg); err != nil {
			t.Fatalf("CreateMessage failed: %v", err)
		}
	}

	// Most recent 3, chronological order.
	messages, err := s.GetRecentMessages(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("GetRecentMessages failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if messages[0].MessageID != "mc" || messages[2].MessageID != "me" {
		t.Fatalf("wrong window or order: %s .. %s", messages[0].MessageID, messages[2].MessageID)
	}

	withCall := messages[1]
	if withCall.FunctionCall == nil || withCall.FunctionCall.Name != "log_nutrition" {
		t.Fatalf("function call not round-tripped: %+v", withCall)
	}
	if withCall.FunctionCall.Arguments["calories"].FloatOr(0) != 350 {
		t.Fatalf("arguments not round-tripped")
	}

	empty, err := s.GetRecentMessages(ctx, "s1", 0)
	if err != nil || len(empty) != 0 {
		t.Fatalf("zero limit should return nothing")
	}
}

func TestRoutingMetricsAppendOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conf := 0.8
	records := []*domain.RoutingMetrics{
		{Route: domain.RouteDirect, DurationMs: 120, Success: false, FallbackUsed: true, Ts: 1000},
		{Route: domain.RouteToolCalling, DurationMs: 340, Success: true, TotalTokens: 50, Confidence: &conf, FallbackUsed: true, Ts: 2000},
	}
	for _, r := range records {
		if err := s.CreateRoutingMetrics(ctx, r); err != nil {
			t.Fatalf("CreateRoutingMetrics failed: %v", err)
		}
	}

	got, err := s.GetRoutingMetrics(ctx, time.UnixMilli(0), 10)
	if err != nil {
		t.Fatalf("GetRoutingMetrics failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Route != domain.RouteDirect || got[0].Success || !got[0].FallbackUsed {
		t.Fatalf("unexpected first record: %+v", got[0])
	}
	if got[1].Confidence == nil || *got[1].Confidence != 0.8 {
		t.Fatalf("confidence not round-tripped")
	}

	later, err := s.GetRoutingMetrics(ctx, time.UnixMilli(1500), 10)
	if err != nil || len(later) != 1 {
		t.Fatalf("since filter broken: %d, %v", len(later), err)
	}
}

func TestNutritionGoalsAndPlans(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	entry := &domain.NutritionEntry{EntryID: "n1", UserID: "u1", Name: "oats", MealType: domain.MealTypeBreakfast, Calories: 350, ProteinG: 12, CarbsG: 60, FatG: 6, CreatedAt: now}
	if err := s.CreateNutritionEntry(ctx, entry); err != nil {
		t.Fatalf("CreateNutritionEntry failed: %v", err)
	}
	entries, err := s.GetNutritionEntries(ctx, "u1", now.Add(-time.Minute))
	if err != nil || len(entries) != 1 || entries[0].MealType != domain.MealTypeBreakfast {
		t.Fatalf("nutrition round trip failed: %+v, %v", entries, err)
	}
	old, _ := s.GetNutritionEntries(ctx, "u1", now.Add(time.Minute))
	if len(old) != 0 {
		t.Fatalf("since filter should exclude the entry")
	}

	goal := &domain.Goal{GoalID: "g1", UserID: "u1", Title: "Run 5k", Target: "25min", CreatedAt: now}
	if err := s.CreateGoal(ctx, goal); err != nil {
		t.Fatalf("CreateGoal failed: %v", err)
	}
	goals, err := s.GetGoals(ctx, "u1")
	if err != nil || len(goals) != 1 || goals[0].Target != "25min" {
		t.Fatalf("goal round trip failed: %+v, %v", goals, err)
	}

	for i := 0; i < 3; i++ {
		plan := &domain.WorkoutPlan{
			PlanID:    "p" + string(rune('1'+i)),
			UserID:    "u1",
			Focus:     "strength",
			DaysPerWk: 3,
			Summary:   "Day 1: Push",
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := s.CreateWorkoutPlan(ctx, plan); err != nil {
			t.Fatalf("CreateWorkoutPlan failed: %v", err)
		}
	}
	plans, err := s.GetWorkoutPlans(ctx, "u1", 2)
	if err != nil || len(plans) != 2 {
		t.Fatalf("plan limit broken: %+v, %v", plans, err)
	}
	if plans[0].PlanID != "p3" {
		t.Fatalf("expected newest first, got %s", plans[0].PlanID)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	// An in-memory store must survive concurrent use: without a single
	// pooled connection each new connection sees an empty database.
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			goal := &domain.Goal{GoalID: fmt.Sprintf("g%d", i), UserID: "u1", Title: "Run 5k", CreatedAt: time.Now()}
			if err := s.CreateGoal(ctx, goal); err != nil {
				errs <- err
				return
			}
			if _, err := s.GetGoals(ctx, "u1"); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent use of in-memory store failed: %v", err)
	}

	goals, err := s.GetGoals(ctx, "u1")
	if err != nil || len(goals) != 32 {
		t.Fatalf("expected 32 goals, got %d, %v", len(goals), err)
	}
}

func TestBodyAndRecoverySnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	body := []*domain.BodySnapshot{
		{SnapshotID: "b1", UserID: "u1", WeightKg: 82.0, BodyFatPct: 21.5, RecordedAt: now.AddDate(0, 0, -10)},
		{SnapshotID: "b2", UserID: "u1", WeightKg: 81.2, RecordedAt: now},
	}
	for _, snap := range body {
		if err := s.CreateBodySnapshot(ctx, snap); err != nil {
			t.Fatalf("CreateBodySnapshot failed: %v", err)
		}
	}
	snaps, err := s.GetBodySnapshots(ctx, "u1", now.AddDate(0, 0, -30))
	if err != nil || len(snaps) != 2 {
		t.Fatalf("body snapshot round trip failed: %+v, %v", snaps, err)
	}
	if snaps[0].SnapshotID != "b1" || snaps[1].WeightKg != 81.2 {
		t.Fatalf("expected oldest first: %+v", snaps)
	}
	recent, _ := s.GetBodySnapshots(ctx, "u1", now.AddDate(0, 0, -5))
	if len(recent) != 1 {
		t.Fatalf("since filter should exclude the older snapshot, got %d", len(recent))
	}

	rec := &domain.RecoverySnapshot{SnapshotID: "r1", UserID: "u1", SleepHours: 7.2, HrvMs: 58, RestingHr: 54, RecordedAt: now}
	if err := s.CreateRecoverySnapshot(ctx, rec); err != nil {
		t.Fatalf("CreateRecoverySnapshot failed: %v", err)
	}
	recovery, err := s.GetRecoverySnapshots(ctx, "u1", now.Add(-time.Hour))
	if err != nil || len(recovery) != 1 || recovery[0].HrvMs != 58 {
		t.Fatalf("recovery round trip failed: %+v, %v", recovery, err)
	}
}

func TestInsightsFilterAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	categories := []string{"trend", "nudge", "trend", "milestone"}
	for i, cat := range categories {
		insight := &domain.Insight{
			InsightID: fmt.Sprintf("i%d", i),
			UserID:    "u1",
			Category:  cat,
			Content:   fmt.Sprintf("insight %d", i),
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := s.CreateInsight(ctx, insight); err != nil {
			t.Fatalf("CreateInsight failed: %v", err)
		}
	}

	all, err := s.GetInsights(ctx, "u1", "", 10)
	if err != nil || len(all) != 4 {
		t.Fatalf("expected 4 insights, got %d, %v", len(all), err)
	}
	if all[0].InsightID != "i3" {
		t.Fatalf("expected newest first, got %s", all[0].InsightID)
	}

	trends, err := s.GetInsights(ctx, "u1", "trend", 10)
	if err != nil || len(trends) != 2 {
		t.Fatalf("category filter broken: %+v, %v", trends, err)
	}

	limited, _ := s.GetInsights(ctx, "u1", "", 2)
	if len(limited) != 2 || limited[0].InsightID != "i3" {
		t.Fatalf("limit should keep the newest insights: %+v", limited)
	}
}
