// Package store defines the storage interface and implementations.
package store

import (
	"context"
	"time"

	"github.com/peakform/coach/domain"
)

// Store defines the interface for data persistence. Assumed durable and
// read-after-write consistent within a session. Treated as single-writer by
// the dispatch table.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	GetActiveSession(ctx context.Context, userID string) (*domain.Session, error)
	TouchSession(ctx context.Context, sessionID string, messageProcessed bool) error
	CloseSession(ctx context.Context, sessionID string) error
	CloseUserSessions(ctx context.Context, userID string) (int, error)

	// Message operations
	CreateMessage(ctx context.Context, message *domain.Message) error
	GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)

	// Routing metrics (append-only)
	CreateRoutingMetrics(ctx context.Context, m *domain.RoutingMetrics) error
	GetRoutingMetrics(ctx context.Context, since time.Time, limit int) ([]domain.RoutingMetrics, error)

	// Nutrition log
	CreateNutritionEntry(ctx context.Context, entry *domain.NutritionEntry) error
	GetNutritionEntries(ctx context.Context, userID string, since time.Time) ([]domain.NutritionEntry, error)

	// Goals
	CreateGoal(ctx context.Context, goal *domain.Goal) error
	GetGoals(ctx context.Context, userID string) ([]domain.Goal, error)

	// Workout plans
	CreateWorkoutPlan(ctx context.Context, plan *domain.WorkoutPlan) error
	GetWorkoutPlans(ctx context.Context, userID string, limit int) ([]domain.WorkoutPlan, error)

	// Body composition
	CreateBodySnapshot(ctx context.Context, snap *domain.BodySnapshot) error
	GetBodySnapshots(ctx context.Context, userID string, since time.Time) ([]domain.BodySnapshot, error)

	// Recovery
	CreateRecoverySnapshot(ctx context.Context, snap *domain.RecoverySnapshot) error
	GetRecoverySnapshots(ctx context.Context, userID string, since time.Time) ([]domain.RecoverySnapshot, error)

	// Insights. Category filters when non-empty.
	CreateInsight(ctx context.Context, insight *domain.Insight) error
	GetInsights(ctx context.Context, userID, category string, limit int) ([]domain.Insight, error)

	// Lifecycle
	Close() error
}
