package domain

import (
	"time"
)

// Session represents a bounded sequence of conversation turns sharing
// history and persona context. Owned by the conversation manager; other
// components reference it by ID only.
type Session struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	PersonaID    string    `json:"persona_id"`
	CreatedAt    time.Time `json:"created_at"`
	Active       bool      `json:"active"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

// Message represents a single message in a session. Immutable once persisted.
type Message struct {
	MessageID      string        `json:"message_id"`
	SessionID      string        `json:"session_id"`
	Role           string        `json:"role"` // user, assistant, system
	Content        string        `json:"content"`
	FunctionCall   *FunctionCall `json:"function_call,omitempty"`
	Classification MessageType   `json:"classification,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// RoutingDecision is the value object produced per utterance by the router.
// Never mutated after creation.
type RoutingDecision struct {
	Route         Route     `json:"route"`
	Reason        string    `json:"reason"`
	AllowFallback bool      `json:"allow_fallback"`
	DecidedAt     time.Time `json:"decided_at"`
}

// RoutingMetrics is an append-only record of one execution attempt. An
// utterance that falls back writes two records: the failed attempt and the
// retry.
type RoutingMetrics struct {
	Route        Route    `json:"route"`
	DurationMs   int64    `json:"duration_ms"`
	Success      bool     `json:"success"`
	TotalTokens  int      `json:"total_tokens,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
	FallbackUsed bool     `json:"fallback_used"`
	Ts           int64    `json:"ts"` // Unix milliseconds
}

// FunctionCall is a structured tool invocation emitted by the completion
// provider. Transient; consumed by the dispatch table.
type FunctionCall struct {
	Name      string           `json:"name"`
	Arguments map[string]Value `json:"arguments,omitempty"`
}

// FunctionResult is the outcome of one dispatch-table execution. Handlers
// never fail the call itself; errors are captured as Success=false.
type FunctionResult struct {
	Success      bool             `json:"success"`
	Message      string           `json:"message"`
	Data         map[string]Value `json:"data,omitempty"`
	DurationMs   int64            `json:"duration_ms"`
	FunctionName string           `json:"function_name"`
}

// FunctionStats holds running totals for one function name.
type FunctionStats struct {
	Calls           int64 `json:"calls"`
	Successes       int64 `json:"successes"`
	Errors          int64 `json:"errors"`
	TotalDurationMs int64 `json:"total_duration_ms"`
}

// AverageMs returns the mean execution time across all calls.
func (s FunctionStats) AverageMs() float64 {
	if s.Calls == 0 {
		return 0
	}
	return float64(s.TotalDurationMs) / float64(s.Calls)
}

// SuccessRate returns the fraction of calls that succeeded.
func (s FunctionStats) SuccessRate() float64 {
	if s.Calls == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Calls)
}

// UserProfile is the user snapshot assembled into the model context. The
// orchestrator treats it as read-only input; profile management lives
// outside this module.
type UserProfile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	PersonaID   string `json:"persona_id,omitempty"`
	Goal        string `json:"goal,omitempty"`
	TrainingDay bool   `json:"training_day,omitempty"`
}

// NutritionEntry is a persisted food log row created by the dispatch table
// or the direct nutrition entry point.
type NutritionEntry struct {
	EntryID   string    `json:"entry_id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	MealType  MealType  `json:"meal_type"`
	Calories  float64   `json:"calories"`
	ProteinG  float64   `json:"protein_g"`
	CarbsG    float64   `json:"carbs_g"`
	FatG      float64   `json:"fat_g"`
	CreatedAt time.Time `json:"created_at"`
}

// Goal is a user goal created through the create_goal function.
type Goal struct {
	GoalID    string    `json:"goal_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Target    string    `json:"target,omitempty"`
	Deadline  string    `json:"deadline,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// WorkoutPlan is a generated plan persisted by the generate_workout_plan
// function.
type WorkoutPlan struct {
	PlanID    string    `json:"plan_id"`
	UserID    string    `json:"user_id"`
	Focus     string    `json:"focus"`
	DaysPerWk int       `json:"days_per_week"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// BodySnapshot is one body composition reading, synced from an external
// health source. Zero fields mean the reading did not carry that metric.
type BodySnapshot struct {
	SnapshotID string    `json:"snapshot_id"`
	UserID     string    `json:"user_id"`
	WeightKg   float64   `json:"weight_kg"`
	BodyFatPct float64   `json:"body_fat_pct,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RecoverySnapshot is one recovery reading: sleep, HRV, resting heart rate.
type RecoverySnapshot struct {
	SnapshotID string    `json:"snapshot_id"`
	UserID     string    `json:"user_id"`
	SleepHours float64   `json:"sleep_hours,omitempty"`
	HrvMs      float64   `json:"hrv_ms,omitempty"`
	RestingHr  float64   `json:"resting_hr,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Insight is a stored observation over the user's data, queryable by
// category: correlation, trend, anomaly, milestone, nudge.
type Insight struct {
	InsightID string    `json:"insight_id"`
	UserID    string    `json:"user_id"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
