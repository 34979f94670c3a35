package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/peakform/coach/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			persona_id TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			active INTEGER NOT NULL DEFAULT 1,
			last_activity DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			message_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, active)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			function_call TEXT,
			classification TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS routing_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			route TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			success INTEGER NOT NULL,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			confidence REAL,
			fallback_used INTEGER NOT NULL DEFAULT 0,
			ts INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_routing_metrics_ts ON routing_metrics(ts)`,
		`CREATE TABLE IF NOT EXISTS nutrition_entries (
			entry_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			meal_type TEXT NOT NULL,
			calories REAL NOT NULL,
			protein_g REAL NOT NULL,
			carbs_g REAL NOT NULL,
			fat_g REAL NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nutrition_user ON nutrition_entries(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS goals (
			goal_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			target TEXT,
			deadline TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS workout_plans (
			plan_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			focus TEXT NOT NULL,
			days_per_week INTEGER NOT NULL,
			summary TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS body_snapshots (
			snapshot_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			weight_kg REAL NOT NULL,
			body_fat_pct REAL NOT NULL DEFAULT 0,
			recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_body_user ON body_snapshots(user_id, recorded_at)`,
		`CREATE TABLE IF NOT EXISTS recovery_snapshots (
			snapshot_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			sleep_hours REAL NOT NULL DEFAULT 0,
			hrv_ms REAL NOT NULL DEFAULT 0,
			resting_hr REAL NOT NULL DEFAULT 0,
			recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recovery_user ON recovery_snapshots(user_id, recorded_at)`,
		`CREATE TABLE IF NOT EXISTS insights (
			insight_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_insights_user ON insights(user_id, category, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession creates a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, persona_id, created_at, active, last_activity, message_count) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.SessionID, session.UserID, session.PersonaID, session.CreatedAt, session.Active, session.LastActivity, session.MessageCount)
	return err
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, persona_id, created_at, active, last_activity, message_count FROM sessions WHERE session_id = ?`,
		sessionID).Scan(&session.SessionID, &session.UserID, &session.PersonaID, &session.CreatedAt, &session.Active, &session.LastActivity, &session.MessageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetActiveSession retrieves the open session for a user, if any.
func (s *SQLiteStore) GetActiveSession(ctx context.Context, userID string) (*domain.Session, error) {
	var session domain.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, persona_id, created_at, active, last_activity, message_count
		 FROM sessions WHERE user_id = ? AND active = 1 ORDER BY created_at DESC LIMIT 1`,
		userID).Scan(&session.SessionID, &session.UserID, &session.PersonaID, &session.CreatedAt, &session.Active, &session.LastActivity, &session.MessageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// TouchSession updates session activity, optionally bumping the message
// counter.
func (s *SQLiteStore) TouchSession(ctx context.Context, sessionID string, messageProcessed bool) error {
	bump := 0
	if messageProcessed {
		bump = 1
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity = ?, message_count = message_count + ? WHERE session_id = ?`,
		time.Now(), bump, sessionID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return nil
}

// CloseSession marks a session inactive.
func (s *SQLiteStore) CloseSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET active = 0 WHERE session_id = ?`, sessionID)
	return err
}

// CloseUserSessions marks all of a user's sessions inactive and returns the
// number closed.
func (s *SQLiteStore) CloseUserSessions(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET active = 0 WHERE user_id = ? AND active = 1`, userID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CreateMessage creates a new message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	var fnCall sql.NullString
	if message.FunctionCall != nil {
		data, err := json.Marshal(message.FunctionCall)
		if err != nil {
			return fmt.Errorf("failed to marshal function call: %w", err)
		}
		fnCall = sql.NullString{String: string(data), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, session_id, role, content, function_call, classification, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		message.MessageID, message.SessionID, message.Role, message.Content, fnCall, string(message.Classification), message.CreatedAt)
	return err
}

// GetRecentMessages retrieves the most recent messages for a session in
// chronological order.
func (s *SQLiteStore) GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return []domain.Message{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, session_id, role, content, function_call, classification, created_at
		 FROM (SELECT * FROM messages WHERE session_id = ? ORDER BY created_at DESC, message_id DESC LIMIT ?)
		 ORDER BY created_at ASC, message_id ASC`,
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var fnCall, classification sql.NullString
		if err := rows.Scan(&msg.MessageID, &msg.SessionID, &msg.Role, &msg.Content, &fnCall, &classification, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if fnCall.Valid && fnCall.String != "" {
			var call domain.FunctionCall
			if err := json.Unmarshal([]byte(fnCall.String), &call); err == nil {
				msg.FunctionCall = &call
			}
		}
		if classification.Valid {
			msg.Classification = domain.MessageType(classification.String)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CreateRoutingMetrics appends one routing metrics record.
func (s *SQLiteStore) CreateRoutingMetrics(ctx context.Context, m *domain.RoutingMetrics) error {
	var confidence sql.NullFloat64
	if m.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *m.Confidence, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO routing_metrics (route, duration_ms, success, total_tokens, confidence, fallback_used, ts) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(m.Route), m.DurationMs, m.Success, m.TotalTokens, confidence, m.FallbackUsed, m.Ts)
	return err
}

// GetRoutingMetrics returns records newer than since, oldest first.
func (s *SQLiteStore) GetRoutingMetrics(ctx context.Context, since time.Time, limit int) ([]domain.RoutingMetrics, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT route, duration_ms, success, total_tokens, confidence, fallback_used, ts
		 FROM routing_metrics WHERE ts >= ? ORDER BY ts ASC, id ASC LIMIT ?`,
		since.UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.RoutingMetrics
	for rows.Next() {
		var m domain.RoutingMetrics
		var confidence sql.NullFloat64
		if err := rows.Scan(&m.Route, &m.DurationMs, &m.Success, &m.TotalTokens, &confidence, &m.FallbackUsed, &m.Ts); err != nil {
			return nil, err
		}
		if confidence.Valid {
			c := confidence.Float64
			m.Confidence = &c
		}
		records = append(records, m)
	}
	return records, rows.Err()
}

// CreateNutritionEntry persists one food log row.
func (s *SQLiteStore) CreateNutritionEntry(ctx context.Context, entry *domain.NutritionEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO nutrition_entries (entry_id, user_id, name, meal_type, calories, protein_g, carbs_g, fat_g, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EntryID, entry.UserID, entry.Name, string(entry.MealType), entry.Calories, entry.ProteinG, entry.CarbsG, entry.FatG, entry.CreatedAt)
	return err
}

// GetNutritionEntries returns a user's entries created at or after since.
func (s *SQLiteStore) GetNutritionEntries(ctx context.Context, userID string, since time.Time) ([]domain.NutritionEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_id, user_id, name, meal_type, calories, protein_g, carbs_g, fat_g, created_at
		 FROM nutrition_entries WHERE user_id = ? AND created_at >= ? ORDER BY created_at ASC`,
		userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.NutritionEntry
	for rows.Next() {
		var e domain.NutritionEntry
		var mealType string
		if err := rows.Scan(&e.EntryID, &e.UserID, &e.Name, &mealType, &e.Calories, &e.ProteinG, &e.CarbsG, &e.FatG, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.MealType = domain.MealType(mealType)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CreateGoal persists a user goal.
func (s *SQLiteStore) CreateGoal(ctx context.Context, goal *domain.Goal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (goal_id, user_id, title, target, deadline, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		goal.GoalID, goal.UserID, goal.Title, goal.Target, goal.Deadline, goal.CreatedAt)
	return err
}

// GetGoals returns a user's goals, newest first.
func (s *SQLiteStore) GetGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT goal_id, user_id, title, target, deadline, created_at FROM goals WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []domain.Goal
	for rows.Next() {
		var g domain.Goal
		var target, deadline sql.NullString
		if err := rows.Scan(&g.GoalID, &g.UserID, &g.Title, &target, &deadline, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.Target = target.String
		g.Deadline = deadline.String
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// CreateWorkoutPlan persists a generated workout plan.
func (s *SQLiteStore) CreateWorkoutPlan(ctx context.Context, plan *domain.WorkoutPlan) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workout_plans (plan_id, user_id, focus, days_per_week, summary, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		plan.PlanID, plan.UserID, plan.Focus, plan.DaysPerWk, plan.Summary, plan.CreatedAt)
	return err
}

// GetWorkoutPlans returns a user's plans, newest first.
func (s *SQLiteStore) GetWorkoutPlans(ctx context.Context, userID string, limit int) ([]domain.WorkoutPlan, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT plan_id, user_id, focus, days_per_week, summary, created_at FROM workout_plans WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []domain.WorkoutPlan
	for rows.Next() {
		var p domain.WorkoutPlan
		if err := rows.Scan(&p.PlanID, &p.UserID, &p.Focus, &p.DaysPerWk, &p.Summary, &p.CreatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// CreateBodySnapshot persists one body composition reading.
func (s *SQLiteStore) CreateBodySnapshot(ctx context.Context, snap *domain.BodySnapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO body_snapshots (snapshot_id, user_id, weight_kg, body_fat_pct, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		snap.SnapshotID, snap.UserID, snap.WeightKg, snap.BodyFatPct, snap.RecordedAt)
	return err
}

// GetBodySnapshots returns a user's readings recorded at or after since,
// oldest first.
func (s *SQLiteStore) GetBodySnapshots(ctx context.Context, userID string, since time.Time) ([]domain.BodySnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT snapshot_id, user_id, weight_kg, body_fat_pct, recorded_at
		 FROM body_snapshots WHERE user_id = ? AND recorded_at >= ? ORDER BY recorded_at ASC`,
		userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []domain.BodySnapshot
	for rows.Next() {
		var b domain.BodySnapshot
		if err := rows.Scan(&b.SnapshotID, &b.UserID, &b.WeightKg, &b.BodyFatPct, &b.RecordedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, b)
	}
	return snaps, rows.Err()
}

// CreateRecoverySnapshot persists one recovery reading.
func (s *SQLiteStore) CreateRecoverySnapshot(ctx context.Context, snap *domain.RecoverySnapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recovery_snapshots (snapshot_id, user_id, sleep_hours, hrv_ms, resting_hr, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		snap.SnapshotID, snap.UserID, snap.SleepHours, snap.HrvMs, snap.RestingHr, snap.RecordedAt)
	return err
}

// GetRecoverySnapshots returns a user's readings recorded at or after since,
// oldest first.
func (s *SQLiteStore) GetRecoverySnapshots(ctx context.Context, userID string, since time.Time) ([]domain.RecoverySnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT snapshot_id, user_id, sleep_hours, hrv_ms, resting_hr, recorded_at
		 FROM recovery_snapshots WHERE user_id = ? AND recorded_at >= ? ORDER BY recorded_at ASC`,
		userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []domain.RecoverySnapshot
	for rows.Next() {
		var r domain.RecoverySnapshot
		if err := rows.Scan(&r.SnapshotID, &r.UserID, &r.SleepHours, &r.HrvMs, &r.RestingHr, &r.RecordedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, r)
	}
	return snaps, rows.Err()
}

// CreateInsight persists one insight.
func (s *SQLiteStore) CreateInsight(ctx context.Context, insight *domain.Insight) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO insights (insight_id, user_id, category, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		insight.InsightID, insight.UserID, insight.Category, insight.Content, insight.CreatedAt)
	return err
}

// GetInsights returns a user's insights, newest first, optionally filtered
// by category.
func (s *SQLiteStore) GetInsights(ctx context.Context, userID, category string, limit int) ([]domain.Insight, error) {
	if limit <= 0 {
		limit = 5
	}
	query := `SELECT insight_id, user_id, category, content, created_at FROM insights WHERE user_id = ?`
	args := []interface{}{userID}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var insights []domain.Insight
	for rows.Next() {
		var i domain.Insight
		if err := rows.Scan(&i.InsightID, &i.UserID, &i.Category, &i.Content, &i.CreatedAt); err != nil {
			return nil, err
		}
		insights = append(insights, i)
	}
	return insights, rows.Err()
}
