// Package dispatch executes side-effecting function calls through a static
// name->handler table with per-function metrics.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/peakform/coach/domain"
	"github.com/peakform/coach/policy"
	"github.com/peakform/coach/store"
)

// HandlerFunc executes one domain action against the store. Arguments are
// decoded defensively inside the handler; missing or mistyped fields fall
// back to defaults rather than failing the call.
type HandlerFunc func(ctx context.Context, args map[string]domain.Value, user domain.UserProfile, s store.Store) (string, map[string]domain.Value, error)

// Table is the function dispatch table: a fixed name-keyed registry built at
// construction time, O(1) dispatch, explicit unknown-function results.
type Table struct {
	handlers map[string]HandlerFunc
	store    store.Store
	policy   *policy.Engine
	metrics  *Metrics
}

// New builds the dispatch table with all handlers registered. The policy
// engine may be nil, in which case every call is allowed.
func New(s store.Store, policyEngine *policy.Engine) *Table {
	t := &Table{
		handlers: make(map[string]HandlerFunc),
		store:    s,
		policy:   policyEngine,
		metrics:  NewMetrics(),
	}
	t.handlers["log_nutrition"] = handleLogNutrition
	t.handlers["create_goal"] = handleCreateGoal
	t.handlers["generate_workout_plan"] = handleGenerateWorkoutPlan
	t.handlers["query_nutrition"] = handleQueryNutrition
	t.handlers["query_goals"] = handleQueryGoals
	t.handlers["query_workouts"] = handleQueryWorkouts
	t.handlers["query_body_comp"] = handleQueryBodyComp
	t.handlers["query_recovery"] = handleQueryRecovery
	t.handlers["query_insights"] = handleQueryInsights
	return t
}

// Metrics exposes the per-function metrics aggregator.
func (t *Table) Metrics() *Metrics {
	return t.metrics
}

// Execute runs one function call. It never returns an error: unknown names,
// policy blocks, and handler failures all surface as Success=false results
// so the caller's control flow is uniform.
func (t *Table) Execute(ctx context.Context, call domain.FunctionCall, user domain.UserProfile) domain.FunctionResult {
	start := time.Now()

	result := t.execute(ctx, call, user)
	result.DurationMs = time.Since(start).Milliseconds()
	result.FunctionName = call.Name

	t.metrics.Record(call.Name, time.Since(start), result.Success)
	return result
}

func (t *Table) execute(ctx context.Context, call domain.FunctionCall, user domain.UserProfile) domain.FunctionResult {
	handler, ok := t.handlers[call.Name]
	if !ok {
		return domain.FunctionResult{
			Success: false,
			Message: fmt.Sprintf("unknown function: %s", call.Name),
		}
	}

	if t.policy != nil {
		decision, reason, err := t.policy.Evaluate(ctx, policyInput(call, user))
		if err != nil {
			log.Printf("ERROR: policy evaluation failed for %s: %v", call.Name, err)
			return domain.FunctionResult{
				Success: false,
				Message: fmt.Sprintf("could not verify %s is allowed", call.Name),
			}
		}
		if decision == "block" {
			if reason == "" {
				reason = "blocked by policy"
			}
			return domain.FunctionResult{
				Success: false,
				Message: fmt.Sprintf("%s was not executed: %s", call.Name, reason),
			}
		}
	}

	message, data, err := handler(ctx, call.Arguments, user, t.store)
	if err != nil {
		log.Printf("ERROR: function %s failed: %v", call.Name, err)
		return domain.FunctionResult{
			Success: false,
			Message: fmt.Sprintf("%s failed, nothing was saved", call.Name),
		}
	}

	return domain.FunctionResult{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// ExecuteBatch runs calls sequentially, in order. Handlers mutate a single
// external store that does not guarantee concurrent-write safety, so batch
// execution never parallelizes.
func (t *Table) ExecuteBatch(ctx context.Context, calls []domain.FunctionCall, user domain.UserProfile) []domain.FunctionResult {
	results := make([]domain.FunctionResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, t.Execute(ctx, call, user))
	}
	return results
}

// policyInput converts a call to the plain-map shape the rego query expects.
func policyInput(call domain.FunctionCall, user domain.UserProfile) map[string]interface{} {
	args := map[string]interface{}{}
	if len(call.Arguments) > 0 {
		if raw, err := json.Marshal(call.Arguments); err == nil {
			_ = json.Unmarshal(raw, &args)
		}
	}
	return map[string]interface{}{
		"function_name": call.Name,
		"user_id":       user.UserID,
		"args":          args,
	}
}
