// Package orchestrator composes classification, routing, streaming, and
// dispatch into the single ProcessUserMessage entry point, plus the direct
// strategy entry points usable outside the conversational flow.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/peakform/coach/config"
	"github.com/peakform/coach/domain"
	"github.com/peakform/coach/internal/classify"
	"github.com/peakform/coach/internal/conversation"
	"github.com/peakform/coach/internal/dispatch"
	"github.com/peakform/coach/internal/education"
	"github.com/peakform/coach/internal/nutrition"
	"github.com/peakform/coach/internal/router"
	"github.com/peakform/coach/internal/stream"
	"github.com/peakform/coach/provider"
	"github.com/peakform/coach/store"
)

// Delegate receives orchestrator state transitions. This is a push
// interface for the presentation layer; raw error detail never crosses it.
type Delegate interface {
	OnProcessingStarted(sessionID string)
	OnDelta(sessionID, text string)
	OnFunctionDetected(sessionID, functionName string)
	OnProcessingFinished(sessionID string, message domain.Message)
	OnError(sessionID, friendlyMessage string)
	OnSessionChanged(sessionID string)
}

// NoopDelegate discards all events.
type NoopDelegate struct{}

func (NoopDelegate) OnProcessingStarted(string)                 {}
func (NoopDelegate) OnDelta(string, string)                     {}
func (NoopDelegate) OnFunctionDetected(string, string)          {}
func (NoopDelegate) OnProcessingFinished(string, domain.Message) {}
func (NoopDelegate) OnError(string, string)                     {}
func (NoopDelegate) OnSessionChanged(string)                    {}

// Orchestrator is the facade over the orchestration core.
type Orchestrator struct {
	store     store.Store
	client    provider.CompletionClient
	router    *router.Router
	conv      *conversation.Manager
	dispatch  *dispatch.Table
	nutrition *nutrition.Parser
	education *education.Strategy
	cfg       *config.Config
	delegate  Delegate
}

// New wires the orchestrator. A nil delegate defaults to NoopDelegate.
func New(s store.Store, client provider.CompletionClient, rt *router.Router, conv *conversation.Manager, table *dispatch.Table, cfg *config.Config, delegate Delegate) *Orchestrator {
	if delegate == nil {
		delegate = NoopDelegate{}
	}
	return &Orchestrator{
		store:     s,
		client:    client,
		router:    rt,
		conv:      conv,
		dispatch:  table,
		nutrition: nutrition.NewParser(client, cfg.ProviderModel),
		education: education.New(client, cfg.ProviderModel),
		cfg:       cfg,
		delegate:  delegate,
	}
}

// SetDelegate replaces the delegate. Call before serving traffic.
func (o *Orchestrator) SetDelegate(d Delegate) {
	if d == nil {
		d = NoopDelegate{}
	}
	o.delegate = d
}

// Dispatch exposes the function dispatch table (for metrics queries).
func (o *Orchestrator) Dispatch() *dispatch.Table {
	return o.dispatch
}

// Conversation exposes the conversation state manager.
func (o *Orchestrator) Conversation() *conversation.Manager {
	return o.conv
}

// ProcessUserMessage runs one conversation turn: classify, persist, route,
// execute, stream, dispatch, persist. Turns within a session are serialized
// by the conversation manager.
func (o *Orchestrator) ProcessUserMessage(ctx context.Context, text string, user domain.UserProfile) error {
	if strings.TrimSpace(text) == "" {
		// No side effects for empty input: nothing persisted, no
		// provider call, no delegate events.
		return ErrEmptyInput
	}

	sessionID, created, err := o.conv.EnsureSession(ctx, user.UserID, user.PersonaID)
	if err != nil {
		return fmt.Errorf("failed to ensure session: %w", err)
	}
	if created {
		o.delegate.OnSessionChanged(sessionID)
	}

	release := o.conv.BeginTurn(sessionID)
	defer release()

	o.delegate.OnProcessingStarted(sessionID)

	msgType := classify.Classify(text)
	userMsg := &domain.Message{
		MessageID:      "msg_" + uuid.New().String()[:8],
		SessionID:      sessionID,
		Role:           domain.RoleUser,
		Content:        text,
		Classification: msgType,
		CreatedAt:      time.Now(),
	}
	if err := o.store.CreateMessage(ctx, userMsg); err != nil {
		return fmt.Errorf("failed to persist user message: %w", err)
	}
	if err := o.conv.UpdateSession(ctx, sessionID, true); err != nil {
		log.Printf("WARN: failed to update session %s: %v", sessionID, err)
	}

	// Local commands execute synchronously with no model call; the effect
	// description is appended so downstream routing can reason about it.
	working := text
	if cmd := classify.DetectLocalCommand(text); cmd != nil {
		desc := o.runLocalCommand(ctx, cmd, sessionID, user)
		working = text + "\n[" + desc + "]"
	}

	history, err := o.store.GetRecentMessages(ctx, sessionID, o.conv.OptimalHistoryLimit(msgType))
	if err != nil {
		log.Printf("WARN: failed to load history for %s: %v", sessionID, err)
		history = nil
	}

	decision := o.router.Route(working, history, user, user.UserID)

	if err := o.executeWithFallback(ctx, sessionID, decision, msgType, working, history, user); err != nil {
		o.delegate.OnError(sessionID, friendlyMessage(err))
		return err
	}
	return nil
}

// executeWithFallback is the explicit two-state attempt loop: attempt, on
// recoverable failure re-attempt once on the other route with fallback
// disabled, then propagate. Every attempt writes one RoutingMetrics record.
func (o *Orchestrator) executeWithFallback(ctx context.Context, sessionID string, decision domain.RoutingDecision, msgType domain.MessageType, input string, history []domain.Message, user domain.UserProfile) error {
	route := decision.Route
	allowFallback := decision.AllowFallback
	fallbackUsed := false

	// Long, complex input pre-empts direct generation before the first
	// attempt. A deliberate switch, not a fallback.
	if route == domain.RouteDirect && allowFallback && len(input) >= o.router.ToolCallMinChars() {
		route = domain.RouteToolCalling
	}

	for {
		start := time.Now()
		usage, err := o.executeRoute(ctx, sessionID, route, msgType, input, history, user)
		duration := time.Since(start)

		if err == nil {
			o.recordRouting(ctx, route, duration, true, usage, fallbackUsed)
			return nil
		}

		log.Printf("ERROR: %s strategy failed for session %s: %v", route, sessionID, err)

		if !allowFallback {
			o.recordRouting(ctx, route, duration, false, usage, fallbackUsed)
			return err
		}

		// Failed attempt, fallback permitted: record it, flip the route,
		// and disable further fallback to prevent ping-pong.
		o.recordRouting(ctx, route, duration, false, usage, true)
		route = otherRoute(route)
		allowFallback = false
		fallbackUsed = true
	}
}

func otherRoute(route domain.Route) domain.Route {
	if route == domain.RouteDirect {
		return domain.RouteToolCalling
	}
	return domain.RouteDirect
}

func (o *Orchestrator) executeRoute(ctx context.Context, sessionID string, route domain.Route, msgType domain.MessageType, input string, history []domain.Message, user domain.UserProfile) (*provider.Usage, error) {
	if route == domain.RouteToolCalling {
		return o.executeToolCalling(ctx, sessionID, input, history, user)
	}
	return o.executeDirect(ctx, sessionID, msgType, input, history, user)
}

// executeDirect handles the direct-generation path. Nutrition and
// educational intents short-circuit to their specialized strategies: fewer
// tokens, deterministic schema.
func (o *Orchestrator) executeDirect(ctx context.Context, sessionID string, msgType domain.MessageType, input string, history []domain.Message, user domain.UserProfile) (*provider.Usage, error) {
	switch msgType {
	case domain.MessageTypeNutrition:
		return nil, o.nutritionTurn(ctx, sessionID, input, user)
	case domain.MessageTypeEducational:
		return o.educationTurn(ctx, sessionID, input, user)
	}

	acc := stream.NewAccumulator()
	req := &provider.ChatRequest{
		Model:    o.cfg.ProviderModel,
		Messages: o.buildMessages(input, history, user, false),
	}
	err := stream.Consume(ctx, o.client, req, acc, stream.Callbacks{
		OnDelta: func(text string) { o.delegate.OnDelta(sessionID, text) },
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(acc.Text()) == "" {
		return acc.Usage(), fmt.Errorf("provider returned an empty response")
	}

	return acc.Usage(), o.persistAssistant(ctx, sessionID, acc.Text(), nil)
}

// executeToolCalling drives the streaming protocol with the function
// schemas advertised. A detected call is executed only after the stream
// reaches Finished; its textual result is appended to the visible response
// as a second persisted message.
func (o *Orchestrator) executeToolCalling(ctx context.Context, sessionID, input string, history []domain.Message, user domain.UserProfile) (*provider.Usage, error) {
	acc := stream.NewAccumulator()
	req := &provider.ChatRequest{
		Model:    o.cfg.ProviderModel,
		Messages: o.buildMessages(input, history, user, true),
		Tools:    dispatch.Schemas(),
	}
	err := stream.Consume(ctx, o.client, req, acc, stream.Callbacks{
		OnDelta:    func(text string) { o.delegate.OnDelta(sessionID, text) },
		OnFunction: func(name string) { o.delegate.OnFunctionDetected(sessionID, name) },
	})
	if err != nil {
		return nil, err
	}

	call := acc.Call()
	text := acc.Text()
	if strings.TrimSpace(text) == "" && call == nil {
		return acc.Usage(), fmt.Errorf("provider returned an empty response")
	}

	if strings.TrimSpace(text) != "" {
		if err := o.persistAssistant(ctx, sessionID, text, nil); err != nil {
			return acc.Usage(), err
		}
	}

	if call != nil {
		result := o.dispatch.Execute(ctx, *call, user)
		if err := o.persistAssistant(ctx, sessionID, result.Message, call); err != nil {
			return acc.Usage(), err
		}
	}

	return acc.Usage(), nil
}

// nutritionTurn runs the specialized nutrition strategy for a conversation
// turn. The parser never fails; a fallback item is still a valid turn.
func (o *Orchestrator) nutritionTurn(ctx context.Context, sessionID, input string, user domain.UserProfile) error {
	result, err := o.ParseAndLogNutritionDirect(ctx, input, inferMealType(input), user)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("Logged:\n")
	for _, item := range result.Items {
		fmt.Fprintf(&b, "- %s: %.0f kcal (%.0fP/%.0fC/%.0fF)\n", item.Name, item.Calories, item.ProteinG, item.CarbsG, item.FatG)
	}
	fmt.Fprintf(&b, "Total: %.0f kcal.", result.TotalCalories)
	if result.Strategy == domain.ParseStrategyFallback {
		b.WriteString(" I used a rough estimate; correct me if it's off.")
	}

	return o.persistAssistant(ctx, sessionID, b.String(), nil)
}

func (o *Orchestrator) educationTurn(ctx context.Context, sessionID, input string, user domain.UserProfile) (*provider.Usage, error) {
	answer, usage, err := o.education.Generate(ctx, input, user)
	if err != nil {
		return usage, err
	}
	return usage, o.persistAssistant(ctx, sessionID, answer, nil)
}

// persistAssistant commits one assistant message and notifies the delegate.
// Nothing is persisted on failed or cancelled streams; callers only reach
// this after Finished.
func (o *Orchestrator) persistAssistant(ctx context.Context, sessionID, content string, call *domain.FunctionCall) error {
	msg := &domain.Message{
		MessageID:    "msg_" + uuid.New().String()[:8],
		SessionID:    sessionID,
		Role:         domain.RoleAssistant,
		Content:      content,
		FunctionCall: call,
		CreatedAt:    time.Now(),
	}
	if err := o.store.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to persist assistant message: %w", err)
	}
	if err := o.conv.UpdateSession(ctx, sessionID, true); err != nil {
		log.Printf("WARN: failed to update session %s: %v", sessionID, err)
	}
	o.delegate.OnProcessingFinished(sessionID, *msg)
	return nil
}

// buildMessages assembles the provider message list: persona system prompt,
// replayed history, current input.
func (o *Orchestrator) buildMessages(input string, history []domain.Message, user domain.UserProfile, withTools bool) []provider.ChatMessage {
	messages := []provider.ChatMessage{
		{Role: domain.RoleSystem, Content: personaPrompt(user, withTools)},
	}
	for _, msg := range history {
		if msg.Role != domain.RoleUser && msg.Role != domain.RoleAssistant {
			continue
		}
		messages = append(messages, provider.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, provider.ChatMessage{Role: domain.RoleUser, Content: input})
	return messages
}

func personaPrompt(user domain.UserProfile, withTools bool) string {
	var b strings.Builder
	b.WriteString("You are a supportive, practical fitness and nutrition coach.")
	if user.DisplayName != "" {
		fmt.Fprintf(&b, " The user's name is %s.", user.DisplayName)
	}
	if user.Goal != "" {
		fmt.Fprintf(&b, " Their current goal: %s.", user.Goal)
	}
	if user.TrainingDay {
		b.WriteString(" Today is a training day.")
	} else {
		b.WriteString(" Today is a rest day.")
	}
	if withTools {
		b.WriteString(" Use the available functions to log data, create goals, and query history instead of guessing.")
	}
	b.WriteString(" Keep answers short and concrete.")
	return b.String()
}

// runLocalCommand executes a deterministic intent and returns a description
// of the effect. Command failures degrade to a note; the turn continues.
func (o *Orchestrator) runLocalCommand(ctx context.Context, cmd *classify.LocalCommand, sessionID string, user domain.UserProfile) string {
	switch cmd.Name {
	case classify.CommandShowDashboard:
		content, err := o.GenerateDashboardContent(ctx, user)
		if err != nil {
			log.Printf("WARN: dashboard command failed: %v", err)
			return "dashboard unavailable"
		}
		return fmt.Sprintf("displayed dashboard: %.0f kcal today, %d goals", content.TodayCalories, len(content.Goals))
	case classify.CommandClearSession:
		if err := o.conv.EndSession(ctx, sessionID); err != nil {
			log.Printf("WARN: clear session command failed: %v", err)
			return "could not clear the conversation"
		}
		o.delegate.OnSessionChanged("")
		return "conversation cleared, starting fresh"
	case classify.CommandHelp:
		return "listed commands: show dashboard, clear chat, help"
	}
	return "no effect"
}

// inferMealType guesses the meal from the utterance, defaulting by absence
// to snack.
func inferMealType(text string) domain.MealType {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "breakfast"):
		return domain.MealTypeBreakfast
	case strings.Contains(lower, "lunch"):
		return domain.MealTypeLunch
	case strings.Contains(lower, "dinner"):
		return domain.MealTypeDinner
	case strings.Contains(lower, "pre-workout"), strings.Contains(lower, "pre workout"):
		return domain.MealTypePreWorkout
	case strings.Contains(lower, "post-workout"), strings.Contains(lower, "post workout"):
		return domain.MealTypePostWorkout
	}
	return domain.MealTypeSnack
}

func (o *Orchestrator) recordRouting(ctx context.Context, route domain.Route, duration time.Duration, success bool, usage *provider.Usage, fallbackUsed bool) {
	record := &domain.RoutingMetrics{
		Route:        route,
		DurationMs:   duration.Milliseconds(),
		Success:      success,
		FallbackUsed: fallbackUsed,
		Ts:           time.Now().UnixMilli(),
	}
	if usage != nil {
		record.TotalTokens = usage.TotalTokens
	}
	if err := o.store.CreateRoutingMetrics(ctx, record); err != nil {
		log.Printf("WARN: failed to record routing metrics: %v", err)
	}
}
