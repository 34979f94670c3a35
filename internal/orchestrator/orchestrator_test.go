package orchestrator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/peakform/coach/config"
	"github.com/peakform/coach/domain"
	"github.com/peakform/coach/internal/conversation"
	"github.com/peakform/coach/internal/dispatch"
	"github.com/peakform/coach/internal/orchestrator"
	"github.com/peakform/coach/internal/router"
	"github.com/peakform/coach/provider"
	"github.com/peakform/coach/store"
	"github.com/peakform/coach/tests/helpers"
)

// recordingDelegate captures delegate events for assertions.
type recordingDelegate struct {
	mu        sync.Mutex
	deltas    []string
	functions []string
	messages  []domain.Message
	errors    []string
	started   int
}

func (d *recordingDelegate) OnProcessingStarted(string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started++
}

func (d *recordingDelegate) OnDelta(_, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deltas = append(d.deltas, text)
}

func (d *recordingDelegate) OnFunctionDetected(_, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.functions = append(d.functions, name)
}

func (d *recordingDelegate) OnProcessingFinished(_ string, msg domain.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
}

func (d *recordingDelegate) OnError(_, msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors = append(d.errors, msg)
}

func (d *recordingDelegate) OnSessionChanged(string) {}

func newTestOrchestrator(t *testing.T, client provider.CompletionClient) (*orchestrator.Orchestrator, store.Store, *recordingDelegate) {
	t.Helper()
	s := helpers.NewTestSQLiteStore(t)
	cfg := &config.Config{ProviderModel: "mock", AllowFallback: true, ToolCallMinChars: 280, HistoryWindow: 12}
	table := dispatch.New(s, nil)
	conv := conversation.New(s, cfg.HistoryWindow)
	rt := router.New(router.Config{AllowFallback: true, ToolCallMinChars: 280})
	delegate := &recordingDelegate{}
	orch := orchestrator.New(s, client, rt, conv, table, cfg, delegate)
	return orch, s, delegate
}

func routingRecords(t *testing.T, s store.Store) []domain.RoutingMetrics {
	t.Helper()
	records, err := s.GetRoutingMetrics(context.Background(), time.UnixMilli(0), 100)
	assert.NoError(t, err)
	return records
}

func TestEmptyInputHasNoSideEffects(t *testing.T) {
	client := provider.NewMockClient()
	orch, s, _ := newTestOrchestrator(t, client)

	err := orch.ProcessUserMessage(context.Background(), "   ", domain.UserProfile{UserID: "u1"})
	assert.ErrorIs(t, err, orchestrator.ErrEmptyInput)

	assert.Equal(t, 0, client.CallCount())
	session, err := s.GetActiveSession(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Nil(t, session)
	assert.Empty(t, routingRecords(t, s))
}

func TestDirectConversationTurn(t *testing.T) {
	client := provider.NewMockClient(provider.TextExchange("Glad to hear it, keep it up."))
	orch, s, delegate := newTestOrchestrator(t, client)
	ctx := context.Background()

	err := orch.ProcessUserMessage(ctx, "feeling strong today", domain.UserProfile{UserID: "u1"})
	assert.NoError(t, err)

	session, err := s.GetActiveSession(ctx, "u1")
	assert.NoError(t, err)
	assert.NotNil(t, session)

	messages, err := s.GetRecentMessages(ctx, session.SessionID, 10)
	assert.NoError(t, err)
	assert.Len(t, messages, 2)
	assert.Equal(t, domain.RoleUser, messages[0].Role)
	assert.Equal(t, domain.RoleAssistant, messages[1].Role)
	assert.Equal(t, "Glad to hear it, keep it up.", messages[1].Content)

	records := routingRecords(t, s)
	assert.Len(t, records, 1)
	assert.Equal(t, domain.RouteDirect, records[0].Route)
	assert.True(t, records[0].Success)
	assert.False(t, records[0].FallbackUsed)
	assert.Equal(t, 20, records[0].TotalTokens)

	assert.Equal(t, 1, delegate.started)
	assert.NotEmpty(t, delegate.deltas)
	assert.Len(t, delegate.messages, 1)
}

func TestFallbackWritesTwoRecords(t *testing.T) {
	client := provider.NewMockClient(
		provider.ErrorExchange("upstream reset"),
		provider.TextExchange("Back on track."),
	)
	orch, s, delegate := newTestOrchestrator(t, client)
	ctx := context.Background()

	err := orch.ProcessUserMessage(ctx, "how was my week", domain.UserProfile{UserID: "u1"})
	assert.NoError(t, err)

	records := routingRecords(t, s)
	assert.Len(t, records, 2)

	// Failed attempt first, on the original route.
	assert.Equal(t, domain.RouteDirect, records[0].Route)
	assert.False(t, records[0].Success)
	assert.True(t, records[0].FallbackUsed)

	// Retry on the other route.
	assert.Equal(t, domain.RouteToolCalling, records[1].Route)
	assert.True(t, records[1].Success)
	assert.True(t, records[1].FallbackUsed)

	assert.Equal(t, 2, client.CallCount())
	assert.Empty(t, delegate.errors)
}

func TestFallbackDisabledPropagatesError(t *testing.T) {
	client := provider.NewMockClient(provider.ErrorExchange("down"))
	s := helpers.NewTestSQLiteStore(t)
	cfg := &config.Config{ProviderModel: "mock"}
	table := dispatch.New(s, nil)
	conv := conversation.New(s, 12)
	rt := router.New(router.Config{AllowFallback: false})
	delegate := &recordingDelegate{}
	orch := orchestrator.New(s, client, rt, conv, table, cfg, delegate)

	err := orch.ProcessUserMessage(context.Background(), "hello there", domain.UserProfile{UserID: "u1"})
	assert.Error(t, err)
	assert.Equal(t, 1, client.CallCount())

	records := routingRecords(t, s)
	assert.Len(t, records, 1)
	assert.False(t, records[0].Success)
	assert.False(t, records[0].FallbackUsed)

	assert.Len(t, delegate.errors, 1)
}

func TestToolCallingTurnDispatchesFunction(t *testing.T) {
	chunks := []provider.StreamChunk{
		{Choices: []provider.Choice{{Delta: &provider.ChatMessage{ToolCalls: []provider.ToolCall{
			{Function: provider.ToolCallFunction{Name: "log_nutrition", Arguments: `{"name":"chicken and rice","meal_type":"lunch","calories":650}`}},
		}}}}},
	}
	client := provider.NewMockClient(provider.MockExchange{Chunks: chunks, Usage: &provider.Usage{TotalTokens: 30}})
	orch, s, delegate := newTestOrchestrator(t, client)
	ctx := context.Background()

	err := orch.ProcessUserMessage(ctx, "log my lunch: chicken and rice", domain.UserProfile{UserID: "u1"})
	assert.NoError(t, err)

	session, _ := s.GetActiveSession(ctx, "u1")
	messages, err := s.GetRecentMessages(ctx, session.SessionID, 10)
	assert.NoError(t, err)

	// User message plus the function-result message; the stream emitted no
	// visible text.
	assert.Len(t, messages, 2)
	last := messages[1]
	assert.Equal(t, domain.RoleAssistant, last.Role)
	assert.NotNil(t, last.FunctionCall)
	assert.Equal(t, "log_nutrition", last.FunctionCall.Name)
	assert.Contains(t, last.Content, "chicken and rice")

	entries, err := s.GetNutritionEntries(ctx, "u1", time.Now().Add(-time.Hour))
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, float64(650), entries[0].Calories)

	assert.Equal(t, []string{"log_nutrition"}, delegate.functions)

	records := routingRecords(t, s)
	assert.Len(t, records, 1)
	assert.Equal(t, domain.RouteToolCalling, records[0].Route)
	assert.True(t, records[0].Success)
}

func TestNutritionTurnUsesFallbackWhenProviderDown(t *testing.T) {
	client := provider.NewMockClient(provider.ErrorExchange("refused"))
	s := helpers.NewTestSQLiteStore(t)
	cfg := &config.Config{ProviderModel: "mock"}
	table := dispatch.New(s, nil)
	conv := conversation.New(s, 12)
	rt := router.New(router.Config{AllowFallback: false})
	orch := orchestrator.New(s, client, rt, conv, table, cfg, nil)
	ctx := context.Background()

	err := orch.ProcessUserMessage(ctx, "I ate grilled chicken for dinner", domain.UserProfile{UserID: "u1"})
	assert.NoError(t, err)

	entries, err := s.GetNutritionEntries(ctx, "u1", time.Now().Add(-time.Hour))
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, float64(500), entries[0].Calories)

	session, _ := s.GetActiveSession(ctx, "u1")
	messages, _ := s.GetRecentMessages(ctx, session.SessionID, 10)
	assert.Len(t, messages, 2)
	assert.Contains(t, messages[1].Content, "rough estimate")
}

func TestClearSessionCommand(t *testing.T) {
	client := provider.NewMockClient(provider.TextExchange("Fresh start, what's the plan?"))
	orch, s, _ := newTestOrchestrator(t, client)
	ctx := context.Background()
	user := domain.UserProfile{UserID: "u1"}

	_, _, err := orch.Conversation().EnsureSession(ctx, "u1", "coach")
	assert.NoError(t, err)
	before, _ := s.GetActiveSession(ctx, "u1")
	assert.NotNil(t, before)

	err = orch.ProcessUserMessage(ctx, "clear chat", user)
	assert.NoError(t, err)

	after, err := s.GetActiveSession(ctx, "u1")
	assert.NoError(t, err)
	assert.Nil(t, after)
}

func TestRegenerateWithoutSession(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, provider.NewMockClient())
	err := orch.RegenerateLastResponse(context.Background(), domain.UserProfile{UserID: "ghost"})
	assert.ErrorIs(t, err, orchestrator.ErrNoActiveSession)
}
