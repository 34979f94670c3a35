package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/peakform/coach/api"
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

func newTestHandler(t *testing.T, client provider.CompletionClient) (*api.Handler, store.Store) {
	t.Helper()
	s := helpers.NewTestSQLiteStore(t)
	cfg := &config.Config{ProviderModel: "mock", AllowFallback: true, HistoryWindow: 12}
	table := dispatch.New(s, nil)
	conv := conversation.New(s, cfg.HistoryWindow)
	rt := router.New(router.Config{AllowFallback: true})
	hub := api.NewHub()
	orch := orchestrator.New(s, client, rt, conv, table, cfg, hub)
	return api.NewHandler(s, orch, cfg, hub), s
}

func postJSON(t *testing.T, e *echo.Echo, path string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	data, err := json.Marshal(body)
	assert.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, provider.NewMockClient())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatEndpoint(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, provider.NewMockClient(provider.TextExchange("Sounds good.")))

	c, rec := postJSON(t, e, "/v1/chat", api.ChatRequest{UserID: "u1", Text: "hello coach"})
	assert.NoError(t, h.Chat(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SessionID string           `json:"session_id"`
		Messages  []domain.Message `json:"messages"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Len(t, resp.Messages, 2)
	assert.Equal(t, "Sounds good.", resp.Messages[1].Content)
}

func TestChatEndpointValidation(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, provider.NewMockClient())

	c, rec := postJSON(t, e, "/v1/chat", api.ChatRequest{Text: "hi"})
	assert.NoError(t, h.Chat(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = postJSON(t, e, "/v1/chat", api.ChatRequest{UserID: "u1", Text: "  "})
	assert.NoError(t, h.Chat(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSessionMessagesHasMore(t *testing.T) {
	e := echo.New()
	h, s := newTestHandler(t, provider.NewMockClient())
	ctx := context.Background()

	session := &domain.Session{SessionID: "s1", UserID: "u1", CreatedAt: time.Now(), Active: true, LastActivity: time.Now()}
	assert.NoError(t, s.CreateSession(ctx, session))
	for i := 0; i < 3; i++ {
		msg := &domain.Message{
			MessageID: "m" + string(rune('1'+i)),
			SessionID: "s1",
			Role:      domain.RoleUser,
			Content:   "hello",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		assert.NoError(t, s.CreateMessage(ctx, msg))
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/messages?limit=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues("s1")

	assert.NoError(t, h.GetSessionMessages(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Messages []domain.Message `json:"messages"`
		HasMore  bool             `json:"has_more"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Messages, 2)
	assert.True(t, resp.HasMore)
	// Newest two, chronological.
	assert.Equal(t, "m2", resp.Messages[0].MessageID)
	assert.Equal(t, "m3", resp.Messages[1].MessageID)
}

func TestParseNutritionEndpointFallback(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, provider.NewMockClient(provider.ErrorExchange("down")))

	c, rec := postJSON(t, e, "/v1/nutrition/parse", api.NutritionRequest{UserID: "u1", Text: "grilled chicken breast", MealType: "dinner"})
	assert.NoError(t, h.ParseNutrition(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var result domain.NutritionResult
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.ParseStrategyFallback, result.Strategy)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, "grilled", result.Items[0].Name)
	assert.Equal(t, float64(500), result.Items[0].Calories)
}

func TestLogNutritionEndpointPersists(t *testing.T) {
	e := echo.New()
	payload := `{"items":[{"name":"apple","quantity":1,"calories":95,"protein_g":0.5,"carbs_g":25,"fat_g":0.3,"confidence":0.95}]}`
	h, s := newTestHandler(t, provider.NewMockClient(provider.TextExchange(payload)))

	c, rec := postJSON(t, e, "/v1/nutrition/log", api.NutritionRequest{UserID: "u1", Text: "an apple", MealType: "snack"})
	assert.NoError(t, h.LogNutrition(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	entries, err := s.GetNutritionEntries(context.Background(), "u1", time.Now().Add(-time.Hour))
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "apple", entries[0].Name)
	assert.Equal(t, domain.MealTypeSnack, entries[0].MealType)
}

func TestFunctionMetricsEndpoint(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, provider.NewMockClient())

	req := httptest.NewRequest(http.MethodGet, "/v1/metrics/functions", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.NoError(t, h.FunctionMetrics(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Functions map[string]interface{} `json:"functions"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Functions)
}

func TestDashboardRequiresUser(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, provider.NewMockClient())

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.NoError(t, h.Dashboard(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
