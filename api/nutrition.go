package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/peakform/coach/domain"
)

// NutritionRequest is the body for the parse and log endpoints.
type NutritionRequest struct {
	UserID      string `json:"user_id"`
	Text        string `json:"text"`
	MealType    string `json:"meal_type,omitempty"`
	TrainingDay bool   `json:"training_day,omitempty"`
}

// ParseNutrition parses a food description without persisting anything.
// POST /v1/nutrition/parse
func (h *Handler) ParseNutrition(c echo.Context) error {
	var req NutritionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text is required"})
	}

	result := h.orch.ParseNaturalLanguageFood(c.Request().Context(), req.Text, mealTypeOrSnack(req.MealType), domain.UserProfile{UserID: req.UserID})
	return c.JSON(http.StatusOK, result)
}

// LogNutrition parses a food description and persists the items.
// POST /v1/nutrition/log
func (h *Handler) LogNutrition(c echo.Context) error {
	var req NutritionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.UserID == "" || req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id and text are required"})
	}

	result, err := h.orch.ParseAndLogNutritionDirect(c.Request().Context(), req.Text, mealTypeOrSnack(req.MealType), domain.UserProfile{UserID: req.UserID})
	if err != nil {
		log.Printf("ERROR: failed to log nutrition: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save nutrition entries"})
	}
	return c.JSON(http.StatusOK, result)
}

// CorrectNutritionRequest is the body for POST /v1/nutrition/correct.
type CorrectNutritionRequest struct {
	Original   domain.FoodItem `json:"original"`
	Correction string          `json:"correction"`
}

// CorrectNutrition applies a natural-language correction to an item. A
// correction that cannot be applied returns the original unchanged.
// POST /v1/nutrition/correct
func (h *Handler) CorrectNutrition(c echo.Context) error {
	var req CorrectNutritionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Correction == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "correction is required"})
	}

	item := h.orch.CorrectNutritionEntry(c.Request().Context(), req.Original, req.Correction)
	return c.JSON(http.StatusOK, item)
}

// MacroStatus summarizes today's intake against the daily targets.
// GET /v1/nutrition/status?user_id=...&training_day=true
func (h *Handler) MacroStatus(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}
	trainingDay, _ := strconv.ParseBool(c.QueryParam("training_day"))

	status, err := h.orch.MacroStatus(c.Request().Context(), domain.UserProfile{UserID: userID, TrainingDay: trainingDay})
	if err != nil {
		log.Printf("ERROR: macro status failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to compute status"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": status})
}

// PostWorkoutAnalysis produces a short recovery summary for a workout.
// POST /v1/workouts/analysis
func (h *Handler) PostWorkoutAnalysis(c echo.Context) error {
	var req struct {
		UserID      string `json:"user_id"`
		Summary     string `json:"summary"`
		TrainingDay bool   `json:"training_day,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Summary == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "summary is required"})
	}

	analysis, err := h.orch.GeneratePostWorkoutAnalysis(c.Request().Context(), req.Summary, domain.UserProfile{UserID: req.UserID, TrainingDay: req.TrainingDay})
	if err != nil {
		log.Printf("ERROR: post-workout analysis failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to generate analysis"})
	}
	return c.JSON(http.StatusOK, map[string]string{"analysis": analysis})
}

// Dashboard returns the aggregate snapshot for the dashboard view.
// GET /v1/dashboard?user_id=...&training_day=true
func (h *Handler) Dashboard(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}
	trainingDay, _ := strconv.ParseBool(c.QueryParam("training_day"))

	content, err := h.orch.GenerateDashboardContent(c.Request().Context(), domain.UserProfile{UserID: userID, TrainingDay: trainingDay})
	if err != nil {
		log.Printf("ERROR: dashboard failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to build dashboard"})
	}
	return c.JSON(http.StatusOK, content)
}

func mealTypeOrSnack(s string) domain.MealType {
	switch m := domain.MealType(s); m {
	case domain.MealTypeBreakfast, domain.MealTypeLunch, domain.MealTypeDinner,
		domain.MealTypeSnack, domain.MealTypePreWorkout, domain.MealTypePostWorkout:
		return m
	}
	return domain.MealTypeSnack
}
