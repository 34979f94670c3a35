// Package domain defines the core domain models for the coaching orchestrator.
package domain

// Route represents the execution strategy chosen for an utterance.
type Route string

const (
	RouteDirect      Route = "direct"
	RouteToolCalling Route = "tool_calling"
	RouteHybrid      Route = "hybrid"
)

// MessageType classifies an utterance before any model call.
type MessageType string

const (
	MessageTypeConversation MessageType = "conversation"
	MessageTypeNutrition    MessageType = "nutrition_parsing"
	MessageTypeEducational  MessageType = "educational"
	MessageTypeLocalCommand MessageType = "local_command"
)

// MealType tags a nutrition entry with the meal it belongs to.
type MealType string

const (
	MealTypeBreakfast   MealType = "breakfast"
	MealTypeLunch       MealType = "lunch"
	MealTypeDinner      MealType = "dinner"
	MealTypeSnack       MealType = "snack"
	MealTypePreWorkout  MealType = "pre_workout"
	MealTypePostWorkout MealType = "post_workout"
)

// DefaultCalories returns the fallback calorie estimate for the meal type.
func (m MealType) DefaultCalories() float64 {
	switch m {
	case MealTypeBreakfast:
		return 250
	case MealTypeLunch:
		return 400
	case MealTypeDinner:
		return 500
	case MealTypeSnack:
		return 150
	case MealTypePreWorkout:
		return 200
	case MealTypePostWorkout:
		return 300
	}
	return 400
}

// ParseStrategy records how a nutrition result was produced.
type ParseStrategy string

const (
	ParseStrategyDirectModel ParseStrategy = "direct_model"
	ParseStrategyFallback    ParseStrategy = "fallback"
	ParseStrategyCached      ParseStrategy = "cached"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)
