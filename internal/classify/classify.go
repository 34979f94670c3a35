// Package classify provides the cheap, synchronous message classifier and
// local-command detector that run before any model call.
package classify

import (
	"strings"

	"github.com/peakform/coach/domain"
)

var nutritionKeywords = []string{
	"i ate", "i had", "just ate", "just had", "for breakfast", "for lunch",
	"for dinner", "snack", "calories", "protein shake", "log my food",
	"log food", "meal", "macros",
}

var educationalKeywords = []string{
	"what is", "what are", "why do", "why does", "how does", "how do",
	"explain", "difference between", "tell me about",
}

var actionKeywords = []string{
	"log ", "track ", "create ", "plan ", "generate ", "analyze ",
	"schedule ", "set a goal", "add a goal",
}

// Classify assigns a MessageType to an utterance. Keyword/shape based, no
// I/O; it exists so the router and orchestrator can skip model calls for
// deterministic intents.
func Classify(text string) domain.MessageType {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return domain.MessageTypeConversation
	}

	if DetectLocalCommand(text) != nil {
		return domain.MessageTypeLocalCommand
	}

	for _, kw := range nutritionKeywords {
		if strings.Contains(lower, kw) {
			return domain.MessageTypeNutrition
		}
	}

	for _, kw := range educationalKeywords {
		if strings.HasPrefix(lower, kw) || strings.Contains(lower, " "+kw) {
			return domain.MessageTypeEducational
		}
	}

	return domain.MessageTypeConversation
}

// HasActionIntent reports whether the text asks for a side-effecting
// operation (used by the routing heuristic).
func HasActionIntent(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range actionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// LocalCommand is a deterministic intent executed without a model call.
type LocalCommand struct {
	Name    string
	Summary string
}

// Local command names.
const (
	CommandShowDashboard = "show_dashboard"
	CommandClearSession  = "clear_session"
	CommandHelp          = "help"
)

// DetectLocalCommand returns the local command matching the utterance, or
// nil. Detection is exact-phrase based on the normalized text; execution is
// a separate step owned by the orchestrator.
func DetectLocalCommand(text string) *LocalCommand {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.TrimSuffix(normalized, ".")
	normalized = strings.TrimSuffix(normalized, "!")

	switch normalized {
	case "show dashboard", "open dashboard", "dashboard":
		return &LocalCommand{Name: CommandShowDashboard, Summary: "Show the dashboard"}
	case "clear chat", "clear session", "start over", "new conversation":
		return &LocalCommand{Name: CommandClearSession, Summary: "Clear the conversation"}
	case "help", "what can you do":
		return &LocalCommand{Name: CommandHelp, Summary: "List available commands"}
	}
	return nil
}
