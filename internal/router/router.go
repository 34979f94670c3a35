// Package router chooses the execution strategy for an utterance.
package router

import (
	"time"

	"github.com/peakform/coach/domain"
	"github.com/peakform/coach/internal/classify"
)

// Config holds the routing tunables. ForcedRoute is an operator override;
// AllowFallback is carried on every decision independently of forcing.
type Config struct {
	ForcedRoute      domain.Route
	AllowFallback    bool
	ToolCallMinChars int
}

// Router decides between direct generation and tool-calling. Route is a pure
// function of its inputs and the configuration; it performs no I/O.
type Router struct {
	cfg Config
}

// New creates a router.
func New(cfg Config) *Router {
	if cfg.ToolCallMinChars <= 0 {
		cfg.ToolCallMinChars = 280
	}
	return &Router{cfg: cfg}
}

// Route chooses a routing strategy for the utterance.
func (r *Router) Route(input string, history []domain.Message, user domain.UserProfile, userID string) domain.RoutingDecision {
	if r.cfg.ForcedRoute != "" {
		return domain.RoutingDecision{
			Route:         r.cfg.ForcedRoute,
			Reason:        "forced route via configuration",
			AllowFallback: r.cfg.AllowFallback,
			DecidedAt:     time.Now(),
		}
	}

	route := domain.RouteDirect
	if r.wantsToolCalling(input, history) {
		route = domain.RouteToolCalling
	}

	return domain.RoutingDecision{
		Route:         route,
		Reason:        "heuristic",
		AllowFallback: r.cfg.AllowFallback,
		DecidedAt:     time.Now(),
	}
}

// ToolCallMinChars exposes the configured pre-emption cutoff.
func (r *Router) ToolCallMinChars() int {
	return r.cfg.ToolCallMinChars
}

func (r *Router) wantsToolCalling(input string, history []domain.Message) bool {
	if classify.HasActionIntent(input) {
		return true
	}
	if len(input) >= r.cfg.ToolCallMinChars {
		return true
	}
	// A recent assistant turn that invoked a function suggests the
	// conversation is mid tool workflow.
	for i := len(history) - 1; i >= 0 && i >= len(history)-3; i-- {
		if history[i].Role == domain.RoleAssistant && history[i].FunctionCall != nil {
			return true
		}
	}
	return false
}
