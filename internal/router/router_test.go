package router

import (
	"strings"
	"testing"

	"github.com/peakform/coach/domain"
)

func TestRouteForced(t *testing.T) {
	r := New(Config{ForcedRoute: domain.RouteToolCalling, AllowFallback: true})

	d := r.Route("hello there", nil, domain.UserProfile{}, "u1")
	if d.Route != domain.RouteToolCalling {
		t.Fatalf("expected forced tool_calling, got %s", d.Route)
	}
	if d.Reason != "forced route via configuration" {
		t.Fatalf("unexpected reason %q", d.Reason)
	}
	if !d.AllowFallback {
		t.Fatalf("fallback flag should carry through on forced routes")
	}
}

func TestRouteHeuristicDefaultsToDirect(t *testing.T) {
	r := New(Config{})

	d := r.Route("feeling good after the gym", nil, domain.UserProfile{}, "u1")
	if d.Route != domain.RouteDirect {
		t.Fatalf("expected direct, got %s", d.Route)
	}
}

func TestRouteActionIntent(t *testing.T) {
	r := New(Config{})

	d := r.Route("log my breakfast: eggs and toast", nil, domain.UserProfile{}, "u1")
	if d.Route != domain.RouteToolCalling {
		t.Fatalf("expected tool_calling for action intent, got %s", d.Route)
	}
}

func TestRouteLongInput(t *testing.T) {
	r := New(Config{ToolCallMinChars: 100})

	long := strings.Repeat("word ", 30)
	d := r.Route(long, nil, domain.UserProfile{}, "u1")
	if d.Route != domain.RouteToolCalling {
		t.Fatalf("expected tool_calling for input over the cutoff, got %s", d.Route)
	}
}

func TestRouteRecentFunctionCall(t *testing.T) {
	r := New(Config{})

	history := []domain.Message{
		{Role: domain.RoleUser, Content: "log my lunch"},
		{Role: domain.RoleAssistant, Content: "Logged.", FunctionCall: &domain.FunctionCall{Name: "log_nutrition"}},
	}
	d := r.Route("and a banana too", history, domain.UserProfile{}, "u1")
	if d.Route != domain.RouteToolCalling {
		t.Fatalf("expected tool_calling mid tool workflow, got %s", d.Route)
	}
}

func TestRouteIdempotent(t *testing.T) {
	r := New(Config{AllowFallback: true})
	input := "what should i eat before a run"

	first := r.Route(input, nil, domain.UserProfile{}, "u1")
	for i := 0; i < 10; i++ {
		d := r.Route(input, nil, domain.UserProfile{}, "u1")
		if d.Route != first.Route || d.Reason != first.Reason || d.AllowFallback != first.AllowFallback {
			t.Fatalf("decision changed between calls: %+v vs %+v", first, d)
		}
	}
}

func TestToolCallMinCharsDefault(t *testing.T) {
	r := New(Config{})
	if r.ToolCallMinChars() != 280 {
		t.Fatalf("expected default cutoff 280, got %d", r.ToolCallMinChars())
	}
}
