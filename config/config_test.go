package config

import "testing"

func TestLoadForcedRouteValidation(t *testing.T) {
	t.Setenv("ROUTER_FORCED_ROUTE", "tool_calling")
	if cfg := Load(); cfg.ForcedRoute != "tool_calling" {
		t.Fatalf("valid forced route should be kept, got %q", cfg.ForcedRoute)
	}

	t.Setenv("ROUTER_FORCED_ROUTE", "direct")
	if cfg := Load(); cfg.ForcedRoute != "direct" {
		t.Fatalf("valid forced route should be kept, got %q", cfg.ForcedRoute)
	}

	// Routes without an execution path, and typos, fall back to heuristic
	// routing instead of silently running as direct.
	for _, bad := range []string{"hybrid", "tool-calling", "DIRECT"} {
		t.Setenv("ROUTER_FORCED_ROUTE", bad)
		if cfg := Load(); cfg.ForcedRoute != "" {
			t.Fatalf("forced route %q should be cleared, got %q", bad, cfg.ForcedRoute)
		}
	}
}
