package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"mercator-hq/relay/internal/providertest"
	"mercator-hq/relay/pkg/cli"
)

func TestProvidersCheck_Healthy(t *testing.T) {
	up := providertest.NewUpstream()
	defer up.Close()
	up.On("/models", providertest.Reply{Body: map[string]any{"data": []any{}}})

	path := writeConfig(t, gatewayYAML(up.URL(), "memory"))
	out, err := executeCommand(t, "providers", "check", "--config", path)
	if err != nil {
		t.Fatalf("providers check failed: %v", err)
	}
	if strings.Count(out, "healthy") != 2 || strings.Contains(out, "unhealthy") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if up.Count() != 2 {
		t.Errorf("upstream saw %d probes, want 2", up.Count())
	}
}

func TestProvidersCheck_Unhealthy(t *testing.T) {
	up := providertest.NewUpstream()
	defer up.Close()
	up.On("/models", providertest.ErrorReply(http.StatusInternalServerError, "down"))

	path := writeConfig(t, gatewayYAML(up.URL(), "memory"))
	out, err := executeCommand(t, "providers", "check", "--config", path, "--format", "json")
	if err == nil {
		t.Fatal("expected error for unhealthy providers")
	}
	if cli.ExitCode(err) != cli.ExitFailure {
		t.Errorf("ExitCode = %d, want %d", cli.ExitCode(err), cli.ExitFailure)
	}

	var results []checkResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Healthy || r.Error == "" {
			t.Errorf("result %+v should be unhealthy with an error", r)
		}
	}
}

func TestCheckTable(t *testing.T) {
	table := checkTable{
		{Provider: "a", Type: "openai", Healthy: true},
		{Provider: "b", Type: "anthropic", Error: "boom"},
	}
	if table.unhealthy() != 1 {
		t.Errorf("unhealthy() = %d, want 1", table.unhealthy())
	}
	rows := table.Rows()
	if rows[0][2] != "healthy" || rows[1][2] != "unhealthy" || rows[1][4] != "boom" {
		t.Errorf("rows = %v", rows)
	}
}
