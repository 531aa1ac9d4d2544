package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// executeCommand runs the root command with args and returns its stdout.
// Flag variables keep their values between cobra runs, so they are reset
// first.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile = "config.yaml"
	verbose = false
	validateFlags.format = "text"
	providersFlags.format = "text"
	providersFlags.timeout = 10 * time.Second
	attemptsFlags = struct {
		requestID string
		provider  string
		outcome   string
		since     string
		until     string
		limit     int
		offset    int
		format    string
	}{limit: 100, format: "text"}

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimLeft(content, "\n")), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// gatewayYAML points two pooled providers at baseURL.
func gatewayYAML(baseURL, auditBackend string) string {
	return `
server:
  listen_address: "127.0.0.1:0"
providers:
  blackbox:
    base_url: "` + baseURL + `"
  darkai:
    base_url: "` + baseURL + `"
routing:
  primary: [blackbox]
  fallback: [darkai]
audit:
  backend: ` + auditBackend + `
`
}
