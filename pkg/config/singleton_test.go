package config

import (
	"os"
	"slices"
	"testing"
)

func TestReloadConfig_SwapsAndReturnsPrevious(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	path := writeConfig(t, minimalYAML)
	first, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	SetConfig(first)

	updated := minimalYAML + "generation:\n  max_tokens: 42\n"
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	prev, err := ReloadConfig(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if prev != first {
		t.Error("expected ReloadConfig to return the previous configuration")
	}
	if got := GetConfig().Generation.MaxTokens; got != 42 {
		t.Errorf("expected reloaded max tokens 42, got %d", got)
	}
}

func TestReloadConfig_InvalidKeepsCurrent(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	path := writeConfig(t, minimalYAML)
	first, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	SetConfig(first)

	if err := os.WriteFile(path, []byte("routing:\n  primary: []\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	if _, err := ReloadConfig(path); err == nil {
		t.Fatal("expected reload of invalid config to fail")
	}
	if GetConfig() != first {
		t.Error("expected current configuration to be kept after a failed reload")
	}
	if !slices.Equal(GetConfig().Routing.Primary, []string{"blackbox", "darkai"}) {
		t.Errorf("unexpected primary pool %v", GetConfig().Routing.Primary)
	}
}

func TestMustGetConfig_PanicsWhenUnset(t *testing.T) {
	SetConfig(nil)

	defer func() {
		if recover() == nil {
			t.Error("expected MustGetConfig to panic without a configuration")
		}
	}()
	MustGetConfig()
}
