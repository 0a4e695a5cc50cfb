package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, stdout, "Config path: "+env.configPath)
	requireContains(t, stdout, "Configuration valid")
}

func TestConfigValidateFallsBackToDefaults(t *testing.T) {
	env := setupCLITestEnv(t)

	missing := filepath.Join(env.baseDir, "nowhere", "config.toml")
	stdout, _, err := runCLI(t, []string{"config", "validate"}, missing)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, stdout, "Config file did not exist; defaults were used")
	requireContains(t, stdout, "Configuration valid")
}

func TestConfigValidateRejectsBrokenFile(t *testing.T) {
	env := setupCLITestEnv(t)

	broken := filepath.Join(env.baseDir, "broken.toml")
	if err := os.WriteFile(broken, []byte("[scoring]\nstructural_weight = 2.0\n"), 0o644); err != nil {
		t.Fatalf("write broken config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, broken); err == nil {
		t.Fatal("expected validation to fail")
	}
}

func TestConfigPathPrintsResolvedPath(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"config", "path"}, env.configPath)
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if got := strings.TrimSpace(stdout); got != env.configPath {
		t.Fatalf("path = %q, want %q", got, env.configPath)
	}
}

func TestConfigShowRendersEffectiveConfig(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, stdout, "# "+env.configPath)
	requireContains(t, stdout, "[paths]")
	requireContains(t, stdout, env.cfg.Paths.StagingDir)
}

func TestConfigInitWritesSample(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(env.baseDir, "fresh", "config.toml")
	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration to "+target)

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	requireContains(t, string(data), "[paths]")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.configPath); err == nil {
		t.Fatal("expected an error for an existing file")
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, env.configPath); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}
