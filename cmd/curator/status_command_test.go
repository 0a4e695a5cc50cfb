package main

import (
	"encoding/json"
	"testing"
)

func TestStatusEmptyJournal(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, stderr, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v (stderr: %s)", err, stderr)
	}
	requireContains(t, stdout, "== System Status ==")
	requireContains(t, stdout, "Not running")
	requireContains(t, stdout, env.configPath)
	requireContains(t, stdout, "Journal is empty")
	requireContains(t, stdout, "No transactions recorded")
}

func TestStatusAfterTransaction(t *testing.T) {
	env := setupCLITestEnv(t)
	processFixtureBatch(t, env)

	stdout, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, stdout, "transactions completed")
	requireContains(t, stdout, "Use `curator show <transaction-id>` for operation detail.")
}

func TestStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"--json", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var report struct {
		DaemonRunning bool   `json:"daemon_running"`
		ConfigPath    string `json:"config_path"`
		ConfigExists  bool   `json:"config_exists"`
		JournalPath   string `json:"journal_path"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("decode status: %v\n%s", err, stdout)
	}
	if report.DaemonRunning {
		t.Fatal("no daemon is running in tests")
	}
	if !report.ConfigExists || report.ConfigPath != env.configPath {
		t.Fatalf("config = %q exists=%v", report.ConfigPath, report.ConfigExists)
	}
	if report.JournalPath == "" {
		t.Fatal("journal path missing from report")
	}
}

func TestHealthChecksPass(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, stderr, err := runCLI(t, []string{"health"}, env.configPath)
	if err != nil {
		t.Fatalf("health: %v (stderr: %s, stdout: %s)", err, stderr, stdout)
	}
	requireContains(t, stdout, "== Health Checks ==")
	requireContains(t, stdout, "journal")
	requireContains(t, stdout, "[OK]")
}

func TestHealthJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"--json", "health"}, env.configPath)
	if err != nil {
		t.Fatalf("health --json: %v", err)
	}
	var rows []struct {
		Name  string `json:"name"`
		Ready bool   `json:"ready"`
	}
	if err := json.Unmarshal([]byte(stdout), &rows); err != nil {
		t.Fatalf("decode health: %v\n%s", err, stdout)
	}
	if len(rows) == 0 {
		t.Fatal("no health checks reported")
	}
	for _, row := range rows {
		if !row.Ready {
			t.Fatalf("check %s not ready", row.Name)
		}
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, stdout, "Notifications are not configured")
}
