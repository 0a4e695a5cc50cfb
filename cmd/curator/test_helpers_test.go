package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"curator/internal/config"
	"curator/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(homeDir, ".config", "curator", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nstaging_dir = %q\nlog_dir = %q\ndata_dir = %q\ninbox_dir = %q\n",
		cfg.Paths.StagingDir,
		cfg.Paths.LogDir,
		cfg.Paths.DataDir,
		cfg.Paths.InboxDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

type batchSuggestion struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type batchEntry struct {
	FileID       string            `json:"file_id"`
	OriginalPath string            `json:"original_path"`
	TargetPath   string            `json:"target_path,omitempty"`
	FileType     string            `json:"file_type"`
	Size         int64             `json:"size"`
	Operation    string            `json:"operation"`
	Suggestions  []batchSuggestion `json:"suggestions"`
}

func renameEntry(fileID, src, dst string, suggestions ...batchSuggestion) batchEntry {
	return batchEntry{
		FileID:       fileID,
		OriginalPath: src,
		TargetPath:   dst,
		FileType:     "document",
		Size:         4096,
		Operation:    "rename",
		Suggestions:  suggestions,
	}
}

func writeBatchFile(t *testing.T, path, batchID string, entries ...batchEntry) {
	t.Helper()
	payload := struct {
		BatchID string       `json:"batch_id"`
		Files   []batchEntry `json:"files"`
	}{BatchID: batchID, Files: entries}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		t.Fatalf("marshal batch: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir batch dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write batch file: %v", err)
	}
}
