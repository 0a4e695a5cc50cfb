package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"curator/internal/clock"
	"curator/internal/config"
	"curator/internal/events"
	"curator/internal/logging"
	"curator/internal/testsupport"
)

func newDaemon(t *testing.T) (*Daemon, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	journal := testsupport.MustOpenStore(t, cfg)
	d, err := New(cfg, journal, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, cfg
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDaemonStartStop(t *testing.T) {
	d, cfg := newDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	st := d.Status()
	if !st.Running {
		t.Fatal("expected running daemon")
	}
	if st.JournalPath != cfg.DatabasePath() {
		t.Fatalf("journal path = %q, want %q", st.JournalPath, cfg.DatabasePath())
	}
	if _, err := os.Stat(st.LockFilePath); err != nil {
		t.Fatalf("lock file: %v", err)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected stopped daemon")
	}
	d.Stop()
}

func TestDaemonSingleInstance(t *testing.T) {
	first, cfg := newDaemon(t)
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(first.Stop)

	second, err := New(cfg, testsupport.MustOpenStore(t, cfg), logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected lock contention while first instance runs")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("Start after lock release: %v", err)
	}
	second.Stop()
}

func TestDaemonRequiresDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	journal := testsupport.MustOpenStore(t, cfg)

	if _, err := New(nil, journal, logging.NewNop()); err == nil {
		t.Fatal("expected error without config")
	}
	if _, err := New(cfg, nil, logging.NewNop()); err == nil {
		t.Fatal("expected error without journal")
	}
	if _, err := New(cfg, journal, nil); err == nil {
		t.Fatal("expected error without logger")
	}
}

func TestDaemonHealth(t *testing.T) {
	d, cfg := newDaemon(t)
	ctx := context.Background()

	byName := func(checks []Health) map[string]Health {
		m := make(map[string]Health, len(checks))
		for _, h := range checks {
			m[h.Name] = h
		}
		return m
	}

	checks := byName(d.Health(ctx))
	for _, name := range []string{"journal", "staging", "data", "inbox", "scheduler", "review"} {
		h, ok := checks[name]
		if !ok {
			t.Fatalf("missing %s check", name)
		}
		if !h.Ready {
			t.Fatalf("%s not ready: %s", name, h.Detail)
		}
	}
	// Free space depends on the host; only its presence is asserted.
	if _, ok := checks["disk"]; !ok {
		t.Fatal("missing disk check")
	}

	if err := os.Remove(cfg.DatabasePath()); err != nil {
		t.Fatalf("remove journal db: %v", err)
	}
	if err := os.RemoveAll(cfg.Paths.InboxDir); err != nil {
		t.Fatalf("remove inbox: %v", err)
	}
	if err := os.WriteFile(cfg.Paths.InboxDir, []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("write inbox file: %v", err)
	}

	checks = byName(d.Health(ctx))
	if checks["journal"].Ready {
		t.Fatal("expected journal check to fail after db removal")
	}
	if checks["inbox"].Ready {
		t.Fatal("expected inbox check to fail when path is a file")
	}
	if !checks["staging"].Ready {
		t.Fatalf("staging should stay ready: %s", checks["staging"].Detail)
	}
}

func TestDaemonMaintenanceRuns(t *testing.T) {
	d, cfg := newDaemon(t)
	fake := clock.NewFake()
	d.clk = fake

	stale := func(name string) string {
		dir := filepath.Join(cfg.RetainedBackupRoot(), name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
		old := time.Now().AddDate(0, 0, -(cfg.Executor.BackupRetentionDays + 7))
		if err := os.Chtimes(dir, old, old); err != nil {
			t.Fatalf("chtimes %s: %v", dir, err)
		}
		return dir
	}

	first := stale("tx-old")
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	waitUntil(t, 2*time.Second, func() bool {
		_, err := os.Stat(first)
		return os.IsNotExist(err)
	})

	second := stale("tx-older")
	fake.BlockUntilTickers(1)
	fake.Advance(maintenanceInterval)
	waitUntil(t, 2*time.Second, func() bool {
		_, err := os.Stat(second)
		return os.IsNotExist(err)
	})
}

func TestDaemonIngestsInboxOnStart(t *testing.T) {
	d, cfg := newDaemon(t)

	batch := `{
  "batch_id": "inbox-1",
  "files": [
    {
      "file_id": "f-1",
      "original_path": "/data/inbox/scan0001.pdf",
      "target_path": "/data/documents/meeting-notes.pdf",
      "file_type": "document",
      "size": 2048,
      "operation": "rename",
      "suggestions": [
        {"value": "meeting-notes.pdf", "confidence": 60, "reasoning": "contains meeting notes headings"}
      ]
    }
  ]
}`
	path := filepath.Join(cfg.Paths.InboxDir, "batch.json")
	if err := os.WriteFile(path, []byte(batch), 0o644); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	waitUntil(t, 3*time.Second, func() bool {
		st := d.Status()
		return st.InboxIngested == 1 && st.Pipeline.ReviewPending == 1
	})

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected batch file to leave the inbox")
	}
	entries, err := os.ReadDir(filepath.Join(cfg.Paths.InboxDir, "processed"))
	if err != nil {
		t.Fatalf("read processed dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("processed entries = %d, want 1", len(entries))
	}
}

func TestEventAttrs(t *testing.T) {
	cases := []struct {
		name    string
		event   events.Event
		want    []string
		exclude []string
	}{
		{
			name: "batch",
			event: events.Event{Type: events.TypeBatchCompleted, Payload: events.BatchPayload{
				BatchID: "b-1", BatchType: "interactive", Total: 3, Completed: 3,
			}},
			want: []string{logging.FieldEventType, logging.FieldBatchID, "batch_type", "total", "completed", "failed"},
		},
		{
			name: "operation without target",
			event: events.Event{Type: events.TypeOperationCompleted, Payload: events.OperationPayload{
				OperationID: "op-1", BatchID: "b-1", Operation: "delete", SourcePath: "/data/old.pdf",
			}},
			want:    []string{logging.FieldOperationID, logging.FieldBatchID, "operation", "source"},
			exclude: []string{"target", "error"},
		},
		{
			name: "rollback",
			event: events.Event{Type: events.TypeTransactionRolledBack, Payload: events.RollbackPayload{
				TransactionID: "tx-1", Applied: 2, RolledBack: 2,
			}},
			want: []string{logging.FieldEventType, logging.FieldTransactionID, "applied", "rolled_back", "errors"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keys := make(map[string]bool)
			for _, attr := range eventAttrs(tc.event) {
				keys[attr.Key] = true
			}
			for _, want := range tc.want {
				if !keys[want] {
					t.Fatalf("missing attr %q in %v", want, keys)
				}
			}
			for _, not := range tc.exclude {
				if keys[not] {
					t.Fatalf("unexpected attr %q", not)
				}
			}
		})
	}
}
