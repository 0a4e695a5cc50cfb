package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"curator/internal/config"
)

type capturedPush struct {
	title    string
	tags     string
	priority string
	body     string
}

func captureServer(t *testing.T, sink *[]capturedPush) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		*sink = append(*sink, capturedPush{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func ntfyConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	cfg.Notifications.RequestTimeout = 5
	return &cfg
}

func TestNewNotifierReturnsNoopWithoutTopic(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	notifier := NewNotifier(&cfg)
	if err := notifier.NotifyBatchCompleted(context.Background(), "b-1", 4); err != nil {
		t.Fatalf("noop notifier returned %v", err)
	}
}

func TestNtfyFormatsPushes(t *testing.T) {
	tests := []struct {
		name           string
		send           func(Notifier) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "batch completed",
			send: func(n Notifier) error {
				return n.NotifyBatchCompleted(context.Background(), "1f6b2a88-0000-0000-0000-000000000000", 12)
			},
			expectTitle:   "Curator - Batch Complete",
			expectMessage: "✅ Batch 1f6b2a88 complete: 12 operations applied",
			expectTags:    "curator,batch,completed",
		},
		{
			name: "batch failed",
			send: func(n Notifier) error {
				return n.NotifyBatchFailed(context.Background(), "1f6b2a88-0000-0000-0000-000000000000", 3, 2)
			},
			expectTitle:    "Curator - Batch Failed",
			expectMessage:  "❌ Batch 1f6b2a88 failed: 3 applied, 2 failed",
			expectTags:     "curator,batch,failed",
			expectPriority: "high",
		},
		{
			name: "review backlog",
			send: func(n Notifier) error {
				return n.NotifyReviewBacklog(context.Background(), 7)
			},
			expectTitle:   "Curator - Review Needed",
			expectMessage: "📋 7 suggestions waiting for manual review",
			expectTags:    "curator,review,pending",
		},
		{
			name: "single review entry",
			send: func(n Notifier) error {
				return n.NotifyReviewBacklog(context.Background(), 1)
			},
			expectTitle:   "Curator - Review Needed",
			expectMessage: "📋 1 suggestion waiting for manual review",
			expectTags:    "curator,review,pending",
		},
		{
			name: "error",
			send: func(n Notifier) error {
				return n.NotifyError(context.Background(), errors.New("journal write failed"), "maintenance")
			},
			expectTitle:    "Curator - Error",
			expectMessage:  "❌ Error with maintenance: journal write failed",
			expectTags:     "curator,error,alert",
			expectPriority: "high",
		},
		{
			name: "test push",
			send: func(n Notifier) error {
				return n.TestNotification(context.Background())
			},
			expectTitle:    "Curator - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "curator,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var pushes []capturedPush
			server := captureServer(t, &pushes)
			notifier := NewNotifier(ntfyConfig(server.URL))

			if err := tc.send(notifier); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if len(pushes) != 1 {
				t.Fatalf("pushes = %d, want 1", len(pushes))
			}
			got := pushes[0]
			if got.title != tc.expectTitle {
				t.Fatalf("title = %q, want %q", got.title, tc.expectTitle)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("message = %q, want %q", got.body, tc.expectMessage)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("tags = %q, want %q", got.tags, tc.expectTags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("priority = %q, want %q", got.priority, tc.expectPriority)
			}
		})
	}
}

func TestNtfyReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	notifier := NewNotifier(ntfyConfig(server.URL))
	err := notifier.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error from 429 response")
	}
}

func TestShortID(t *testing.T) {
	cases := map[string]string{
		"1f6b2a88-9c1d-4be2-a111-222233334444": "1f6b2a88",
		"abcdefghij":                           "abcdefgh",
		"short":                                "short",
	}
	for in, want := range cases {
		if got := shortID(in); got != want {
			t.Errorf("shortID(%q) = %q, want %q", in, got, want)
		}
	}
}
