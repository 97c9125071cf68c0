package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"filebutler/internal/config"
	"filebutler/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyBatchOrganized(context.Background(), "/watch", 3, 2); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "watch started",
			send: func(svc notifications.Service) error {
				return svc.NotifyWatchStarted(context.Background(), 2)
			},
			expectTitle:   "Filebutler - Watching",
			expectMessage: "Auto-organize started for 2 folder(s)",
			expectTags:    "filebutler,watch,started",
		},
		{
			name: "watch stopped",
			send: func(svc notifications.Service) error {
				return svc.NotifyWatchStopped(context.Background())
			},
			expectTitle:   "Filebutler - Stopped",
			expectMessage: "Auto-organize stopped",
			expectTags:    "filebutler,watch,stopped",
		},
		{
			name: "batch organized",
			send: func(svc notifications.Service) error {
				return svc.NotifyBatchOrganized(context.Background(), "/home/user/Downloads", 5, 3)
			},
			expectTitle:   "Filebutler - Organized",
			expectMessage: "Organized 5 file(s) into 3 folder(s) in /home/user/Downloads",
			expectTags:    "filebutler,organize,completed",
		},
		{
			name: "index limit",
			send: func(svc notifications.Service) error {
				return svc.NotifyIndexLimitReached(context.Background(), 500)
			},
			expectTitle:    "Filebutler - Index Full",
			expectMessage:  "File index reached its limit of 500 files; new files are not being indexed",
			expectTags:     "filebutler,index,limit",
			expectPriority: "high",
		},
		{
			name: "error",
			send: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("planner unreachable"), "organizing")
			},
			expectTitle:    "Filebutler - Error",
			expectMessage:  "Error with organizing: planner unreachable",
			expectTags:     "filebutler,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.send(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
