package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mwidera/plenum/internal/config"
	"github.com/mwidera/plenum/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunCompleted(context.Background(), 3, 0, time.Minute); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "run started",
			notify: func(svc notifications.Service) error {
				return svc.NotifyRunStarted(context.Background(), 4)
			},
			expectTitle:   "Plenum - Run Started",
			expectMessage: "Started processing 4 sessions",
			expectTags:    "plenum,run,started",
		},
		{
			name: "run completed clean",
			notify: func(svc notifications.Service) error {
				return svc.NotifyRunCompleted(context.Background(), 4, 0, 90*time.Second)
			},
			expectTitle:   "Plenum - Run Complete",
			expectMessage: "Run complete: 4 sessions transcribed in 1m30s",
			expectTags:    "plenum,run,completed",
		},
		{
			name: "run completed with failures",
			notify: func(svc notifications.Service) error {
				return svc.NotifyRunCompleted(context.Background(), 3, 1, time.Minute)
			},
			expectTitle:   "Plenum - Run Complete (with errors)",
			expectMessage: "Run complete: 3 transcribed, 1 failed in 1m0s",
			expectTags:    "plenum,run,completed",
		},
		{
			name: "session completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifySessionCompleted(context.Background(), "Sesja Rady", "/t/sesja_1.md")
			},
			expectTitle:   "Plenum - Transcript Ready",
			expectMessage: "Transcript ready: Sesja Rady\nFile: /t/sesja_1.md",
			expectTags:    "plenum,session,completed",
		},
		{
			name: "error",
			notify: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("download failed"), "fetch")
			},
			expectTitle:    "Plenum - Error",
			expectMessage:  "Error with fetch: download failed",
			expectTags:     "plenum,error,alert",
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
			if err := tc.notify(svc); err != nil {
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

func TestNtfyServiceSurfacesHTTPFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	svc := notifications.NewNtfyService(server.URL, server.Client())
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx ntfy response")
	}
}
