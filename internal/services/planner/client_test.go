package planner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func completionBody(content string) string {
	return `{"choices":[{"message":{"content":` + jsonString(content) + `}}]}`
}

func jsonString(s string) string {
	out := `"`
	for _, r := range s {
		switch r {
		case '"':
			out += `\"`
		case '\\':
			out += `\\`
		case '\n':
			out += `\n`
		default:
			out += string(r)
		}
	}
	return out + `"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(
		ClientConfig{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"},
		WithRetryBackoff(time.Millisecond, 2*time.Millisecond),
		WithSleeper(func(time.Duration) {}),
	)
}

func TestCompleteJSONReturnsContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}
		w.Write([]byte(completionBody(`{"folders":{"docs":[1]}}`)))
	})

	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if content != `{"folders":{"docs":[1]}}` {
		t.Fatalf("content = %q", content)
	}
}

func TestCompleteJSONRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(completionBody(`{"ok":true}`)))
	})

	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestCompleteJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestCompleteJSONRequiresAPIKey(t *testing.T) {
	client := NewClient(ClientConfig{Model: "m"})
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestHealthCheck(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody(`{"ok":true}`)))
	})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestExtractJSONPayload(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                          `{"a":1}`,
		"```json\n{\"a\":1}\n```":          `{"a":1}`,
		"```\n{\"a\":1}\n```":              `{"a":1}`,
		"Here is the plan: {\"a\":1} done": `{"a":1}`,
		"[1,2]":                            `[1,2]`,
	}
	for input, want := range cases {
		if got := ExtractJSONPayload(input); got != want {
			t.Errorf("ExtractJSONPayload(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseRetryAfterSeconds(t *testing.T) {
	delay, ok := parseRetryAfter("7")
	if !ok || delay != 7*time.Second {
		t.Fatalf("delay = %v ok = %v", delay, ok)
	}
	if _, ok := parseRetryAfter(""); ok {
		t.Fatal("empty header should not parse")
	}
	if _, ok := parseRetryAfter("-3"); ok {
		t.Fatal("negative seconds should not parse")
	}
}
