package planner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"filebutler/internal/config"
	"filebutler/internal/logging"
	"filebutler/internal/services"
)

func newTestService(t *testing.T, handler http.HandlerFunc) Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := config.Default()
	cfg.Planner.APIKey = "test-key"
	cfg.Planner.BaseURL = server.URL
	return NewService(&cfg, logging.NewNop(), WithSleeper(func(d time.Duration) {}))
}

func sampleFiles() []FileInfo {
	return []FileInfo{
		{ID: 1, Name: "a.pdf", Ext: ".pdf", Label: "a", Tags: []string{"docs"}},
		{ID: 2, Name: "b.jpg", Ext: ".jpg", Label: "b", Tags: []string{"photos"}},
	}
}

func TestRequestPlanDecodesOrderedPlan(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("```json\n{\"folders\":{\"zeta\":[2],\"alpha\":[1]}}\n```")))
	})

	plan, err := svc.RequestPlan(context.Background(), Request{Files: sampleFiles(), FolderName: "watch"})
	if err != nil {
		t.Fatalf("request plan: %v", err)
	}
	if plan == nil {
		t.Fatal("expected a plan")
	}
	if !reflect.DeepEqual(plan.Order, []string{"zeta", "alpha"}) {
		t.Fatalf("order = %v", plan.Order)
	}
}

func TestRequestPlanEmptyBatch(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty batch")
	})
	plan, err := svc.RequestPlan(context.Background(), Request{})
	if plan != nil || err != nil {
		t.Fatalf("plan = %v err = %v", plan, err)
	}
}

func TestRequestPlanMissingAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.Planner.APIKey = ""
	svc := NewService(&cfg, logging.NewNop())

	_, err := svc.RequestPlan(context.Background(), Request{Files: sampleFiles()})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRequestPlanUndecodablePayloadIsNoPlan(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("I cannot help with that.")))
	})
	plan, err := svc.RequestPlan(context.Background(), Request{Files: sampleFiles(), FolderName: "watch"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan != nil {
		t.Fatalf("plan = %v, want nil", plan)
	}
}

func TestComposeInstructionRestrictedMode(t *testing.T) {
	got := ComposeInstruction("tidy up", "Downloads", []string{"Photos", "Docs"})
	if !strings.Contains(got, "EXISTING FOLDERS ONLY") {
		t.Fatal("missing restricted marker")
	}
	if !strings.Contains(got, "'Photos', 'Docs'") {
		t.Fatalf("missing folder list: %s", got)
	}
	if !strings.Contains(got, "tidy up") {
		t.Fatal("missing user instruction")
	}
}

func TestComposeInstructionWithUserInstruction(t *testing.T) {
	got := ComposeInstruction("screenshots to captures", "Downloads", nil)
	if !strings.Contains(got, "[AUTO-ORGANIZE]") {
		t.Fatal("missing auto-organize marker")
	}
	if !strings.Contains(got, "screenshots to captures") {
		t.Fatal("missing user instruction")
	}
	if !strings.Contains(got, "'downloads'") {
		t.Fatalf("parent folder name should be forbidden: %s", got)
	}
}

func TestComposeInstructionDefault(t *testing.T) {
	got := ComposeInstruction("", "Inbox", nil)
	if !strings.Contains(got, "logical folders") {
		t.Fatalf("unexpected default instruction: %s", got)
	}
	if !strings.Contains(got, "'inbox'") {
		t.Fatalf("parent folder name should be forbidden: %s", got)
	}
}

func TestBuildFileSummaryFormat(t *testing.T) {
	summary := buildFileSummary(sampleFiles())
	lines := strings.Split(summary, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id:1 | a.pdf | ext:.pdf") {
		t.Fatalf("line = %q", lines[0])
	}
}

func TestBuildFileSummaryTruncatesOnRuneBoundaries(t *testing.T) {
	long := strings.Repeat("ü", 60)
	files := []FileInfo{{ID: 1, Name: long + ".txt", Ext: ".txt", Caption: long + long}}

	summary := buildFileSummary(files)
	if !utf8.ValidString(summary) {
		t.Fatalf("summary contains invalid UTF-8: %q", summary)
	}
	if got := truncateRunes(long, 50); len([]rune(got)) != 50 {
		t.Fatalf("truncated to %d runes, want 50", len([]rune(got)))
	}
	if got := truncateRunes("short", 50); got != "short" {
		t.Fatalf("short string changed: %q", got)
	}
}

func TestBuildFileSummaryCapsFileCount(t *testing.T) {
	files := make([]FileInfo, maxSummaryFiles+5)
	for i := range files {
		files[i] = FileInfo{ID: int64(i + 1), Name: "f.txt", Ext: ".txt"}
	}
	summary := buildFileSummary(files)
	lines := strings.Split(summary, "\n")
	if len(lines) != maxSummaryFiles+1 {
		t.Fatalf("lines = %d", len(lines))
	}
	if !strings.Contains(lines[len(lines)-1], "5 more files") {
		t.Fatalf("tail = %q", lines[len(lines)-1])
	}
}
