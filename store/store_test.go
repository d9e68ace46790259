package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/always-cache/date-probe/classify"
	"github.com/always-cache/date-probe/probe"
	"github.com/always-cache/date-probe/report"
)

func session(id, url string, started time.Time) *report.SessionResult {
	return &report.SessionResult{
		ID:         id,
		URL:        url,
		Status:     report.Complete,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Steps: []report.StepRecord{
			{
				Index:          0,
				Label:          "cold",
				Method:         "GET",
				Attempts:       1,
				StatusCode:     200,
				Verdict:        classify.Origin,
				DatePolicy:     classify.Preserved,
				RequestHeaders: []probe.Field{{Name: "User-Agent", Value: "tester"}},
				Headers: []probe.Field{
					{Name: "Age", Value: "0"},
					{Name: "Date", Value: "Wed, 01 May 2024 12:00:00 GMT"},
					{Name: "X-Served-By", Value: "cache-fra1"},
				},
			},
		},
		Summary: report.Summary{Steps: 1, DateOnCacheHit: classify.Ambiguous},
	}
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	defer s.Close()
	ctx := context.Background()
	t0 := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := s.Save(ctx, session(id, "https://example.com/x", t0.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	if err := s.Save(ctx, session("d", "https://example.com/xy", t0)); err != nil {
		t.Fatalf("save d: %v", err)
	}

	all, err := s.List(ctx, "https://example.com/x", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("unexpected list %+v", all)
	}
	if all[0].Steps[0].Label != "cold" || !all[0].StartedAt.Equal(t0.Add(2*time.Hour)) {
		t.Fatalf("result not restored: %+v", all[0])
	}
	restored := all[0].Steps[0]
	if len(restored.Headers) != 3 || restored.Headers[2] != (probe.Field{Name: "X-Served-By", Value: "cache-fra1"}) {
		t.Fatalf("response headers not restored: %+v", restored.Headers)
	}
	if len(restored.RequestHeaders) != 1 || restored.RequestHeaders[0].Value != "tester" {
		t.Fatalf("request headers not restored: %+v", restored.RequestHeaders)
	}

	limited, err := s.List(ctx, "https://example.com/x", 2)
	if err != nil || len(limited) != 2 || limited[1].ID != "b" {
		t.Fatalf("unexpected limited list %+v %v", limited, err)
	}

	none, err := s.List(ctx, "https://example.com/missing", 5)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no results, got %+v %v", none, err)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := Open(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	testStore(t, s)
}

func TestLevelDBStore(t *testing.T) {
	s, err := Open(context.Background(), "leveldb:"+filepath.Join(t.TempDir(), "sessions"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	testStore(t, s)
}

func TestOpenInvalid(t *testing.T) {
	for _, dsn := range []string{"", "sqlite:", "redis:localhost", "nocolon"} {
		if _, err := Open(context.Background(), dsn); err == nil {
			t.Fatalf("expected error for %q", dsn)
		}
	}
}
