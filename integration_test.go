package dateprobe

import (
	"context"
	"testing"
	"time"

	"github.com/always-cache/date-probe/classify"
	"github.com/always-cache/date-probe/clock"
	"github.com/always-cache/date-probe/report"
	"github.com/always-cache/date-probe/simcache"
)

func runAgainstLab(t *testing.T, mode simcache.DateMode) *report.SessionResult {
	t.Helper()
	clk := clock.NewFake(t0)
	lab, err := simcache.StartLab(simcache.LabConfig{DateMode: mode, Clock: clk, MaxAge: time.Minute})
	if err != nil {
		t.Fatalf("StartLab: %v", err)
	}
	defer lab.Close()

	plan := Plan{
		{Label: "cold"},
		{Label: "hit", Delay: 20 * time.Second},
		{Label: "hit-again", Delay: 20 * time.Second},
		{Label: "revalidate", Revalidate: true},
	}
	res, err := testProber(clk).Run(context.Background(), lab.URL, plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != report.Complete || len(res.Steps) != 4 {
		t.Fatalf("unexpected session %+v", res)
	}
	if lab.Origin.Hits() != 1 {
		t.Fatalf("expected the edge to absorb repeats, origin saw %d requests", lab.Origin.Hits())
	}
	return res
}

func states(res *report.SessionResult) []classify.CacheState {
	out := make([]classify.CacheState, len(res.Steps))
	for i, s := range res.Steps {
		out[i] = s.Verdict
	}
	return out
}

func TestLabPreservingEdge(t *testing.T) {
	res := runAgainstLab(t, simcache.PreserveDate)
	want := []classify.CacheState{classify.Miss, classify.Hit, classify.Hit, classify.Hit}
	for i, s := range states(res) {
		if s != want[i] {
			t.Fatalf("step %d: got %s, want %s", i, s, want[i])
		}
	}
	if res.Steps[1].DatePolicy != classify.Preserved || res.Steps[1].Age != "20" {
		t.Fatalf("unexpected hit step %+v", res.Steps[1])
	}
	if res.Steps[3].StatusCode != 304 {
		t.Fatalf("expected 304 on revalidation, got %d", res.Steps[3].StatusCode)
	}
	if res.Summary.DateOnCacheHit != classify.Preserved {
		t.Fatalf("expected PRESERVED, got %s", res.Summary.DateOnCacheHit)
	}
}

func TestLabReplacingEdge(t *testing.T) {
	res := runAgainstLab(t, simcache.ReplaceDate)
	if res.Steps[1].DatePolicy != classify.Replaced || res.Steps[2].DatePolicy != classify.Replaced {
		t.Fatalf("expected REPLACED on hits, got %s %s", res.Steps[1].DatePolicy, res.Steps[2].DatePolicy)
	}
	if res.Summary.DateOnCacheHit != classify.Replaced {
		t.Fatalf("expected REPLACED, got %s", res.Summary.DateOnCacheHit)
	}
	if skew := res.Steps[2].DateSkewMs; skew == nil || *skew != 0 {
		t.Fatalf("expected zero skew, got %v", skew)
	}
}
