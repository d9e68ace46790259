package report

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/always-cache/date-probe/classify"
	"github.com/always-cache/date-probe/probe"
	"github.com/always-cache/date-probe/rfc9111"
)

var t0 = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

func testResult(t *testing.T, label string, status int, receivedAt time.Time, fields ...string) *probe.Result {
	t.Helper()
	req, err := probe.NewRequest("https://example.com/a", "GET", nil, label)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	h := http.Header{}
	for i := 0; i+1 < len(fields); i += 2 {
		h.Set(fields[i], fields[i+1])
	}
	return &probe.Result{Request: req, StatusCode: status, Headers: probe.NewHeaders(h), ReceivedAt: receivedAt, Latency: 1500 * time.Microsecond}
}

func TestStepRecordFields(t *testing.T) {
	res := testResult(t, "repeat", 200, t0.Add(3*time.Second),
		"Date", rfc9111.ToHttpDate(t0), "Age", "3", "X-Cache", "HIT", "Server", "cloudflare", "ETag", `"x"`)
	v := classify.Verdict{State: classify.Hit, Date: classify.Preserved, Evidence: classify.EvidenceCacheStatus, StatusHeader: "X-Cache"}
	rec := NewStepRecord(1, 2, res, v, nil)
	if rec.Label != "repeat" || rec.Attempts != 2 || rec.StatusCode != 200 || rec.CacheStatus != "HIT" || rec.ETag != `"x"` {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.DateSkewMs == nil || *rec.DateSkewMs != -3000 {
		t.Fatalf("unexpected skew %v", rec.DateSkewMs)
	}
	if rec.LatencyMs != 1.5 {
		t.Fatalf("unexpected latency %v", rec.LatencyMs)
	}
	if len(rec.Providers) != 1 || rec.Providers[0] != "cloudflare" {
		t.Fatalf("unexpected providers %v", rec.Providers)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	json.Unmarshal(data, &m)
	if m["verdict"] != "HIT" || m["date_policy"] != "PRESERVED" || m["cache_status"] != "HIT" {
		t.Fatalf("unexpected json %s", data)
	}
	if _, ok := m["Result"]; ok {
		t.Fatalf("result must not be serialised: %s", data)
	}
	headers, ok := m["headers"].([]interface{})
	if !ok || len(headers) != 5 {
		t.Fatalf("expected all five response fields, got %s", data)
	}
	if first := headers[0].(map[string]interface{}); first["name"] != "Age" || first["value"] != "3" {
		t.Fatalf("unexpected first field %v", first)
	}
}

func TestFailureRecord(t *testing.T) {
	req, _ := probe.NewRequest("https://example.com/a", "GET", nil, "delayed")
	err := &probe.NetworkError{Kind: probe.Timeout, URL: req.URL(), Err: errors.New("deadline")}
	rec := NewFailureRecord(2, 3, req, err)
	if rec.Failure == nil || rec.Failure.Kind != "Timeout" || rec.Verdict != classify.Unknown || rec.Result != nil {
		t.Fatalf("unexpected failure record %+v", rec)
	}
}

func TestBuilderFreezes(t *testing.T) {
	b := NewBuilder("id-1", "https://example.com/a")
	if b.Status() != Pending {
		t.Fatalf("expected PENDING, got %s", b.Status())
	}
	if err := b.Start(t0); err != nil || b.Status() != Running {
		t.Fatalf("start: %v %s", err, b.Status())
	}
	res := testResult(t, "cold", 200, t0, "Date", rfc9111.ToHttpDate(t0))
	if err := b.Append(NewStepRecord(0, 1, res, classify.Verdict{State: classify.Origin, Date: classify.Preserved}, nil)); err != nil {
		t.Fatalf("append: %v", err)
	}
	result := b.Complete(t0.Add(time.Minute))
	if result.Status != Complete || len(result.Steps) != 1 || !result.FinishedAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("unexpected result %+v", result)
	}
	if err := b.Append(StepRecord{}); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}
	if again := b.Abort(t0.Add(time.Hour), errors.New("late")); again.Status != Complete || again.Error != "" {
		t.Fatalf("frozen result changed: %+v", again)
	}
	if len(result.Evidence()) != 1 {
		t.Fatalf("expected one evidential result")
	}
}

func TestSummarize(t *testing.T) {
	steps := []StepRecord{
		{Verdict: classify.Origin, DatePolicy: classify.Preserved, Providers: []string{"varnish"}},
		{Verdict: classify.Hit, DatePolicy: classify.Preserved, Providers: []string{"varnish", "fastly"}},
		{Verdict: classify.Stale, DatePolicy: classify.Preserved},
		{Verdict: classify.Hit, DatePolicy: classify.Replaced},
		{Verdict: classify.Unknown, DatePolicy: classify.Ambiguous, Failure: &Failure{Kind: "Timeout"}},
	}
	s := Summarize(steps)
	if s.Steps != 5 || s.Failures != 1 || s.States[classify.Hit] != 2 || s.DatePolicies[classify.Preserved] != 3 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.DateOnCacheHit != classify.Preserved {
		t.Fatalf("expected PRESERVED, got %s", s.DateOnCacheHit)
	}
	if len(s.Providers) != 2 || s.Providers[0] != "fastly" {
		t.Fatalf("unexpected providers %v", s.Providers)
	}

	tie := Summarize(append([]StepRecord{steps[1]}, steps[3]))
	if tie.DateOnCacheHit != classify.Ambiguous {
		t.Fatalf("expected AMBIGUOUS on tie, got %s", tie.DateOnCacheHit)
	}
	if none := Summarize(steps[:1]); none.DateOnCacheHit != classify.Ambiguous {
		t.Fatalf("expected AMBIGUOUS without cache hits, got %s", none.DateOnCacheHit)
	}
}
