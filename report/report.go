// Package report holds the serialisable outcome of a probe session.
package report

import (
	"time"

	"github.com/always-cache/date-probe/classify"
	"github.com/always-cache/date-probe/probe"
)

type Status string

const (
	Pending  Status = "PENDING"
	Running  Status = "RUNNING"
	Complete Status = "COMPLETE"
	Aborted  Status = "ABORTED"
)

// Failure explains why a step produced no usable result.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// StepRecord is one slot of a session: either a classified probe result or
// an explicit failure, possibly both for a response that was received but
// cannot serve as evidence.
type StepRecord struct {
	Index        int                 `json:"index"`
	Label        string              `json:"label"`
	Method       string              `json:"method"`
	URL          string              `json:"url"`
	Attempts     int                 `json:"attempts"`
	StatusCode   int                 `json:"status_code,omitempty"`
	Date         string              `json:"date,omitempty"`
	Age          string              `json:"age,omitempty"`
	CacheControl string              `json:"cache_control,omitempty"`
	CacheStatus  string              `json:"cache_status,omitempty"`
	LastModified string              `json:"last_modified,omitempty"`
	ETag         string              `json:"etag,omitempty"`
	ReceivedAt   *time.Time          `json:"received_at,omitempty"`
	LatencyMs    float64             `json:"latency_ms"`
	DateSkewMs   *int64              `json:"date_skew_ms,omitempty"`
	Verdict      classify.CacheState `json:"verdict"`
	DatePolicy   classify.DatePolicy `json:"date_policy"`
	Evidence     classify.Evidence   `json:"evidence,omitempty"`
	Providers    []string            `json:"providers,omitempty"`
	Failure      *Failure            `json:"failure,omitempty"`

	// RequestHeaders and Headers are every field sent and received, so a
	// saved session can be analysed again.
	RequestHeaders []probe.Field `json:"request_headers,omitempty"`
	Headers        []probe.Field `json:"headers,omitempty"`

	// Result is the observed response, nil for network failures.
	Result *probe.Result `json:"-"`
}

type Summary struct {
	Steps        int                         `json:"steps"`
	States       map[classify.CacheState]int `json:"states"`
	DatePolicies map[classify.DatePolicy]int `json:"date_policies"`
	Failures     int                         `json:"failures"`
	Providers    []string                    `json:"providers,omitempty"`
	// DateOnCacheHit is the most frequent DatePolicy of responses served
	// from a cache, AMBIGUOUS on a tie or when there were none.
	DateOnCacheHit classify.DatePolicy `json:"date_on_cache_hit"`
}

type SessionResult struct {
	ID         string       `json:"id"`
	URL        string       `json:"url"`
	Status     Status       `json:"status"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Steps      []StepRecord `json:"steps"`
	Summary    Summary      `json:"summary"`
	Error      string       `json:"error,omitempty"`
}

// Evidence returns the results of the steps that can serve as cache evidence.
func (s *SessionResult) Evidence() []probe.Result {
	var out []probe.Result
	for _, step := range s.Steps {
		if step.Result != nil && step.Result.Evidential() {
			out = append(out, *step.Result)
		}
	}
	return out
}
