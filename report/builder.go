package report

import (
	"errors"
	"sort"
	"time"

	"github.com/always-cache/date-probe/classify"
)

var ErrFrozen = errors.New("session result is frozen")

// Builder accumulates the steps of one session. Once Finish is called the
// result is frozen and further appends fail.
type Builder struct {
	result SessionResult
	frozen bool
}

func NewBuilder(id, url string) *Builder {
	return &Builder{result: SessionResult{ID: id, URL: url, Status: Pending, Steps: []StepRecord{}}}
}

// Start moves the session to RUNNING.
func (b *Builder) Start(at time.Time) error {
	if b.frozen {
		return ErrFrozen
	}
	b.result.Status = Running
	b.result.StartedAt = at
	return nil
}

func (b *Builder) Append(rec StepRecord) error {
	if b.frozen {
		return ErrFrozen
	}
	b.result.Steps = append(b.result.Steps, rec)
	return nil
}

// Steps returns the steps appended so far.
func (b *Builder) Steps() []StepRecord {
	return append([]StepRecord(nil), b.result.Steps...)
}

func (b *Builder) Status() Status {
	return b.result.Status
}

// Complete freezes the result with status COMPLETE.
func (b *Builder) Complete(at time.Time) *SessionResult {
	return b.finish(at, Complete, nil)
}

// Abort freezes the result with status ABORTED, keeping collected steps.
func (b *Builder) Abort(at time.Time, cause error) *SessionResult {
	return b.finish(at, Aborted, cause)
}

func (b *Builder) finish(at time.Time, status Status, cause error) *SessionResult {
	if !b.frozen {
		b.frozen = true
		b.result.Status = status
		b.result.FinishedAt = at
		if cause != nil {
			b.result.Error = cause.Error()
		}
		b.result.Summary = Summarize(b.result.Steps)
	}
	out := b.result
	out.Steps = append([]StepRecord{}, b.result.Steps...)
	return &out
}

// Summarize counts the outcomes of steps.
func Summarize(steps []StepRecord) Summary {
	s := Summary{
		Steps:        len(steps),
		States:       map[classify.CacheState]int{},
		DatePolicies: map[classify.DatePolicy]int{},
	}
	providers := map[string]bool{}
	cached := map[classify.DatePolicy]int{}
	for _, step := range steps {
		s.States[step.Verdict]++
		s.DatePolicies[step.DatePolicy]++
		if step.Failure != nil {
			s.Failures++
		}
		for _, p := range step.Providers {
			providers[p] = true
		}
		if step.Verdict == classify.Hit || step.Verdict == classify.Stale {
			cached[step.DatePolicy]++
		}
	}
	for p := range providers {
		s.Providers = append(s.Providers, p)
	}
	sort.Strings(s.Providers)
	s.DateOnCacheHit = mostFrequent(cached)
	return s
}

func mostFrequent(counts map[classify.DatePolicy]int) classify.DatePolicy {
	best, bestCount, tie := classify.Ambiguous, 0, false
	for policy, n := range counts {
		switch {
		case n > bestCount:
			best, bestCount, tie = policy, n, false
		case n == bestCount:
			tie = true
		}
	}
	if bestCount == 0 || tie {
		return classify.Ambiguous
	}
	return best
}
