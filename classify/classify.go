// Package classify labels probe results with the cache state that produced
// them and with what the cache did to the Date header.
//
// Classification is a pure function of the results passed in: it reads no
// clock and keeps no state, so the same input always gives the same Verdict.
package classify

import (
	"time"

	"github.com/always-cache/date-probe/probe"
	"github.com/always-cache/date-probe/rfc9111"
)

// Classify labels current given the results previously observed for the
// same resource, oldest first. Results in history whose status cannot carry
// cache evidence are ignored.
func Classify(history []probe.Result, current probe.Result, opts Options) Verdict {
	opts = opts.withDefaults()

	if !current.Evidential() {
		return Verdict{State: Unknown, Date: Ambiguous, Evidence: EvidenceStatus}
	}

	evidence := make([]probe.Result, 0, len(history))
	for _, r := range history {
		if r.Evidential() {
			evidence = append(evidence, r)
		}
	}

	v := cacheState(evidence, current, opts)
	v.Date = datePolicy(evidence, current, opts)
	return v
}

func cacheState(evidence []probe.Result, current probe.Result, opts Options) Verdict {
	if state, header, ok := FromStatusHeaders(current.Headers); ok {
		return Verdict{State: state, Evidence: EvidenceCacheStatus, StatusHeader: header}
	}

	if current.StatusCode == 304 {
		return Verdict{State: Revalidated, Evidence: EvidenceConditional}
	}

	age, ageOK := rfc9111.GetAge(current.Headers.HTTP())
	if ageOK && age > 0 {
		return Verdict{State: Hit, Evidence: EvidenceAge}
	}
	if len(evidence) == 0 {
		return Verdict{State: Origin, Evidence: EvidenceFirst}
	}

	baseline := evidence[0].Latency
	if float64(current.Latency) < opts.FastRatio*float64(baseline) {
		return Verdict{State: Hit, Evidence: EvidenceLatency}
	}
	return Verdict{State: Miss, Evidence: EvidenceLatency}
}

func datePolicy(evidence []probe.Result, current probe.Result, opts Options) DatePolicy {
	raw, ok := current.Headers.Get("Date")
	if !ok {
		return Absent
	}
	date, err := rfc9111.HttpDate(raw)
	if err != nil {
		return Ambiguous
	}

	if len(evidence) == 0 {
		// the current result is its own baseline
		return Preserved
	}
	d0, found := firstDate(evidence)
	if !found {
		return Ambiguous
	}

	t := opts.Tolerance
	skew := abs(date.Sub(current.ReceivedAt))
	drift := abs(date.Sub(d0))
	switch {
	case skew <= t && drift > t:
		return Replaced
	case drift <= t && current.ReceivedAt.Sub(d0) > t:
		return Preserved
	}
	return Ambiguous
}

// firstDate returns the Date of the earliest result with a valid one.
func firstDate(evidence []probe.Result) (time.Time, bool) {
	for _, r := range evidence {
		if raw, ok := r.Headers.Get("Date"); ok {
			if d, err := rfc9111.HttpDate(raw); err == nil {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
