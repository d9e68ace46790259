package classify

import "time"

// CacheState is what a cache did to produce a response.
type CacheState string

const (
	Origin      CacheState = "ORIGIN"
	Hit         CacheState = "HIT"
	Miss        CacheState = "MISS"
	Stale       CacheState = "STALE"
	Revalidated CacheState = "REVALIDATED"
	Unknown     CacheState = "UNKNOWN"
)

// DatePolicy says whether the Date header of a response is the one first
// observed for the resource (preserved) or was regenerated near the time
// the response was received (replaced).
type DatePolicy string

const (
	Preserved DatePolicy = "PRESERVED"
	Replaced  DatePolicy = "REPLACED"
	Absent    DatePolicy = "ABSENT"
	Ambiguous DatePolicy = "AMBIGUOUS"
)

// Evidence names the rule that decided the cache state.
type Evidence string

const (
	EvidenceStatus      Evidence = "status"
	EvidenceCacheStatus Evidence = "cache-status"
	EvidenceConditional Evidence = "conditional"
	EvidenceAge         Evidence = "age"
	EvidenceFirst       Evidence = "first"
	EvidenceLatency     Evidence = "latency"
)

type Verdict struct {
	State    CacheState `json:"state"`
	Date     DatePolicy `json:"date"`
	Evidence Evidence   `json:"evidence"`
	// StatusHeader is the cache-status header that decided the state, if any.
	StatusHeader string `json:"status_header,omitempty"`
}

const (
	DefaultTolerance = 2 * time.Second
	DefaultFastRatio = 0.5
)

type Options struct {
	// Tolerance is the clock skew accepted when comparing Date values.
	Tolerance time.Duration
	// FastRatio is the fraction of the first probe's latency under which a
	// response is taken to come from a cache.
	FastRatio float64
}

func DefaultOptions() Options {
	return Options{Tolerance: DefaultTolerance, FastRatio: DefaultFastRatio}
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.FastRatio <= 0 {
		o.FastRatio = DefaultFastRatio
	}
	return o
}
