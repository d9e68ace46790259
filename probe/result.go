package probe

import "time"

// Result is what one executed probe observed. It is never modified after
// Execute returns it.
type Result struct {
	Request Request
	// RequestHeaders are the fields sent, client defaults included.
	RequestHeaders Headers
	StatusCode     int
	Proto          string
	Headers        Headers
	// SentAt and ReceivedAt come from the client clock. ReceivedAt is taken
	// when the response headers arrived.
	SentAt     time.Time
	ReceivedAt time.Time
	Latency    time.Duration
	BodyBytes  int64
	// BodyTruncated is set when the body exceeded the configured limit
	// and was not read to the end.
	BodyTruncated bool
}

// Evidential reports whether the status code is one a cache may serve
// and so can tell something about the cache.
func (r Result) Evidential() bool {
	return SupportedStatus(r.StatusCode)
}

// SupportedStatus reports whether status is 200, 203, 206 or 304.
func SupportedStatus(status int) bool {
	switch status {
	case 200, 203, 206, 304:
		return true
	}
	return false
}
