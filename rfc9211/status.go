// Package rfc9211 models the Cache-Status HTTP response header field
// (RFC 9211): building one entry for a cache, and parsing the list a
// response carries after passing through several caches.
package rfc9211

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const HeaderName = "Cache-Status"

type FwdReason string

const (
	// The cache was configured to not handle this request.
	FwdBypass FwdReason = "bypass"

	// The request method's semantics require the request to be
	// forwarded.
	FwdMethod FwdReason = "method"

	// The cache did not contain any responses that matched the
	// request URI.
	FwdUriMiss FwdReason = "uri-miss"

	// The cache contained a response that matched the request
	// URI, but it could not select a response based upon this request's
	// header fields and stored Vary header fields.
	FwdVaryMiss FwdReason = "vary-miss"

	// The cache did not contain any responses that could be used to
	// satisfy this request.
	FwdMiss FwdReason = "miss"

	// The cache was able to select a fresh response for the
	// request, but the request's semantics did not allow its use.
	FwdRequest FwdReason = "request"

	// The cache was able to select a response for the request, but
	// it was stale.
	FwdStale FwdReason = "stale"

	// The cache was able to select a partial response for the
	// request, but it did not contain all of the requested ranges.
	FwdPartial FwdReason = "partial"
)

// CacheStatus is one member of the Cache-Status list, describing what a
// single cache did with the request.
type CacheStatus struct {
	Cache     string
	Hit       bool
	FwdReason FwdReason
	// FwdStatus is the status code the cache received from the next hop, 0 if unset.
	FwdStatus int
	TTL       *time.Duration
	Stored    bool
	Collapsed bool
	Key       string
	Detail    string
}

// New returns a CacheStatus for the named cache.
func New(cache string) *CacheStatus {
	return &CacheStatus{Cache: cache}
}

func (cs *CacheStatus) SetHit() *CacheStatus {
	cs.Hit = true
	cs.FwdReason = ""
	return cs
}

func (cs *CacheStatus) Forward(reason FwdReason) *CacheStatus {
	cs.Hit = false
	cs.FwdReason = reason
	return cs
}

func (cs *CacheStatus) SetFwdStatus(status int) *CacheStatus {
	cs.FwdStatus = status
	return cs
}

func (cs *CacheStatus) SetTTL(ttl time.Duration) *CacheStatus {
	cs.TTL = &ttl
	return cs
}

func (cs *CacheStatus) SetStored(stored bool) *CacheStatus {
	cs.Stored = stored
	return cs
}

func (cs *CacheStatus) SetDetail(detail string) *CacheStatus {
	cs.Detail = detail
	return cs
}

// String renders the member in structured-field syntax, e.g.
// `Edge; fwd=stale; fwd-status=304; stored`.
func (cs *CacheStatus) String() string {
	var b strings.Builder
	b.WriteString(cs.Cache)
	if cs.Hit {
		b.WriteString("; hit")
	} else if cs.FwdReason != "" {
		fmt.Fprintf(&b, "; fwd=%s", cs.FwdReason)
	}
	if cs.FwdStatus != 0 {
		fmt.Fprintf(&b, "; fwd-status=%d", cs.FwdStatus)
	}
	if cs.TTL != nil {
		fmt.Fprintf(&b, "; ttl=%d", int64(*cs.TTL/time.Second))
	}
	if cs.Stored {
		b.WriteString("; stored")
	}
	if cs.Collapsed {
		b.WriteString("; collapsed")
	}
	if cs.Key != "" {
		fmt.Fprintf(&b, "; key=%s", strconv.Quote(cs.Key))
	}
	if cs.Detail != "" {
		fmt.Fprintf(&b, "; detail=%s", detailValue(cs.Detail))
	}
	return b.String()
}

func detailValue(detail string) string {
	for _, c := range detail {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || strings.ContainsRune("-._*/:", c)) {
			return strconv.Quote(detail)
		}
	}
	return detail
}
