package rfc9111

import (
	"net/http"
	"time"
)

// FreshnessLifetime returns the freshness lifetime of a response as seen by
// a shared cache, and false when the response carries no explicit
// expiration time.
//
// §     A cache can calculate the freshness lifetime (denoted as
// §     freshness_lifetime) of a response by evaluating the following rules
// §     and using the first match:
func FreshnessLifetime(header http.Header) (time.Duration, bool) {
	cc := ResponseCacheControl(header)
	// §     *  If the cache is shared and the s-maxage response directive
	// §        (Section 5.2.2.10) is present, use its value, or
	if val, ok := cc.SMaxAge(); ok {
		return val, true
	}
	// §     *  If the max-age response directive (Section 5.2.2.1) is present,
	// §        use its value, or
	if val, ok := cc.MaxAge(); ok {
		return val, true
	}
	// §     *  If the Expires response header field (Section 5.3) is present, use
	// §        its value minus the value of the Date response header field
	if expires, err := HttpDate(header.Get("Expires")); err == nil {
		if date, ok := DateValue(header); ok {
			return durationMax(0, expires.Sub(date)), true
		}
	}
	return 0, false
}

// MustNotStore reports whether a shared cache must not store the response.
// Only the parts that matter for a GET/HEAD edge are implemented.
func MustNotStore(method string, statusCode int, header http.Header) bool {
	if method != http.MethodGet && method != http.MethodHead {
		return true
	}
	if statusCode != http.StatusOK {
		return true
	}
	cc := ResponseCacheControl(header)
	return cc.HasDirective("no-store") || cc.HasDirective("private")
}

// ConditionalHeaders returns the precondition fields for validating a
// stored response.
//
// §     *  MUST send the relevant entity tags (using If-Match, If-None-Match,
// §        or If-Range) if the entity tags were provided in the stored
// §        response(s) being validated.
// §
// §     *  SHOULD send the Last-Modified value (using If-Modified-Since) if
// §        the request is not for a subrange, a single stored response is
// §        being validated, and that response contains a Last-Modified value.
//
// When the stored response has no Last-Modified, its Date is used for
// If-Modified-Since, as HTTP allows for a validator of last resort.
func ConditionalHeaders(stored http.Header) http.Header {
	h := make(http.Header)
	if etag := stored.Get("ETag"); etag != "" {
		h.Set("If-None-Match", etag)
	}
	if lm := stored.Get("Last-Modified"); lm != "" {
		h.Set("If-Modified-Since", lm)
	} else if date := stored.Get("Date"); date != "" {
		h.Set("If-Modified-Since", date)
	}
	return h
}

// NotModified evaluates a conditional request against a stored response.
// It returns true when a 304 can be sent.
func NotModified(request, stored http.Header) bool {
	if inm := request.Get("If-None-Match"); inm != "" {
		etag := stored.Get("ETag")
		if etag == "" {
			return false
		}
		for _, candidate := range GetListHeader(request, "If-None-Match") {
			if candidate == "*" || weakEqual(candidate, etag) {
				return true
			}
		}
		return false
	}
	if ims := request.Get("If-Modified-Since"); ims != "" {
		since, err := HttpDate(ims)
		if err != nil {
			return false
		}
		lastModified, err := HttpDate(stored.Get("Last-Modified"))
		if err != nil {
			date, ok := DateValue(stored)
			if !ok {
				return false
			}
			lastModified = date
		}
		return !lastModified.After(since)
	}
	return false
}

func weakEqual(a, b string) bool {
	trim := func(s string) string {
		if len(s) > 2 && s[:2] == "W/" {
			return s[2:]
		}
		return s
	}
	return trim(a) == trim(b)
}
