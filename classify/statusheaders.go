package classify

import (
	"net/http"
	"strings"

	"github.com/always-cache/date-probe/probe"
	"github.com/always-cache/date-probe/rfc9211"
)

type statusParser func(value string) (CacheState, bool)

type statusHeader struct {
	name  string
	parse statusParser
}

// statusHeaders lists the cache-status headers consulted, in priority order.
var statusHeaders = []statusHeader{
	{rfc9211.HeaderName, parseCacheStatus},
	{"CF-Cache-Status", parseVendorStatus},
	{"Akamai-Cache-Status", parseVendorStatus},
	{"X-Cache-Status", parseVendorStatus},
	{"X-Nginx-Cache-Status", parseVendorStatus},
	{"X-Proxy-Cache", parseVendorStatus},
	{"X-Httpcache-Status", parseVendorStatus},
	{"X-Varnish-Cache", parseVendorStatus},
	{"X-Drupal-Cache", parseVendorStatus},
	{"X-Rack-Cache", parseVendorStatus},
	{"X-Cache", parseVendorStatus},
	{"X-Cache-Lookup", parseVendorStatus},
}

type vendorToken struct {
	token string
	state CacheState
}

// Tokens are matched in order against the upper-cased value, so longer or
// more specific outcomes come first.
var vendorTokens = []vendorToken{
	{"REVALIDATED", Revalidated},
	{"REFRESH_MISS", Miss},
	{"REFRESH", Revalidated},
	{"STALE", Stale},
	{"UPDATING", Stale},
	{"MISS", Miss},
	{"EXPIRED", Miss},
	{"BYPASS", Miss},
	{"DYNAMIC", Miss},
	{"PASS", Miss},
	{"HIT", Hit},
}

// StatusHeaderNames returns the cache-status headers known to the classifier.
func StatusHeaderNames() []string {
	names := make([]string, len(statusHeaders))
	for i, h := range statusHeaders {
		names[i] = h.name
	}
	return names
}

// FromStatusHeaders returns the state reported by the first known
// cache-status header with a recognised value, and that header's name.
func FromStatusHeaders(headers probe.Headers) (CacheState, string, bool) {
	for _, h := range statusHeaders {
		value, ok := headers.Get(h.name)
		if !ok {
			continue
		}
		if state, ok := h.parse(value); ok {
			return state, h.name, true
		}
	}
	return "", "", false
}

// parseCacheStatus reads the member added by the cache closest to the client.
func parseCacheStatus(value string) (CacheState, bool) {
	h := http.Header{}
	h.Set(rfc9211.HeaderName, value)
	cs, ok := rfc9211.Last(h)
	if !ok {
		return "", false
	}
	switch {
	case cs.Hit:
		return Hit, true
	case cs.FwdReason == rfc9211.FwdStale && cs.FwdStatus == http.StatusNotModified:
		return Revalidated, true
	case cs.FwdReason == rfc9211.FwdStale:
		return Stale, true
	case cs.FwdReason != "":
		return Miss, true
	}
	return "", false
}

// parseVendorStatus reads the last comma separated member of the value,
// since a header passed through several caches is appended to.
func parseVendorStatus(value string) (CacheState, bool) {
	members := strings.Split(value, ",")
	last := strings.ToUpper(strings.TrimSpace(members[len(members)-1]))
	if last == "" {
		return "", false
	}
	for _, t := range vendorTokens {
		if strings.Contains(last, t.token) {
			return t.state, true
		}
	}
	return "", false
}
