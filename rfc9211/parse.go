package rfc9211

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Parse reads all Cache-Status field lines of a header into members,
// ordered from the cache closest to the origin to the one closest to the
// client. Members or parameters that cannot be read are skipped.
//
// §  The Cache-Status header field is a List [STRUCTURED-FIELDS] where
// §  each member represents a cache that has handled the request.
func Parse(header http.Header) []CacheStatus {
	var members []CacheStatus
	for _, line := range header.Values(HeaderName) {
		for _, raw := range splitOutsideQuotes(line, ',') {
			if cs, ok := parseMember(raw); ok {
				members = append(members, cs)
			}
		}
	}
	return members
}

// Last returns the member added by the cache closest to the client.
func Last(header http.Header) (CacheStatus, bool) {
	members := Parse(header)
	if len(members) == 0 {
		return CacheStatus{}, false
	}
	return members[len(members)-1], true
}

func parseMember(raw string) (CacheStatus, bool) {
	parts := splitOutsideQuotes(raw, ';')
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return CacheStatus{}, false
	}
	cs := CacheStatus{Cache: unquote(name)}
	for _, p := range parts[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(p), "=")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch key {
		case "hit":
			cs.Hit = boolParam(value)
		case "fwd":
			cs.FwdReason = FwdReason(strings.ToLower(value))
		case "fwd-status":
			if n, err := strconv.Atoi(value); err == nil {
				cs.FwdStatus = n
			}
		case "ttl":
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				ttl := time.Duration(n) * time.Second
				cs.TTL = &ttl
			}
		case "stored":
			cs.Stored = boolParam(value)
		case "collapsed":
			cs.Collapsed = boolParam(value)
		case "key":
			cs.Key = unquote(value)
		case "detail":
			cs.Detail = unquote(value)
		}
	}
	return cs, true
}

// §  Parameters that are Booleans with a true value are serialized
// §  without the "=" and value.
func boolParam(value string) bool {
	return value == "" || value == "?1"
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
		return s[1 : len(s)-1]
	}
	return s
}

func splitOutsideQuotes(s string, sep rune) []string {
	var parts []string
	var cur strings.Builder
	quoted, escaped := false, false
	for _, c := range s {
		switch {
		case escaped:
			escaped = false
		case c == '\\' && quoted:
			escaped = true
		case c == '"':
			quoted = !quoted
		case c == sep && !quoted:
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(c)
	}
	return append(parts, cur.String())
}
