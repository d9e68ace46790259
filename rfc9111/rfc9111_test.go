package rfc9111

import (
	"net/http"
	"testing"
	"time"
)

func TestHttpDateFormats(t *testing.T) {
	want := time.Date(1994, time.November, 6, 8, 49, 37, 0, time.UTC)
	for _, s := range []string{
		"Sun, 06 Nov 1994 08:49:37 GMT",
		"Sunday, 06-Nov-94 08:49:37 GMT",
		"Sun Nov  6 08:49:37 1994",
	} {
		got, err := HttpDate(s)
		if err != nil {
			t.Fatalf("HttpDate(%q): %v", s, err)
		}
		if !got.Equal(want) {
			t.Fatalf("HttpDate(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestHttpDateInvalid(t *testing.T) {
	for _, s := range []string{"", "yesterday", "Sun, 06 Nov 1994 08:49:37 PST", "1994-11-06T08:49:37Z"} {
		if _, err := HttpDate(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestToHttpDateRoundTrip(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 5, 0, time.FixedZone("CET", 3600))
	s := ToHttpDate(now)
	if s != "Fri, 01 Mar 2024 11:00:05 GMT" {
		t.Fatalf("unexpected date %s", s)
	}
	parsed, err := HttpDate(s)
	if err != nil || !parsed.Equal(now) {
		t.Fatalf("round trip failed: %v %v", parsed, err)
	}
}

func TestGetAge(t *testing.T) {
	tests := []struct {
		values []string
		want   time.Duration
		ok     bool
	}{
		{nil, 0, false},
		{[]string{"0"}, 0, true},
		{[]string{"42"}, 42 * time.Second, true},
		{[]string{"42, 7"}, 42 * time.Second, true},
		{[]string{"-1"}, 0, false},
		{[]string{"1.5"}, 0, false},
		{[]string{"abc"}, 0, false},
		{[]string{"99999999999999999999"}, maxDeltaSeconds * time.Second, true},
	}
	for _, tt := range tests {
		h := http.Header{}
		for _, v := range tt.values {
			h.Add("Age", v)
		}
		got, ok := GetAge(h)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("GetAge(%v) = %v, %v; want %v, %v", tt.values, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseCacheControl(t *testing.T) {
	cc := ParseCacheControl([]string{"public,max-age=60", `S-MaxAge="120", no-transform`})
	if v, ok := cc.MaxAge(); !ok || v != time.Minute {
		t.Fatalf("max-age: %v %v", v, ok)
	}
	if v, ok := cc.SMaxAge(); !ok || v != 2*time.Minute {
		t.Fatalf("s-maxage: %v %v", v, ok)
	}
	if !cc.HasDirective("public") || !cc.HasDirective("no-transform") {
		t.Fatalf("missing directives")
	}
	if cc.HasDirective("private") {
		t.Fatalf("unexpected private")
	}
	if _, ok := ParseCacheControl([]string{"max-age"}).MaxAge(); ok {
		t.Fatalf("max-age without argument should not be valid")
	}
}

func TestCurrentAge(t *testing.T) {
	origin := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	h := http.Header{}
	h.Set("Date", ToHttpDate(origin))
	h.Set("Age", "10")
	requested := origin.Add(time.Second)
	received := origin.Add(3 * time.Second)
	now := origin.Add(20 * time.Second)
	// corrected_age_value = 10 + 2, apparent_age = 3, resident = 17
	if got := CurrentAge(h, requested, received, now); got != 29*time.Second {
		t.Fatalf("CurrentAge = %v", got)
	}
}

func TestFreshnessLifetime(t *testing.T) {
	date := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	h := http.Header{}
	h.Set("Date", ToHttpDate(date))
	h.Set("Expires", ToHttpDate(date.Add(time.Hour)))
	if got, ok := FreshnessLifetime(h); !ok || got != time.Hour {
		t.Fatalf("expires lifetime: %v %v", got, ok)
	}
	h.Set("Cache-Control", "max-age=30, s-maxage=90")
	if got, ok := FreshnessLifetime(h); !ok || got != 90*time.Second {
		t.Fatalf("s-maxage lifetime: %v %v", got, ok)
	}
	if _, ok := FreshnessLifetime(http.Header{}); ok {
		t.Fatalf("expected no lifetime")
	}
}

func TestConditional(t *testing.T) {
	lm := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	stored := http.Header{}
	stored.Set("ETag", `"v1"`)
	stored.Set("Last-Modified", ToHttpDate(lm))
	cond := ConditionalHeaders(stored)
	if cond.Get("If-None-Match") != `"v1"` || cond.Get("If-Modified-Since") != ToHttpDate(lm) {
		t.Fatalf("unexpected conditional headers %v", cond)
	}
	if !NotModified(cond, stored) {
		t.Fatalf("expected not modified")
	}
	changed := stored.Clone()
	changed.Set("ETag", `W/"v2"`)
	if NotModified(cond, changed) {
		t.Fatalf("expected modified on etag change")
	}
	ims := http.Header{}
	ims.Set("If-Modified-Since", ToHttpDate(lm.Add(-time.Hour)))
	if NotModified(ims, stored) {
		t.Fatalf("expected modified for older If-Modified-Since")
	}

	noLM := http.Header{}
	noLM.Set("Date", ToHttpDate(lm))
	if got := ConditionalHeaders(noLM).Get("If-Modified-Since"); got != ToHttpDate(lm) {
		t.Fatalf("expected Date fallback, got %q", got)
	}
}

func TestStorableHeader(t *testing.T) {
	h := http.Header{}
	h.Set("Connection", "close, X-Secret")
	h.Set("X-Secret", "1")
	h.Set("Keep-Alive", "timeout=5")
	h.Set("Cache-Control", "max-age=1")
	s := StorableHeader(h)
	if s.Get("X-Secret") != "" || s.Get("Connection") != "" || s.Get("Keep-Alive") != "" {
		t.Fatalf("hop-by-hop fields kept: %v", s)
	}
	if s.Get("Cache-Control") == "" || h.Get("X-Secret") == "" {
		t.Fatalf("unexpected removal")
	}
}
