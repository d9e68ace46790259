package rfc9211

import (
	"net/http"
	"testing"
	"time"
)

func TestString(t *testing.T) {
	tests := []struct {
		cs   *CacheStatus
		want string
	}{
		{New("Edge").SetHit().SetTTL(30 * time.Second), "Edge; hit; ttl=30"},
		{New("Edge").Forward(FwdUriMiss).SetStored(true), "Edge; fwd=uri-miss; stored"},
		{New("Edge").Forward(FwdStale).SetFwdStatus(304), "Edge; fwd=stale; fwd-status=304"},
		{New("Edge").Forward(FwdBypass).SetDetail("no store"), `Edge; fwd=bypass; detail="no store"`},
	}
	for _, tt := range tests {
		if got := tt.cs.String(); got != tt.want {
			t.Fatalf("got %q, want %q", got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	h := http.Header{}
	h.Add("Cache-Status", `OriginCache; hit; ttl=1100, "CDN Company Here"; fwd=uri-miss; stored`)
	h.Add("Cache-Status", `ExampleCache; fwd=stale; fwd-status=304; detail="a;b"`)
	members := Parse(h)
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d: %+v", len(members), members)
	}
	if !members[0].Hit || members[0].TTL == nil || *members[0].TTL != 1100*time.Second {
		t.Fatalf("unexpected first member %+v", members[0])
	}
	if members[1].Cache != "CDN Company Here" || members[1].FwdReason != FwdUriMiss || !members[1].Stored {
		t.Fatalf("unexpected second member %+v", members[1])
	}
	last, ok := Last(h)
	if !ok || last.FwdReason != FwdStale || last.FwdStatus != 304 || last.Detail != "a;b" {
		t.Fatalf("unexpected last member %+v", last)
	}
}

func TestParseRoundTrip(t *testing.T) {
	cs := New("Edge").Forward(FwdStale).SetFwdStatus(304).SetTTL(0).SetStored(true)
	h := http.Header{}
	h.Set(HeaderName, cs.String())
	got, ok := Last(h)
	if !ok || got.String() != cs.String() {
		t.Fatalf("round trip: %q vs %q", got.String(), cs.String())
	}
}

func TestParseEmpty(t *testing.T) {
	if _, ok := Last(http.Header{}); ok {
		t.Fatalf("expected no member")
	}
	h := http.Header{}
	h.Set(HeaderName, " , ")
	if members := Parse(h); len(members) != 0 {
		t.Fatalf("expected no members, got %+v", members)
	}
}
