package cache

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

func testProvider(t *testing.T, p Provider) {
	t.Helper()
	defer p.Close()
	now := time.Date(2024, time.May, 1, 12, 0, 0, 123, time.UTC)

	if _, ok, err := p.Get("missing"); ok || err != nil {
		t.Fatalf("expected miss, got %v %v", ok, err)
	}
	e := Entry{Key: "GET:/a\t", Expires: now.Add(time.Minute), RequestedAt: now, ReceivedAt: now.Add(time.Millisecond), Bytes: []byte("x")}
	if err := p.Put(e); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := p.Put(Entry{Key: "GET:/b\t", Bytes: []byte("y")}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := p.Get(e.Key)
	if !ok || err != nil || string(got.Bytes) != "x" || !got.Expires.Equal(e.Expires) || !got.ReceivedAt.Equal(e.ReceivedAt) {
		t.Fatalf("unexpected entry %+v %v %v", got, ok, err)
	}

	var keys []string
	if err := p.Keys("GET:/a", func(k string) { keys = append(keys, k) }); err != nil || len(keys) != 1 {
		t.Fatalf("unexpected keys %v %v", keys, err)
	}

	if err := p.Purge(e.Key); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, ok, _ := p.Get(e.Key); ok {
		t.Fatalf("entry still present after purge")
	}
}

func TestSQLiteCache(t *testing.T) {
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteCache: %v", err)
	}
	testProvider(t, c)
}

func TestSQLiteCacheMemory(t *testing.T) {
	c, err := NewSQLiteCache("")
	if err != nil {
		t.Fatalf("NewSQLiteCache: %v", err)
	}
	testProvider(t, c)
}

func TestMemCache(t *testing.T) {
	c, err := NewMemCache(16)
	if err != nil {
		t.Fatalf("NewMemCache: %v", err)
	}
	testProvider(t, c)
}

func TestMemCacheEvicts(t *testing.T) {
	c, _ := NewMemCache(2)
	for _, k := range []string{"a", "b", "c"} {
		c.Put(Entry{Key: k})
	}
	if _, ok, _ := c.Get("a"); ok {
		t.Fatalf("expected a to be evicted")
	}
}

func TestStoredResponseRoundTrip(t *testing.T) {
	reqTime := time.Date(2024, time.May, 1, 12, 0, 0, 5, time.UTC)
	resTime := reqTime.Add(time.Second)
	h := http.Header{}
	h.Set("Date", "Wed, 01 May 2024 12:00:00 GMT")
	h.Set("Test", "-ing")
	b, err := Encode(StoredResponse{StatusCode: 200, Header: h, Body: []byte("This is the body"), RequestTime: reqTime, ResponseTime: resTime})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	sRes, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if sRes.StatusCode != 200 || string(sRes.Body) != "This is the body" || sRes.Header.Get("Test") != "-ing" {
		t.Fatalf("unexpected response %+v", sRes)
	}
	if !sRes.RequestTime.Equal(reqTime) || !sRes.ResponseTime.Equal(resTime) {
		t.Fatalf("times not restored: %v %v", sRes.RequestTime, sRes.ResponseTime)
	}
	if sRes.Header.Get(responseTimeHeaderName) != "" || h.Get(responseTimeHeaderName) != "" {
		t.Fatalf("time headers leaked")
	}
}

func TestKeys(t *testing.T) {
	get := httptest.NewRequest("GET", "http://example.com/a?b=1", nil)
	head := httptest.NewRequest("HEAD", "http://example.com/a?b=1", nil)
	if KeyPrefix(get) != KeyPrefix(head) || KeyPrefix(get) != "GET:/a?b=1\t" {
		t.Fatalf("unexpected prefixes %q %q", KeyPrefix(get), KeyPrefix(head))
	}
	get.Header.Set("Accept-Encoding", "gzip")
	res := http.Header{}
	res.Set("Vary", "Accept-Encoding")
	if key := AddVaryKeys(KeyPrefix(get), get, res); key != "GET:/a?b=1\t\naccept-encoding: gzip" {
		t.Fatalf("unexpected key %q", key)
	}
}
