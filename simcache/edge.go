// Package simcache is a small shared cache and origin used to observe how
// a cache treats the Date header under controlled conditions. The edge can
// either keep the stored Date or stamp every response with its own clock.
package simcache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/always-cache/date-probe/cache"
	"github.com/always-cache/date-probe/clock"
	"github.com/always-cache/date-probe/rfc9111"
	"github.com/always-cache/date-probe/rfc9211"
)

type DateMode string

const (
	// PreserveDate serves the Date stored with the response.
	PreserveDate DateMode = "preserve"
	// ReplaceDate sets Date to the edge clock on every response.
	ReplaceDate DateMode = "replace"
)

// PurgePath removes the stored responses for the path given in the "path"
// query parameter.
const PurgePath = "/.edge/purge"

type EdgeConfig struct {
	// Name identifies the edge in Cache-Status.
	Name      string
	OriginURL url.URL
	Cache     cache.Provider
	Clock     clock.Clock
	DateMode  DateMode
	// VendorHeader adds an X-Cache header next to Cache-Status.
	VendorHeader bool
	Transport    http.RoundTripper
	Logger       *zerolog.Logger
}

type Edge struct {
	name         string
	originURL    url.URL
	cache        cache.Provider
	clock        clock.Clock
	dateMode     DateMode
	vendorHeader bool
	httpClient   http.Client
	router       chi.Router
	log          zerolog.Logger
}

func NewEdge(config EdgeConfig) (*Edge, error) {
	if config.Cache == nil {
		return nil, fmt.Errorf("edge needs a cache provider")
	}
	if config.OriginURL.Scheme == "" || config.OriginURL.Host == "" {
		return nil, fmt.Errorf("edge needs an absolute origin URL, got %q", config.OriginURL.String())
	}
	switch config.DateMode {
	case "":
		config.DateMode = PreserveDate
	case PreserveDate, ReplaceDate:
	default:
		return nil, fmt.Errorf("unknown date mode %q", config.DateMode)
	}
	e := &Edge{
		name:         config.Name,
		originURL:    config.OriginURL,
		cache:        config.Cache,
		clock:        config.Clock,
		dateMode:     config.DateMode,
		vendorHeader: config.VendorHeader,
		httpClient: http.Client{
			Transport: config.Transport,
			// do not follow redirects
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	if e.name == "" {
		e.name = "Edge"
	}
	if e.clock == nil {
		e.clock = clock.System{}
	}
	if config.Logger != nil {
		e.log = *config.Logger
	} else {
		e.log = log.Logger
	}
	e.log = e.log.With().Str("component", "edge").Str("mode", string(e.dateMode)).Logger()

	r := chi.NewRouter()
	r.Post(PurgePath, e.purge)
	r.HandleFunc("/*", e.handle)
	e.router = r
	return e, nil
}

// ServeHTTP implements the http.Handler interface.
func (e *Edge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.router.ServeHTTP(w, r)
}

func (e *Edge) purge(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "missing path", http.StatusBadRequest)
		return
	}
	req, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		http.Error(w, "bad path", http.StatusBadRequest)
		return
	}
	purged := 0
	err = e.cache.Keys(cache.KeyPrefix(req), func(key string) {
		if err := e.cache.Purge(key); err == nil {
			purged++
		}
	})
	if err != nil {
		e.log.Error().Err(err).Msg("Could not list keys for purge")
		http.Error(w, "purge failed", http.StatusInternalServerError)
		return
	}
	e.log.Debug().Str("path", path).Int("purged", purged).Msg("Purged")
	fmt.Fprintf(w, "purged %d\n", purged)
}

func (e *Edge) handle(w http.ResponseWriter, r *http.Request) {
	log := e.log.With().Str("method", r.Method).Str("uri", r.URL.RequestURI()).Logger()
	status := rfc9211.New(e.name)

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		status.Forward(rfc9211.FwdMethod)
		res, err := e.fetch(r, nil)
		if err != nil {
			e.badGateway(w, log, err)
			return
		}
		e.send(w, r, &res, status, nil)
		return
	}

	prefix := cache.KeyPrefix(r)
	stored, key, err := e.lookup(r, prefix)
	if err != nil {
		log.Warn().Err(err).Msg("Error getting stored response")
	}

	if stored != nil {
		now := e.clock.Now()
		age := rfc9111.CurrentAge(stored.Header, stored.RequestTime, stored.ResponseTime, now)
		lifetime, _ := rfc9111.FreshnessLifetime(stored.Header)
		if age < lifetime {
			status.SetHit().SetTTL(lifetime - age)
			log.Trace().Dur("age", age).Msg("Serving fresh stored response")
			e.send(w, r, stored, status, &age)
			return
		}

		status.Forward(rfc9211.FwdStale)
		res, err := e.fetch(r, rfc9111.ConditionalHeaders(stored.Header))
		if err != nil {
			e.badGateway(w, log, err)
			return
		}
		status.SetFwdStatus(res.StatusCode)
		if res.StatusCode == http.StatusNotModified {
			updated := freshen(*stored, res)
			if err := e.save(key, updated); err != nil {
				log.Error().Err(err).Msg("Could not update stored response")
			} else {
				status.SetStored(true)
			}
			age := rfc9111.CurrentAge(updated.Header, updated.RequestTime, updated.ResponseTime, e.clock.Now())
			log.Trace().Msg("Stored response validated")
			e.send(w, r, &updated, status, &age)
			return
		}
		e.storeAndSend(w, r, prefix, res, status, log)
		return
	}

	status.Forward(rfc9211.FwdUriMiss)
	res, err := e.fetch(r, nil)
	if err != nil {
		e.badGateway(w, log, err)
		return
	}
	e.storeAndSend(w, r, prefix, res, status, log)
}

func (e *Edge) storeAndSend(w http.ResponseWriter, r *http.Request, prefix string, res cache.StoredResponse, status *rfc9211.CacheStatus, log zerolog.Logger) {
	_, fresh := rfc9111.FreshnessLifetime(res.Header)
	if fresh && !rfc9111.MustNotStore(r.Method, res.StatusCode, res.Header) && r.Method == http.MethodGet {
		key := cache.AddVaryKeys(prefix, r, res.Header)
		if err := e.save(key, res); err != nil {
			log.Error().Err(err).Str("key", key).Msg("Could not write to cache")
		} else {
			status.SetStored(true)
		}
	}
	e.send(w, r, &res, status, nil)
}

// lookup returns the stored response whose vary keys match r.
func (e *Edge) lookup(r *http.Request, prefix string) (*cache.StoredResponse, string, error) {
	var keys []string
	if err := e.cache.Keys(prefix, func(key string) { keys = append(keys, key) }); err != nil {
		return nil, "", err
	}
	for _, key := range keys {
		entry, ok, err := e.cache.Get(key)
		if err != nil || !ok {
			continue
		}
		sRes, err := cache.Decode(entry.Bytes)
		if err != nil {
			e.log.Warn().Err(err).Str("key", key).Msg("Dropping undecodable entry")
			e.cache.Purge(key)
			continue
		}
		if cache.AddVaryKeys(prefix, r, sRes.Header) == key {
			return &sRes, key, nil
		}
	}
	return nil, "", nil
}

func (e *Edge) save(key string, sRes cache.StoredResponse) error {
	b, err := cache.Encode(sRes)
	if err != nil {
		return err
	}
	lifetime, _ := rfc9111.FreshnessLifetime(sRes.Header)
	return e.cache.Put(cache.Entry{
		Key:         key,
		Expires:     sRes.ResponseTime.Add(lifetime),
		RequestedAt: sRes.RequestTime,
		ReceivedAt:  sRes.ResponseTime,
		Bytes:       b,
	})
}

// freshen applies the header fields of a 304 to a stored response.
//
// §  the cache MUST use other header fields provided in the 304 (Not
// §  Modified) response to replace all instances of the corresponding
// §  header fields in the stored response.
func freshen(stored cache.StoredResponse, res cache.StoredResponse) cache.StoredResponse {
	updated := stored
	updated.Header = stored.Header.Clone()
	for name, values := range rfc9111.StorableHeader(res.Header) {
		if name == "Content-Length" {
			continue
		}
		updated.Header[name] = values
	}
	updated.RequestTime = res.RequestTime
	updated.ResponseTime = res.ResponseTime
	return updated
}

// fetch the resource specified in the incoming request from the origin
func (e *Edge) fetch(r *http.Request, conditional http.Header) (cache.StoredResponse, error) {
	sRes := cache.StoredResponse{RequestTime: e.clock.Now()}
	uri := e.originURL.String() + r.URL.RequestURI()
	// need to specifically set body to nil on the outgoing request if content is zero length
	// see https://github.com/golang/go/issues/16036
	body := r.Body
	if r.ContentLength == 0 {
		body = nil
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, uri, body)
	if err != nil {
		return sRes, err
	}
	for k, vv := range rfc9111.StorableHeader(r.Header) {
		req.Header[k] = append([]string(nil), vv...)
	}
	if conditional != nil {
		req.Header.Del("If-None-Match")
		req.Header.Del("If-Modified-Since")
		for k, vv := range conditional {
			req.Header[k] = vv
		}
	}

	res, err := e.httpClient.Do(req)
	if err != nil {
		return sRes, err
	}
	defer res.Body.Close()
	sRes.Body, err = io.ReadAll(res.Body)
	if err != nil {
		return sRes, err
	}
	sRes.ResponseTime = e.clock.Now()
	sRes.StatusCode = res.StatusCode
	sRes.Header = rfc9111.StorableHeader(res.Header)
	// as per https://www.rfc-editor.org/rfc/rfc9110#section-6.6.1-8
	if sRes.Header.Get("Date") == "" {
		sRes.Header.Set("Date", rfc9111.ToHttpDate(sRes.ResponseTime))
	}
	return sRes, nil
}

// send writes res to the client. age is set for responses served from the
// cache.
func (e *Edge) send(w http.ResponseWriter, r *http.Request, res *cache.StoredResponse, status *rfc9211.CacheStatus, age *time.Duration) {
	h := w.Header()
	for k, vv := range res.Header {
		h[k] = append([]string(nil), vv...)
	}
	h.Del("Content-Length")
	if age != nil {
		h.Set("Age", rfc9111.ToDeltaSeconds(*age))
	}
	if e.dateMode == ReplaceDate {
		h.Set("Date", rfc9111.ToHttpDate(e.clock.Now()))
	}
	h.Add(rfc9211.HeaderName, status.String())
	if e.vendorHeader {
		h.Set("X-Cache", vendorStatus(status))
	}

	e.log.Debug().
		Str("uri", r.URL.RequestURI()).
		Bool("hit", status.Hit).
		Str("fwd", string(status.FwdReason)).
		Bool("stored", status.Stored).
		Str("date", h.Get("Date")).
		Msg("Sending response to client")

	code := res.StatusCode
	if age != nil && code == http.StatusOK && rfc9111.NotModified(r.Header, res.Header) {
		code = http.StatusNotModified
	}
	if code == http.StatusNotModified || r.Method == http.MethodHead {
		w.WriteHeader(code)
		return
	}
	h.Set("Content-Length", fmt.Sprint(len(res.Body)))
	w.WriteHeader(code)
	io.Copy(w, bytes.NewReader(res.Body))
}

func (e *Edge) badGateway(w http.ResponseWriter, log zerolog.Logger, err error) {
	log.Error().Err(err).Msg("Could not fetch response from origin")
	http.Error(w, "Error contacting origin", http.StatusBadGateway)
}

func vendorStatus(cs *rfc9211.CacheStatus) string {
	switch {
	case cs.Hit:
		return "HIT"
	case cs.FwdReason == rfc9211.FwdStale && cs.FwdStatus == http.StatusNotModified:
		return "REVALIDATED"
	case cs.FwdReason == rfc9211.FwdStale:
		return "EXPIRED"
	case cs.FwdReason == rfc9211.FwdMethod:
		return "BYPASS"
	}
	return "MISS"
}

// ParseDateMode reads a DateMode from its name.
func ParseDateMode(s string) (DateMode, error) {
	switch m := DateMode(strings.ToLower(strings.TrimSpace(s))); m {
	case PreserveDate, ReplaceDate:
		return m, nil
	}
	return "", fmt.Errorf("unknown date mode %q, expected preserve or replace", s)
}
