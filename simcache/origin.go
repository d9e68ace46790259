package simcache

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/always-cache/date-probe/clock"
	"github.com/always-cache/date-probe/rfc9111"
)

type OriginConfig struct {
	Clock clock.Clock
	// MaxAge is sent in Cache-Control. Zero sends no-store.
	MaxAge time.Duration
	// LastModified defaults to the clock value when the origin is created.
	LastModified time.Time
	OmitDate     bool
}

// Origin is a minimal origin server whose Date header follows a clock.
//
//	GET /status/{code}  responds with the given status
//	GET /*              responds 200, or 304 to a matching conditional request
type Origin struct {
	config OriginConfig
	router chi.Router
	hits   atomic.Int64
}

func NewOrigin(config OriginConfig) *Origin {
	if config.Clock == nil {
		config.Clock = clock.System{}
	}
	if config.LastModified.IsZero() {
		config.LastModified = config.Clock.Now()
	}
	o := &Origin{config: config}
	r := chi.NewRouter()
	r.Get("/status/{code}", o.status)
	r.Head("/status/{code}", o.status)
	r.Get("/*", o.resource)
	r.Head("/*", o.resource)
	o.router = r
	return o
}

func (o *Origin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.hits.Add(1)
	o.router.ServeHTTP(w, r)
}

// Hits returns the number of requests the origin has served.
func (o *Origin) Hits() int64 {
	return o.hits.Load()
}

func (o *Origin) setCommon(h http.Header) {
	if !o.config.OmitDate {
		h.Set("Date", rfc9111.ToHttpDate(o.config.Clock.Now()))
	}
}

func (o *Origin) status(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil || code < 200 || code > 599 {
		http.Error(w, "bad status", http.StatusBadRequest)
		return
	}
	o.setCommon(w.Header())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
}

func (o *Origin) resource(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	o.setCommon(h)
	if o.config.MaxAge > 0 {
		h.Set("Cache-Control", "public, max-age="+rfc9111.ToDeltaSeconds(o.config.MaxAge))
	} else {
		h.Set("Cache-Control", "no-store")
	}
	h.Set("Last-Modified", rfc9111.ToHttpDate(o.config.LastModified))
	sum := sha256.Sum256([]byte(r.URL.Path))
	h.Set("ETag", fmt.Sprintf(`"%x"`, sum[:8]))
	h.Set("Content-Type", "text/plain; charset=utf-8")

	if rfc9111.NotModified(r.Header, h) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	body := "resource " + r.URL.Path + "\n"
	h.Set("Content-Length", strconv.Itoa(len(body)))
	if r.Method == http.MethodHead {
		return
	}
	w.Write([]byte(body))
}
