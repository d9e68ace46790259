package simcache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/always-cache/date-probe/cache"
	"github.com/always-cache/date-probe/clock"
)

type LabConfig struct {
	DateMode DateMode
	// MaxAge of the origin responses, 60s when zero.
	MaxAge time.Duration
	// CacheFile selects a SQLite cache. Empty uses an in-memory LRU.
	CacheFile string
	Clock     clock.Clock
	Logger    *zerolog.Logger
}

// Lab is an origin with an edge in front of it, both listening on loopback.
type Lab struct {
	Origin *Origin
	Edge   *Edge
	// URL is the edge address of a cacheable resource.
	URL string

	cache   cache.Provider
	servers []*http.Server
}

func StartLab(config LabConfig) (*Lab, error) {
	if config.MaxAge == 0 {
		config.MaxAge = time.Minute
	}
	var provider cache.Provider
	var err error
	if config.CacheFile != "" {
		provider, err = cache.NewSQLiteCache(config.CacheFile)
	} else {
		provider, err = cache.NewMemCache(1024)
	}
	if err != nil {
		return nil, err
	}

	l := &Lab{cache: provider}
	l.Origin = NewOrigin(OriginConfig{Clock: config.Clock, MaxAge: config.MaxAge})
	originAddr, err := l.serve(l.Origin)
	if err != nil {
		l.Close()
		return nil, err
	}
	l.Edge, err = NewEdge(EdgeConfig{
		OriginURL:    url.URL{Scheme: "http", Host: originAddr},
		Cache:        provider,
		Clock:        config.Clock,
		DateMode:     config.DateMode,
		VendorHeader: true,
		Logger:       config.Logger,
	})
	if err != nil {
		l.Close()
		return nil, err
	}
	edgeAddr, err := l.serve(l.Edge)
	if err != nil {
		l.Close()
		return nil, err
	}
	l.URL = fmt.Sprintf("http://%s/resource", edgeAddr)
	return l, nil
}

func (l *Lab) serve(h http.Handler) (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	l.servers = append(l.servers, srv)
	go srv.Serve(ln)
	return ln.Addr().String(), nil
}

// Close stops both servers and the cache.
func (l *Lab) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var err error
	for _, srv := range l.servers {
		if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil && !errors.Is(shutdownErr, http.ErrServerClosed) {
			err = multierr.Append(err, shutdownErr)
		}
	}
	return multierr.Append(err, l.cache.Close())
}
