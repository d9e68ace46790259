// Package probe executes single HTTP requests against a target and records
// what came back, with timestamps from a Clock.
package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"

	"github.com/always-cache/date-probe/clock"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 8 << 20
	DefaultUserAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

type ClientConfig struct {
	// Timeout bounds one request including the body. Zero means DefaultTimeout.
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
	// Header is sent with every request, under the request's own fields.
	Header   http.Header
	HTTP2    bool
	Insecure bool
	Clock    clock.Clock
	Logger   *zerolog.Logger
	// Transport replaces the transport built from the options above.
	Transport http.RoundTripper
}

// Client runs probes over one transport. It is safe for concurrent use,
// but sessions are expected to own one each.
type Client struct {
	httpClient   http.Client
	transport    http.RoundTripper
	timeout      time.Duration
	maxBodyBytes int64
	header       http.Header
	clock        clock.Clock
	log          zerolog.Logger
}

func NewClient(config ClientConfig) (*Client, error) {
	c := &Client{
		timeout:      config.Timeout,
		maxBodyBytes: config.MaxBodyBytes,
		header:       make(http.Header),
		clock:        config.Clock,
		transport:    config.Transport,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxBodyBytes <= 0 {
		c.maxBodyBytes = DefaultMaxBodyBytes
	}
	if c.clock == nil {
		c.clock = clock.System{}
	}
	if config.Logger != nil {
		c.log = *config.Logger
	} else {
		c.log = log.Logger
	}
	c.log = c.log.With().Str("component", "probe").Logger()

	c.header.Set("User-Agent", DefaultUserAgent)
	c.header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	c.header.Set("Accept-Language", "en-US,en;q=0.5")
	if config.UserAgent != "" {
		c.header.Set("User-Agent", config.UserAgent)
	}
	for name, values := range config.Header {
		c.header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}

	if c.transport == nil {
		t := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: c.timeout, KeepAlive: 30 * time.Second}).DialContext,
			TLSHandshakeTimeout: c.timeout,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: config.Insecure},
		}
		if config.HTTP2 {
			if err := http2.ConfigureTransport(t); err != nil {
				return nil, fmt.Errorf("could not enable HTTP/2: %w", err)
			}
		}
		c.transport = t
	}

	c.httpClient = http.Client{
		Transport: c.transport,
		// do not follow redirects
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return c, nil
}

// Execute performs exactly one round trip for req. A response with a
// status outside 200, 203, 206 and 304 is returned together with a
// ProtocolError. Cancellation of ctx is returned as ctx.Err().
func (c *Client) Execute(ctx context.Context, req Request) (*Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, req.Method(), req.URL(), nil)
	if err != nil {
		return nil, &ConfigError{Kind: InvalidURL, Field: "url", Err: err}
	}
	for name, values := range c.header {
		httpReq.Header[name] = append([]string(nil), values...)
	}
	for name, values := range req.header {
		httpReq.Header[name] = append([]string(nil), values...)
	}

	log := c.log.With().Str("label", req.Label()).Str("method", req.Method()).Str("url", req.URL()).Logger()
	log.Trace().Interface("headers", httpReq.Header).Msg("Sending probe")

	sentAt := c.clock.Now()
	res, err := c.httpClient.Do(httpReq)
	receivedAt := c.clock.Now()
	if err != nil {
		return nil, c.mapError(ctx, req.URL(), err)
	}
	defer res.Body.Close()

	result := &Result{
		Request:        req,
		RequestHeaders: NewHeaders(httpReq.Header),
		StatusCode:     res.StatusCode,
		Proto:          res.Proto,
		Headers:        NewHeaders(res.Header),
		SentAt:         sentAt,
		ReceivedAt:     receivedAt,
		Latency:        receivedAt.Sub(sentAt),
	}

	if req.Method() != http.MethodHead {
		// one byte past the limit tells a body of exactly the limit from a longer one
		n, err := io.Copy(io.Discard, io.LimitReader(res.Body, c.maxBodyBytes+1))
		result.BodyBytes = n
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, &NetworkError{Kind: Timeout, URL: req.URL(), Err: err}
			}
			return result, &ProtocolError{Kind: MalformedResponse, StatusCode: res.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
		}
		if n > c.maxBodyBytes {
			result.BodyBytes = c.maxBodyBytes
			result.BodyTruncated = true
		}
	}

	log.Debug().Int("status", result.StatusCode).Dur("latency", result.Latency).Str("date", result.Headers.Value("Date")).Str("age", result.Headers.Value("Age")).Msg("Probe done")

	if !SupportedStatus(res.StatusCode) {
		return result, &ProtocolError{Kind: UnsupportedStatus, StatusCode: res.StatusCode}
	}
	return result, nil
}

func (c *Client) mapError(ctx context.Context, rawURL string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if strings.Contains(err.Error(), "malformed HTTP") {
		return &ProtocolError{Kind: MalformedResponse, Err: err}
	}
	return classifyNetworkError(rawURL, err)
}

// Close releases idle connections held by the client's transport.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
