package probe

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Request describes one probe. It cannot be changed after NewRequest.
type Request struct {
	url    string
	method string
	header http.Header
	label  string
}

// NewRequest validates and builds a Request. An empty method means GET.
func NewRequest(rawURL, method string, header http.Header, label string) (Request, error) {
	if err := ValidateURL(rawURL); err != nil {
		return Request{}, err
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	if method != http.MethodGet && method != http.MethodHead {
		return Request{}, &ConfigError{Kind: InvalidPlan, Field: "method", Err: fmt.Errorf("method %q is not GET or HEAD", method)}
	}
	h := make(http.Header, len(header))
	for name, values := range header {
		h[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}
	return Request{url: rawURL, method: method, header: h, label: label}, nil
}

// ValidateURL checks that rawURL is an absolute http or https URL with a host.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &ConfigError{Kind: InvalidURL, Field: "url", Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigError{Kind: InvalidURL, Field: "url", Err: fmt.Errorf("unsupported scheme %q in %q", u.Scheme, rawURL)}
	}
	if u.Host == "" {
		return &ConfigError{Kind: InvalidURL, Field: "url", Err: fmt.Errorf("missing host in %q", rawURL)}
	}
	return nil
}

func (r Request) URL() string {
	return r.url
}

func (r Request) Method() string {
	return r.method
}

func (r Request) Label() string {
	return r.label
}

// Header returns a copy of the request header fields.
func (r Request) Header() http.Header {
	return r.header.Clone()
}
