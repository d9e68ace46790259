package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
)

type NetworkKind string

const (
	DNSFailure        NetworkKind = "DNSFailure"
	ConnectionRefused NetworkKind = "ConnectionRefused"
	ConnectionReset   NetworkKind = "ConnectionReset"
	Timeout           NetworkKind = "Timeout"
	TLSError          NetworkKind = "TLSError"
	Transport         NetworkKind = "Transport"
)

// NetworkError is a failure to obtain any response from the target.
type NetworkError struct {
	Kind NetworkKind
	URL  string
	// Temporary is set for DNS failures the resolver reports as temporary.
	Temporary bool
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Transient reports whether repeating the request may succeed.
func (e *NetworkError) Transient() bool {
	switch e.Kind {
	case Timeout, ConnectionReset, ConnectionRefused:
		return true
	case DNSFailure:
		return e.Temporary
	}
	return false
}

type ProtocolKind string

const (
	MalformedResponse ProtocolKind = "MalformedResponse"
	UnsupportedStatus ProtocolKind = "UnsupportedStatus"
)

// ProtocolError is a response that was received but cannot serve as
// evidence about the cache.
type ProtocolError struct {
	Kind       ProtocolKind
	StatusCode int
	Err        error
}

func (e *ProtocolError) Error() string {
	if e.Kind == UnsupportedStatus {
		return fmt.Sprintf("%s: status %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

type ConfigKind string

const (
	InvalidURL    ConfigKind = "InvalidURL"
	InvalidPlan   ConfigKind = "InvalidPlan"
	InvalidConfig ConfigKind = "InvalidConfig"
)

// ConfigError is raised before any request is made.
type ConfigError struct {
	Kind ConfigKind
	// Field locates the offending value, e.g. "plan[2].method".
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// classifyNetworkError maps a transport error to a NetworkError kind.
func classifyNetworkError(rawURL string, err error) *NetworkError {
	ne := &NetworkError{Kind: Transport, URL: rawURL, Err: err}

	var dnsErr *net.DNSError
	var certErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	var netErr net.Error

	switch {
	case errors.As(err, &dnsErr):
		ne.Kind = DNSFailure
		ne.Temporary = dnsErr.IsTemporary || dnsErr.IsTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		ne.Kind = ConnectionRefused
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		ne.Kind = ConnectionReset
	case errors.As(err, &certErr), errors.As(err, &recordErr), errors.As(err, &unknownAuth),
		errors.As(err, &hostErr), errors.As(err, &invalidErr):
		ne.Kind = TLSError
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		ne.Kind = Timeout
	case errors.As(err, &netErr) && netErr.Timeout():
		ne.Kind = Timeout
	case strings.Contains(err.Error(), "tls: "):
		ne.Kind = TLSError
	}
	return ne
}
