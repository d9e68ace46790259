package dateprobe

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/always-cache/date-probe/probe"
)

// Step is one request of a session plan.
type Step struct {
	Label string `yaml:"label" json:"label"`
	// Delay is waited before the request is sent.
	Delay   time.Duration     `yaml:"delay" json:"delay"`
	Method  string            `yaml:"method" json:"method"`
	Headers map[string]string `yaml:"headers" json:"headers,omitempty"`
	// Revalidate adds If-Modified-Since and If-None-Match taken from the
	// first usable response of the session.
	Revalidate bool `yaml:"revalidate" json:"revalidate,omitempty"`
	// Bust adds a random query parameter so the request misses the cache.
	Bust bool `yaml:"bust" json:"bust,omitempty"`
}

type Plan []Step

// DefaultPlan fetches cold, repeats at once, repeats after 30s and then
// revalidates the first response.
func DefaultPlan() Plan {
	return Plan{
		{Label: "cold", Method: http.MethodGet},
		{Label: "repeat", Method: http.MethodGet},
		{Label: "delayed", Delay: 30 * time.Second, Method: http.MethodGet},
		{Label: "revalidate", Method: http.MethodGet, Revalidate: true},
	}
}

// Validate checks the plan and fills in default labels and methods.
func (p Plan) Validate() error {
	if len(p) == 0 {
		return planError("plan", fmt.Errorf("plan has no steps"))
	}
	for i := range p {
		s := &p[i]
		field := fmt.Sprintf("plan[%d]", i)
		if s.Label == "" {
			s.Label = fmt.Sprintf("step-%d", i+1)
		}
		s.Method = strings.ToUpper(strings.TrimSpace(s.Method))
		if s.Method == "" {
			s.Method = http.MethodGet
		}
		if s.Method != http.MethodGet && s.Method != http.MethodHead {
			return planError(field+".method", fmt.Errorf("method %q is not GET or HEAD", s.Method))
		}
		if s.Delay < 0 {
			return planError(field+".delay", fmt.Errorf("negative delay %s", s.Delay))
		}
		if s.Revalidate && i == 0 {
			return planError(field+".revalidate", fmt.Errorf("the first step has nothing to revalidate"))
		}
		for name := range s.Headers {
			if strings.TrimSpace(name) == "" {
				return planError(field+".headers", fmt.Errorf("empty header name"))
			}
		}
	}
	return nil
}

// Total returns the sum of all step delays.
func (p Plan) Total() time.Duration {
	var total time.Duration
	for _, s := range p {
		total += s.Delay
	}
	return total
}

func (p Plan) clone() Plan {
	out := make(Plan, len(p))
	for i, s := range p {
		out[i] = s
		if s.Headers != nil {
			out[i].Headers = make(map[string]string, len(s.Headers))
			for k, v := range s.Headers {
				out[i].Headers[k] = v
			}
		}
	}
	return out
}

func planError(field string, err error) error {
	return &probe.ConfigError{Kind: probe.InvalidPlan, Field: field, Err: err}
}
