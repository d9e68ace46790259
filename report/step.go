package report

import (
	"context"
	"errors"
	"time"

	"github.com/always-cache/date-probe/classify"
	"github.com/always-cache/date-probe/probe"
	"github.com/always-cache/date-probe/rfc9111"
)

// NewStepRecord builds the slot for a probe that produced a response.
// err is the ProtocolError returned with the response, if any.
func NewStepRecord(index, attempts int, res *probe.Result, v classify.Verdict, err error) StepRecord {
	req := res.Request
	receivedAt := res.ReceivedAt
	rec := StepRecord{
		Index:        index,
		Label:        req.Label(),
		Method:       req.Method(),
		URL:          req.URL(),
		Attempts:     attempts,
		StatusCode:   res.StatusCode,
		Date:         res.Headers.Value("Date"),
		Age:          res.Headers.Value("Age"),
		CacheControl: res.Headers.Value("Cache-Control"),
		LastModified: res.Headers.Value("Last-Modified"),
		ETag:         res.Headers.Value("ETag"),
		ReceivedAt:   &receivedAt,
		LatencyMs:    float64(res.Latency) / float64(time.Millisecond),
		Verdict:      v.State,
		DatePolicy:   v.Date,
		Evidence:     v.Evidence,
		Providers:    classify.IdentifyProviders(res.Headers),
		Result:       res,

		RequestHeaders: res.RequestHeaders.Fields(),
		Headers:        res.Headers.Fields(),
	}
	if v.StatusHeader != "" {
		rec.CacheStatus = res.Headers.Value(v.StatusHeader)
	}
	if date, err := rfc9111.HttpDate(rec.Date); err == nil {
		skew := date.Sub(res.ReceivedAt).Milliseconds()
		rec.DateSkewMs = &skew
	}
	if err != nil {
		rec.Failure = NewFailure(err)
	}
	return rec
}

// NewFailureRecord builds the slot for a step that got no response.
func NewFailureRecord(index, attempts int, req probe.Request, err error) StepRecord {
	return StepRecord{
		Index:      index,
		Label:      req.Label(),
		Method:     req.Method(),
		URL:        req.URL(),
		Attempts:   attempts,
		Verdict:    classify.Unknown,
		DatePolicy: classify.Ambiguous,
		Failure:    NewFailure(err),

		RequestHeaders: probe.NewHeaders(req.Header()).Fields(),
	}
}

func NewFailure(err error) *Failure {
	return &Failure{Kind: FailureKind(err), Message: err.Error()}
}

// FailureKind names the error kind of err for reports.
func FailureKind(err error) string {
	var nerr *probe.NetworkError
	var perr *probe.ProtocolError
	var cerr *probe.ConfigError
	switch {
	case errors.As(err, &nerr):
		return string(nerr.Kind)
	case errors.As(err, &perr):
		return string(perr.Kind)
	case errors.As(err, &cerr):
		return string(cerr.Kind)
	case errors.Is(err, context.Canceled):
		return "Canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "DeadlineExceeded"
	}
	return "Error"
}
