// Package dateprobe finds out whether the caches in front of a URL keep the
// origin's Date header on cached responses or replace it.
//
// A Prober runs a Plan of timed requests against one URL, classifies every
// response and collects the results into a report.SessionResult. A Runner
// runs sessions for many URLs concurrently.
package dateprobe

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/always-cache/date-probe/classify"
	"github.com/always-cache/date-probe/clock"
	"github.com/always-cache/date-probe/probe"
	"github.com/always-cache/date-probe/report"
	"github.com/always-cache/date-probe/rfc9111"
)

type ProberConfig struct {
	Client   probe.ClientConfig
	Classify classify.Options
	// Retries is how often a transiently failing step is repeated.
	Retries int
	// Backoff is multiplied by the attempt number before each retry.
	Backoff time.Duration
	Clock   clock.Clock
	Logger  *zerolog.Logger
}

type Prober struct {
	config ProberConfig
	clock  clock.Clock
	log    zerolog.Logger
}

func NewProber(config ProberConfig) *Prober {
	p := &Prober{config: config, clock: config.Clock}
	if p.clock == nil {
		p.clock = clock.System{}
	}
	if p.config.Client.Clock == nil {
		p.config.Client.Clock = p.clock
	}
	if config.Logger != nil {
		p.log = *config.Logger
	} else {
		p.log = log.Logger
	}
	if p.config.Client.Logger == nil {
		p.config.Client.Logger = &p.log
	}
	if p.config.Retries < 0 {
		p.config.Retries = 0
	}
	return p
}

// Run executes plan against url and returns the session result. An error
// is only returned for an invalid url or plan, before anything is sent.
// Cancelling ctx ends the session early with an ABORTED result.
func (p *Prober) Run(ctx context.Context, url string, plan Plan) (*report.SessionResult, error) {
	if err := probe.ValidateURL(url); err != nil {
		return nil, err
	}
	plan = plan.clone()
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	client, err := probe.NewClient(p.config.Client)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	id := uuid.NewString()
	log := p.log.With().Str("session", id).Str("url", url).Logger()
	b := report.NewBuilder(id, url)
	b.Start(p.clock.Now())
	log.Info().Int("steps", len(plan)).Dur("duration", plan.Total()).Msg("Starting session")

	var history []probe.Result
	for i, step := range plan {
		log := log.With().Int("step", i).Str("label", step.Label).Logger()

		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Msg("Session cancelled")
			return b.Abort(p.clock.Now(), err), nil
		}
		if step.Delay > 0 {
			log.Debug().Dur("delay", step.Delay).Msg("Waiting before step")
			if err := p.clock.Sleep(ctx, step.Delay); err != nil {
				log.Warn().Err(err).Msg("Session cancelled")
				return b.Abort(p.clock.Now(), err), nil
			}
		}

		req, err := p.request(url, step, history)
		if err != nil {
			return b.Abort(p.clock.Now(), err), nil
		}

		res, attempts, err := p.execute(ctx, client, req, log)
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			log.Warn().Err(err).Msg("Session cancelled")
			return b.Abort(p.clock.Now(), err), nil
		}

		var nerr *probe.NetworkError
		switch {
		case res != nil:
			// a ProtocolError comes with the response it is about
			v := classify.Classify(history, *res, p.config.Classify)
			b.Append(report.NewStepRecord(i, attempts, res, v, err))
			history = append(history, *res)
			log.Info().Int("status", res.StatusCode).Str("state", string(v.State)).Str("date", string(v.Date)).Str("evidence", string(v.Evidence)).Msg("Step classified")
		case errors.As(err, &nerr) && nerr.Transient():
			if i == 0 {
				log.Error().Err(err).Int("attempts", attempts).Msg("First step failed, no baseline")
				return b.Abort(p.clock.Now(), err), nil
			}
			log.Warn().Err(err).Int("attempts", attempts).Msg("Step failed")
			b.Append(report.NewFailureRecord(i, attempts, req, err))
		case errors.As(err, &nerr):
			log.Error().Err(err).Msg("Aborting session")
			return b.Abort(p.clock.Now(), err), nil
		default:
			// malformed response without usable headers
			log.Warn().Err(err).Msg("Step failed")
			b.Append(report.NewFailureRecord(i, attempts, req, err))
		}
	}

	result := b.Complete(p.clock.Now())
	log.Info().Str("dateOnCacheHit", string(result.Summary.DateOnCacheHit)).Msg("Session complete")
	return result, nil
}

// request builds the probe for step. Revalidation uses the validators of
// the first usable response in history.
func (p *Prober) request(url string, step Step, history []probe.Result) (probe.Request, error) {
	target := url
	if step.Bust {
		busted, err := probe.Bust(url)
		if err != nil {
			return probe.Request{}, err
		}
		target = busted
	}
	header := make(http.Header, len(step.Headers)+2)
	for name, value := range step.Headers {
		header.Set(name, value)
	}
	if step.Revalidate {
		for _, r := range history {
			if r.Evidential() {
				for name, values := range rfc9111.ConditionalHeaders(r.Headers.HTTP()) {
					header[name] = values
				}
				break
			}
		}
	}
	return probe.NewRequest(target, step.Method, header, step.Label)
}

// execute runs req, retrying transient network errors with linear backoff.
func (p *Prober) execute(ctx context.Context, client *probe.Client, req probe.Request, log zerolog.Logger) (*probe.Result, int, error) {
	for attempt := 1; ; attempt++ {
		res, err := client.Execute(ctx, req)
		var nerr *probe.NetworkError
		if err == nil || !errors.As(err, &nerr) || !nerr.Transient() || attempt > p.config.Retries {
			return res, attempt, err
		}
		wait := p.config.Backoff * time.Duration(attempt)
		log.Debug().Err(err).Int("attempt", attempt).Dur("backoff", wait).Msg("Retrying step")
		if err := p.clock.Sleep(ctx, wait); err != nil {
			return nil, attempt, err
		}
	}
}
