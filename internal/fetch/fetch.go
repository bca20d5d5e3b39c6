// Package fetch is the bounded-retry HTTP layer in front of the two
// upstream sources. Every failure mode (transport error, timeout,
// non-2xx) is retried the same way: a fixed number of attempts with a
// constant gap, then an explicit error the caller degrades on. A
// shared rate limiter keeps the service polite toward the upstream
// even when the hourly tick and an on-demand query overlap.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/arbywatch/arbywatch/internal/httpclient"
	"github.com/arbywatch/arbywatch/internal/logging"
	"github.com/arbywatch/arbywatch/internal/metrics"
)

var ErrExhausted = errors.New("fetch: retries exhausted")

const maxBody = 4 * 1024 * 1024

type Options struct {
	Attempts    int
	Delay       time.Duration
	TextTimeout time.Duration
	JSONTimeout time.Duration
	RatePerSec  float64
	Burst       int
}

func (o *Options) setDefaults() {
	if o.Attempts == 0 {
		o.Attempts = 3
	}
	if o.Delay == 0 {
		o.Delay = 5 * time.Second
	}
	if o.TextTimeout == 0 {
		o.TextTimeout = 15 * time.Second
	}
	if o.JSONTimeout == 0 {
		o.JSONTimeout = 20 * time.Second
	}
	if o.RatePerSec == 0 {
		o.RatePerSec = 2
	}
	if o.Burst == 0 {
		o.Burst = 4
	}
}

type Client struct {
	hc   *http.Client
	lim  *rate.Limiter
	log  *logging.Logger
	opts Options
}

func New(hc *http.Client, log *logging.Logger, opts Options) *Client {
	if hc == nil {
		hc = httpclient.Default()
	}
	opts.setDefaults()
	return &Client{
		hc:   hc,
		lim:  rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
		log:  log,
		opts: opts,
	}
}

// Text GETs a UTF-8 text resource.
func (c *Client) Text(ctx context.Context, url string) (string, error) {
	body, err := c.get(ctx, url, "text", c.opts.TextTimeout)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// JSON GETs a structured resource and decodes it into v. A body that
// fetched fine but does not decode is a structural failure, not a
// transient one, so it is not retried.
func (c *Client) JSON(ctx context.Context, url string, v interface{}) error {
	body, err := c.get(ctx, url, "json", c.opts.JSONTimeout)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("fetch %s: decode: %w", url, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url, kind string, timeout time.Duration) ([]byte, error) {
	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		if err := c.lim.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		b, err := c.once(ctx, url, timeout)
		if err != nil {
			metrics.FetchAttempts.WithLabelValues(kind, "error").Inc()
			c.log.Warnw("fetch attempt failed",
				"url", url,
				"attempt", attempt,
				"of", c.opts.Attempts,
				"err", err,
			)
			return err
		}
		metrics.FetchAttempts.WithLabelValues(kind, "ok").Inc()
		body = b
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.opts.Delay), uint64(c.opts.Attempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, bo); err != nil {
		metrics.FetchExhausted.WithLabelValues(kind).Inc()
		c.log.Errorw("fetch failed after all attempts", "url", url, "attempts", attempt, "err", err)
		return nil, fmt.Errorf("fetch %s: %w: %w", url, ErrExhausted, err)
	}
	return body, nil
}

func (c *Client) once(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bad status: %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}
