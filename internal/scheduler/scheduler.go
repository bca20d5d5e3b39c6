// Package scheduler fires once per wall-clock hour, aligned to the
// UTC hour boundary. The delay is recomputed before every wait rather
// than reusing a fixed interval, so timer drift never accumulates.
package scheduler

import (
	"context"
	"time"

	"github.com/arbywatch/arbywatch/internal/logging"
)

// Delay returns the time remaining until the next hour boundary. At
// an exact boundary it returns a full hour; the tick for the boundary
// just crossed is assumed to have fired already.
func Delay(now time.Time) time.Duration {
	return time.Hour - now.Sub(now.Truncate(time.Hour))
}

type Hourly struct {
	log *logging.Logger
}

func NewHourly(log *logging.Logger) *Hourly {
	return &Hourly{log: log}
}

// Run blocks, invoking fn at each aligned tick until ctx is
// cancelled. Ticks never overlap: the next delay is computed only
// after fn returns.
func (h *Hourly) Run(ctx context.Context, fn func(context.Context)) {
	for {
		d := Delay(time.Now())
		h.log.Infow("next tick scheduled",
			"at", time.Now().Add(d).UTC().Format(time.RFC3339),
			"in", d.Round(time.Second).String(),
		)
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
			fn(ctx)
		}
	}
}
