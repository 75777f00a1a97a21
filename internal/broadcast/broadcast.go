// Package broadcast relays one message to the full registered user
// population.
//
// Delivery is best-effort: the dispatcher works through a snapshot of the
// user registry in order, counts per-recipient failures without aborting the
// run, and paces sends with a rate limiter to stay under the transport's
// outbound limit.
package broadcast

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/Habibullo22/Kinouz/pkg/logx"
)

// DefaultRatePerSec matches roughly one send every 30ms.
const DefaultRatePerSec = 30

// Registry lists the recipients of a dispatch.
type Registry interface {
	AllUserIDs(ctx context.Context) ([]int64, error)
}

// Copier relays an existing message to another chat, preserving its content
// type.
type Copier interface {
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) error
}

type Dispatcher struct {
	registry Registry
	copier   Copier
	limiter  *rate.Limiter
	log      logx.Logger
}

func New(registry Registry, copier Copier, ratePerSec int, log logx.Logger) *Dispatcher {
	if ratePerSec <= 0 {
		ratePerSec = DefaultRatePerSec
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		registry: registry,
		copier:   copier,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), 1),
		log:      log,
	}
}

// Dispatch copies the source message to every registered user and returns the
// success/failure tallies. Users registered after the snapshot are not
// included. A non-nil error is returned only when the registry snapshot
// itself cannot be read; per-recipient send errors are counted, never
// propagated.
func (d *Dispatcher) Dispatch(ctx context.Context, fromChatID int64, messageID int) (ok, fail int, err error) {
	users, err := d.registry.AllUserIDs(ctx)
	if err != nil {
		return 0, 0, err
	}

	start := time.Now()
	d.log.Info("broadcast started", logx.Int("total", len(users)))

	for _, uid := range users {
		if werr := d.limiter.Wait(ctx); werr != nil {
			// Context cancelled mid-run: report what was delivered so far.
			fail += len(users) - ok - fail
			break
		}
		if serr := d.copier.CopyMessage(ctx, uid, fromChatID, messageID); serr != nil {
			fail++
			d.log.Debug("broadcast send failed", logx.Int64("user", uid), logx.Err(serr))
			continue
		}
		ok++
	}

	fields := []logx.Field{
		logx.Int("ok", ok),
		logx.Int("fail", fail),
		logx.Duration("took", time.Since(start)),
	}
	if fail > 0 {
		d.log.Warn("broadcast finished with failures", fields...)
	} else {
		d.log.Info("broadcast finished", fields...)
	}
	return ok, fail, nil
}
