package poller

import (
	"context"
	"time"
)

// runCycle is one fetch -> detect -> dispatch -> advance pass for a single
// service. A fetch failure aborts before detection so a partial or empty
// response is never interpreted as everything disappearing; the cursor
// advances only after detection has fully completed.
func (p *Poller) runCycle(ctx context.Context, lp *loop) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CycleTimeout())
	defer cancel()

	startedAt := time.Now().UTC()

	prev, err := p.cursors.Get(ctx, lp.conn.ID)
	if err != nil {
		p.log.Sugar().Errorw("Cycle failed reading cursor", "service", lp.conn.Name, "err", err)
		return err
	}

	snap, err := lp.client.FetchSnapshot(ctx)
	if err != nil {
		p.log.Sugar().Warnw("Cycle failed during fetch", "service", lp.conn.Name, "err", err)
		return err
	}

	events, next := p.detector.Diff(lp.conn, *snap, prev, startedAt)

	if len(events) > 0 {
		p.log.Sugar().Infow("Detected events", "service", lp.conn.Name, "count", len(events))
		p.sink.Dispatch(ctx, events)
	}

	// Delivery outcomes never block the advance; a transient delivery
	// failure is an accepted gap, not a reason to re-detect.
	if err := p.cursors.Advance(ctx, lp.conn.ID, next, startedAt); err != nil {
		p.log.Sugar().Errorw("Cycle failed advancing cursor", "service", lp.conn.Name, "err", err)
		return err
	}

	elapsed := time.Now().UTC().Sub(startedAt)
	p.log.Sugar().Debugw("Cycle completed",
		"service", lp.conn.Name,
		"events", len(events),
		"elapsed_msecs", elapsed.Milliseconds(),
	)
	return nil
}
