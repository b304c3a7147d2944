package senders

import (
	"context"
	"errors"
	"time"

	"github.com/fiffu/arrwatch/config"
	"github.com/fiffu/arrwatch/lib/models"
	"github.com/fiffu/arrwatch/lib/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Directory is the slice of the subscription store the dispatcher is allowed
// to touch: resolving recipients, pruning a dead endpoint, and appending
// audit rows. It gets no broader write access.
type Directory interface {
	Recipients(ctx context.Context, kind models.EventKind) (models.Subscriptions, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
	RecordAttempt(ctx context.Context, attempt models.DeliveryAttempt)
}

type Dispatcher struct {
	log       *zap.Logger
	cfg       *config.Config
	registry  Registry
	directory Directory
}

func NewDispatcher(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, registry Registry, subs *store.SubscriptionStore) *Dispatcher {
	return &Dispatcher{log: log, cfg: cfg, registry: registry, directory: subs}
}

// Dispatch fans each event out to its eligible subscriptions. Outcomes are
// scoped per endpoint: a dead endpoint is pruned on the spot, a transient
// failure is logged and dropped without retry, and neither stops delivery
// to the remaining recipients.
func (d *Dispatcher) Dispatch(ctx context.Context, events []models.Event) {
	for _, evt := range events {
		subs, err := d.directory.Recipients(ctx, evt.Kind)
		if err != nil {
			d.log.Sugar().Errorw("Failed to resolve recipients", "kind", evt.Kind, "err", err)
			continue
		}
		if len(subs) == 0 {
			continue
		}

		payload := RenderPayload(evt, d.cfg.PublicURL)
		for _, sub := range subs {
			d.deliver(ctx, evt, sub, payload)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, evt models.Event, sub models.Subscription, payload Payload) {
	sender, ok := d.registry[sub.Platform]
	if !ok {
		d.log.Sugar().Warnw("No sender for platform", "platform", sub.Platform, "subscription", sub.ID)
		return
	}

	err := sender.Send(ctx, &sub, payload)
	attempt := models.DeliveryAttempt{
		SubscriptionID: sub.ID,
		EventKind:      evt.Kind,
		SentAt:         time.Now().UTC(),
	}

	switch {
	case errors.Is(err, ErrEndpointGone):
		attempt.Outcome = models.OutcomeEndpointGone
		if pruneErr := d.directory.DeleteByEndpoint(ctx, sub.Endpoint); pruneErr != nil {
			d.log.Sugar().Errorw("Failed to prune dead subscription", "subscription", sub.ID, "err", pruneErr)
		} else {
			d.log.Sugar().Infow("Pruned dead subscription", "subscription", sub.ID, "device", sub.DeviceLabel)
		}
	case err != nil:
		attempt.Outcome = models.OutcomeTransientError
		d.log.Sugar().Warnw("Delivery failed", "subscription", sub.ID, "kind", evt.Kind, "err", err)
	default:
		attempt.Outcome = models.OutcomeDelivered
	}

	d.directory.RecordAttempt(ctx, attempt)
}
