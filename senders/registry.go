// Package senders delivers detected events to registered subscriptions.
// One Sender per notifier platform; the dispatcher fans an event out to
// every eligible subscription independently.
package senders

import (
	"context"
	"errors"
	"net/http"

	"github.com/fiffu/arrwatch/config"
	"github.com/fiffu/arrwatch/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrEndpointGone is the terminal signal from a transport: the subscription
// can never receive another message and must be pruned. It is the expected
// way subscriptions die, not an error condition to alert on.
var ErrEndpointGone = errors.New("subscription endpoint is gone")

type Sender interface {
	Send(ctx context.Context, sub *models.Subscription, payload Payload) error
}

type Registry map[string]Sender

func NewSenderRegistry(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, transport http.RoundTripper) Registry {
	base := base{log, cfg, transport}
	return Registry{
		models.PlatformWebpush: &webpushSender{base},
		models.PlatformEmail:   &mailgunSender{base},
	}
}

type base struct {
	log       *zap.Logger
	cfg       *config.Config
	transport http.RoundTripper
}
