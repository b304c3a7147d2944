// Package upstream fetches point-in-time snapshots from the monitored
// services. Adapters are pure I/O: no caching, no diffing, one request round
// per cycle. Any failure surfaces as a *FetchError so the cycle aborts
// before detection rather than diffing a partial snapshot.
package upstream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fiffu/arrwatch/lib/models"
	"go.uber.org/zap"
)

type Client interface {
	FetchSnapshot(ctx context.Context) (*models.Snapshot, error)
}

type FetchError struct {
	Service string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Service, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewClient builds the adapter for a service connection. The returned client
// carries its credential; callers never see raw keys.
func NewClient(conn models.ServiceConnection, transport http.RoundTripper, log *zap.Logger) (Client, error) {
	switch conn.Kind {
	case models.ServiceSonarr, models.ServiceRadarr:
		return &arrClient{conn: conn, transport: transport, log: log}, nil
	case models.ServiceQbittorrent:
		return newQbitClient(conn, log), nil
	case models.ServiceJellyfin:
		return &jellyfinClient{conn: conn, transport: transport, log: log}, nil
	default:
		return nil, fmt.Errorf("unsupported service kind: %s", conn.Kind)
	}
}
