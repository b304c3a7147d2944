package upstream

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/fiffu/arrwatch/lib/models"
	"go.uber.org/zap"
)

// The media server contributes health state only: reachability plus the
// flags its system endpoint exposes.
type jellyfinClient struct {
	conn      models.ServiceConnection
	transport http.RoundTripper
	log       *zap.Logger
}

type jellyfinSystemInfo struct {
	ServerName          string `json:"ServerName"`
	Version             string `json:"Version"`
	HasPendingRestart   bool   `json:"HasPendingRestart"`
	HasUpdateAvailable  bool   `json:"HasUpdateAvailable"`
}

func (c *jellyfinClient) FetchSnapshot(ctx context.Context) (*models.Snapshot, error) {
	// The unauthenticated liveness probe; anything but "Healthy" is a
	// warning in its own right.
	var liveness string
	err := requests.
		URL(c.conn.BaseURL+"/health").
		Transport(c.transport).
		ToString(&liveness).
		Fetch(ctx)
	if err != nil {
		return nil, &FetchError{Service: c.conn.Name, Err: err}
	}

	var info jellyfinSystemInfo
	err = requests.
		URL(c.conn.BaseURL+"/System/Info").
		Transport(c.transport).
		Header("X-Emby-Token", c.conn.APIKey).
		ToJSON(&info).
		Fetch(ctx)
	if err != nil {
		return nil, &FetchError{Service: c.conn.Name, Err: err}
	}

	snap := &models.Snapshot{}
	if trimmed := strings.TrimSpace(liveness); trimmed != "Healthy" {
		snap.Health = append(snap.Health, models.HealthRecord{
			Source:  info.ServerName,
			Type:    "warning",
			Message: fmt.Sprintf("Server reports %q", trimmed),
		})
	}
	if info.HasPendingRestart {
		snap.Health = append(snap.Health, models.HealthRecord{
			Source:  info.ServerName,
			Type:    "warning",
			Message: "Server restart is pending",
		})
	}
	if info.HasUpdateAvailable {
		snap.Health = append(snap.Health, models.HealthRecord{
			Source:  info.ServerName,
			Type:    "notice",
			Message: "Server update is available",
		})
	}
	return snap, nil
}
