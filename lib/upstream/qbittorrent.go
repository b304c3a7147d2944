package upstream

import (
	"context"
	"sync"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/fiffu/arrwatch/lib/models"
	"go.uber.org/zap"
)

type qbitClient struct {
	conn models.ServiceConnection
	log  *zap.Logger

	mu       sync.Mutex
	client   *qbt.Client
	loggedIn bool
}

func newQbitClient(conn models.ServiceConnection, log *zap.Logger) *qbitClient {
	client := qbt.NewClient(qbt.Config{
		Host:     conn.BaseURL,
		Username: conn.Username,
		Password: conn.Password,
		Timeout:  15,
	})
	return &qbitClient{conn: conn, log: log, client: client}
}

func (c *qbitClient) FetchSnapshot(ctx context.Context) (*models.Snapshot, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, &FetchError{Service: c.conn.Name, Err: err}
	}

	torrents, err := c.client.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{})
	if err != nil {
		// Session may have expired; force a fresh login next cycle.
		c.mu.Lock()
		c.loggedIn = false
		c.mu.Unlock()
		return nil, &FetchError{Service: c.conn.Name, Err: err}
	}

	snap := &models.Snapshot{}
	for _, t := range torrents {
		snap.Torrents = append(snap.Torrents, models.TorrentRecord{
			Hash:     t.Hash,
			Name:     t.Name,
			Progress: t.Progress,
		})
	}
	return snap, nil
}

func (c *qbitClient) ensureLogin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loggedIn {
		return nil
	}
	if err := c.client.LoginCtx(ctx); err != nil {
		return err
	}
	c.loggedIn = true
	return nil
}
