package detect

import (
	"time"

	"github.com/fiffu/arrwatch/config"
	"github.com/fiffu/arrwatch/lib/models"
	"go.uber.org/zap"
)

type strategy func(d *Detector, conn models.ServiceConnection, snap models.Snapshot, prev State, next *State, now time.Time) []models.Event

// One diff strategy list per service kind. The arr services share history,
// health and calendar rules; the torrent client and media server each have
// their own.
var strategies = map[models.ServiceKind][]strategy{
	models.ServiceSonarr:      {(*Detector).diffHistory, (*Detector).diffHealth, (*Detector).diffCalendar},
	models.ServiceRadarr:      {(*Detector).diffHistory, (*Detector).diffHealth, (*Detector).diffCalendar},
	models.ServiceQbittorrent: {(*Detector).diffTorrents},
	models.ServiceJellyfin:    {(*Detector).diffHealth},
}

type Detector struct {
	log       *zap.Logger
	lookahead time.Duration
}

func NewDetector(log *zap.Logger, cfg *config.Config) *Detector {
	return &Detector{log: log, lookahead: cfg.PremiereLookahead()}
}

// Diff computes the events that are new relative to prev and the advanced
// cursor state. It never mutates prev, and identical inputs always produce
// identical outputs; a malformed record is logged and skipped without
// failing the rest of the snapshot.
func (d *Detector) Diff(conn models.ServiceConnection, snap models.Snapshot, prev State, now time.Time) ([]models.Event, State) {
	next := prev.Clone()

	var events []models.Event
	for _, diff := range strategies[conn.Kind] {
		events = append(events, diff(d, conn, snap, prev, &next, now)...)
	}
	return events, next
}
