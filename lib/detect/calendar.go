package detect

import (
	"strconv"
	"time"

	"github.com/fiffu/arrwatch/lib/models"
)

func (d *Detector) diffCalendar(conn models.ServiceConnection, snap models.Snapshot, prev State, next *State, now time.Time) []models.Event {
	if next.NotifiedReleases == nil {
		next.NotifiedReleases = make(map[int64]time.Time)
	}
	windowEnd := now.Add(d.lookahead)

	var events []models.Event
	for _, rec := range snap.Calendar {
		if rec.ID == 0 || rec.AirDate.IsZero() {
			d.log.Sugar().Warnw("Skipping malformed calendar record", "service", conn.Name, "title", rec.Title)
			continue
		}
		if _, announced := prev.NotifiedReleases[rec.ID]; announced {
			continue
		}
		if rec.AirDate.Before(now) || !rec.AirDate.Before(windowEnd) {
			continue
		}

		next.NotifiedReleases[rec.ID] = rec.AirDate
		events = append(events, models.Event{
			Kind:        models.EventUpcomingPremiere,
			ServiceID:   conn.ID,
			ServiceKind: conn.Kind,
			ServiceName: conn.Name,
			SubjectID:   strconv.FormatInt(rec.ID, 10),
			Title:       rec.Title,
			OccurredAt:  rec.AirDate,
			Meta:        map[string]string{"airDate": rec.AirDate.UTC().Format(time.RFC3339)},
		})
	}

	// Drop releases that have aired; the window check above keeps them from
	// re-firing in the meantime.
	for id, airDate := range next.NotifiedReleases {
		if airDate.Before(now) {
			delete(next.NotifiedReleases, id)
		}
	}
	return events
}
