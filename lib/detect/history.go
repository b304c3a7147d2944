package detect

import (
	"strconv"
	"time"

	"github.com/fiffu/arrwatch/lib/models"
)

// Upstream history eventType values that map onto a notification kind.
// Anything else (renames, deletions, ignored grabs) still marks its ID as
// seen so reordering never resurfaces it.
var historyKinds = map[string]models.EventKind{
	"grabbed":                models.EventGrabbed,
	"downloadFolderImported": models.EventImported,
	"seriesFolderImported":   models.EventImported,
	"movieFolderImported":    models.EventImported,
	"downloadFailed":         models.EventDownloadFailed,
	"downloadImportFailed":   models.EventImportFailed,
}

func (d *Detector) diffHistory(conn models.ServiceConnection, snap models.Snapshot, prev State, next *State, now time.Time) []models.Event {
	seen := prev.historyIDSet()

	var events []models.Event
	for _, rec := range snap.History {
		if rec.ID == 0 {
			d.log.Sugar().Warnw("Skipping malformed history record", "service", conn.Name, "eventType", rec.EventType)
			continue
		}
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		next.addHistoryID(rec.ID)

		kind, ok := historyKinds[rec.EventType]
		if !ok {
			continue
		}

		occurredAt := rec.Date
		if occurredAt.IsZero() {
			occurredAt = now
		}
		events = append(events, models.Event{
			Kind:        kind,
			ServiceID:   conn.ID,
			ServiceKind: conn.Kind,
			ServiceName: conn.Name,
			SubjectID:   strconv.FormatInt(rec.ID, 10),
			Title:       rec.Title,
			OccurredAt:  occurredAt,
			Meta:        map[string]string{"eventType": rec.EventType},
		})
	}
	return events
}
