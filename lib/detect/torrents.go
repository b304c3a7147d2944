package detect

import (
	"sort"
	"time"

	"github.com/fiffu/arrwatch/lib/models"
)

func (d *Detector) diffTorrents(conn models.ServiceConnection, snap models.Snapshot, prev State, next *State, now time.Time) []models.Event {
	if next.Torrents == nil {
		next.Torrents = make(map[string]TorrentState)
	}

	var events []models.Event
	current := make(map[string]bool, len(snap.Torrents))

	for _, t := range snap.Torrents {
		if t.Hash == "" {
			d.log.Sugar().Warnw("Skipping torrent record without hash", "service", conn.Name, "name", t.Name)
			continue
		}
		if current[t.Hash] {
			continue
		}
		current[t.Hash] = true

		prevState, known := prev.Torrents[t.Hash]
		state := TorrentState{Name: t.Name, Progress: t.Progress, Completed: known && prevState.Completed}

		if !known {
			events = append(events, d.torrentEvent(models.EventTorrentAdded, conn, t.Hash, t.Name, now))
		}
		// The completed flag latches: reaching 100% fires once, re-checks
		// and rechecksums never fire again.
		if t.Progress >= 1 && !state.Completed {
			state.Completed = true
			events = append(events, d.torrentEvent(models.EventTorrentCompleted, conn, t.Hash, t.Name, now))
		}
		next.Torrents[t.Hash] = state
	}

	// Present before, absent now. Sorted so identical inputs yield events in
	// the same order every time.
	removed := make([]string, 0)
	for hash := range prev.Torrents {
		if !current[hash] {
			removed = append(removed, hash)
		}
	}
	sort.Strings(removed)
	for _, hash := range removed {
		events = append(events, d.torrentEvent(models.EventTorrentDeleted, conn, hash, prev.Torrents[hash].Name, now))
		delete(next.Torrents, hash)
	}
	return events
}

func (d *Detector) torrentEvent(kind models.EventKind, conn models.ServiceConnection, hash, name string, now time.Time) models.Event {
	return models.Event{
		Kind:        kind,
		ServiceID:   conn.ID,
		ServiceKind: conn.Kind,
		ServiceName: conn.Name,
		SubjectID:   hash,
		Title:       name,
		OccurredAt:  now,
		Meta:        map[string]string{"hash": hash},
	}
}
