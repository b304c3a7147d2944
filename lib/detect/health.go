package detect

import (
	"time"

	"github.com/fiffu/arrwatch/lib/models"
)

func (d *Detector) diffHealth(conn models.ServiceConnection, snap models.Snapshot, prev State, next *State, now time.Time) []models.Event {
	prevSigs := make(map[string]bool, len(prev.ActiveHealthSigs))
	for _, sig := range prev.ActiveHealthSigs {
		prevSigs[sig] = true
	}

	var events []models.Event
	sigs := make([]string, 0, len(snap.Health))
	dedupe := make(map[string]bool, len(snap.Health))

	for _, h := range snap.Health {
		if h.Message == "" && h.Type == "" {
			d.log.Sugar().Warnw("Skipping empty health record", "service", conn.Name)
			continue
		}
		sig := h.Signature()
		if dedupe[sig] {
			continue
		}
		dedupe[sig] = true
		sigs = append(sigs, sig)

		if !prevSigs[sig] {
			events = append(events, models.Event{
				Kind:        models.EventHealthWarning,
				ServiceID:   conn.ID,
				ServiceKind: conn.Kind,
				ServiceName: conn.Name,
				SubjectID:   sig,
				Title:       h.Message,
				OccurredAt:  now,
				Meta:        map[string]string{"source": h.Source, "type": h.Type},
			})
		}
	}

	// Replaced wholesale so a warning that clears and later comes back is
	// treated as newly appeared.
	next.ActiveHealthSigs = sigs
	return events
}
