package detect

import (
	"encoding/json"
	"time"
)

// Keep the last N history IDs per service so the seen set stays bounded no
// matter how long the upstream history grows.
const maxSeenHistoryIDs = 1000

type TorrentState struct {
	Name      string  `json:"name"`
	Progress  float64 `json:"progress"`
	Completed bool    `json:"completed"`
}

// State is the cursor payload for one service connection: everything the
// detector needs to tell new transitions from state already seen. It is
// serialized as JSON into the persisted cursor row.
type State struct {
	// Oldest-first, bounded at maxSeenHistoryIDs.
	SeenHistoryIDs []int64 `json:"seen_history_ids,omitempty"`
	// Last-known status per torrent hash. Entries leave the map when the
	// torrent disappears from the client.
	Torrents map[string]TorrentState `json:"torrents,omitempty"`
	// Health warning signatures active as of the last cycle.
	ActiveHealthSigs []string `json:"active_health_sigs,omitempty"`
	// Release ID -> air date for premieres already announced. Pruned once
	// the air date has passed.
	NotifiedReleases map[int64]time.Time `json:"notified_releases,omitempty"`
}

func ParseState(raw string) (State, error) {
	var s State
	if raw == "" {
		return s, nil
	}
	err := json.Unmarshal([]byte(raw), &s)
	return s, err
}

func (s State) Encode() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Clone deep-copies the state so a diff never mutates its input.
func (s State) Clone() State {
	out := State{}
	if s.SeenHistoryIDs != nil {
		out.SeenHistoryIDs = make([]int64, len(s.SeenHistoryIDs))
		copy(out.SeenHistoryIDs, s.SeenHistoryIDs)
	}
	if s.Torrents != nil {
		out.Torrents = make(map[string]TorrentState, len(s.Torrents))
		for k, v := range s.Torrents {
			out.Torrents[k] = v
		}
	}
	if s.ActiveHealthSigs != nil {
		out.ActiveHealthSigs = make([]string, len(s.ActiveHealthSigs))
		copy(out.ActiveHealthSigs, s.ActiveHealthSigs)
	}
	if s.NotifiedReleases != nil {
		out.NotifiedReleases = make(map[int64]time.Time, len(s.NotifiedReleases))
		for k, v := range s.NotifiedReleases {
			out.NotifiedReleases[k] = v
		}
	}
	return out
}

func (s State) historyIDSet() map[int64]struct{} {
	set := make(map[int64]struct{}, len(s.SeenHistoryIDs))
	for _, id := range s.SeenHistoryIDs {
		set[id] = struct{}{}
	}
	return set
}

func (s *State) addHistoryID(id int64) {
	s.SeenHistoryIDs = append(s.SeenHistoryIDs, id)
	if over := len(s.SeenHistoryIDs) - maxSeenHistoryIDs; over > 0 {
		s.SeenHistoryIDs = s.SeenHistoryIDs[over:]
	}
}
