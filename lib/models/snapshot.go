package models

import "time"

// Snapshot is the full state a fetcher saw in one request round. Each
// adapter fills only the slices its service kind produces; the detector
// diffs them against the cursor.
type Snapshot struct {
	History  []HistoryRecord
	Torrents []TorrentRecord
	Health   []HealthRecord
	Calendar []CalendarRecord
}

// HistoryRecord is one download-manager history entry, keyed by the
// upstream's stable ID.
type HistoryRecord struct {
	ID        int64
	EventType string
	Title     string
	Date      time.Time
}

type TorrentRecord struct {
	Hash     string
	Name     string
	Progress float64
}

type HealthRecord struct {
	Source  string
	Type    string
	Message string
}

// Signature identifies a health warning across cycles; the same warning
// persisting does not re-fire, the same warning reappearing does.
func (h HealthRecord) Signature() string {
	return h.Source + "/" + h.Type + "/" + h.Message
}

type CalendarRecord struct {
	ID      int64
	Title   string
	AirDate time.Time
}
