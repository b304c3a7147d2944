package models

import "time"

type ServiceKind string

const (
	ServiceSonarr      ServiceKind = "sonarr"
	ServiceRadarr      ServiceKind = "radarr"
	ServiceQbittorrent ServiceKind = "qbittorrent"
	ServiceJellyfin    ServiceKind = "jellyfin"
)

func IsValidServiceKind(value string) bool {
	switch ServiceKind(value) {
	case ServiceSonarr, ServiceRadarr, ServiceQbittorrent, ServiceJellyfin:
		return true
	}
	return false
}

type EventKind string

const (
	EventGrabbed          EventKind = "grabbed"
	EventImported         EventKind = "imported"
	EventDownloadFailed   EventKind = "download_failed"
	EventImportFailed     EventKind = "import_failed"
	EventHealthWarning    EventKind = "health_warning"
	EventUpcomingPremiere EventKind = "upcoming_premiere"
	EventTorrentAdded     EventKind = "torrent_added"
	EventTorrentCompleted EventKind = "torrent_completed"
	EventTorrentDeleted   EventKind = "torrent_deleted"
)

type EventDefinition struct {
	Kind        EventKind `json:"kind"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
}

var eventDefinitions = []EventDefinition{
	{Kind: EventGrabbed, Label: "Grabbed", Description: "A release was sent to the download client."},
	{Kind: EventImported, Label: "Imported", Description: "A completed download was imported into the library."},
	{Kind: EventDownloadFailed, Label: "Download failed", Description: "The download client failed to complete a release."},
	{Kind: EventImportFailed, Label: "Import failed", Description: "A completed download could not be imported."},
	{Kind: EventHealthWarning, Label: "Health warning", Description: "A service reported a new health problem."},
	{Kind: EventUpcomingPremiere, Label: "Upcoming premiere", Description: "A monitored release airs within the lookahead window."},
	{Kind: EventTorrentAdded, Label: "Torrent added", Description: "A torrent appeared in the client."},
	{Kind: EventTorrentCompleted, Label: "Torrent completed", Description: "A torrent finished downloading."},
	{Kind: EventTorrentDeleted, Label: "Torrent deleted", Description: "A torrent was removed from the client."},
}

var eventKindIndex = func() map[EventKind]int {
	idx := make(map[EventKind]int, len(eventDefinitions))
	for i, def := range eventDefinitions {
		idx[def.Kind] = i
	}
	return idx
}()

func EventDefinitions() []EventDefinition {
	out := make([]EventDefinition, len(eventDefinitions))
	copy(out, eventDefinitions)
	return out
}

func IsValidEventKind(value string) bool {
	_, ok := eventKindIndex[EventKind(value)]
	return ok
}

// Event is a detected state transition. Events only live for the duration of
// the cycle that detected them; the cursor is what persists.
type Event struct {
	Kind        EventKind
	ServiceID   uint
	ServiceKind ServiceKind
	ServiceName string
	SubjectID   string
	Title       string
	OccurredAt  time.Time
	Meta        map[string]string
}

// Tag is stable per kind+subject so redelivered duplicates collapse in the
// notification tray instead of stacking.
func (e Event) Tag() string {
	return string(e.Kind) + ":" + e.SubjectID
}
