package senders

import (
	"fmt"

	"github.com/fiffu/arrwatch/lib/models"
)

// Payload is what the push transport carries. Tag is stable per
// kind+subject so the OS tray collapses a redelivered duplicate instead of
// stacking it.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
	URL   string `json:"url"`
}

var targetPaths = map[models.EventKind]string{
	models.EventGrabbed:          "/activity",
	models.EventImported:         "/activity",
	models.EventDownloadFailed:   "/activity",
	models.EventImportFailed:     "/activity",
	models.EventHealthWarning:    "/health",
	models.EventUpcomingPremiere: "/calendar",
	models.EventTorrentAdded:     "/torrents",
	models.EventTorrentCompleted: "/torrents",
	models.EventTorrentDeleted:   "/torrents",
}

func RenderPayload(evt models.Event, publicURL string) Payload {
	var title string
	switch evt.Kind {
	case models.EventGrabbed:
		title = fmt.Sprintf("Grabbed: %s", evt.Title)
	case models.EventImported:
		title = fmt.Sprintf("Imported: %s", evt.Title)
	case models.EventDownloadFailed:
		title = fmt.Sprintf("Download failed: %s", evt.Title)
	case models.EventImportFailed:
		title = fmt.Sprintf("Import failed: %s", evt.Title)
	case models.EventHealthWarning:
		title = fmt.Sprintf("%s health warning", evt.ServiceName)
	case models.EventUpcomingPremiere:
		title = fmt.Sprintf("Airing soon: %s", evt.Title)
	case models.EventTorrentAdded:
		title = fmt.Sprintf("Torrent added: %s", evt.Title)
	case models.EventTorrentCompleted:
		title = fmt.Sprintf("Torrent completed: %s", evt.Title)
	case models.EventTorrentDeleted:
		title = fmt.Sprintf("Torrent deleted: %s", evt.Title)
	default:
		title = evt.Title
	}

	body := fmt.Sprintf("%s, %s", evt.ServiceName, evt.OccurredAt.UTC().Format("Jan 2 15:04 MST"))
	if evt.Kind == models.EventHealthWarning {
		body = evt.Title
	}

	return Payload{
		Title: title,
		Body:  body,
		Tag:   evt.Tag(),
		URL:   publicURL + targetPaths[evt.Kind],
	}
}
