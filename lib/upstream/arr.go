package upstream

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/fiffu/arrwatch/lib/models"
	"go.uber.org/zap"
)

// How much history we page in per cycle. The detector's seen set is far
// larger, so a burst of activity between polls is not dropped.
const historyPageSize = 60

const calendarLookahead = 7 * 24 * time.Hour

// arrClient covers both Sonarr and Radarr; their v3 APIs share the shapes we
// read (history, health, calendar).
type arrClient struct {
	conn      models.ServiceConnection
	transport http.RoundTripper
	log       *zap.Logger
}

type arrHistoryPage struct {
	Records []arrHistoryRecord `json:"records"`
}

type arrHistoryRecord struct {
	ID          int64     `json:"id"`
	EventType   string    `json:"eventType"`
	SourceTitle string    `json:"sourceTitle"`
	Date        time.Time `json:"date"`
}

type arrHealthRecord struct {
	Source  string `json:"source"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Sonarr calendar entries carry airDateUtc plus the owning series; Radarr
// entries carry release dates directly on the movie.
type arrCalendarRecord struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	AirDateUTC     time.Time `json:"airDateUtc"`
	DigitalRelease time.Time `json:"digitalRelease"`
	InCinemas      time.Time `json:"inCinemas"`
	Series         struct {
		Title string `json:"title"`
	} `json:"series"`
}

func (c *arrClient) FetchSnapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{}

	var history arrHistoryPage
	err := requests.
		URL(c.conn.BaseURL+"/api/v3/history").
		Transport(c.transport).
		Header("X-Api-Key", c.conn.APIKey).
		Param("page", "1").
		Param("pageSize", strconv.Itoa(historyPageSize)).
		Param("sortKey", "date").
		Param("sortDirection", "descending").
		ToJSON(&history).
		Fetch(ctx)
	if err != nil {
		return nil, &FetchError{Service: c.conn.Name, Err: err}
	}
	for _, rec := range history.Records {
		snap.History = append(snap.History, models.HistoryRecord{
			ID:        rec.ID,
			EventType: rec.EventType,
			Title:     rec.SourceTitle,
			Date:      rec.Date,
		})
	}

	var health []arrHealthRecord
	err = requests.
		URL(c.conn.BaseURL+"/api/v3/health").
		Transport(c.transport).
		Header("X-Api-Key", c.conn.APIKey).
		ToJSON(&health).
		Fetch(ctx)
	if err != nil {
		return nil, &FetchError{Service: c.conn.Name, Err: err}
	}
	for _, rec := range health {
		snap.Health = append(snap.Health, models.HealthRecord{
			Source:  rec.Source,
			Type:    rec.Type,
			Message: rec.Message,
		})
	}

	now := time.Now().UTC()
	var calendar []arrCalendarRecord
	err = requests.
		URL(c.conn.BaseURL+"/api/v3/calendar").
		Transport(c.transport).
		Header("X-Api-Key", c.conn.APIKey).
		Param("start", now.Format(time.RFC3339)).
		Param("end", now.Add(calendarLookahead).Format(time.RFC3339)).
		ToJSON(&calendar).
		Fetch(ctx)
	if err != nil {
		return nil, &FetchError{Service: c.conn.Name, Err: err}
	}
	for _, rec := range calendar {
		snap.Calendar = append(snap.Calendar, models.CalendarRecord{
			ID:      rec.ID,
			Title:   rec.title(),
			AirDate: rec.airDate(),
		})
	}

	return snap, nil
}

func (rec arrCalendarRecord) title() string {
	if rec.Series.Title != "" {
		return rec.Series.Title + " - " + rec.Title
	}
	return rec.Title
}

func (rec arrCalendarRecord) airDate() time.Time {
	switch {
	case !rec.AirDateUTC.IsZero():
		return rec.AirDateUTC
	case !rec.DigitalRelease.IsZero():
		return rec.DigitalRelease
	default:
		return rec.InCinemas
	}
}
