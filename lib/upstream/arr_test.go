package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fiffu/arrwatch/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testArrServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/history", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{
				{"id": 42, "eventType": "grabbed", "sourceTitle": "Some Show S01E01", "date": "2025-06-01T12:00:00Z"},
			},
		})
	})
	mux.HandleFunc("/api/v3/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"source": "IndexerStatusCheck", "type": "warning", "message": "Indexers unavailable"},
		})
	})
	mux.HandleFunc("/api/v3/calendar", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 9, "title": "S02E01", "airDateUtc": "2025-06-02T01:00:00Z", "series": map[string]any{"title": "Some Show"}},
		})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestArrClient_FetchSnapshot(t *testing.T) {
	ts := testArrServer(t)
	client := &arrClient{
		conn:      models.ServiceConnection{Kind: models.ServiceSonarr, Name: "sonarr", BaseURL: ts.URL, APIKey: "secret"},
		transport: http.DefaultTransport,
		log:       zap.NewNop(),
	}

	snap, err := client.FetchSnapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.History, 1)
	assert.Equal(t, int64(42), snap.History[0].ID)
	assert.Equal(t, "grabbed", snap.History[0].EventType)
	assert.Equal(t, "Some Show S01E01", snap.History[0].Title)

	require.Len(t, snap.Health, 1)
	assert.Equal(t, "IndexerStatusCheck/warning/Indexers unavailable", snap.Health[0].Signature())

	require.Len(t, snap.Calendar, 1)
	assert.Equal(t, "Some Show - S02E01", snap.Calendar[0].Title)
	assert.True(t, snap.Calendar[0].AirDate.Equal(time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC)))
}

func TestArrClient_BadCredentialIsFetchError(t *testing.T) {
	ts := testArrServer(t)
	client := &arrClient{
		conn:      models.ServiceConnection{Kind: models.ServiceSonarr, Name: "sonarr", BaseURL: ts.URL, APIKey: "wrong"},
		transport: http.DefaultTransport,
		log:       zap.NewNop(),
	}

	_, err := client.FetchSnapshot(context.Background())
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "sonarr", fetchErr.Service)
}

func TestArrClient_UnreachableUpstreamIsFetchError(t *testing.T) {
	client := &arrClient{
		conn:      models.ServiceConnection{Kind: models.ServiceRadarr, Name: "radarr", BaseURL: "http://127.0.0.1:1", APIKey: "secret"},
		transport: http.DefaultTransport,
		log:       zap.NewNop(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.FetchSnapshot(ctx)
	var fetchErr *FetchError
	assert.ErrorAs(t, err, &fetchErr)
}

func TestArrCalendarRecord_AirDateFallbacks(t *testing.T) {
	digital := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	cinemas := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, digital, arrCalendarRecord{DigitalRelease: digital, InCinemas: cinemas}.airDate())
	assert.Equal(t, cinemas, arrCalendarRecord{InCinemas: cinemas}.airDate())
}
