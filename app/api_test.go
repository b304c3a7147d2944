package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fiffu/arrwatch/config"
	"github.com/fiffu/arrwatch/lib/models"
	"github.com/fiffu/arrwatch/lib/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testRouter(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.ServiceConnection{},
		&models.PollCursor{},
		&models.Subscription{},
		&models.Preference{},
		&models.DeliveryAttempt{},
	))

	log := zap.NewNop()
	cfg := &config.Config{PublicURL: "http://dash.local"}
	require.NoError(t, cfg.SetPollInterval(30*time.Second))

	subs := store.NewSubscriptionStore(nil, log, db)
	conns := store.NewConnectionStore(nil, log, db)
	cursors := store.NewCursorStore(nil, log, db)
	return router(cfg, log, subs, conns, cursors), cfg
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func registerDevice(t *testing.T, handler http.Handler, endpoint string) SubscriptionView {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/subscriptions", map[string]any{
		"deviceLabel": "pixel",
		"endpoint":    endpoint,
		"keys":        map[string]string{"p256dh": "pk", "auth": "ak"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var view SubscriptionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotEmpty(t, view.ID)
	return view
}

func TestAPI_SubscriptionLifecycle(t *testing.T) {
	handler, _ := testRouter(t)

	view := registerDevice(t, handler, "https://push.example/ep1")
	assert.Equal(t, models.PlatformWebpush, view.Platform)

	rec := doJSON(t, handler, http.MethodGet, "/api/subscriptions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []SubscriptionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	rec = doJSON(t, handler, http.MethodDelete, "/api/subscriptions/"+view.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/subscriptions", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed)
}

func TestAPI_CreateSubscriptionValidation(t *testing.T) {
	handler, _ := testRouter(t)

	// Missing endpoint.
	rec := doJSON(t, handler, http.MethodPost, "/api/subscriptions", map[string]any{"deviceLabel": "pixel"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Webpush without keys.
	rec = doJSON(t, handler, http.MethodPost, "/api/subscriptions", map[string]any{
		"endpoint": "https://push.example/ep1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_PreferenceToggleRoundtrip(t *testing.T) {
	handler, _ := testRouter(t)
	view := registerDevice(t, handler, "https://push.example/ep1")

	rec := doJSON(t, handler, http.MethodPut, "/api/subscriptions/"+view.ID+"/preferences", map[string]bool{
		"download_failed": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated SubscriptionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, map[string]bool{"download_failed": false}, updated.Preferences)

	rec = doJSON(t, handler, http.MethodPut, "/api/subscriptions/"+view.ID+"/preferences", map[string]bool{
		"not_a_kind": true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_EventKindCatalog(t *testing.T) {
	handler, _ := testRouter(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/events/kinds", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var kinds []models.EventDefinition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kinds))
	assert.Len(t, kinds, 9)
}

func TestAPI_ServiceLifecycle(t *testing.T) {
	handler, _ := testRouter(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/services", map[string]any{
		"kind":    "sonarr",
		"name":    "sonarr-main",
		"baseUrl": "http://localhost:8989",
		"apiKey":  "secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created ServiceView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, handler, http.MethodGet, "/api/services", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []ServiceView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Nil(t, listed[0].LastPolledAt) // never polled yet

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/services/%d/status", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, fmt.Sprintf("/api/services/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Unknown kinds are rejected.
	rec = doJSON(t, handler, http.MethodPost, "/api/services", map[string]any{
		"kind":    "winamp",
		"baseUrl": "http://localhost:1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_SettingsHotReloadInterval(t *testing.T) {
	handler, cfg := testRouter(t)

	rec := doJSON(t, handler, http.MethodPut, "/api/settings", map[string]any{"pollIntervalSecs": 90})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 90*time.Second, cfg.PollInterval())

	// Sub-second intervals are rejected and leave the setting untouched.
	rec = doJSON(t, handler, http.MethodPut, "/api/settings", map[string]any{"pollIntervalSecs": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 90*time.Second, cfg.PollInterval())
}
