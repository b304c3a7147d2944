package senders

import (
	"context"
	"fmt"
	"strings"
	"sync"
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

type fakeSender struct {
	mu     sync.Mutex
	sent   []string // endpoints, in delivery order
	errors map[string]error
}

func (f *fakeSender) Send(ctx context.Context, sub *models.Subscription, payload Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sub.Endpoint)
	return f.errors[sub.Endpoint]
}

func testDispatcher(t *testing.T) (*Dispatcher, *store.SubscriptionStore, *fakeSender, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Subscription{}, &models.Preference{}, &models.DeliveryAttempt{}))

	log := zap.NewNop()
	subs := store.NewSubscriptionStore(nil, log, db)
	sender := &fakeSender{errors: map[string]error{}}
	cfg := &config.Config{PublicURL: "http://dash.local"}

	d := &Dispatcher{
		log:       log,
		cfg:       cfg,
		registry:  Registry{models.PlatformWebpush: sender},
		directory: subs,
	}
	return d, subs, sender, db
}

func seedSub(t *testing.T, subs *store.SubscriptionStore, endpoint string) *models.Subscription {
	t.Helper()
	sub := &models.Subscription{Platform: models.PlatformWebpush, Endpoint: endpoint}
	require.NoError(t, subs.Create(context.Background(), sub))
	return sub
}

func testEvent(kind models.EventKind) models.Event {
	return models.Event{
		Kind:        kind,
		ServiceKind: models.ServiceSonarr,
		ServiceName: "sonarr",
		SubjectID:   "42",
		Title:       "Some Show S01E01",
		OccurredAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatch_HonorsPerKindPreferences(t *testing.T) {
	d, subs, sender, _ := testDispatcher(t)
	ctx := context.Background()

	seedSub(t, subs, "https://push.example/ep1")
	muted := seedSub(t, subs, "https://push.example/ep2")
	require.NoError(t, subs.SetPreferences(ctx, muted.ID, map[models.EventKind]bool{
		models.EventDownloadFailed: false,
	}))

	d.Dispatch(ctx, []models.Event{testEvent(models.EventDownloadFailed)})

	assert.Equal(t, []string{"https://push.example/ep1"}, sender.sent)
}

func TestDispatch_EndpointGonePrunesSubscription(t *testing.T) {
	d, subs, sender, db := testDispatcher(t)
	ctx := context.Background()

	seedSub(t, subs, "https://push.example/alive")
	seedSub(t, subs, "https://push.example/dead")
	sender.errors["https://push.example/dead"] = ErrEndpointGone

	d.Dispatch(ctx, []models.Event{testEvent(models.EventGrabbed)})

	remaining, err := subs.List(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "https://push.example/alive", remaining[0].Endpoint)

	// The dead endpoint is never attempted again.
	sender.sent = nil
	d.Dispatch(ctx, []models.Event{testEvent(models.EventImported)})
	assert.Equal(t, []string{"https://push.example/alive"}, sender.sent)

	var attempts []models.DeliveryAttempt
	require.NoError(t, db.Where("outcome = ?", models.OutcomeEndpointGone).Find(&attempts).Error)
	assert.Len(t, attempts, 1)
}

func TestDispatch_TransientFailureIsIsolatedAndNotRetried(t *testing.T) {
	d, subs, sender, db := testDispatcher(t)
	ctx := context.Background()

	seedSub(t, subs, "https://push.example/flaky")
	seedSub(t, subs, "https://push.example/healthy")
	sender.errors["https://push.example/flaky"] = fmt.Errorf("push service responded 503")

	d.Dispatch(ctx, []models.Event{testEvent(models.EventGrabbed)})

	// Both endpoints were attempted; the failure pruned nothing.
	assert.Len(t, sender.sent, 2)
	remaining, err := subs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)

	var attempts []models.DeliveryAttempt
	require.NoError(t, db.Order("id").Find(&attempts).Error)
	require.Len(t, attempts, 2)
	outcomes := []string{attempts[0].Outcome, attempts[1].Outcome}
	assert.ElementsMatch(t, []string{models.OutcomeTransientError, models.OutcomeDelivered}, outcomes)
}

func TestDispatch_UnknownPlatformIsSkipped(t *testing.T) {
	d, subs, sender, _ := testDispatcher(t)
	ctx := context.Background()

	sub := &models.Subscription{Platform: "carrier_pigeon", Endpoint: "coop-3"}
	require.NoError(t, subs.Create(ctx, sub))

	d.Dispatch(ctx, []models.Event{testEvent(models.EventGrabbed)})
	assert.Empty(t, sender.sent)
}
