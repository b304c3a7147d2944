package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fiffu/arrwatch/config"
	"github.com/fiffu/arrwatch/lib/models"
	"github.com/fiffu/arrwatch/lib/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewAPI(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	subs *store.SubscriptionStore,
	conns *store.ConnectionStore,
	cursors *store.CursorStore,
) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(cfg, log, subs, conns, cursors)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go srv.ListenAndServe()
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(cfg *config.Config, log *zap.Logger, subs *store.SubscriptionStore, conns *store.ConnectionStore, cursors *store.CursorStore) http.Handler {
	ctrl := &controller{cfg, log, subs, conns, cursors}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		if creds := cfg.GetCreds(); len(creds) > 0 {
			r.Use(middleware.BasicAuth("arrwatch", creds))
		} else {
			log.Sugar().Info("Auth is disabled since no credentials are defined")
		}

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", ctrl.createSubscription)
			r.Get("/", ctrl.listSubscriptions)
			r.Delete("/{subscription_id}", ctrl.deleteSubscription)
			r.Put("/{subscription_id}/preferences", ctrl.setPreferences)
		})

		r.Get("/events/kinds", ctrl.listEventKinds)

		r.Route("/services", func(r chi.Router) {
			r.Post("/", ctrl.createService)
			r.Get("/", ctrl.listServices)
			r.Delete("/{service_id}", ctrl.deleteService)
			r.Get("/{service_id}/status", ctrl.serviceStatus)
		})

		r.Put("/settings", ctrl.updateSettings)
	})

	return r
}

type controller struct {
	cfg     *config.Config
	log     *zap.Logger
	subs    *store.SubscriptionStore
	conns   *store.ConnectionStore
	cursors *store.CursorStore
}

func (ctrl *controller) reject(w http.ResponseWriter, status int, err error) {
	if err != nil {
		http.Error(w, err.Error(), status)
	} else {
		w.WriteHeader(status)
	}
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	if b, err := json.Marshal(body); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		ctrl.log.Sugar().Errorw("Request failed", "err", err)
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(b)
	}
}

type createSubscriptionRequest struct {
	Platform    string `json:"platform"`
	DeviceLabel string `json:"deviceLabel"`
	Endpoint    string `json:"endpoint"`
	Keys        struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (ctrl *controller) createSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.reject(w, 400, err)
		return
	}
	if req.Platform == "" {
		req.Platform = models.PlatformWebpush
	}
	if req.Endpoint == "" {
		ctrl.reject(w, 400, errors.New("endpoint is required"))
		return
	}
	if req.Platform == models.PlatformWebpush && (req.Keys.P256dh == "" || req.Keys.Auth == "") {
		ctrl.reject(w, 400, errors.New("webpush subscriptions require p256dh and auth keys"))
		return
	}

	sub := &models.Subscription{
		Platform:    req.Platform,
		DeviceLabel: req.DeviceLabel,
		Endpoint:    req.Endpoint,
		P256dh:      req.Keys.P256dh,
		Auth:        req.Keys.Auth,
	}
	if err := ctrl.subs.Create(ctx, sub); err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, SubscriptionView{}.From(sub))
}

func (ctrl *controller) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := ctrl.subs.List(r.Context())
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	views := make([]SubscriptionView, 0, len(subs))
	for i := range subs {
		views = append(views, SubscriptionView{}.From(&subs[i]))
	}
	ctrl.resolve(w, 200, views)
}

func (ctrl *controller) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "subscription_id")
	if err := ctrl.subs.Delete(r.Context(), id); err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, 200, map[string]any{"deleted": id})
}

func (ctrl *controller) setPreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "subscription_id")

	var req map[string]bool
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	prefs := make(map[models.EventKind]bool, len(req))
	for kind, enabled := range req {
		if !models.IsValidEventKind(kind) {
			ctrl.reject(w, 400, fmt.Errorf("unknown event kind: %s", kind))
			return
		}
		prefs[models.EventKind(kind)] = enabled
	}

	if _, err := ctrl.subs.Get(ctx, id); err != nil {
		ctrl.reject(w, 404, err)
		return
	}
	if err := ctrl.subs.SetPreferences(ctx, id, prefs); err != nil {
		ctrl.reject(w, 500, err)
		return
	}

	sub, err := ctrl.subs.Get(ctx, id)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, 200, SubscriptionView{}.From(sub))
}

func (ctrl *controller) listEventKinds(w http.ResponseWriter, r *http.Request) {
	ctrl.resolve(w, 200, models.EventDefinitions())
}

type createServiceRequest struct {
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	BaseURL  string `json:"baseUrl"`
	APIKey   string `json:"apiKey"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (ctrl *controller) createService(w http.ResponseWriter, r *http.Request) {
	var req createServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.reject(w, 400, err)
		return
	}
	if req.BaseURL == "" {
		ctrl.reject(w, 400, errors.New("baseUrl is required"))
		return
	}

	conn := &models.ServiceConnection{
		Kind:     models.ServiceKind(req.Kind),
		Name:     req.Name,
		BaseURL:  req.BaseURL,
		APIKey:   req.APIKey,
		Username: req.Username,
		Password: req.Password,
	}
	if err := ctrl.conns.Create(r.Context(), conn); err != nil {
		ctrl.reject(w, 400, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, ServiceView{}.From(conn, nil))
}

func (ctrl *controller) listServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conns, err := ctrl.conns.List(ctx)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}

	views := make([]ServiceView, 0, len(conns))
	for i := range conns {
		polledAt, err := ctrl.cursors.LastPolledAt(ctx, conns[i].ID)
		if err != nil {
			ctrl.reject(w, 500, err)
			return
		}
		views = append(views, ServiceView{}.From(&conns[i], &polledAt))
	}
	ctrl.resolve(w, 200, views)
}

func (ctrl *controller) deleteService(w http.ResponseWriter, r *http.Request) {
	id := parseUint(chi.URLParam(r, "service_id"))
	if err := ctrl.conns.Delete(r.Context(), id); err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, 200, map[string]any{"deleted": id})
}

func (ctrl *controller) serviceStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := parseUint(chi.URLParam(r, "service_id"))

	if _, err := ctrl.conns.Get(ctx, id); err != nil {
		ctrl.reject(w, 404, err)
		return
	}
	polledAt, err := ctrl.cursors.LastPolledAt(ctx, id)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, 200, map[string]any{"lastPolledAt": isoformat(polledAt)})
}

type updateSettingsRequest struct {
	PollIntervalSecs int `json:"pollIntervalSecs"`
}

// Interval changes take effect on each scheduler's next tick, never
// mid-cycle.
func (ctrl *controller) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.reject(w, 400, err)
		return
	}
	if err := ctrl.cfg.SetPollInterval(time.Duration(req.PollIntervalSecs) * time.Second); err != nil {
		ctrl.reject(w, 400, err)
		return
	}
	ctrl.resolve(w, 200, map[string]any{"pollIntervalSecs": req.PollIntervalSecs})
}

func parseUint(s string) uint {
	u, _ := strconv.ParseUint(s, 10, 64)
	return uint(u)
}
