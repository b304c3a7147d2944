package main

import (
	"net/http"
	"os"
	"time"

	"github.com/fiffu/arrwatch/app"
	"github.com/fiffu/arrwatch/config"
	"github.com/fiffu/arrwatch/lib/detect"
	"github.com/fiffu/arrwatch/lib/poller"
	"github.com/fiffu/arrwatch/lib/store"
	"github.com/fiffu/arrwatch/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger() (*zap.Logger, error) {
	switch os.Getenv("ENVIRONMENT") {
	default:
		return zap.NewDevelopment()

	case "production":
		logCfg := zap.NewProductionConfig()
		logCfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			t = t.UTC()
			zapcore.ISO8601TimeEncoder(t, enc)
		}
		return logCfg.Build()
	}
}

func main() {
	fx.New(
		fx.Provide(config.NewConfig),
		fx.Provide(NewLogger),

		fx.Provide(app.NewDatabase),
		fx.Provide(app.NewTransport),

		fx.Provide(store.NewConnectionStore),
		fx.Provide(store.NewCursorStore),
		fx.Provide(store.NewSubscriptionStore),

		fx.Provide(detect.NewDetector),
		fx.Provide(senders.NewSenderRegistry),
		fx.Provide(senders.NewDispatcher),
		fx.Provide(poller.NewPoller),
		fx.Provide(app.NewAPI),

		fx.Invoke(func(*poller.Poller) {}),
		fx.Invoke(func(*http.Server) {}),
	).Run()
}
