package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	env "github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Env            string `env:"ENVIRONMENT"`
	ServerPort     int    `env:"SERVER_PORT" envDefault:"8080"`
	PublicURL      string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	DatabasePath   string `env:"DATABASE_PATH" envDefault:"arrwatch.sqlite"`
	BasicAuthCreds string `env:"BASIC_AUTH_CREDS"`

	PollIntervalSecs     int `env:"POLL_INTERVAL_SECS" envDefault:"30"`
	CycleTimeoutSecs     int `env:"CYCLE_TIMEOUT_SECS" envDefault:"20"`
	ShutdownGraceSecs    int `env:"SHUTDOWN_GRACE_SECS" envDefault:"10"`
	PremiereLookaheadHrs int `env:"PREMIERE_LOOKAHEAD_HOURS" envDefault:"24"`

	Push struct {
		VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY"`
		VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY"`
		Subscriber      string `env:"VAPID_SUBSCRIBER" envDefault:"mailto:admin@localhost"`
		TTLSecs         int    `env:"PUSH_TTL_SECS" envDefault:"60"`
	}
	Mailgun struct {
		Domain      string `env:"MAILGUN_DOMAIN"`
		APIKey      string `env:"MAILGUN_API_KEY"`
		SenderFrom  string `env:"MAILGUN_SENDER_FROM"`
		TimeoutSecs int    `env:"MAILGUN_TIMEOUT_SECS" envDefault:"10"`
	}

	log   *zap.Logger
	creds map[string]string

	// Poll interval in nanoseconds, behind an atomic so the settings API can
	// swap it while schedulers are running. A change applies on each
	// scheduler's next tick, never mid-cycle.
	pollInterval atomic.Int64
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) *Config {
	cfg := &Config{log: log}
	if err := env.Parse(cfg); err != nil {
		log.Sugar().Panicf("failed to parse environment: %v", err)
	}

	cfg.pollInterval.Store(int64(time.Duration(cfg.PollIntervalSecs) * time.Second))

	creds, err := cfg.parseCreds()
	if err != nil {
		if cfg.Env != "production" {
			cfg.log.Sugar().Infof("%s (auth disabled outside production)", err)
		} else {
			cfg.log.Sugar().Panic(err)
		}
	}
	cfg.creds = creds

	return cfg
}

func (cfg *Config) PollInterval() time.Duration {
	return time.Duration(cfg.pollInterval.Load())
}

func (cfg *Config) SetPollInterval(d time.Duration) error {
	if d < time.Second {
		return fmt.Errorf("poll interval too small: %s", d)
	}
	cfg.pollInterval.Store(int64(d))
	return nil
}

func (cfg *Config) CycleTimeout() time.Duration {
	return time.Duration(cfg.CycleTimeoutSecs) * time.Second
}

func (cfg *Config) ShutdownGrace() time.Duration {
	return time.Duration(cfg.ShutdownGraceSecs) * time.Second
}

func (cfg *Config) PremiereLookahead() time.Duration {
	return time.Duration(cfg.PremiereLookaheadHrs) * time.Hour
}

func (cfg *Config) MailgunTimeout() time.Duration {
	return time.Duration(cfg.Mailgun.TimeoutSecs) * time.Second
}

func (cfg *Config) GetCreds() map[string]string {
	return cfg.creds
}

func (cfg *Config) parseCreds() (map[string]string, error) {
	if cfg.BasicAuthCreds == "" {
		return nil, errors.New("BASIC_AUTH_CREDS envvar must be populated")
	}

	creds := strings.Split(cfg.BasicAuthCreds, ",")
	if len(creds) == 0 {
		return nil, errors.New("BASIC_AUTH_CREDS envvar should be filled with comma-separated values -- user1:pass1,user2:pass2")
	}

	result := make(map[string]string)
	for _, cred := range creds {
		userPass := strings.Split(cred, ":")
		if len(userPass) != 2 {
			return nil, fmt.Errorf("failed to parse '%s', each credential should be delimited by a colon -- user1:pass1,user2:pass2", cred)
		}

		user, pass := userPass[0], userPass[1]
		result[strings.Trim(user, " ")] = strings.Trim(pass, " ")
	}

	return result, nil
}
