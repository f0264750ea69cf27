package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"first-aid/api/internal/alert"
	"first-aid/api/internal/analyze"
	"first-aid/api/internal/config"
	"first-aid/api/internal/httpserver"
	"first-aid/api/internal/store"
	"first-aid/api/internal/vision"
	"first-aid/api/internal/vision/gemini"
	"first-aid/api/internal/vision/openai"
)

// App holds everything both binaries share.
type App struct {
	Cfg      *config.Config
	Engines  *vision.Engines
	Default  vision.Engine
	Service  *analyze.Service
	DB       *sql.DB
	Repo     *store.AnalysisRepo
	mqtt     *alert.MQTTPublisher
	purgeTTL time.Duration
}

// Engines builds only the engines that have an API key.
func Engines(cfg *config.Config) *vision.Engines {
	engs := &vision.Engines{}
	if cfg.GeminiAPIKey != "" {
		engs.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if cfg.OpenAIAPIKey != "" {
		engs.OpenAI = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	return engs
}

// Build connects optional Postgres and MQTT and wires the analysis service.
// Missing optional dependencies degrade to no cache / no alerts.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Cfg: cfg, Engines: Engines(cfg), purgeTTL: 30 * 24 * time.Hour}

	def, err := a.Engines.GetEngine(cfg.DefaultLLM)
	if err != nil {
		return nil, fmt.Errorf("default engine: %w", err)
	}
	a.Default = def

	var st analyze.Store
	if dsn := cfg.ResolveDSN(); dsn != "" {
		db, err := store.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Printf("db connected: %s", config.SafeDSNSummary(dsn))
		a.DB = db
		a.Repo = store.NewAnalysisRepo(db)
		st = a.Repo
	} else {
		log.Printf("DATABASE_URL not set: running without cache and history")
	}

	var pub alert.Publisher = alert.Nop{}
	if cfg.MQTTBroker != "" {
		p := alert.NewMQTTPublisher(alert.MQTTConfig{
			Broker:      cfg.MQTTBroker,
			TopicPrefix: cfg.MQTTTopicPrefix,
			QoS:         1,
		})
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := p.Connect(cctx)
		cancel()
		if err != nil {
			// paho keeps retrying in the background; alerts fail until it connects
			log.Printf("mqtt: %v", err)
		}
		a.mqtt = p
		pub = p
	}

	a.Service = analyze.New(st, pub, cfg.CacheTTL)
	return a, nil
}

// HealthChecks lists the dependencies /healthz should probe.
func (a *App) HealthChecks() map[string]httpserver.Check {
	checks := map[string]httpserver.Check{}
	if a.DB != nil {
		checks["db"] = a.DB.PingContext
	}
	return checks
}

// RunJanitor purges old analyses once a day until ctx is done.
func (a *App) RunJanitor(ctx context.Context) {
	if a.Repo == nil {
		return
	}
	t := time.NewTicker(24 * time.Hour)
	defer t.Stop()
	for {
		if n, err := a.Repo.PurgeOlderThan(ctx, a.purgeTTL); err != nil {
			log.Printf("janitor: %v", err)
		} else if n > 0 {
			log.Printf("janitor: purged %d analyses", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (a *App) Close() {
	if a.mqtt != nil {
		a.mqtt.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
