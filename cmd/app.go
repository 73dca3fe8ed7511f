package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/laia-quote-agent/agent/agents/checkout"
	"github.com/tanpawarit/laia-quote-agent/agent/agents/driver"
	"github.com/tanpawarit/laia-quote-agent/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	llmx "github.com/tanpawarit/laia-quote-agent/agent/llm"
	promptx "github.com/tanpawarit/laia-quote-agent/agent/prompt"
	quotex "github.com/tanpawarit/laia-quote-agent/agent/quote"
	"github.com/tanpawarit/laia-quote-agent/agent/record"
	statex "github.com/tanpawarit/laia-quote-agent/agent/state"
	toolx "github.com/tanpawarit/laia-quote-agent/agent/tool"
	"github.com/tanpawarit/laia-quote-agent/pkg/aforo"
	"github.com/tanpawarit/laia-quote-agent/pkg/calcapi"
	"github.com/tanpawarit/laia-quote-agent/pkg/calendar"
	configx "github.com/tanpawarit/laia-quote-agent/pkg/config"
	"github.com/tanpawarit/laia-quote-agent/pkg/metrics"
	"github.com/tanpawarit/laia-quote-agent/pkg/n8n"
	"github.com/tanpawarit/laia-quote-agent/pkg/postgres"
	"github.com/tanpawarit/laia-quote-agent/pkg/roadinfo"
	"github.com/uptrace/bun"
)

// app is the fully wired service graph shared by serve and chat.
type app struct {
	cfg      *AppConfig
	prompts  promptx.PromptSet
	metrics  *metrics.Recorder
	chat     *orchestrator.Orchestrator
	checkout *checkout.Service

	db *bun.DB
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := configx.New[AppConfig]("LAIA")
	if err != nil {
		return nil, err
	}
	return buildApp(ctx, cfg)
}

func buildApp(ctx context.Context, cfg *AppConfig) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	catalog, err := quotex.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	a.prompts, err = promptx.LoadPromptSet()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(reg)

	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, err
	}
	sessions, err := llmx.NewSessionFactory(ctx, *llmCfg)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	inferer, err := newAddressInferer()
	if err != nil {
		return nil, err
	}
	cal, err := newCalendar()
	if err != nil {
		return nil, err
	}
	calcCfg, err := configx.New[calcapi.Config]("CALCULATION_API")
	if err != nil {
		return nil, err
	}
	calc, err := calcapi.NewClient(*calcCfg)
	if err != nil {
		return nil, err
	}
	if !calc.Configured() {
		log.Warn().Msg("CALCULATION_API_URL not set, get_calculation_result answers with a placeholder")
	}
	extractor := aforo.Extractor{}

	executor, err := toolx.NewExecutor(toolx.Deps{
		Catalog:    catalog,
		Inferer:    inferer,
		Calendar:   cal,
		Calculator: calc,
		Extractor:  extractor,
		Observer:   a.metrics,
	})
	if err != nil {
		return nil, err
	}

	drv, err := driver.New(sessions, executor, a.prompts, driver.Config{
		MaxToolRounds: cfg.MaxToolRounds,
		Observer:      a.metrics,
	})
	if err != nil {
		return nil, err
	}

	store, err := newSessionStore(cfg.SessionStore)
	if err != nil {
		return nil, err
	}

	records, err := a.newRecords(ctx)
	if err != nil {
		return nil, err
	}

	files, err := checkout.NewDirStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	a.checkout, err = checkout.New(checkout.Deps{
		Store:      store,
		Catalog:    catalog,
		Records:    records,
		Files:      files,
		Extractor:  extractor,
		Calculator: calc,
		Timezone:   cfg.Timezone,
	})
	if err != nil {
		return nil, err
	}

	a.chat, err = orchestrator.New(store, drv, records, orchestrator.Config{
		MaxMessageChars: cfg.MaxMessageChars,
		MaxHistoryTurns: cfg.MaxHistoryTurns,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("llm_provider", string(llmCfg.Kind())).
		Str("session_store", cfg.SessionStore).
		Bool("postgres", a.db != nil).
		Int("catalog_services", len(catalog.Codes())).
		Msg("application wired")
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("close postgres")
		}
		a.db = nil
	}
}

func (a *app) newRecords(ctx context.Context) (record.Repository, error) {
	pgCfg, err := configx.New[postgres.Config]("POSTGRES")
	if err != nil {
		return nil, err
	}
	if !pgCfg.Enabled() {
		log.Warn().Msg("POSTGRES_DSN not set, quotes and dialogs are kept in memory")
		return record.NewMemoryRepository(), nil
	}
	db, err := postgres.Open(*pgCfg)
	if err != nil {
		return nil, err
	}
	a.db = db
	if err := postgres.Ping(ctx, db); err != nil {
		return nil, err
	}
	return record.NewBunRepository(db)
}

func newSessionStore(kind string) (statex.Store, error) {
	if kind != SessionStoreUpstash {
		return statex.NewMemoryStore(), nil
	}
	redisCfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	if err != nil {
		return nil, err
	}
	return statex.NewUpstashRedisStore(*redisCfg)
}

// newAddressInferer asks the n8n map-info workflow first when enabled and
// falls back to the nomenclature heuristic.
func newAddressInferer() (contractx.AddressInferer, error) {
	remoteCfg, err := configx.New[roadinfo.RemoteConfig]("N8N")
	if err != nil {
		return nil, err
	}
	if !remoteCfg.Enabled {
		return roadinfo.Heuristic{}, nil
	}
	n8nCfg, err := configx.New[n8n.Config]("N8N")
	if err != nil {
		return nil, err
	}
	client, err := n8n.NewClient(*n8nCfg)
	if err != nil {
		return nil, fmt.Errorf("n8n: %w", err)
	}
	remote, err := roadinfo.NewRemote(client, *remoteCfg)
	if err != nil {
		return nil, err
	}
	return roadinfo.Chain{remote, roadinfo.Heuristic{}}, nil
}

func newCalendar() (*calendar.Finder, error) {
	calCfg, err := configx.New[calendar.Config]("CALENDAR")
	if err != nil {
		return nil, err
	}
	busy := calendar.StaticBusy(nil)
	if calCfg.BusyFile != "" {
		busy, err = calendar.LoadStaticBusy(calCfg.BusyFile)
		if err != nil {
			return nil, err
		}
	}
	return calendar.New(busy, *calCfg)
}
