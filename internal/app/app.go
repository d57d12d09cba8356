// Package app wires configuration, providers and stage handlers into a
// ready-to-serve pipeline.
package app

import (
	"context"
	"fmt"
	"time"

	"research-workers/internal/audit"
	awsclient "research-workers/internal/common/aws"
	"research-workers/internal/common/camunda"
	"research-workers/internal/common/config"
	"research-workers/internal/common/database"
	"research-workers/internal/common/logger"
	"research-workers/internal/common/observability"
	"research-workers/internal/notify"
	"research-workers/internal/providers/crawl"
	"research-workers/internal/providers/llm"
	"research-workers/internal/providers/search"
	assembletargets "research-workers/internal/workers/research/assemble-targets"
	batchcrawl "research-workers/internal/workers/research/batch-crawl"
	decomposequery "research-workers/internal/workers/research/decompose-query"
	processquery "research-workers/internal/workers/research/process-query"
	searchweb "research-workers/internal/workers/research/search-web"
	synthesizeanswer "research-workers/internal/workers/research/synthesize-answer"
	"research-workers/pkg/registry"
)

// App holds everything one process needs to answer queries.
type App struct {
	Config   *config.Config
	Registry *registry.ActivityRegistry
	Pipeline *processquery.Handler
	Stages   processquery.Stages
	Obs      *observability.Observability

	// Handlers maps each Zeebe task type onto its job handler.
	Handlers map[string]camunda.HandlerFunc

	closers []func() error
	logger  logger.Logger
}

// ConnectRetries bounds retryWithBackoff for the backing stores.
var ConnectRetries = 5

func Build(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{Config: cfg, logger: log}

	reg, err := registry.LoadOrDefault(cfg.Registry.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity registry: %w", err)
	}
	a.Registry = reg

	tp, err := observability.NewTracerProvider(cfg.Tracing, cfg.App.Name, cfg.App.Version)
	if err != nil {
		return nil, err
	}
	a.Obs = observability.New(cfg.App.Name, tp, log)
	a.closers = append(a.closers, func() error { a.Obs.Shutdown(); return nil })

	gemini, err := llm.NewGemini(ctx, llm.GeminiConfig{
		APIKey:  cfg.APIs.GenAI.APIKey,
		Model:   cfg.APIs.GenAI.Model,
		BaseURL: cfg.APIs.GenAI.BaseURL,
		Timeout: config.GetDuration(cfg.APIs.GenAI.Timeout),
	}, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	searcher := a.buildSearch(ctx)

	crawler, err := a.buildCrawl()
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := a.buildAudit(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	p := cfg.Pipeline

	dqCfg := decomposequery.LoadConfig()
	dqCfg.MaxSubQueries = p.MaxSubQueries
	dqCfg.MaxAttempts = p.DecomposeAttempts
	a.applyTimeout(decomposequery.TaskType, &dqCfg.Timeout)

	swCfg := searchweb.LoadConfig()
	swCfg.DefaultLimit = p.SearchLimit
	a.applyTimeout(searchweb.TaskType, &swCfg.Timeout)

	bcCfg := batchcrawl.LoadConfig()
	bcCfg.Formats = p.CrawlFormats
	bcCfg.PollInterval = config.GetDuration(p.PollInterval)
	bcCfg.MaxPollAttempts = p.MaxPollAttempts
	bcCfg.MaxPollErrors = p.MaxPollErrors
	a.applyTimeout(batchcrawl.TaskType, &bcCfg.Timeout)

	atCfg := assembletargets.LoadConfig()
	a.applyTimeout(assembletargets.TaskType, &atCfg.Timeout)

	saCfg := synthesizeanswer.LoadConfig()
	a.applyTimeout(synthesizeanswer.TaskType, &saCfg.Timeout)

	a.Stages = processquery.Stages{
		Decomposer:  decomposequery.NewHandler(dqCfg, gemini, log),
		Searcher:    searchweb.NewHandler(swCfg, searcher, log),
		Crawler:     batchcrawl.NewHandler(bcCfg, crawler, log),
		Assembler:   assembletargets.NewHandler(atCfg, log),
		Synthesizer: synthesizeanswer.NewHandler(saCfg, gemini, store, log),
	}

	pqCfg := processquery.LoadConfig()
	pqCfg.SearchLimit = p.SearchLimit
	pqCfg.ResultsPerQuery = p.ResultsPerQuery
	pqCfg.SearchConcurrency = p.SearchConcurrency
	pqCfg.ShortCircuitOnDecomposeFailure = p.ShortCircuitOnFail
	pqCfg.Timeout = config.GetDuration(p.Timeout)
	a.Pipeline = processquery.NewHandler(pqCfg, a.Stages, store, a.Obs, log)

	notifier, err := a.buildNotifier(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Pipeline.SetNotifier(notifier)

	a.Handlers = map[string]camunda.HandlerFunc{
		processquery.TaskType:     a.Pipeline.Handle,
		decomposequery.TaskType:   a.Stages.Decomposer.Handle,
		searchweb.TaskType:        a.Stages.Searcher.Handle,
		batchcrawl.TaskType:       a.Stages.Crawler.Handle,
		assembletargets.TaskType:  a.Stages.Assembler.Handle,
		synthesizeanswer.TaskType: a.Stages.Synthesizer.Handle,
	}

	log.Info("application built", map[string]interface{}{
		"crawlBackend": cfg.APIs.Crawl.Backend,
		"searchCache":  cfg.Database.Redis.Enabled,
		"audit":        cfg.Audit.Enabled,
		"auditMirror":  cfg.Audit.Postgres,
		"auditIndex":   cfg.Audit.Elasticsearch,
		"notify":       cfg.Notify.Enabled,
		"tracing":      tp != nil,
	})
	return a, nil
}

// applyTimeout prefers the registry's timeout for taskType when it has one.
func (a *App) applyTimeout(taskType string, target *time.Duration) {
	activity, ok := a.Registry.Find(taskType)
	if !ok {
		return
	}
	if d, err := activity.TimeoutDuration(); err == nil && d > 0 {
		*target = d
	}
}

// buildSearch wraps SerpAPI in the Redis cache when Redis is enabled and
// reachable. An unreachable cache is not fatal.
func (a *App) buildSearch(ctx context.Context) search.Provider {
	var provider search.Provider = search.NewSerpAPI(a.Config.APIs.SerpAPI, a.logger)

	rcfg := a.Config.Database.Redis
	if !rcfg.Enabled {
		return provider
	}

	rc, err := database.NewRedis(rcfg)
	if err == nil {
		err = retryWithBackoff(func() error { return rc.Ping(ctx) }, ConnectRetries, 500*time.Millisecond, a.logger, "Redis connection")
	}
	if err != nil {
		a.logger.Warn("search cache disabled", map[string]interface{}{"error": err.Error()})
		if rc != nil {
			_ = rc.Close()
		}
		return provider
	}

	a.closers = append(a.closers, rc.Close)
	return search.NewCachedProvider(provider, rc.Client, config.GetDuration(rcfg.CacheTTL), a.logger)
}

func (a *App) buildCrawl() (crawl.Provider, error) {
	ccfg := a.Config.APIs.Crawl
	switch ccfg.Backend {
	case "firecrawl":
		return crawl.NewFirecrawl(ccfg, a.logger), nil
	case "local":
		local := crawl.NewLocal(config.GetDuration(ccfg.Timeout), ccfg.Concurrency, a.logger)
		a.closers = append(a.closers, func() error { local.Close(); return nil })
		return local, nil
	default:
		return nil, fmt.Errorf("unknown crawl backend %q", ccfg.Backend)
	}
}

// buildAudit returns the file store, mirrored into Postgres and indexed
// into Elasticsearch when configured. Disabled auditing yields a NopStore.
func (a *App) buildAudit(ctx context.Context) (audit.Store, error) {
	acfg := a.Config.Audit
	if !acfg.Enabled {
		return audit.NopStore{}, nil
	}

	stores := audit.MultiStore{audit.NewFileStore(acfg.RootDir)}

	if acfg.Postgres {
		pg, err := database.NewPostgres(a.Config.Database.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)

		if err := retryWithBackoff(func() error { return pg.Ping(ctx) }, ConnectRetries, time.Second, a.logger, "PostgreSQL connection"); err != nil {
			return nil, err
		}

		pgStore, err := audit.NewPostgresStore(ctx, pg.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare audit table: %w", err)
		}
		stores = append(stores, pgStore)
	}

	if acfg.Elasticsearch {
		escfg := a.Config.Database.Elasticsearch
		es, err := database.NewElasticsearch(escfg)
		if err != nil {
			return nil, err
		}
		if err := retryWithBackoff(func() error { return es.Ping(ctx) }, ConnectRetries, time.Second, a.logger, "Elasticsearch connection"); err != nil {
			return nil, err
		}
		if err := es.EnsureAuditIndex(ctx, escfg.Index); err != nil {
			return nil, err
		}
		stores = append(stores, audit.NewElasticStore(es.Client, escfg.Index))
	}

	if len(stores) == 1 {
		return stores[0], nil
	}
	return stores, nil
}

func (a *App) buildNotifier(ctx context.Context) (notify.Notifier, error) {
	ncfg := a.Config.Notify
	if !ncfg.Enabled {
		return notify.NopNotifier{}, nil
	}

	client, err := awsclient.NewSNSClient(ctx, ncfg.Region, ncfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create SNS client: %w", err)
	}
	return notify.NewSNSNotifier(client, ncfg.TopicARN, a.logger), nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
