// internal/workers/research/process-query/handler.go
package processquery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"research-workers/internal/audit"
	apperrors "research-workers/internal/common/errors"
	"research-workers/internal/common/logger"
	"research-workers/internal/common/metrics"
	"research-workers/internal/common/observability"
	"research-workers/internal/common/validation"
	"research-workers/internal/models"
	"research-workers/internal/notify"
	assembletargets "research-workers/internal/workers/research/assemble-targets"
	batchcrawl "research-workers/internal/workers/research/batch-crawl"
	decomposequery "research-workers/internal/workers/research/decompose-query"
	searchweb "research-workers/internal/workers/research/search-web"
	synthesizeanswer "research-workers/internal/workers/research/synthesize-answer"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const (
	TaskType = "process-query"

	notifyTimeout = 5 * time.Second
)

// Stages are the stage handlers a run is composed of.
type Stages struct {
	Decomposer  *decomposequery.Handler
	Searcher    *searchweb.Handler
	Crawler     *batchcrawl.Handler
	Assembler   *assembletargets.Handler
	Synthesizer *synthesizeanswer.Handler
}

type Handler struct {
	config     *Config
	stages     Stages
	store      audit.Store
	notifier   notify.Notifier
	obs        *observability.Observability
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, stages Stages, store audit.Store, obs *observability.Observability, log logger.Logger) *Handler {
	if store == nil {
		store = audit.NopStore{}
	}
	scoped := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:     config,
		stages:     stages,
		store:      store,
		notifier:   notify.NopNotifier{},
		obs:        obs,
		errHandler: apperrors.NewErrorHandler(scoped),
		logger:     scoped,
	}
}

// SetNotifier installs the run-completion notifier.
func (h *Handler) SetNotifier(n notify.Notifier) {
	if n == nil {
		n = notify.NopNotifier{}
	}
	h.notifier = n
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidQueryError(err.Error()))
		return
	}

	result, err := h.Run(ctx, input.Query)
	if err != nil {
		h.errHandler.HandleJobError(ctx, client, job, ToStandardError(err))
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(Output{TaskID: result.TaskID, Answer: result.Answer})
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) notify(ctx context.Context, log logger.Logger, taskID string, start time.Time, result *Result, runErr error) {
	event := notify.RunEvent{
		TaskID:     taskID,
		Status:     notify.StatusCompleted,
		DurationMs: time.Since(start).Milliseconds(),
		FinishedAt: time.Now().UTC(),
	}
	if runErr != nil {
		event.Status = notify.StatusFailed
		event.Code = ToStandardError(runErr).Code
	} else if result != nil && result.Answer != nil {
		event.Websites = len(result.Answer.Websites)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := h.notifier.RunFinished(ctx, event); err != nil {
		log.Warn("run notification failed", map[string]interface{}{"error": err.Error()})
	}
}

// ProcessQuery runs the whole pipeline and returns the synthesized answer.
func (h *Handler) ProcessQuery(ctx context.Context, query string) (*models.SynthesizedAnswer, error) {
	result, err := h.Run(ctx, query)
	if err != nil {
		return nil, err
	}
	return result.Answer, nil
}

// Run executes decompose, search, crawl, enrich, assemble and synthesize
// for one query. Audit writes along the way never fail the run.
func (h *Handler) Run(ctx context.Context, query string) (result *Result, err error) {
	taskID := uuid.NewString()
	log := h.logger.With(map[string]interface{}{"taskId": taskID})
	start := time.Now()

	metrics.InFlightQueries.Inc()
	ctx, span := h.obs.StartSpan(ctx, TaskType, attribute.String("task.id", taskID))
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		metrics.InFlightQueries.Dec()
		metrics.PipelineRuns.WithLabelValues(status).Inc()
		h.obs.RecordQueryProcessed(ctx, status)
		h.obs.RecordQueryDuration(ctx, time.Since(start), status)
		log.Info("task finished", map[string]interface{}{
			"status":     status,
			"durationMs": time.Since(start).Milliseconds(),
		})
		h.notify(ctx, log, taskID, start, result, err)
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", decomposequery.ErrInvalidInput)
	}
	log.Info("starting task", map[string]interface{}{"query": query})

	result = &Result{TaskID: taskID}

	// Decompose.
	stageCtx, stageSpan := h.obs.StartSpan(ctx, decomposequery.TaskType)
	decomposed, err := h.stages.Decomposer.Execute(stageCtx, &decomposequery.Input{Query: query})
	stageSpan.End()
	if err != nil {
		return nil, err
	}
	if decomposed.Failed && h.config.ShortCircuitOnDecomposeFailure {
		return nil, fmt.Errorf("%w: %s", ErrDecompositionFailed, decomposed.SubQueries[0])
	}
	result.SubQueries = decomposed.SubQueries

	// Search each sub-query and keep the top results.
	stageCtx, stageSpan = h.obs.StartSpan(ctx, searchweb.TaskType,
		attribute.Int("subqueries", len(result.SubQueries)))
	perQuery, err := h.searchAll(stageCtx, log, result.SubQueries)
	stageSpan.End()
	if err != nil {
		return nil, err
	}

	var urls []string
	for i, subQuery := range result.SubQueries {
		top, ok := perQuery[i].results, perQuery[i].ok
		if !ok {
			continue
		}
		h.persist(ctx, log, audit.KindSearchResults, []models.SearchAudit{{Query: subQuery, Output: top}})

		for _, res := range top {
			if !validation.ValidateURL(res.Link) || !models.ValidateSearchResult(res).Valid {
				metrics.DroppedRecords.WithLabelValues(TaskType, "invalid_search_result").Inc()
				log.Warn("skipping invalid search result", map[string]interface{}{
					"subQuery": subQuery,
					"link":     res.Link,
				})
				continue
			}
			result.Targets = append(result.Targets, models.ScrapeTarget{Link: res.Link, Metadata: res})
			urls = append(urls, res.Link)
		}
	}
	if result.Targets == nil {
		result.Targets = []models.ScrapeTarget{}
	}
	h.persist(ctx, log, audit.KindPreCrawl, result.Targets)
	log.Info("targets collected", map[string]interface{}{"targets": len(result.Targets)})

	// Crawl.
	stageCtx, stageSpan = h.obs.StartSpan(ctx, batchcrawl.TaskType, attribute.Int("urls", len(urls)))
	crawled, err := h.stages.Crawler.Execute(stageCtx, &batchcrawl.Input{URLs: urls})
	stageSpan.End()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipelineFailed, err)
	}

	// Enrich and assemble.
	result.Targets = h.stages.Assembler.Enrich(result.Targets, crawled.Contents)
	h.persist(ctx, log, audit.KindFinal, result.Targets)
	result.DataPoints = h.stages.Assembler.Assemble(result.Targets)
	log.Info("data points assembled", map[string]interface{}{
		"targets":    len(result.Targets),
		"dataPoints": len(result.DataPoints),
	})

	// Synthesize.
	stageCtx, stageSpan = h.obs.StartSpan(ctx, synthesizeanswer.TaskType,
		attribute.Int("datapoints", len(result.DataPoints)))
	answer, err := h.stages.Synthesizer.Execute(stageCtx, &synthesizeanswer.Input{
		Query:      query,
		DataPoints: result.DataPoints,
	})
	stageSpan.End()
	if err != nil {
		return nil, err
	}
	result.Answer = answer

	return result, nil
}

type searchOutcome struct {
	results []models.SearchResult
	ok      bool
}

// searchAll runs sub-queries sequentially, or through a bounded errgroup
// when SearchConcurrency > 1. Outcomes are stored by index so ordering is
// the same either way.
func (h *Handler) searchAll(ctx context.Context, log logger.Logger, subQueries []string) ([]searchOutcome, error) {
	outcomes := make([]searchOutcome, len(subQueries))

	if h.config.SearchConcurrency <= 1 {
		for i, q := range subQueries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outcomes[i] = h.searchOne(ctx, log, q)
		}
		return outcomes, ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.config.SearchConcurrency)
	for i, q := range subQueries {
		i, q := i, q
		g.Go(func() error {
			outcomes[i] = h.searchOne(gctx, log, q)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (h *Handler) searchOne(ctx context.Context, log logger.Logger, subQuery string) (outcome searchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("sub-query panicked", map[string]interface{}{
				"subQuery": subQuery,
				"panic":    fmt.Sprint(r),
			})
			outcome = searchOutcome{}
		}
	}()

	out, err := h.stages.Searcher.Execute(ctx, &searchweb.Input{Query: subQuery, Limit: h.config.SearchLimit})
	if err != nil {
		log.Error("sub-query failed", map[string]interface{}{
			"subQuery": subQuery,
			"error":    err.Error(),
		})
		return searchOutcome{}
	}

	top := out.Results
	if len(top) > h.config.ResultsPerQuery {
		top = top[:h.config.ResultsPerQuery]
	}
	return searchOutcome{results: top, ok: true}
}

func (h *Handler) persist(ctx context.Context, log logger.Logger, kind audit.Kind, v interface{}) {
	ref, err := h.store.Save(ctx, kind, v)
	if err != nil {
		log.Error("failed to persist audit artifact", map[string]interface{}{
			"kind":  string(kind),
			"error": err.Error(),
		})
		return
	}
	if ref != "" {
		log.Info("audit artifact saved", map[string]interface{}{
			"kind": string(kind),
			"ref":  ref,
		})
	}
}
