// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"research-workers/internal/common/config"
	"research-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// HandlerFunc is the job callback signature every research stage exposes.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// Workers tracks the job workers opened by StartWorker so they can be
// closed together on shutdown.
type Workers struct {
	open []worker.JobWorker
	log  logger.Logger
}

func NewWorkers(log logger.Logger) *Workers {
	return &Workers{log: log}
}

// StartWorker opens a job worker for taskType unless it is disabled.
func (w *Workers) StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler HandlerFunc) {
	if !wcfg.Enabled {
		w.log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()
	w.open = append(w.open, jw)

	w.log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
}

// Count returns the number of open workers.
func (w *Workers) Count() int {
	return len(w.open)
}

// Close stops every opened worker and waits for in-flight jobs.
func (w *Workers) Close() {
	for _, jw := range w.open {
		jw.Close()
		jw.AwaitClose()
	}
	w.open = nil
}
