package indexsync

import (
	"context"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/metrics"
	"github.com/qldp/registry/common/models"
	"github.com/qldp/registry/common/queue"
	"github.com/qldp/registry/common/search"
)

// Worker consumes sync jobs and applies them with lookup-then-write
type Worker struct {
	index   search.Index
	queue   queue.Queue
	workers int
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewWorker creates a worker running n consumers
func NewWorker(index search.Index, q queue.Queue, n int, log *logger.Logger, m *metrics.Metrics) *Worker {
	if n < 1 {
		n = 1
	}
	return &Worker{
		index:   index,
		queue:   q,
		workers: n,
		log:     log,
		metrics: m,
	}
}

// Start subscribes the consumers. They stop when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	for i := 0; i < w.workers; i++ {
		if err := w.queue.Subscribe(ctx, Topic, w.Handle); err != nil {
			return fmt.Errorf("failed to subscribe index sync worker %d: %w", i, err)
		}
	}
	w.log.Info("index sync workers started", "workers", w.workers)
	return nil
}

// Handle decodes and applies one message. Apply failures are logged and
// counted here so the job is dropped without retry.
func (w *Worker) Handle(ctx context.Context, key string, value []byte) error {
	var job Job
	if err := json.Unmarshal(value, &job); err != nil {
		w.metrics.IncrementSync("unknown", metrics.SyncFailed)
		return fmt.Errorf("failed to decode sync job %s: %w", key, err)
	}

	outcome, err := w.Apply(ctx, job)
	w.metrics.IncrementSync(job.Index, outcome)

	log := w.log.WithFields(map[string]any{
		"job_id": job.ID,
		"kind":   job.Kind,
		"index":  job.Index,
		"id":     job.EntityID,
	})
	switch outcome {
	case metrics.SyncFailed:
		log.Warn("index sync failed", "error", err)
	case metrics.SyncSkipped:
		log.Debug("index sync skipped, projection not found")
	default:
		log.Debug("index sync applied")
	}
	return nil
}

// Apply runs job against the index and reports the outcome
func (w *Worker) Apply(ctx context.Context, job Job) (string, error) {
	switch job.Kind {
	case KindPatch:
		return w.applyPatch(ctx, job)
	case KindReplyCreated:
		return w.applyReplyCreated(ctx, job)
	default:
		return metrics.SyncFailed, fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func (w *Worker) applyPatch(ctx context.Context, job Job) (string, error) {
	doc, ok, err := w.index.Get(ctx, job.Index, job.EntityID)
	if err != nil {
		return metrics.SyncFailed, err
	}
	if !ok {
		return metrics.SyncSkipped, nil
	}

	merged, err := jsonpatch.MergePatch(doc, job.Patch)
	if err != nil {
		return metrics.SyncFailed, fmt.Errorf("failed to merge patch: %w", err)
	}

	if err := w.index.Save(ctx, job.Index, job.EntityID, merged); err != nil {
		return metrics.SyncFailed, err
	}
	return metrics.SyncApplied, nil
}

func (w *Worker) applyReplyCreated(ctx context.Context, job Job) (string, error) {
	if job.Reply == nil {
		return metrics.SyncFailed, fmt.Errorf("reply job %s has no seed", job.ID)
	}

	doc, ok, err := w.index.Get(ctx, search.IndexPetitions, job.Reply.PetitionID)
	if err != nil {
		return metrics.SyncFailed, err
	}
	if !ok {
		return metrics.SyncSkipped, nil
	}

	var petition models.PetitionSearch
	if err := json.Unmarshal(doc, &petition); err != nil {
		return metrics.SyncFailed, fmt.Errorf("failed to decode petition projection: %w", err)
	}

	reply, err := json.Marshal(job.Reply.Projection(job.EntityID, petition))
	if err != nil {
		return metrics.SyncFailed, fmt.Errorf("failed to encode reply projection: %w", err)
	}

	if err := w.index.Save(ctx, job.Index, job.EntityID, reply); err != nil {
		return metrics.SyncFailed, err
	}
	return metrics.SyncApplied, nil
}
