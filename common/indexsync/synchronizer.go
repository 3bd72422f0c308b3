package indexsync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/metrics"
	"github.com/qldp/registry/common/models"
	"github.com/qldp/registry/common/queue"
	"github.com/qldp/registry/common/search"
)

const (
	publishTimeout        = 2 * time.Second
	defaultDispatchBuffer = 1024
)

// Dispatcher is called by the orchestrators once their transaction committed.
// Methods never fail and never block on the index or the queue.
type Dispatcher interface {
	PersonSaved(ctx context.Context, person *models.Person)
	PetitionStatusChanged(ctx context.Context, petition *models.Petition)
	ReplyCreated(ctx context.Context, reply *models.Reply)
	ReplyStatusChanged(ctx context.Context, reply *models.Reply)
}

// Synchronizer hands sync jobs to a bounded buffer drained by a background
// publisher. A full buffer drops the job.
type Synchronizer struct {
	queue   queue.Queue
	log     *logger.Logger
	metrics *metrics.Metrics

	pending chan pendingJob
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
}

type pendingJob struct {
	ctx context.Context
	job Job
}

// NewSynchronizer creates a dispatcher publishing on q and starts its publisher.
// Close must be called to flush buffered jobs.
func NewSynchronizer(q queue.Queue, buffer int, log *logger.Logger, m *metrics.Metrics) *Synchronizer {
	if buffer < 1 {
		buffer = defaultDispatchBuffer
	}

	s := &Synchronizer{
		queue:   q,
		log:     log,
		metrics: m,
		pending: make(chan pendingJob, buffer),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Close stops accepting jobs and waits until the buffered ones are published
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.pending)
	s.mu.Unlock()

	<-s.done
}

func (s *Synchronizer) run() {
	defer close(s.done)
	for p := range s.pending {
		s.publishJob(p.ctx, p.job)
	}
}

// PersonSaved mirrors the person's leave date
func (s *Synchronizer) PersonSaved(ctx context.Context, person *models.Person) {
	patch := map[string]any{"leave_date": nil}
	if person.Mobilization != nil {
		patch["leave_date"] = person.Mobilization.LeaveDate
	}
	s.patch(ctx, search.IndexPeople, person.ID, patch)
}

// PetitionStatusChanged mirrors the petition's status
func (s *Synchronizer) PetitionStatusChanged(ctx context.Context, petition *models.Petition) {
	s.patch(ctx, search.IndexPetitions, petition.ID, map[string]any{"status": petition.Body.Status})
}

// ReplyStatusChanged mirrors the reply's status
func (s *Synchronizer) ReplyStatusChanged(ctx context.Context, reply *models.Reply) {
	s.patch(ctx, search.IndexReplies, reply.ID, map[string]any{"status": reply.Body.Status})
}

// ReplyCreated builds the reply projection from the petition projection
func (s *Synchronizer) ReplyCreated(ctx context.Context, reply *models.Reply) {
	seed := &ReplySeed{
		PetitionID: reply.PetitionID,
		Subject:    reply.Body.Subject,
		Status:     reply.Body.Status,
		Date:       reply.Body.Date,
	}
	if reply.Replier != nil {
		seed.Replier = reply.Replier.Username
	}

	s.dispatch(ctx, Job{
		ID:       uuid.New(),
		Kind:     KindReplyCreated,
		Index:    search.IndexReplies,
		EntityID: reply.ID,
		Reply:    seed,
	})
}

func (s *Synchronizer) patch(ctx context.Context, index string, id int64, fields map[string]any) {
	patch, err := json.Marshal(fields)
	if err != nil {
		s.log.Warn("failed to encode index patch", "index", index, "id", id, "error", err)
		s.metrics.IncrementSync(index, metrics.SyncDispatchFailed)
		return
	}

	s.dispatch(ctx, Job{
		ID:       uuid.New(),
		Kind:     KindPatch,
		Index:    index,
		EntityID: id,
		Patch:    patch,
	})
}

// dispatch enqueues job without waiting for the queue
func (s *Synchronizer) dispatch(ctx context.Context, job Job) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dropped(job, "synchronizer closed")
		return
	}

	select {
	case s.pending <- pendingJob{ctx: context.WithoutCancel(ctx), job: job}:
	default:
		s.dropped(job, "dispatch buffer full")
	}
}

func (s *Synchronizer) dropped(job Job, reason string) {
	s.log.Warn("index sync job dropped",
		"job_id", job.ID,
		"index", job.Index,
		"id", job.EntityID,
		"reason", reason,
	)
	s.metrics.IncrementSync(job.Index, metrics.SyncDispatchFailed)
}

func (s *Synchronizer) publishJob(ctx context.Context, job Job) {
	if err := s.publish(ctx, job); err != nil {
		s.log.Warn("index sync dispatch failed",
			"job_id", job.ID,
			"index", job.Index,
			"id", job.EntityID,
			"error", err,
		)
		s.metrics.IncrementSync(job.Index, metrics.SyncDispatchFailed)
		return
	}

	s.log.Debug("index sync dispatched", "job_id", job.ID, "kind", job.Kind, "index", job.Index, "id", job.EntityID)
}

func (s *Synchronizer) publish(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return s.queue.Publish(pubCtx, Topic, job.ID.String(), data)
}

// Nop discards every synchronization, used when index sync is disabled
type Nop struct{}

func (Nop) PersonSaved(context.Context, *models.Person)             {}
func (Nop) PetitionStatusChanged(context.Context, *models.Petition) {}
func (Nop) ReplyCreated(context.Context, *models.Reply)             {}
func (Nop) ReplyStatusChanged(context.Context, *models.Reply)       {}
