package container

import (
	"fmt"

	"github.com/qldp/registry/cmd/registry/service"
	"github.com/qldp/registry/common/bootstrap"
	"github.com/qldp/registry/common/codegen"
	"github.com/qldp/registry/common/filter"
	"github.com/qldp/registry/common/indexsync"
	"github.com/qldp/registry/common/metrics"
	"github.com/qldp/registry/common/ratelimit"
	"github.com/qldp/registry/common/repository"
)

// Container holds all initialized services (singleton pattern)
type Container struct {
	Components *bootstrap.Components
	Store      repository.Store
	Metrics    *metrics.Metrics

	// Index synchronization. Sync and Worker are nil when synchronization is disabled.
	Dispatcher indexsync.Dispatcher
	Sync       *indexsync.Synchronizer
	Worker     *indexsync.Worker

	// Limiter is nil when rate limiting is disabled
	Limiter *ratelimit.Limiter

	// Services
	FamilyMembers *service.FamilyMemberService
	TempAbsents   *service.TempAbsentService
	Replies       *service.ReplyService
}

// NewContainer initializes all services over the Postgres primary store
func NewContainer(components *bootstrap.Components) (*Container, error) {
	if components.DB == nil {
		return nil, fmt.Errorf("primary store requires a database connection")
	}
	return NewContainerWithStore(components, repository.NewPostgresStore(components.DB))
}

// NewContainerWithStore initializes all services over store
func NewContainerWithStore(components *bootstrap.Components, store repository.Store) (*Container, error) {
	cfg := components.Config
	log := components.Logger

	var m *metrics.Metrics
	if components.Telemetry != nil {
		m = components.Telemetry.Metrics
	}

	c := &Container{
		Components: components,
		Store:      store,
		Metrics:    m,
		Dispatcher: indexsync.Nop{},
	}

	if cfg.IndexSync.Enabled && components.Queue != nil && components.Index != nil {
		c.Sync = indexsync.NewSynchronizer(components.Queue, cfg.IndexSync.DispatchBuffer, log, m)
		c.Dispatcher = c.Sync
		c.Worker = indexsync.NewWorker(components.Index, components.Queue, cfg.IndexSync.Workers, log, m)
	} else {
		log.Warn("index synchronization disabled, search projections will not be updated")
	}

	if cfg.RateLimit.Enabled {
		if components.Redis == nil {
			return nil, fmt.Errorf("rate limiting requires redis")
		}
		c.Limiter = ratelimit.NewLimiter(components.Redis, cfg.RateLimit.KeyPrefix, log)
	}

	evaluator, err := filter.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create filter evaluator: %w", err)
	}

	c.FamilyMembers = service.NewFamilyMemberService(store, log, m)
	c.TempAbsents = service.NewTempAbsentService(
		store,
		codegen.New(),
		cfg.Codes,
		evaluator,
		c.Dispatcher,
		log,
		m,
	)

	c.Replies = service.NewReplyService(store, components.Cache, cfg.Cache.DefaultTTL, c.Dispatcher, log, m)

	return c, nil
}

// Close flushes pending index sync jobs
func (c *Container) Close() {
	if c.Sync != nil {
		c.Sync.Close()
	}
}
