package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/qldp/registry/common/cache"
	"github.com/qldp/registry/common/indexsync"
	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/metrics"
	"github.com/qldp/registry/common/models"
	"github.com/qldp/registry/common/repository"
	"github.com/qldp/registry/common/workflow"
)

const replierCachePrefix = "replier:"

// ReplyService handles petition replies
type ReplyService struct {
	store    repository.Store
	cache    cache.Cache
	cacheTTL time.Duration
	sync     indexsync.Dispatcher
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewReplyService creates a new reply service. c may be nil to disable
// caching of identity to user resolution.
func NewReplyService(
	store repository.Store,
	c cache.Cache,
	cacheTTL time.Duration,
	sync indexsync.Dispatcher,
	log *logger.Logger,
	m *metrics.Metrics,
) *ReplyService {
	return &ReplyService{
		store:    store,
		cache:    c,
		cacheTTL: cacheTTL,
		sync:     sync,
		log:      log,
		metrics:  m,
	}
}

// CreateReply creates a PENDING reply by the user behind identity
func (s *ReplyService) CreateReply(ctx context.Context, identity string, content models.ReplyContent) (reply *models.Reply, err error) {
	defer func(start time.Time) { s.metrics.ObserveOperation("create_reply", start, err) }(time.Now())

	err = s.store.RunInTx(ctx, func(r *repository.Repositories) error {
		petition, err := r.Petitions.GetByID(ctx, content.PetitionID)
		if err != nil {
			return err
		}
		replier, err := s.resolveReplier(ctx, r.Users, identity)
		if err != nil {
			return err
		}

		reply, err = workflow.NewReply(petition, replier, content)
		if err != nil {
			return err
		}
		return r.Replies.Create(ctx, reply)
	})
	if err != nil {
		return nil, err
	}

	s.sync.ReplyCreated(ctx, reply)

	s.log.WithContext(ctx).Info("created reply",
		"id", reply.ID,
		"petition_id", reply.PetitionID,
		"replier_id", reply.ReplierID,
	)

	return reply, nil
}

// GetReply returns a reply with its petition and replier loaded
func (s *ReplyService) GetReply(ctx context.Context, id int64) (*models.Reply, error) {
	var reply *models.Reply
	err := s.store.RunInTx(ctx, func(r *repository.Repositories) error {
		var err error
		reply, err = r.Replies.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// AcceptReply sends a PENDING reply to the user and marks its petition
// REPLIED in the same transaction
func (s *ReplyService) AcceptReply(ctx context.Context, id int64) (reply *models.Reply, err error) {
	defer func(start time.Time) { s.metrics.ObserveOperation("accept_reply", start, err) }(time.Now())

	err = s.store.RunInTx(ctx, func(r *repository.Repositories) error {
		var err error
		reply, err = r.Replies.GetByID(ctx, id)
		if err != nil {
			return err
		}

		from := reply.Body.Status
		if err := workflow.AcceptReply(reply); err != nil {
			return err
		}

		if err := r.Replies.UpdateStatus(ctx, reply.ID, from, reply.Body.Status); err != nil {
			return err
		}
		return r.Petitions.UpdateStatus(ctx, reply.PetitionID, reply.Petition.Body.Status)
	})
	if err != nil {
		return nil, err
	}

	s.sync.PetitionStatusChanged(ctx, reply.Petition)
	s.sync.ReplyStatusChanged(ctx, reply)

	s.log.WithContext(ctx).Info("accepted reply",
		"id", reply.ID,
		"petition_id", reply.PetitionID,
	)

	return reply, nil
}

// resolveReplier maps an identity to a user, memoizing the user id
func (s *ReplyService) resolveReplier(ctx context.Context, users repository.UserRepository, identity string) (*models.User, error) {
	if identity == "" {
		return nil, models.ErrUserNotFound
	}

	key := replierCachePrefix + identity
	if s.cache != nil {
		if val, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			if id, err := strconv.ParseInt(string(val), 10, 64); err == nil {
				user, err := users.GetByID(ctx, id)
				if err == nil && user.IdentityUID == identity {
					return user, nil
				}
				if err != nil && !errors.Is(err, models.ErrUserNotFound) {
					return nil, err
				}
			}
			// stale entry
			_ = s.cache.Delete(ctx, key)
		}
	}

	user, err := users.FindByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, []byte(strconv.FormatInt(user.ID, 10)), s.cacheTTL); err != nil {
			s.log.Warn("failed to cache replier", "identity", identity, "error", err)
		}
	}

	return user, nil
}
