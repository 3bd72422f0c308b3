package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qldp/registry/common/config"
	"github.com/qldp/registry/common/filter"
	"github.com/qldp/registry/common/indexsync"
	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/metrics"
	"github.com/qldp/registry/common/models"
	"github.com/qldp/registry/common/repository"
	"github.com/qldp/registry/common/workflow"
)

// CodeGenerator produces candidate temp absent codes
type CodeGenerator interface {
	Generate(length int) string
}

// TempAbsentService handles temporary absences and the mobilization they imply
type TempAbsentService struct {
	store     repository.Store
	codes     CodeGenerator
	codeCfg   config.CodeConfig
	evaluator *filter.Evaluator
	sync      indexsync.Dispatcher
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// NewTempAbsentService creates a new temp absent service
func NewTempAbsentService(
	store repository.Store,
	codes CodeGenerator,
	codeCfg config.CodeConfig,
	evaluator *filter.Evaluator,
	sync indexsync.Dispatcher,
	log *logger.Logger,
	m *metrics.Metrics,
) *TempAbsentService {
	if codeCfg.MaxAttempts < 1 {
		codeCfg.MaxAttempts = 1
	}
	return &TempAbsentService{
		store:     store,
		codes:     codes,
		codeCfg:   codeCfg,
		evaluator: evaluator,
		sync:      sync,
		log:       log,
		metrics:   m,
	}
}

// CreateTempAbsent records an absence for the person holding the id card,
// updates their mobilization and appends a household history entry.
// When the store rejects the code as taken, the whole transaction is retried.
func (s *TempAbsentService) CreateTempAbsent(ctx context.Context, req models.TempAbsentRequest) (absent *models.TempAbsent, err error) {
	defer func(start time.Time) { s.metrics.ObserveOperation("create_temp_absent", start, err) }(time.Now())

	if _, err := models.NewDateInterval(req.Interval.From, req.Interval.To); err != nil {
		return nil, err
	}

	log := s.log.WithContext(ctx)
	for attempt := 1; ; attempt++ {
		absent, err = s.createTempAbsent(ctx, req)
		if err == nil {
			break
		}
		if !errors.Is(err, models.ErrDuplicateTempAbsentCode) || attempt >= s.codeCfg.MaxAttempts {
			return nil, err
		}
		log.Warn("temp absent code taken at insert, retrying", "attempt", attempt, "error", err)
		s.metrics.IncrementCodeCollision()
	}

	s.sync.PersonSaved(ctx, absent.Person)

	log.Info("created temp absent",
		"id", absent.ID,
		"code", absent.Code,
		"person_id", absent.PersonID,
	)

	return absent, nil
}

func (s *TempAbsentService) createTempAbsent(ctx context.Context, req models.TempAbsentRequest) (*models.TempAbsent, error) {
	var absent *models.TempAbsent
	err := s.store.RunInTx(ctx, func(r *repository.Repositories) error {
		card, err := r.IDCards.FindByIDCardNumber(ctx, req.IDCardNumber)
		if err != nil {
			return err
		}
		person, err := r.People.GetByID(ctx, card.PersonID)
		if err != nil {
			return err
		}

		code, err := s.uniqueCode(ctx, r.TempAbsents)
		if err != nil {
			return err
		}

		absent = workflow.NewTempAbsent(person, req, code)
		workflow.ApplyMobilization(person, absent)
		if err := r.People.Save(ctx, person); err != nil {
			return err
		}

		member, err := r.FamilyMembers.FindByPerson(ctx, person.ID)
		if err != nil {
			return err
		}
		if err := r.History.Append(ctx, workflow.TempAbsentHistory(member.HouseholdID, person)); err != nil {
			return err
		}

		if err := r.TempAbsents.Create(ctx, absent); err != nil {
			return err
		}
		absent.Person = person
		return nil
	})
	if err != nil {
		return nil, err
	}
	return absent, nil
}

// uniqueCode generates codes until one is not in use. There is no attempt
// limit; the store's unique constraint catches races between check and insert.
func (s *TempAbsentService) uniqueCode(ctx context.Context, repo repository.TempAbsentRepository) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code := s.codes.Generate(s.codeCfg.Length)
		_, err := repo.FindByCode(ctx, code)
		if errors.Is(err, models.ErrTempAbsentNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check temp absent code: %w", err)
		}
		s.metrics.IncrementCodeCollision()
	}
}

// GetTempAbsent returns an absence with its person loaded
func (s *TempAbsentService) GetTempAbsent(ctx context.Context, id int64) (*models.TempAbsent, error) {
	var absent *models.TempAbsent
	err := s.store.RunInTx(ctx, func(r *repository.Repositories) error {
		var err error
		absent, err = r.TempAbsents.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return absent, nil
}

// GetTempAbsentsByFilters returns the absences overlapping the date range
// expression, optionally narrowed by a CEL where expression
func (s *TempAbsentService) GetTempAbsentsByFilters(ctx context.Context, dateExpr, where string) ([]*models.TempAbsent, error) {
	dates, err := filter.ParseDateRange(dateExpr)
	if err != nil {
		return nil, err
	}
	if where != "" {
		if _, err := s.evaluator.Compile(where); err != nil {
			return nil, err
		}
	}

	var absents []*models.TempAbsent
	err = s.store.RunInTx(ctx, func(r *repository.Repositories) error {
		var err error
		absents, err = r.TempAbsents.List(ctx, dates)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.evaluator.Filter(where, absents)
}
