package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/metrics"
	"github.com/qldp/registry/common/models"
	"github.com/qldp/registry/common/repository"
)

// FamilyMemberService handles household membership
type FamilyMemberService struct {
	store   repository.Store
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewFamilyMemberService creates a new family member service
func NewFamilyMemberService(store repository.Store, log *logger.Logger, m *metrics.Metrics) *FamilyMemberService {
	return &FamilyMemberService{
		store:   store,
		log:     log,
		metrics: m,
	}
}

// AddFamilyMembers links every person in members to the household.
// The batch is applied entirely or not at all.
func (s *FamilyMemberService) AddFamilyMembers(ctx context.Context, householdID int64, members []models.NewMember) (created []*models.FamilyMember, err error) {
	defer func(start time.Time) { s.metrics.ObserveOperation("add_family_members", start, err) }(time.Now())

	err = s.store.RunInTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Households.GetByID(ctx, householdID); err != nil {
			return err
		}

		people := make([]*models.Person, 0, len(members))
		for _, m := range members {
			person, err := r.People.GetByID(ctx, m.PersonID)
			if err != nil {
				return err
			}
			people = append(people, person)
		}

		seen := make(map[int64]bool, len(members))
		for _, m := range members {
			if seen[m.PersonID] {
				return fmt.Errorf("%w: person %d listed twice", models.ErrPersonAlreadyInHousehold, m.PersonID)
			}
			seen[m.PersonID] = true

			existing, err := r.FamilyMembers.FindByPerson(ctx, m.PersonID)
			if err == nil {
				return fmt.Errorf("%w: person %d is in household %d",
					models.ErrPersonAlreadyInHousehold, m.PersonID, existing.HouseholdID)
			}
			if !errors.Is(err, models.ErrHouseholdNotFound) {
				return err
			}
		}

		created = make([]*models.FamilyMember, 0, len(members))
		for i, m := range members {
			member := &models.FamilyMember{
				PersonID:     m.PersonID,
				HouseholdID:  householdID,
				HostRelation: m.HostRelation,
			}
			if err := r.FamilyMembers.Create(ctx, member); err != nil {
				return err
			}
			member.Person = people[i]
			created = append(created, member)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("added family members",
		"household_id", householdID,
		"count", len(created),
	)

	return created, nil
}

// GetFamilyMembers returns the household's members with their person loaded
func (s *FamilyMemberService) GetFamilyMembers(ctx context.Context, householdID int64) ([]*models.FamilyMember, error) {
	var members []*models.FamilyMember
	err := s.store.RunInTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Households.GetByID(ctx, householdID); err != nil {
			return err
		}

		var err error
		members, err = r.FamilyMembers.ListByHousehold(ctx, householdID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

// GetHouseholdHistory returns the household's ledger, oldest first
func (s *FamilyMemberService) GetHouseholdHistory(ctx context.Context, householdID int64) ([]*models.HouseholdHistory, error) {
	var entries []*models.HouseholdHistory
	err := s.store.RunInTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Households.GetByID(ctx, householdID); err != nil {
			return err
		}

		var err error
		entries, err = r.History.ListByHousehold(ctx, householdID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
