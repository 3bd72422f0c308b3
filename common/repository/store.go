package repository

import (
	"context"

	"github.com/qldp/registry/common/filter"
	"github.com/qldp/registry/common/models"
)

// Lookups return the entity-specific models.ErrXNotFound sentinel when nothing
// matches. Reads populate referenced sub-entities before returning.

// PeopleRepository handles person records and their embedded mobilization
type PeopleRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Person, error)
	Save(ctx context.Context, person *models.Person) error
}

// IDCardRepository resolves identity cards
type IDCardRepository interface {
	FindByIDCardNumber(ctx context.Context, number string) (*models.IDCard, error)
}

// HouseholdRepository handles households
type HouseholdRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Household, error)
}

// FamilyMemberRepository handles person/household links
type FamilyMemberRepository interface {
	Create(ctx context.Context, member *models.FamilyMember) error
	ListByHousehold(ctx context.Context, householdID int64) ([]*models.FamilyMember, error)
	FindByPerson(ctx context.Context, personID int64) (*models.FamilyMember, error)
}

// HistoryRepository is the append-only household ledger
type HistoryRepository interface {
	Append(ctx context.Context, entry *models.HouseholdHistory) error
	ListByHousehold(ctx context.Context, householdID int64) ([]*models.HouseholdHistory, error)
}

// TempAbsentRepository handles temporary absence records.
// Create returns models.ErrDuplicateTempAbsentCode when the code is taken.
type TempAbsentRepository interface {
	Create(ctx context.Context, absent *models.TempAbsent) error
	GetByID(ctx context.Context, id int64) (*models.TempAbsent, error)
	FindByCode(ctx context.Context, code string) (*models.TempAbsent, error)
	List(ctx context.Context, dates filter.DateRange) ([]*models.TempAbsent, error)
}

// PetitionRepository handles petitions
type PetitionRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Petition, error)
	UpdateStatus(ctx context.Context, id int64, status models.Status) error
}

// ReplyRepository handles replies
type ReplyRepository interface {
	Create(ctx context.Context, reply *models.Reply) error
	GetByID(ctx context.Context, id int64) (*models.Reply, error)
	// UpdateStatus moves a reply from one status to another. A reply no longer
	// in from yields *models.InvalidReplyUpdateStatusError.
	UpdateStatus(ctx context.Context, id int64, from, to models.Status) error
}

// UserRepository resolves repliers
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	FindByIdentity(ctx context.Context, identityUID string) (*models.User, error)
}

// Repositories groups every repository bound to one transaction
type Repositories struct {
	People        PeopleRepository
	IDCards       IDCardRepository
	Households    HouseholdRepository
	FamilyMembers FamilyMemberRepository
	History       HistoryRepository
	TempAbsents   TempAbsentRepository
	Petitions     PetitionRepository
	Replies       ReplyRepository
	Users         UserRepository
}

// Store is the transactional boundary over the primary store. Every call made
// through the Repositories handed to fn shares one transaction, which commits
// only when fn returns nil.
type Store interface {
	RunInTx(ctx context.Context, fn func(r *Repositories) error) error
}
