package repository

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/qldp/registry/common/db"
	"github.com/qldp/registry/common/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const uniqueViolation = "23505"

// PostgresStore runs repositories over one pgx transaction
type PostgresStore struct {
	db *db.DB
}

// NewPostgresStore creates a store backed by the connection pool
func NewPostgresStore(database *db.DB) *PostgresStore {
	return &PostgresStore{db: database}
}

// RunInTx implements Store
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(r *Repositories) error) error {
	return s.db.RunInTx(ctx, func(q db.Querier) error {
		return fn(NewRepositories(q))
	})
}

// NewRepositories binds every Postgres repository to q
func NewRepositories(q db.Querier) *Repositories {
	return &Repositories{
		People:        NewPeopleRepository(q),
		IDCards:       NewIDCardRepository(q),
		Households:    NewHouseholdRepository(q),
		FamilyMembers: NewFamilyMemberRepository(q),
		History:       NewHistoryRepository(q),
		TempAbsents:   NewTempAbsentRepository(q),
		Petitions:     NewPetitionRepository(q),
		Replies:       NewReplyRepository(q),
		Users:         NewUserRepository(q),
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}

// personColumns is selected wherever a person is joined as p
const personColumns = "p.id, p.people_code, p.full_name, p.leave_date, p.leave_reason, p.new_address"

// personRow scans personColumns, mobilization columns are nullable
type personRow struct {
	id          int64
	peopleCode  string
	fullName    string
	leaveDate   *time.Time
	leaveReason *string
	newAddress  *string
}

func (r *personRow) dest() []any {
	return []any{&r.id, &r.peopleCode, &r.fullName, &r.leaveDate, &r.leaveReason, &r.newAddress}
}

func (r *personRow) person() *models.Person {
	p := &models.Person{
		ID:         r.id,
		PeopleCode: r.peopleCode,
		FullName:   r.fullName,
	}
	if r.leaveDate != nil {
		p.Mobilization = &models.Mobilization{LeaveDate: *r.leaveDate}
		if r.leaveReason != nil {
			p.Mobilization.LeaveReason = *r.leaveReason
		}
		if r.newAddress != nil {
			p.Mobilization.NewAddress = *r.newAddress
		}
	}
	return p
}
