package repository

import (
	"context"
	"fmt"

	"github.com/qldp/registry/common/db"
	"github.com/qldp/registry/common/models"
)

// PostgresHouseholdRepository handles database operations for households
type PostgresHouseholdRepository struct {
	q db.Querier
}

// NewHouseholdRepository creates a new household repository
func NewHouseholdRepository(q db.Querier) *PostgresHouseholdRepository {
	return &PostgresHouseholdRepository{q: q}
}

// GetByID retrieves a household by id
func (r *PostgresHouseholdRepository) GetByID(ctx context.Context, id int64) (*models.Household, error) {
	query := `
		SELECT id, household_code, address
		FROM households
		WHERE id = $1
	`

	h := &models.Household{}
	if err := r.q.QueryRow(ctx, query, id).Scan(&h.ID, &h.HouseholdCode, &h.Address); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: id %d", models.ErrHouseholdNotFound, id)
		}
		return nil, fmt.Errorf("failed to get household: %w", err)
	}

	return h, nil
}

// PostgresFamilyMemberRepository handles database operations for family members
type PostgresFamilyMemberRepository struct {
	q db.Querier
}

// NewFamilyMemberRepository creates a new family member repository
func NewFamilyMemberRepository(q db.Querier) *PostgresFamilyMemberRepository {
	return &PostgresFamilyMemberRepository{q: q}
}

// Create inserts a new membership link
func (r *PostgresFamilyMemberRepository) Create(ctx context.Context, member *models.FamilyMember) error {
	query := `
		INSERT INTO family_members (person_id, household_id, host_relation)
		VALUES ($1, $2, $3)
	`

	if _, err := r.q.Exec(ctx, query, member.PersonID, member.HouseholdID, member.HostRelation); err != nil {
		return fmt.Errorf("failed to create family member: %w", err)
	}

	return nil
}

// ListByHousehold retrieves the members of a household with their person loaded
func (r *PostgresFamilyMemberRepository) ListByHousehold(ctx context.Context, householdID int64) ([]*models.FamilyMember, error) {
	query := `
		SELECT fm.person_id, fm.household_id, COALESCE(fm.host_relation, ''), ` + personColumns + `
		FROM family_members fm
		JOIN people p ON p.id = fm.person_id
		WHERE fm.household_id = $1
		ORDER BY fm.person_id ASC
	`

	rows, err := r.q.Query(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list family members: %w", err)
	}
	defer rows.Close()

	var members []*models.FamilyMember
	for rows.Next() {
		m := &models.FamilyMember{}
		var person personRow
		dest := append([]any{&m.PersonID, &m.HouseholdID, &m.HostRelation}, person.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		m.Person = person.person()
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating family members: %w", err)
	}

	return members, nil
}

// FindByPerson returns the person's household link
func (r *PostgresFamilyMemberRepository) FindByPerson(ctx context.Context, personID int64) (*models.FamilyMember, error) {
	query := `
		SELECT person_id, household_id, COALESCE(host_relation, '')
		FROM family_members
		WHERE person_id = $1
		LIMIT 1
	`

	m := &models.FamilyMember{}
	if err := r.q.QueryRow(ctx, query, personID).Scan(&m.PersonID, &m.HouseholdID, &m.HostRelation); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: no household for person %d", models.ErrHouseholdNotFound, personID)
		}
		return nil, fmt.Errorf("failed to find family member: %w", err)
	}

	return m, nil
}

// PostgresHistoryRepository handles the household history ledger
type PostgresHistoryRepository struct {
	q db.Querier
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(q db.Querier) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{q: q}
}

// Append inserts a ledger entry and sets its id. Entries are never updated.
func (r *PostgresHistoryRepository) Append(ctx context.Context, entry *models.HouseholdHistory) error {
	query := `
		INSERT INTO household_history (household_id, affect_person_id, event, date)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query, entry.HouseholdID, entry.AffectPersonID, entry.Event, entry.Date).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to append household history: %w", err)
	}

	return nil
}

// ListByHousehold retrieves the ledger of a household, oldest first
func (r *PostgresHistoryRepository) ListByHousehold(ctx context.Context, householdID int64) ([]*models.HouseholdHistory, error) {
	query := `
		SELECT id, household_id, affect_person_id, event, date
		FROM household_history
		WHERE household_id = $1
		ORDER BY date ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list household history: %w", err)
	}
	defer rows.Close()

	var entries []*models.HouseholdHistory
	for rows.Next() {
		e := &models.HouseholdHistory{}
		if err := rows.Scan(&e.ID, &e.HouseholdID, &e.AffectPersonID, &e.Event, &e.Date); err != nil {
			return nil, fmt.Errorf("failed to scan household history: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating household history: %w", err)
	}

	return entries, nil
}
