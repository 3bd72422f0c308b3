package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/qldp/registry/common/db"
	"github.com/qldp/registry/common/models"
)

// PostgresPeopleRepository handles database operations for people
type PostgresPeopleRepository struct {
	q db.Querier
}

// NewPeopleRepository creates a new people repository
func NewPeopleRepository(q db.Querier) *PostgresPeopleRepository {
	return &PostgresPeopleRepository{q: q}
}

// GetByID retrieves a person by id
func (r *PostgresPeopleRepository) GetByID(ctx context.Context, id int64) (*models.Person, error) {
	query := `
		SELECT ` + personColumns + `
		FROM people p
		WHERE p.id = $1
	`

	var row personRow
	if err := r.q.QueryRow(ctx, query, id).Scan(row.dest()...); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: id %d", models.ErrPersonNotFound, id)
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}

	return row.person(), nil
}

// Save writes the person's mutable fields including the mobilization
func (r *PostgresPeopleRepository) Save(ctx context.Context, person *models.Person) error {
	query := `
		UPDATE people
		SET full_name = $2, leave_date = $3, leave_reason = $4, new_address = $5
		WHERE id = $1
	`

	var (
		leaveDate   *time.Time
		leaveReason *string
		newAddress  *string
	)
	if m := person.Mobilization; m != nil {
		leaveDate = &m.LeaveDate
		leaveReason = &m.LeaveReason
		newAddress = &m.NewAddress
	}

	tag, err := r.q.Exec(ctx, query, person.ID, person.FullName, leaveDate, leaveReason, newAddress)
	if err != nil {
		return fmt.Errorf("failed to save person: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", models.ErrPersonNotFound, person.ID)
	}

	return nil
}

// PostgresIDCardRepository handles database operations for identity cards
type PostgresIDCardRepository struct {
	q db.Querier
}

// NewIDCardRepository creates a new id card repository
func NewIDCardRepository(q db.Querier) *PostgresIDCardRepository {
	return &PostgresIDCardRepository{q: q}
}

// FindByIDCardNumber resolves a card. A missing card means no person.
func (r *PostgresIDCardRepository) FindByIDCardNumber(ctx context.Context, number string) (*models.IDCard, error) {
	query := `
		SELECT id, id_card_number, person_id
		FROM id_cards
		WHERE id_card_number = $1
	`

	card := &models.IDCard{}
	err := r.q.QueryRow(ctx, query, number).Scan(&card.ID, &card.IDCardNumber, &card.PersonID)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: id card %s", models.ErrPersonNotFound, number)
		}
		return nil, fmt.Errorf("failed to find id card: %w", err)
	}

	return card, nil
}
