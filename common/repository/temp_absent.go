package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/qldp/registry/common/db"
	"github.com/qldp/registry/common/filter"
	"github.com/qldp/registry/common/models"
)

const tempAbsentCodeConstraint = "temp_absents_code_key"

var tempAbsentColumns = []string{
	"ta.id", "ta.temp_absent_code", "ta.from_date", "ta.to_date",
	"ta.person_id", "ta.temp_residence_place", "ta.reason",
	personColumns,
}

// PostgresTempAbsentRepository handles database operations for temp absences
type PostgresTempAbsentRepository struct {
	q db.Querier
}

// NewTempAbsentRepository creates a new temp absent repository
func NewTempAbsentRepository(q db.Querier) *PostgresTempAbsentRepository {
	return &PostgresTempAbsentRepository{q: q}
}

// Create inserts a new temp absence and sets its id
func (r *PostgresTempAbsentRepository) Create(ctx context.Context, absent *models.TempAbsent) error {
	query := `
		INSERT INTO temp_absents (temp_absent_code, from_date, to_date, person_id, temp_residence_place, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		absent.Code,
		absent.Interval.From,
		absent.Interval.To,
		absent.PersonID,
		absent.TempResidencePlace,
		absent.Reason,
	).Scan(&absent.ID)

	if err != nil {
		if isUniqueViolation(err, tempAbsentCodeConstraint) {
			return fmt.Errorf("%w: %s", models.ErrDuplicateTempAbsentCode, absent.Code)
		}
		return fmt.Errorf("failed to create temp absent: %w", err)
	}

	return nil
}

// GetByID retrieves a temp absence with its person loaded
func (r *PostgresTempAbsentRepository) GetByID(ctx context.Context, id int64) (*models.TempAbsent, error) {
	query, args, err := selectTempAbsents().Where(sq.Eq{"ta.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build temp absent query: %w", err)
	}

	ta, err := scanTempAbsent(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: id %d", models.ErrTempAbsentNotFound, id)
		}
		return nil, fmt.Errorf("failed to get temp absent: %w", err)
	}

	return ta, nil
}

// FindByCode retrieves a temp absence by its code
func (r *PostgresTempAbsentRepository) FindByCode(ctx context.Context, code string) (*models.TempAbsent, error) {
	query, args, err := selectTempAbsents().Where(sq.Eq{"ta.temp_absent_code": code}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build temp absent query: %w", err)
	}

	ta, err := scanTempAbsent(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: code %s", models.ErrTempAbsentNotFound, code)
		}
		return nil, fmt.Errorf("failed to find temp absent: %w", err)
	}

	return ta, nil
}

// List retrieves temp absences overlapping dates, ordered by start date
func (r *PostgresTempAbsentRepository) List(ctx context.Context, dates filter.DateRange) ([]*models.TempAbsent, error) {
	query, args, err := listTempAbsentsQuery(dates)
	if err != nil {
		return nil, fmt.Errorf("failed to build temp absent query: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list temp absents: %w", err)
	}
	defer rows.Close()

	var absents []*models.TempAbsent
	for rows.Next() {
		ta, err := scanTempAbsent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan temp absent: %w", err)
		}
		absents = append(absents, ta)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating temp absents: %w", err)
	}

	return absents, nil
}

func selectTempAbsents() sq.SelectBuilder {
	return psql.Select(tempAbsentColumns...).
		From("temp_absents ta").
		Join("people p ON p.id = ta.person_id")
}

// listTempAbsentsQuery builds the overlap predicate for a date range
func listTempAbsentsQuery(dates filter.DateRange) (string, []any, error) {
	b := selectTempAbsents()
	if dates.To != nil {
		b = b.Where(sq.LtOrEq{"ta.from_date": *dates.To})
	}
	if dates.From != nil {
		b = b.Where(sq.GtOrEq{"ta.to_date": *dates.From})
	}
	return b.OrderBy("ta.from_date ASC", "ta.id ASC").ToSql()
}

func scanTempAbsent(row pgx.Row) (*models.TempAbsent, error) {
	ta := &models.TempAbsent{}
	var person personRow
	dest := append([]any{
		&ta.ID,
		&ta.Code,
		&ta.Interval.From,
		&ta.Interval.To,
		&ta.PersonID,
		&ta.TempResidencePlace,
		&ta.Reason,
	}, person.dest()...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	ta.Person = person.person()
	return ta, nil
}
