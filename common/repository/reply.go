package repository

import (
	"context"
	"fmt"

	"github.com/qldp/registry/common/db"
	"github.com/qldp/registry/common/models"
)

// PostgresPetitionRepository handles database operations for petitions
type PostgresPetitionRepository struct {
	q db.Querier
}

// NewPetitionRepository creates a new petition repository
func NewPetitionRepository(q db.Querier) *PostgresPetitionRepository {
	return &PostgresPetitionRepository{q: q}
}

// petitionByIDQuery locks the row so a concurrent accept cannot change the
// status before the transaction ends
const petitionByIDQuery = `
	SELECT id, COALESCE(sender_id, 0), subject, content, status, date
	FROM petitions
	WHERE id = $1
	FOR UPDATE
`

// GetByID retrieves a petition by id, locked for the rest of the transaction
func (r *PostgresPetitionRepository) GetByID(ctx context.Context, id int64) (*models.Petition, error) {
	p := &models.Petition{}
	err := r.q.QueryRow(ctx, petitionByIDQuery, id).Scan(
		&p.ID,
		&p.SenderID,
		&p.Body.Subject,
		&p.Body.Content,
		&p.Body.Status,
		&p.Body.Date,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: id %d", models.ErrPetitionNotFound, id)
		}
		return nil, fmt.Errorf("failed to get petition: %w", err)
	}

	return p, nil
}

// UpdateStatus updates the status of a petition
func (r *PostgresPetitionRepository) UpdateStatus(ctx context.Context, id int64, status models.Status) error {
	tag, err := r.q.Exec(ctx, `UPDATE petitions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update petition status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", models.ErrPetitionNotFound, id)
	}
	return nil
}

// PostgresReplyRepository handles database operations for replies
type PostgresReplyRepository struct {
	q db.Querier
}

// NewReplyRepository creates a new reply repository
func NewReplyRepository(q db.Querier) *PostgresReplyRepository {
	return &PostgresReplyRepository{q: q}
}

// Create inserts a new reply and sets its id
func (r *PostgresReplyRepository) Create(ctx context.Context, reply *models.Reply) error {
	query := `
		INSERT INTO replies (petition_id, replier_id, subject, content, status, date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		reply.PetitionID,
		reply.ReplierID,
		reply.Body.Subject,
		reply.Body.Content,
		reply.Body.Status,
		reply.Body.Date,
	).Scan(&reply.ID)

	if err != nil {
		return fmt.Errorf("failed to create reply: %w", err)
	}

	return nil
}

// GetByID retrieves a reply with its petition and replier loaded
func (r *PostgresReplyRepository) GetByID(ctx context.Context, id int64) (*models.Reply, error) {
	query := `
		SELECT r.id, r.petition_id, r.replier_id, r.subject, r.content, r.status, r.date,
		       pt.id, COALESCE(pt.sender_id, 0), pt.subject, pt.content, pt.status, pt.date,
		       u.id, u.username, u.identity_uid
		FROM replies r
		JOIN petitions pt ON pt.id = r.petition_id
		JOIN users u ON u.id = r.replier_id
		WHERE r.id = $1
	`

	reply := &models.Reply{Petition: &models.Petition{}, Replier: &models.User{}}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&reply.ID,
		&reply.PetitionID,
		&reply.ReplierID,
		&reply.Body.Subject,
		&reply.Body.Content,
		&reply.Body.Status,
		&reply.Body.Date,
		&reply.Petition.ID,
		&reply.Petition.SenderID,
		&reply.Petition.Body.Subject,
		&reply.Petition.Body.Content,
		&reply.Petition.Body.Status,
		&reply.Petition.Body.Date,
		&reply.Replier.ID,
		&reply.Replier.Username,
		&reply.Replier.IdentityUID,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: id %d", models.ErrReplyNotFound, id)
		}
		return nil, fmt.Errorf("failed to get reply: %w", err)
	}

	return reply, nil
}

const updateReplyStatusQuery = `UPDATE replies SET status = $3 WHERE id = $1 AND status = $2`

// UpdateStatus moves a reply from one status to another
func (r *PostgresReplyRepository) UpdateStatus(ctx context.Context, id int64, from, to models.Status) error {
	tag, err := r.q.Exec(ctx, updateReplyStatusQuery, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to update reply status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current models.Status
	err = r.q.QueryRow(ctx, `SELECT status FROM replies WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if isNoRows(err) {
			return fmt.Errorf("%w: id %d", models.ErrReplyNotFound, id)
		}
		return fmt.Errorf("failed to get reply status: %w", err)
	}
	return &models.InvalidReplyUpdateStatusError{Status: current}
}

// PostgresUserRepository handles database operations for users
type PostgresUserRepository struct {
	q db.Querier
}

// NewUserRepository creates a new user repository
func NewUserRepository(q db.Querier) *PostgresUserRepository {
	return &PostgresUserRepository{q: q}
}

// GetByID retrieves a user by id
func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, `SELECT id, username, identity_uid FROM users WHERE id = $1`, id)
}

// FindByIdentity retrieves a user by the identity provider's subject
func (r *PostgresUserRepository) FindByIdentity(ctx context.Context, identityUID string) (*models.User, error) {
	return r.findOne(ctx, `SELECT id, username, identity_uid FROM users WHERE identity_uid = $1`, identityUID)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	u := &models.User{}
	if err := r.q.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.IdentityUID); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %v", models.ErrUserNotFound, arg)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}
