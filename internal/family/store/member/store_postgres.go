package member

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"parish/internal/family/models"
	id "parish/pkg/domain"
	"parish/pkg/platform/sentinel"
)

const memberColumns = `id, family_id, user_id, related_user_id, relationship, created_at`

// PostgresStore persists relationship rows in the family_members table.
type PostgresStore struct {
	db sqlx.ExtContext
}

func NewPostgres(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx binds the store to an open transaction.
func NewPostgresTx(tx *sqlx.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

// Create inserts m. An existing row for the same directed pair is reported as
// sentinel.ErrConflict without aborting the surrounding transaction.
func (s *PostgresStore) Create(ctx context.Context, m *models.Member) error {
	res, err := sqlx.NamedExecContext(ctx, s.db, `
		INSERT INTO family_members (`+memberColumns+`)
		VALUES (:id, :family_id, :user_id, :related_user_id, :relationship, :created_at)
		ON CONFLICT (user_id, related_user_id) DO NOTHING`, m)
	if err != nil {
		return fmt.Errorf("insert family member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert family member rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) ListByFamily(ctx context.Context, familyID id.FamilyID) ([]*models.Member, error) {
	var out []*models.Member
	err := sqlx.SelectContext(ctx, s.db, &out, `
		SELECT `+memberColumns+` FROM family_members
		WHERE family_id = $1
		ORDER BY created_at, user_id`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteByUser(ctx context.Context, userID id.UserID) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM family_members WHERE user_id = $1 OR related_user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete family members: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete family members rows: %w", err)
	}
	return int(n), nil
}

