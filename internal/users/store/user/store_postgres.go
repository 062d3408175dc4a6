package user

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"parish/internal/platform/postgres"
	"parish/internal/users/models"
	id "parish/pkg/domain"
	"parish/pkg/platform/sentinel"
)

const userColumns = `id, email, first_name, last_name, family_id, family_role, is_family_head,
	is_admin, is_staff, is_priest, status, created_at, updated_at`

// PostgresStore persists users in the users table. It runs against either the
// pool or an open transaction.
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

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	_, err := sqlx.NamedExecContext(ctx, s.db, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :email, :first_name, :last_name, :family_id, :family_role, :is_family_head,
			:is_admin, :is_staff, :is_priest, :status, :created_at, :updated_at)`, u)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	var u models.User
	err := sqlx.GetContext(ctx, s.db, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := sqlx.GetContext(ctx, s.db, &u, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) Update(ctx context.Context, u *models.User) error {
	res, err := sqlx.NamedExecContext(ctx, s.db, `
		UPDATE users SET
			email = :email,
			first_name = :first_name,
			last_name = :last_name,
			family_id = :family_id,
			family_role = :family_role,
			is_family_head = :is_family_head,
			is_admin = :is_admin,
			is_staff = :is_staff,
			is_priest = :is_priest,
			status = :status,
			updated_at = :updated_at
		WHERE id = :id`, u)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByFamily(ctx context.Context, familyID id.FamilyID) ([]*models.User, error) {
	var out []*models.User
	err := sqlx.SelectContext(ctx, s.db, &out, `
		SELECT `+userColumns+` FROM users
		WHERE family_id = $1
		ORDER BY is_family_head DESC, first_name, last_name`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list family users: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListPriests(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	err := sqlx.SelectContext(ctx, s.db, &out, `
		SELECT `+userColumns+` FROM users
		WHERE is_priest AND status = 'active'
		ORDER BY first_name, last_name`)
	if err != nil {
		return nil, fmt.Errorf("list priests: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountByFamily(ctx context.Context, familyID id.FamilyID) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, s.db, &n, `SELECT count(*) FROM users WHERE family_id = $1`, familyID); err != nil {
		return 0, fmt.Errorf("count family users: %w", err)
	}
	return n, nil
}
