package family

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"parish/internal/family/models"
	"parish/internal/platform/postgres"
	id "parish/pkg/domain"
	"parish/pkg/platform/sentinel"
)

const familyColumns = `id, name, address, phone, email, created_at, updated_at`

// PostgresStore persists families in the families table.
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

func (s *PostgresStore) Create(ctx context.Context, f *models.Family) error {
	_, err := sqlx.NamedExecContext(ctx, s.db, `
		INSERT INTO families (`+familyColumns+`)
		VALUES (:id, :name, :address, :phone, :email, :created_at, :updated_at)`, f)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert family: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, familyID id.FamilyID) (*models.Family, error) {
	var f models.Family
	err := sqlx.GetContext(ctx, s.db, &f, `SELECT `+familyColumns+` FROM families WHERE id = $1`, familyID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find family: %w", err)
	}
	return &f, nil
}

func (s *PostgresStore) Update(ctx context.Context, f *models.Family) error {
	res, err := sqlx.NamedExecContext(ctx, s.db, `
		UPDATE families SET
			name = :name,
			address = :address,
			phone = :phone,
			email = :email,
			updated_at = :updated_at
		WHERE id = :id`, f)
	if err != nil {
		return fmt.Errorf("update family: %w", err)
	}
	return postgres.RequireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, familyID id.FamilyID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM families WHERE id = $1`, familyID)
	if err != nil {
		return fmt.Errorf("delete family: %w", err)
	}
	return postgres.RequireRow(res)
}
