package invitation

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"parish/internal/family/models"
	"parish/internal/platform/postgres"
	id "parish/pkg/domain"
	"parish/pkg/platform/sentinel"
)

const invitationColumns = `id, family_id, inviter_id, invitee_id, relationship, status, created_at, responded_at`

// PostgresStore persists invitations in the family_invitations table.
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

func (s *PostgresStore) Create(ctx context.Context, inv *models.Invitation) error {
	_, err := sqlx.NamedExecContext(ctx, s.db, `
		INSERT INTO family_invitations (`+invitationColumns+`)
		VALUES (:id, :family_id, :inviter_id, :invitee_id, :relationship, :status, :created_at, :responded_at)`, inv)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, invitationID id.InvitationID) (*models.Invitation, error) {
	return s.findOne(ctx, `SELECT `+invitationColumns+` FROM family_invitations WHERE id = $1`, invitationID)
}

// FindByIDForUpdate locks the invitation row until the transaction ends.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, invitationID id.InvitationID) (*models.Invitation, error) {
	return s.findOne(ctx, `SELECT `+invitationColumns+` FROM family_invitations WHERE id = $1 FOR UPDATE`, invitationID)
}

func (s *PostgresStore) FindPending(ctx context.Context, familyID id.FamilyID, inviteeID id.UserID) (*models.Invitation, error) {
	return s.findOne(ctx, `
		SELECT `+invitationColumns+` FROM family_invitations
		WHERE family_id = $1 AND invitee_id = $2 AND status = 'pending'`, familyID, inviteeID)
}

func (s *PostgresStore) Update(ctx context.Context, inv *models.Invitation) error {
	res, err := sqlx.NamedExecContext(ctx, s.db, `
		UPDATE family_invitations SET
			relationship = :relationship,
			status = :status,
			responded_at = :responded_at
		WHERE id = :id`, inv)
	if err != nil {
		return fmt.Errorf("update invitation: %w", err)
	}
	return postgres.RequireRow(res)
}

func (s *PostgresStore) ListPendingForInvitee(ctx context.Context, inviteeID id.UserID) ([]*models.Invitation, error) {
	var out []*models.Invitation
	err := sqlx.SelectContext(ctx, s.db, &out, `
		SELECT `+invitationColumns+` FROM family_invitations
		WHERE invitee_id = $1 AND status = 'pending'
		ORDER BY created_at DESC`, inviteeID)
	if err != nil {
		return nil, fmt.Errorf("list pending invitations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListByFamily(ctx context.Context, familyID id.FamilyID) ([]*models.Invitation, error) {
	var out []*models.Invitation
	err := sqlx.SelectContext(ctx, s.db, &out, `
		SELECT `+invitationColumns+` FROM family_invitations
		WHERE family_id = $1
		ORDER BY created_at DESC`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list family invitations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*models.Invitation, error) {
	var inv models.Invitation
	if err := sqlx.GetContext(ctx, s.db, &inv, query, args...); err != nil {
		if postgres.IsNoRows(err) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find invitation: %w", err)
	}
	return &inv, nil
}
