package entry

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"parish/internal/duty/models"
	"parish/internal/platform/postgres"
	id "parish/pkg/domain"
	"parish/pkg/platform/sentinel"
)

// Dates and times are selected as text so scanning is identical under the pq
// and pgx drivers.
const selectColumns = `id, priest_id,
	to_char(duty_date, 'YYYY-MM-DD') AS duty_date,
	to_char(duty_time, 'HH24:MI') AS duty_time,
	duty_description, status, notes, created_by, created_at, updated_at`

// PostgresStore persists duty entries in the duty_entries table.
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

func (s *PostgresStore) Create(ctx context.Context, e *models.DutyEntry) error {
	_, err := sqlx.NamedExecContext(ctx, s.db, `
		INSERT INTO duty_entries (id, priest_id, duty_date, duty_time, duty_description, status, notes, created_by, created_at, updated_at)
		VALUES (:id, :priest_id, :duty_date, :duty_time, :duty_description, :status, :notes, :created_by, :created_at, :updated_at)`, e)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert duty entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, entryID id.DutyEntryID) (*models.DutyEntry, error) {
	var e models.DutyEntry
	err := sqlx.GetContext(ctx, s.db, &e, `SELECT `+selectColumns+` FROM duty_entries WHERE id = $1`, entryID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find duty entry: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) Update(ctx context.Context, e *models.DutyEntry) error {
	res, err := sqlx.NamedExecContext(ctx, s.db, `
		UPDATE duty_entries SET
			priest_id = :priest_id,
			duty_date = :duty_date,
			duty_time = :duty_time,
			duty_description = :duty_description,
			status = :status,
			notes = :notes,
			updated_at = :updated_at
		WHERE id = :id`, e)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update duty entry: %w", err)
	}
	return postgres.RequireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, entryID id.DutyEntryID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM duty_entries WHERE id = $1`, entryID)
	if err != nil {
		return fmt.Errorf("delete duty entry: %w", err)
	}
	return postgres.RequireRow(res)
}

func (s *PostgresStore) ListScheduled(ctx context.Context, priestID id.UserID, date models.Date) ([]*models.DutyEntry, error) {
	var out []*models.DutyEntry
	err := sqlx.SelectContext(ctx, s.db, &out, `
		SELECT `+selectColumns+` FROM duty_entries
		WHERE priest_id = $1 AND duty_date = $2 AND status = 'scheduled'
		ORDER BY duty_time`, priestID, date)
	if err != nil {
		return nil, fmt.Errorf("list scheduled duty entries: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListForPriest(ctx context.Context, priestID id.UserID, filter models.ListFilter) ([]*models.DutyEntry, error) {
	clauses := []string{"priest_id = $1"}
	args := []any{priestID}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		clauses = append(clauses, fmt.Sprintf("duty_date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		clauses = append(clauses, fmt.Sprintf("duty_date <= $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}

	var out []*models.DutyEntry
	query := `SELECT ` + selectColumns + ` FROM duty_entries WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY duty_date, duty_time`
	if err := sqlx.SelectContext(ctx, s.db, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list duty entries: %w", err)
	}
	return out, nil
}
