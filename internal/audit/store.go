package audit

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Store persists audit events append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID string) ([]Event, error)
}

// MemoryStore keeps events in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.ID = int64(len(s.events) + 1)
	s.events = append(s.events, event)
	return nil
}

// ListByUser returns events where userID is the subject user or the actor.
func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.UserID == userID || e.ActorID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns a copy of every stored event.
func (s *MemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}

// PostgresStore writes events to the audit_events table.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO audit_events (category, occurred_at, actor_id, user_id, subject, action, reason, request_id, client_ip, device)
		VALUES (:category, :occurred_at, :actor_id, :user_id, :subject, :action, :reason, :request_id, :client_ip, :device)`, event)
	return err
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Event, error) {
	var out []Event
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, category, occurred_at, actor_id, user_id, subject, action, reason, request_id, client_ip, device
		FROM audit_events
		WHERE user_id = $1 OR actor_id = $1
		ORDER BY id`, userID)
	return out, err
}
