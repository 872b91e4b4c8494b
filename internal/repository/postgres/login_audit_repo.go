// internal/repository/postgres/login_audit_repo.go
package postgres

import (
	"context"
	"fmt"

	"fitpower-web/internal/domain/auth"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

type LoginAuditRepository struct {
	db *pgxpool.Pool
}

func NewLoginAuditRepository(db *pgxpool.Pool) *LoginAuditRepository {
	return &LoginAuditRepository{db: db}
}

// EnsureSchema creates the audit table when it does not exist yet.
func (r *LoginAuditRepository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS auth_login_events (
			id          BIGSERIAL PRIMARY KEY,
			session_id  TEXT NOT NULL,
			username    TEXT NOT NULL,
			role        TEXT NOT NULL DEFAULT '',
			outcome     TEXT NOT NULL,
			message     TEXT NOT NULL DEFAULT '',
			ip_address  TEXT NOT NULL DEFAULT '',
			user_agent  TEXT NOT NULL DEFAULT '',
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_auth_login_events_occurred_at ON auth_login_events (occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_auth_login_events_username ON auth_login_events (LOWER(username))`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create login audit schema: %w", err)
		}
	}
	return nil
}

// RecordLogin inserts one login attempt and fills in its id.
func (r *LoginAuditRepository) RecordLogin(ctx context.Context, event *auth.LoginEvent) error {
	query := `
		INSERT INTO auth_login_events
			(session_id, username, role, outcome, message, ip_address, user_agent, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		event.SessionID, event.Username, event.Role, string(event.Outcome),
		event.Message, event.IPAddress, event.UserAgent, event.OccurredAt,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to record login event: %w", err)
	}
	return nil
}

// ListRecent returns the newest login attempts first.
func (r *LoginAuditRepository) ListRecent(ctx context.Context, limit int) ([]*auth.LoginEvent, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	query := `
		SELECT id, session_id, username, role, outcome, message, ip_address, user_agent, occurred_at
		FROM auth_login_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list login events: %w", err)
	}

	events, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[auth.LoginEvent])
	if err != nil {
		return nil, fmt.Errorf("failed to scan login events: %w", err)
	}
	return events, nil
}
