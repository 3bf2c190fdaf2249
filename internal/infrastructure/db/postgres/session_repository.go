package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

type SessionRepository struct {
	db *sql.DB
}

var _ ports.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Insert(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, expires_at, user_id, ip, status)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.Token, s.ExpiresAt, s.UserID, s.IP, string(s.Status))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Find(ctx context.Context, token string) (*domain.Session, error) {
	var (
		s      domain.Session
		status string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT token, expires_at, user_id, ip, status FROM sessions WHERE token = $1`,
		token,
	).Scan(&s.Token, &s.ExpiresAt, &s.UserID, &s.IP, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Status = domain.SessionStatus(status)
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
