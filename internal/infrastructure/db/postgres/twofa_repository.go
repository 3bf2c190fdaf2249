package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

type TwoFARepository struct {
	db *sql.DB
}

var _ ports.TwoFARepository = (*TwoFARepository)(nil)

func NewTwoFARepository(db *sql.DB) *TwoFARepository {
	return &TwoFARepository{db: db}
}

func (r *TwoFARepository) Secret(ctx context.Context, userID int64) (string, error) {
	var secret string
	err := r.db.QueryRowContext(ctx,
		`SELECT secret FROM users_2fa WHERE user_id = $1`, userID,
	).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return secret, nil
}

func (r *TwoFARepository) CreateSecret(ctx context.Context, userID int64, secret string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users_2fa (user_id, secret) VALUES ($1, $2)`, userID, secret)
	if err != nil {
		return fmt.Errorf("insert 2fa secret: %w", err)
	}
	return nil
}

func (r *TwoFARepository) CreateRecoveryCodes(ctx context.Context, userID int64, codes []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, code := range codes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users_2fa_recovery (user_id, code, used) VALUES ($1, $2, false)`,
			userID, code); err != nil {
			return fmt.Errorf("insert recovery code: %w", err)
		}
	}
	return tx.Commit()
}

// ConsumeRecoveryCode flips exactly one unused matching code to used. The
// guarded UPDATE makes consumption atomic: two concurrent uses of the same
// code can never both succeed.
func (r *TwoFARepository) ConsumeRecoveryCode(ctx context.Context, userID int64, code string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users_2fa_recovery SET used = true
		 WHERE id = (
			SELECT id FROM users_2fa_recovery
			WHERE user_id = $1 AND code = $2 AND used = false
			LIMIT 1
		 )`,
		userID, code)
	if err != nil {
		return false, fmt.Errorf("consume recovery code: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteAll removes the secret and every recovery code in one transaction;
// a partial failure rolls back so a retry can complete the disable.
func (r *TwoFARepository) DeleteAll(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM users_2fa WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete 2fa secret: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users_2fa_recovery WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete recovery codes: %w", err)
	}
	return tx.Commit()
}

func (r *TwoFARepository) RegisteredUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM users_2fa ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("select 2fa users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
