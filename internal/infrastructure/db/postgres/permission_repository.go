package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

type PermissionRepository struct {
	db *sql.DB
}

var _ ports.PermissionRepository = (*PermissionRepository)(nil)

func NewPermissionRepository(db *sql.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) Create(ctx context.Context, name, content string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO permissions (name, content_text) VALUES ($1, $2) RETURNING id`,
		name, content,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert permission: %w", err)
	}
	return id, nil
}

func (r *PermissionRepository) Update(ctx context.Context, id int64, name, content string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE permissions SET name = $1, content_text = $2 WHERE id = $3`,
		name, content, id)
	if err != nil {
		return fmt.Errorf("update permission: %w", err)
	}
	return requireAffected(res)
}

func (r *PermissionRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_permissions WHERE permission_id = $1`, id); err != nil {
		return fmt.Errorf("delete permission edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM permissions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}
	return tx.Commit()
}

func (r *PermissionRepository) All(ctx context.Context) ([]domain.Permission, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, content_text FROM permissions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select permissions: %w", err)
	}
	defer rows.Close()

	var perms []domain.Permission
	for rows.Next() {
		var (
			p   domain.Permission
			raw string
		)
		if err := rows.Scan(&p.ID, &p.Name, &raw); err != nil {
			return nil, err
		}
		p.Content = domain.ParseContent(raw)
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *PermissionRepository) AllAssignments(ctx context.Context) (map[int64][]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, permission_id FROM user_permissions ORDER BY user_id, permission_id`)
	if err != nil {
		return nil, fmt.Errorf("select user permissions: %w", err)
	}
	defer rows.Close()

	edges := make(map[int64][]int64)
	for rows.Next() {
		var userID, permissionID int64
		if err := rows.Scan(&userID, &permissionID); err != nil {
			return nil, err
		}
		edges[userID] = append(edges[userID], permissionID)
	}
	return edges, rows.Err()
}

func (r *PermissionRepository) Assign(ctx context.Context, userID, permissionID int64) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO user_permissions (user_id, permission_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, permissionID)
	if err != nil {
		return fmt.Errorf("assign permission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAlreadyAssigned
	}
	return nil
}

func (r *PermissionRepository) Unassign(ctx context.Context, userID, permissionID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM user_permissions WHERE user_id = $1 AND permission_id = $2`,
		userID, permissionID)
	if err != nil {
		return fmt.Errorf("unassign permission: %w", err)
	}
	return requireAffected(res)
}
