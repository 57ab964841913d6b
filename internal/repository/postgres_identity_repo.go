package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/successledger/internal/model"
)

// PostgresIdentityRepo はidentitiesテーブルのリポジトリ。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindByProviderAndProviderUserID はIdP上のアカウントに紐付くidentityを返す。
// 未登録ならnilを返す。
func (r *PostgresIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	var id model.Identity
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, provider, provider_user_id, created_at, last_login_at
		 FROM identities
		 WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID,
	).Scan(&id.ID, &id.UserID, &id.Provider, &id.ProviderUserID, &id.CreatedAt, &id.LastLoginAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity for %s: %w", provider, err)
	}
	return &id, nil
}

// TouchLastLogin はlast_login_atをatで更新する。該当行がなくてもエラーにしない。
func (r *PostgresIdentityRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE identities SET last_login_at = $2 WHERE id = $1`,
		id, at,
	); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
