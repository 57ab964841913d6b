package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/successledger/internal/model"
	"github.com/lib/pq"
)

// PostgresShareRepo はPostgreSQLを使用した共有リンクリポジトリ。
type PostgresShareRepo struct {
	db *sql.DB
}

// NewPostgresShareRepo はPostgresShareRepoを生成する。
func NewPostgresShareRepo(db *sql.DB) *PostgresShareRepo {
	return &PostgresShareRepo{db: db}
}

// Create は共有リンクを作成する。トークン重複時は一意制約違反をラップして返す。
func (r *PostgresShareRepo) Create(ctx context.Context, share *model.Share) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shares (id, achievement_id, share_token, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		share.ID, share.AchievementID, share.ShareToken, share.CreatedAt, share.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create share: %w", err)
	}
	return nil
}

// FindByTokenWithAchievement はトークンで共有リンクを検索し、対象実績をJOINして返す。
// 見つからない場合はnilを返す。
func (r *PostgresShareRepo) FindByTokenWithAchievement(ctx context.Context, token string) (*model.ShareWithAchievement, error) {
	var s model.Share
	var a model.Achievement
	var expires sql.NullTime
	var situation, task, action, result, category sql.NullString
	var tags []string

	err := r.db.QueryRowContext(ctx,
		`SELECT s.id, s.achievement_id, s.share_token, s.created_at, s.expires_at,
		        a.id, a.user_id, a.raw_text, a.star_situation, a.star_task, a.star_action, a.star_result,
		        a.date, a.category, a.tags, a.is_structured, a.created_at, a.updated_at
		 FROM shares s
		 INNER JOIN achievements a ON a.id = s.achievement_id
		 WHERE s.share_token = $1`,
		token,
	).Scan(
		&s.ID, &s.AchievementID, &s.ShareToken, &s.CreatedAt, &expires,
		&a.ID, &a.UserID, &a.RawText, &situation, &task, &action, &result,
		&a.Date, &category, pq.Array(&tags), &a.IsStructured, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find share by token: %w", err)
	}

	if expires.Valid {
		s.ExpiresAt = &expires.Time
	}
	a.StarSituation = situation.String
	a.StarTask = task.String
	a.StarAction = action.String
	a.StarResult = result.String
	a.Category = category.String
	if tags == nil {
		tags = []string{}
	}
	a.Tags = tags

	return &model.ShareWithAchievement{Share: &s, Achievement: &a}, nil
}

// FindOwnerID は共有リンクの対象実績の所有者IDを返す。
// 見つからない場合は空文字列を返す。
func (r *PostgresShareRepo) FindOwnerID(ctx context.Context, shareID string) (string, error) {
	var ownerID string
	err := r.db.QueryRowContext(ctx,
		`SELECT a.user_id
		 FROM shares s
		 INNER JOIN achievements a ON a.id = s.achievement_id
		 WHERE s.id = $1`,
		shareID,
	).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find share owner: %w", err)
	}
	return ownerID, nil
}

// ListByAchievement は実績の共有リンクをcreated_at降順で返す。
func (r *PostgresShareRepo) ListByAchievement(ctx context.Context, achievementID string) ([]*model.Share, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, achievement_id, share_token, created_at, expires_at
		 FROM shares
		 WHERE achievement_id = $1
		 ORDER BY created_at DESC`,
		achievementID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	defer rows.Close()

	shares := []*model.Share{}
	for rows.Next() {
		var s model.Share
		var expires sql.NullTime
		if err := rows.Scan(&s.ID, &s.AchievementID, &s.ShareToken, &s.CreatedAt, &expires); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		if expires.Valid {
			s.ExpiresAt = &expires.Time
		}
		shares = append(shares, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shares: %w", err)
	}
	return shares, nil
}

// DeleteByID は指定IDの共有リンクを削除する。
func (r *PostgresShareRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM shares WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete share: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れの共有リンクを削除し、削除件数を返す。
func (r *PostgresShareRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM shares WHERE expires_at IS NOT NULL AND expires_at <= now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired shares: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ ShareRepository = (*PostgresShareRepo)(nil)
