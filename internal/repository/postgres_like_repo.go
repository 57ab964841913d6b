package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/successledger/internal/model"
)

// PostgresLikeRepo はPostgreSQLを使用したいいねリポジトリ。
type PostgresLikeRepo struct {
	db *sql.DB
}

// NewPostgresLikeRepo はPostgresLikeRepoを生成する。
func NewPostgresLikeRepo(db *sql.DB) *PostgresLikeRepo {
	return &PostgresLikeRepo{db: db}
}

// ListByAchievement は実績へのいいねをcreated_at降順で返す。
func (r *PostgresLikeRepo) ListByAchievement(ctx context.Context, achievementID string) ([]*model.Like, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, achievement_id, user_id, created_at FROM likes
		 WHERE achievement_id = $1
		 ORDER BY created_at DESC`,
		achievementID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}
	defer rows.Close()

	likes := []*model.Like{}
	for rows.Next() {
		var l model.Like
		if err := rows.Scan(&l.ID, &l.AchievementID, &l.UserID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan like: %w", err)
		}
		likes = append(likes, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate likes: %w", err)
	}
	return likes, nil
}

// Create はいいねを作成する。
// (achievement_id, user_id) が既に存在する場合は一意制約違反をラップして返す。
func (r *PostgresLikeRepo) Create(ctx context.Context, like *model.Like) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO likes (id, achievement_id, user_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		like.ID, like.AchievementID, like.UserID, like.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create like: %w", err)
	}
	return nil
}

// Delete は(achievement_id, user_id)に一致するいいねを削除する。存在しなくてもエラーにしない。
func (r *PostgresLikeRepo) Delete(ctx context.Context, achievementID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM likes WHERE achievement_id = $1 AND user_id = $2`,
		achievementID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete like: %w", err)
	}
	return nil
}

// Exists は(achievement_id, user_id)のいいねが存在するかを返す。
// 行がない場合はエラーではなくfalseを返す。
func (r *PostgresLikeRepo) Exists(ctx context.Context, achievementID, userID string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM likes WHERE achievement_id = $1 AND user_id = $2`,
		achievementID, userID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return true, nil
}

// CountByAchievement は実績へのいいね数を返す。
func (r *PostgresLikeRepo) CountByAchievement(ctx context.Context, achievementID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM likes WHERE achievement_id = $1`,
		achievementID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ LikeRepository = (*PostgresLikeRepo)(nil)
