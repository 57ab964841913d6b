package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/successledger/internal/model"
)

const commentColumns = `id, achievement_id, user_id, content, parent_id, created_at, updated_at`

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// ListTopLevel は実績のトップレベルコメント（parent_id IS NULL）をcreated_at昇順で返す。
func (r *PostgresCommentRepo) ListTopLevel(ctx context.Context, achievementID string) ([]*model.Comment, error) {
	return r.list(ctx,
		`SELECT `+commentColumns+` FROM comments
		 WHERE achievement_id = $1 AND parent_id IS NULL
		 ORDER BY created_at ASC`,
		achievementID,
	)
}

// ListReplies は指定コメントへの返信をcreated_at昇順で返す。
func (r *PostgresCommentRepo) ListReplies(ctx context.Context, parentID string) ([]*model.Comment, error) {
	return r.list(ctx,
		`SELECT `+commentColumns+` FROM comments
		 WHERE parent_id = $1
		 ORDER BY created_at ASC`,
		parentID,
	)
}

func (r *PostgresCommentRepo) list(ctx context.Context, query string, arg string) ([]*model.Comment, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []*model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, nil
}

// FindByID はIDでコメントを取得する。見つからない場合はnilを返す。
func (r *PostgresCommentRepo) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	return c, nil
}

// Create はコメントを作成する。
func (r *PostgresCommentRepo) Create(ctx context.Context, c *model.Comment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (`+commentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.AchievementID, c.UserID, c.Content, nullString(c.ParentID), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// Update はIDと投稿者が一致するコメントの本文を更新する。
// 一致する行がない場合はnilを返す。
func (r *PostgresCommentRepo) Update(ctx context.Context, id, userID, content string) (*model.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx,
		`UPDATE comments SET content = $1, updated_at = $2
		 WHERE id = $3 AND user_id = $4
		 RETURNING `+commentColumns,
		content, time.Now(), id, userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return c, nil
}

// Delete はIDと投稿者が一致するコメントを削除する。返信はCASCADE削除される。
func (r *PostgresCommentRepo) Delete(ctx context.Context, id, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM comments WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

func scanComment(row rowScanner) (*model.Comment, error) {
	var c model.Comment
	var parentID sql.NullString
	err := row.Scan(&c.ID, &c.AchievementID, &c.UserID, &c.Content, &parentID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ParentID = parentID.String
	return &c, nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
