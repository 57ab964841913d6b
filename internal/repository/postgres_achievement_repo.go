package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/successledger/internal/model"
	"github.com/lib/pq"
)

const achievementColumns = `id, user_id, raw_text, star_situation, star_task, star_action, star_result,
	date, category, tags, is_structured, created_at, updated_at`

// dateLayout はDATE列への書き込み形式。タイムゾーンによる日付ずれを避けるため文字列で渡す。
const dateLayout = "2006-01-02"

// PostgresAchievementRepo はPostgreSQLを使用した実績リポジトリ。
type PostgresAchievementRepo struct {
	db *sql.DB
}

// NewPostgresAchievementRepo はPostgresAchievementRepoを生成する。
func NewPostgresAchievementRepo(db *sql.DB) *PostgresAchievementRepo {
	return &PostgresAchievementRepo{db: db}
}

// ListByUserID は指定ユーザーの実績をdate降順、created_at降順で返す。
func (r *PostgresAchievementRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Achievement, error) {
	return r.list(ctx,
		`SELECT `+achievementColumns+` FROM achievements
		 WHERE user_id = $1
		 ORDER BY date DESC, created_at DESC`,
		userID,
	)
}

// ListAll は全ユーザーの実績をdate降順、created_at降順で返す。
func (r *PostgresAchievementRepo) ListAll(ctx context.Context) ([]*model.Achievement, error) {
	return r.list(ctx,
		`SELECT ` + achievementColumns + ` FROM achievements
		 ORDER BY date DESC, created_at DESC`,
	)
}

func (r *PostgresAchievementRepo) list(ctx context.Context, query string, args ...any) ([]*model.Achievement, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	achievements := []*model.Achievement{}
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		achievements = append(achievements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate achievements: %w", err)
	}
	return achievements, nil
}

// FindByID は所有者を問わず実績を取得する。見つからない場合はnilを返す。
func (r *PostgresAchievementRepo) FindByID(ctx context.Context, id string) (*model.Achievement, error) {
	a, err := scanAchievement(r.db.QueryRowContext(ctx,
		`SELECT `+achievementColumns+` FROM achievements WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find achievement: %w", err)
	}
	return a, nil
}

// FindByIDAndUserID はIDと所有者の両方が一致する実績を取得する。見つからない場合はnilを返す。
func (r *PostgresAchievementRepo) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Achievement, error) {
	a, err := scanAchievement(r.db.QueryRowContext(ctx,
		`SELECT `+achievementColumns+` FROM achievements WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find achievement: %w", err)
	}
	return a, nil
}

// Create は実績を作成する。
func (r *PostgresAchievementRepo) Create(ctx context.Context, a *model.Achievement) error {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO achievements (`+achievementColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.UserID, a.RawText,
		nullString(a.StarSituation), nullString(a.StarTask), nullString(a.StarAction), nullString(a.StarResult),
		a.Date.Format(dateLayout), nullString(a.Category), pq.Array(tags), a.IsStructured,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create achievement: %w", err)
	}
	return nil
}

// Update はIDと所有者が一致する行のnilでないフィールドを更新し、更新後の行を返す。
// 一致する行がない場合はnilを返す。
func (r *PostgresAchievementRepo) Update(ctx context.Context, id, userID string, update model.AchievementUpdate) (*model.Achievement, error) {
	set := newSetClause()
	if update.RawText != nil {
		set.add("raw_text", *update.RawText)
	}
	set.addNullable("star_situation", update.StarSituation)
	set.addNullable("star_task", update.StarTask)
	set.addNullable("star_action", update.StarAction)
	set.addNullable("star_result", update.StarResult)
	if update.Date != nil {
		set.add("date", update.Date.Format(dateLayout))
	}
	set.addNullable("category", update.Category)
	if update.Tags != nil {
		tags := *update.Tags
		if tags == nil {
			tags = []string{}
		}
		set.add("tags", pq.Array(tags))
	}
	if update.IsStructured != nil {
		set.add("is_structured", *update.IsStructured)
	}
	set.add("updated_at", time.Now())

	idParam := set.placeholder(id)
	userParam := set.placeholder(userID)
	query := fmt.Sprintf(`UPDATE achievements SET %s WHERE id = %s AND user_id = %s RETURNING %s`,
		set.String(), idParam, userParam, achievementColumns)

	a, err := scanAchievement(r.db.QueryRowContext(ctx, query, set.args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update achievement: %w", err)
	}
	return a, nil
}

// Delete はIDと所有者が一致する行を削除する。
// 一致する行がなくてもエラーにしない。
func (r *PostgresAchievementRepo) Delete(ctx context.Context, id, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM achievements WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete achievement: %w", err)
	}
	return nil
}

func scanAchievement(row rowScanner) (*model.Achievement, error) {
	var a model.Achievement
	var situation, task, action, result, category sql.NullString
	var tags []string
	err := row.Scan(
		&a.ID, &a.UserID, &a.RawText,
		&situation, &task, &action, &result,
		&a.Date, &category, pq.Array(&tags), &a.IsStructured,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
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
	return &a, nil
}

// compile-time interface check
var _ AchievementRepository = (*PostgresAchievementRepo)(nil)
