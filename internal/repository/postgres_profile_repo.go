package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/successledger/internal/model"
	"github.com/lib/pq"
)

const profileColumns = `id, full_name, avatar_url, bio, job_title, company, location, website, created_at, updated_at`

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`,
		id,
	)
	profile, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return profile, nil
}

// FindByIDs は指定ID集合のプロフィールを1クエリで取得する。
func (r *PostgresProfileRepo) FindByIDs(ctx context.Context, ids []string) ([]*model.Profile, error) {
	if len(ids) == 0 {
		return []*model.Profile{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ANY($1::uuid[])`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]*model.Profile, 0, len(ids))
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return profiles, nil
}

// Update はnilでないフィールドのみを更新し、更新後の行を返す。
// 該当行がない場合はnilを返す。
func (r *PostgresProfileRepo) Update(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error) {
	set := newSetClause()
	set.addNullable("full_name", update.FullName)
	set.addNullable("avatar_url", update.AvatarURL)
	set.addNullable("bio", update.Bio)
	set.addNullable("job_title", update.JobTitle)
	set.addNullable("company", update.Company)
	set.addNullable("location", update.Location)
	set.addNullable("website", update.Website)
	set.add("updated_at", time.Now())

	idParam := set.placeholder(id)
	query := fmt.Sprintf(`UPDATE profiles SET %s WHERE id = %s RETURNING %s`,
		set.String(), idParam, profileColumns)

	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, set.args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	var p model.Profile
	var fullName, avatarURL, bio, jobTitle, company, location, website sql.NullString
	err := row.Scan(&p.ID, &fullName, &avatarURL, &bio, &jobTitle, &company, &location, &website, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.FullName = fullName.String
	p.AvatarURL = avatarURL.String
	p.Bio = bio.String
	p.JobTitle = jobTitle.String
	p.Company = company.String
	p.Location = location.String
	p.Website = website.String
	return &p, nil
}

// setClause は部分更新用のSET句とプレースホルダ引数を組み立てる。
type setClause struct {
	columns []string
	args    []any
}

func newSetClause() *setClause {
	return &setClause{}
}

// placeholder は引数を追加し、対応するプレースホルダ（$n）を返す。
func (s *setClause) placeholder(v any) string {
	s.args = append(s.args, v)
	return fmt.Sprintf("$%d", len(s.args))
}

func (s *setClause) add(column string, v any) {
	s.columns = append(s.columns, column+" = "+s.placeholder(v))
}

// addNullable はptrがnilでない場合のみ列を追加する。空文字列はNULLとして書き込む。
func (s *setClause) addNullable(column string, ptr *string) {
	if ptr != nil {
		s.add(column, nullStringPtr(ptr))
	}
}

func (s *setClause) String() string {
	return strings.Join(s.columns, ", ")
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
