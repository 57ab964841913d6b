// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/successledger/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザー、identity、プロフィールを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity, profile *model.Profile) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)

	// TouchLastLogin はidentityの最終ログイン日時を更新する。
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// ProfileRepository はプロフィールの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// FindByIDs は指定ID集合のプロフィールを1クエリで取得する。
	// 存在しないIDは結果に含まれない。
	FindByIDs(ctx context.Context, ids []string) ([]*model.Profile, error)

	// Update はnilでないフィールドのみを更新し、更新後の行を返す。
	// 該当行がない場合はnilを返す。
	Update(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error)
}

// AchievementRepository は実績の永続化インターフェース。
// 一覧はdate降順、同日内はcreated_at降順で返す。
type AchievementRepository interface {
	// ListByUserID は指定ユーザーの実績一覧を返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Achievement, error)

	// ListAll は全ユーザーの実績一覧を返す。公開フィード用。
	ListAll(ctx context.Context) ([]*model.Achievement, error)

	// FindByID は所有者を問わず実績を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Achievement, error)

	// FindByIDAndUserID はIDと所有者の両方が一致する実績を取得する。
	// 見つからない場合はnilを返す。
	FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Achievement, error)

	// Create は実績を作成する。
	Create(ctx context.Context, achievement *model.Achievement) error

	// Update はIDと所有者が一致する行のnilでないフィールドを更新し、更新後の行を返す。
	// 一致する行がない場合はnilを返す。
	Update(ctx context.Context, id, userID string, update model.AchievementUpdate) (*model.Achievement, error)

	// Delete はIDと所有者が一致する行を削除する。一致しなくてもエラーにしない。
	Delete(ctx context.Context, id, userID string) error
}

// CommentRepository はコメントの永続化インターフェース。
type CommentRepository interface {
	// ListTopLevel は実績のトップレベルコメントをcreated_at昇順で返す。
	ListTopLevel(ctx context.Context, achievementID string) ([]*model.Comment, error)

	// ListReplies は指定コメントへの返信をcreated_at昇順で返す。
	ListReplies(ctx context.Context, parentID string) ([]*model.Comment, error)

	// FindByID はIDでコメントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Comment, error)

	// Create はコメントを作成する。
	Create(ctx context.Context, comment *model.Comment) error

	// Update はIDと投稿者が一致するコメントの本文を更新し、更新後の行を返す。
	// 一致する行がない場合はnilを返す。
	Update(ctx context.Context, id, userID, content string) (*model.Comment, error)

	// Delete はIDと投稿者が一致するコメントを削除する。
	Delete(ctx context.Context, id, userID string) error
}

// LikeRepository はいいねの永続化インターフェース。
type LikeRepository interface {
	// ListByAchievement は実績へのいいねをcreated_at降順で返す。
	ListByAchievement(ctx context.Context, achievementID string) ([]*model.Like, error)

	// Create はいいねを作成する。
	// 既に存在する場合は一意制約違反のエラーをそのまま返す（IsUniqueViolationで判定）。
	Create(ctx context.Context, like *model.Like) error

	// Delete は(achievement_id, user_id)に一致するいいねを削除する。
	Delete(ctx context.Context, achievementID, userID string) error

	// Exists は(achievement_id, user_id)のいいねが存在するかを返す。
	Exists(ctx context.Context, achievementID, userID string) (bool, error)

	// CountByAchievement は実績へのいいね数を返す。
	CountByAchievement(ctx context.Context, achievementID string) (int, error)
}

// ShareRepository は共有リンクの永続化インターフェース。
type ShareRepository interface {
	// Create は共有リンクを作成する。
	// トークン重複時は一意制約違反のエラーをそのまま返す。
	Create(ctx context.Context, share *model.Share) error

	// FindByTokenWithAchievement はトークンで共有リンクを検索し、対象実績を結合して返す。
	// 見つからない場合はnilを返す。
	FindByTokenWithAchievement(ctx context.Context, token string) (*model.ShareWithAchievement, error)

	// FindOwnerID は共有リンクの対象実績の所有者IDを返す。
	// 見つからない場合は空文字列を返す。
	FindOwnerID(ctx context.Context, shareID string) (string, error)

	// ListByAchievement は実績の共有リンクをcreated_at降順で返す。
	ListByAchievement(ctx context.Context, achievementID string) ([]*model.Share, error)

	// DeleteByID は指定IDの共有リンクを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteExpired は期限切れの共有リンクを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
