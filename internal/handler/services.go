package handler

import (
	"context"
	"time"

	"github.com/hitoshi/successledger/internal/model"
)

// UserAccessor はリクエストのログインユーザーを解決する。
type UserAccessor interface {
	CurrentUser(ctx context.Context) *model.User
	RequireUser(ctx context.Context) (*model.User, error)
	CurrentUserProfile(ctx context.Context, userID string) *model.Profile
}

// FeedSanitizer はRSSフィードに埋め込むユーザー入力からマークアップを取り除く。
type FeedSanitizer interface {
	PlainText(input string) string
	SanitizeHTML(rawHTML string) string
}

// AchievementService は実績ハンドラーが必要とするサービスインターフェース。
type AchievementService interface {
	List(ctx context.Context, ownerID string) ([]*model.Achievement, error)
	ListPublicWithAuthors(ctx context.Context) ([]*model.AchievementWithAuthor, error)
	GetByID(ctx context.Context, id, ownerID string) (*model.Achievement, error)
	GetPublic(ctx context.Context, id string) (*model.AchievementWithAuthor, error)
	Create(ctx context.Context, in model.NewAchievement) (*model.Achievement, error)
	Update(ctx context.Context, id, ownerID string, update model.AchievementUpdate) (*model.Achievement, error)
	Delete(ctx context.Context, id, ownerID string) error
}

// ProfileService はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileService interface {
	Get(ctx context.Context, id string) (*model.Profile, error)
	Update(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error)
	LookupOne(ctx context.Context, userID string) *model.Profile
}

// CommentService はコメント操作のサービスインターフェース。
type CommentService interface {
	ListTopLevel(ctx context.Context, achievementID string) ([]*model.CommentWithAuthor, error)
	ListReplies(ctx context.Context, parentID string) ([]*model.CommentWithAuthor, error)
	Create(ctx context.Context, achievementID, userID, content, parentID string) (*model.CommentWithAuthor, error)
	Update(ctx context.Context, id, userID, content string) (*model.CommentWithAuthor, error)
	Delete(ctx context.Context, id, userID string) error
}

// LikeService はいいね操作のサービスインターフェース。
type LikeService interface {
	List(ctx context.Context, achievementID string) ([]*model.LikeWithProfile, error)
	Like(ctx context.Context, achievementID, userID string) error
	Unlike(ctx context.Context, achievementID, userID string) error
	HasLiked(ctx context.Context, achievementID, userID string) (bool, error)
	Count(ctx context.Context, achievementID string) int
	Toggle(ctx context.Context, achievementID, userID string) (bool, error)
}

// ShareService は共有リンク操作のサービスインターフェース。
type ShareService interface {
	CreateForOwner(ctx context.Context, achievementID, ownerID string, ttl time.Duration) (*model.Share, error)
	GetByToken(ctx context.Context, token string) (*model.ShareWithAchievement, error)
	ListForAchievement(ctx context.Context, achievementID string) ([]*model.Share, error)
	Delete(ctx context.Context, shareID, userID string) error
}

// ActionRecorder はドメイン操作の結果をメトリクスに記録する。
type ActionRecorder interface {
	RecordAction(action, outcome string)
}
