package model

import "time"

// Comment は実績へのコメントを表す。
// ParentIDが空の場合はトップレベルのコメント、それ以外は1階層の返信。
type Comment struct {
	ID            string
	AchievementID string
	UserID        string
	Content       string
	ParentID      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsReply は返信コメントかどうかを返す。
func (c *Comment) IsReply() bool {
	return c.ParentID != ""
}

// CommentWithAuthor はコメントと投稿者プロフィールを結合した構造体。
type CommentWithAuthor struct {
	*Comment
	Author *Profile
}

// Like は実績への「いいね」を表す。(achievement_id, user_id) で一意。
type Like struct {
	ID            string
	AchievementID string
	UserID        string
	CreatedAt     time.Time
}

// LikeWithProfile はいいねといいねしたユーザーのプロフィールを結合した構造体。
type LikeWithProfile struct {
	*Like
	Profile *Profile
}

// Share は実績の共有リンクを表す。
type Share struct {
	ID            string
	AchievementID string
	ShareToken    string
	CreatedAt     time.Time
	ExpiresAt     *time.Time // nilの場合は無期限
}

// IsExpired は指定時刻の時点で期限切れかどうかを返す。
func (s *Share) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// ShareWithAchievement は共有リンクと対象実績を結合した構造体。
type ShareWithAchievement struct {
	*Share
	Achievement *Achievement
}
