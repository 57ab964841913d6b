// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, achievement, social, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation             = "VALIDATION_FAILED"
	ErrCodeInvalidURL             = "INVALID_URL"
	ErrCodeSSRFBlocked            = "SSRF_BLOCKED"
	ErrCodeAchievementNotFound    = "ACHIEVEMENT_NOT_FOUND"
	ErrCodeCommentContentRequired = "COMMENT_CONTENT_REQUIRED"
	ErrCodeCommentNotFound        = "COMMENT_NOT_FOUND"
	ErrCodeShareNotFound          = "SHARE_NOT_FOUND"
	ErrCodeDuplicateShareToken    = "DUPLICATE_SHARE_TOKEN"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeProfileNotFound        = "PROFILE_NOT_FOUND"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodeAuthRequired           = "AUTH_REQUIRED"
)

// NewValidationError は入力検証エラーを生成する。
// messageはそのままフォームに表示される。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "Check the highlighted fields and submit again.",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("Invalid URL: %s", reason),
		Category: "validation",
		Action:   "Enter a URL starting with http:// or https://.",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "This URL points to a private or local network address.",
		Category: "validation",
		Action:   "Use a publicly reachable website URL.",
	}
}

// NewAchievementNotFoundError は実績未検出エラーを生成する。
// 存在しない場合と他ユーザー所有の場合で同一のエラーを返す。
func NewAchievementNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAchievementNotFound,
		Message:  "Achievement not found",
		Category: "achievement",
		Action:   "Go back to your achievements list.",
	}
}

// NewCommentContentRequiredError はコメント本文が空の場合のエラーを生成する。
func NewCommentContentRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeCommentContentRequired,
		Message:  "Comment content is required",
		Category: "validation",
		Action:   "Write something before posting.",
	}
}

// NewCommentNotFoundError はコメント未検出エラーを生成する。
func NewCommentNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeCommentNotFound,
		Message:  "Comment not found",
		Category: "social",
		Action:   "Reload the page.",
	}
}

// NewShareNotFoundError は共有リンク未検出エラーを生成する。
// 期限切れの共有リンクにも同じエラーを使う。
func NewShareNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeShareNotFound,
		Message:  "Share link not found",
		Category: "social",
		Action:   "Ask the owner for a new link.",
	}
}

// NewDuplicateShareTokenError は共有トークンが重複した場合のエラーを生成する。
func NewDuplicateShareTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateShareToken,
		Message:  "Share token already exists",
		Category: "social",
		Action:   "Try creating the share link again.",
	}
}

// NewUnauthorizedError は権限なしエラーを生成する。
// 共有リンク削除では未検出・所有者不一致・検索失敗のすべてでこのエラーを返す。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Unauthorized",
		Category: "auth",
		Action:   "Sign in with the account that owns this item.",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "Profile not found",
		Category: "auth",
		Action:   "Sign out and sign in again.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "Sign in again.",
	}
}

// NewAuthRequiredError は未ログインで書き込み操作を行おうとした場合のエラーを生成する。
func NewAuthRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthRequired,
		Message:  "Sign in required",
		Category: "auth",
		Action:   "Sign in to continue.",
	}
}
