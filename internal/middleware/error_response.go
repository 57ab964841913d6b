package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/successledger/internal/model"
)

// ErrorResponseBody はJSONエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteAPIError はエラーコードに対応するステータスコードでエラーレスポンスを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusCodeFor(apiErr), apiErr)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, InternalError())
}

// InternalError は内部エラーを表すAPIErrorを返す。
func InternalError() *model.APIError {
	return &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "Something went wrong on our side.",
		Category: "system",
		Action:   "Wait a moment and try again.",
	}
}

// StatusCodeFor はAPIErrorのコードに対応するHTTPステータスコードを返す。
func StatusCodeFor(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeInvalidURL, model.ErrCodeSSRFBlocked,
		model.ErrCodeCommentContentRequired:
		return http.StatusUnprocessableEntity
	case model.ErrCodeAchievementNotFound, model.ErrCodeCommentNotFound,
		model.ErrCodeShareNotFound, model.ErrCodeProfileNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeDuplicateShareToken:
		return http.StatusConflict
	case model.ErrCodeUnauthorized:
		return http.StatusForbidden
	case model.ErrCodeAuthRequired:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
