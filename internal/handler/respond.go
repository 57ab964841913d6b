package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/successledger/internal/middleware"
	"github.com/hitoshi/successledger/internal/model"
)

// wantsJSON はクライアントがJSONレスポンスを要求しているかを判定する。
// インタラクティブないいねボタンとコメントスレッドはAcceptヘッダーでJSONを要求する。
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode json response", slog.String("error", err.Error()))
	}
}

// asAPIError はerrがAPIErrorであれば取り出す。
func asAPIError(err error) (*model.APIError, bool) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// redirect はPRGパターンの303リダイレクトを返す。
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// achievementPath は実績詳細ページのパスを返す。
func achievementPath(id string) string {
	return "/achievements/" + url.PathEscape(id)
}

// dashboardAchievementPath は実績編集ページのパスを返す。
func dashboardAchievementPath(id string) string {
	return "/dashboard/achievements/" + url.PathEscape(id)
}

// safeNext はログイン後の戻り先として使えるパスを返す。
// 外部URLやプロトコル相対URLは拒否して"/dashboard"を返す。
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/dashboard"
	}
	return next
}

// denyAnonymous は未ログインでの操作要求に応答する。
// JSONクライアントには401、フォームにはログインページへのリダイレクトを返す。
func denyAnonymous(w http.ResponseWriter, r *http.Request, next string) {
	if wantsJSON(r) {
		middleware.WriteAPIError(w, model.NewAuthRequiredError())
		return
	}
	redirect(w, r, middleware.LoginRedirectURL(loginPath, next))
}
