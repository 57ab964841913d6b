// Package handler はHTTPハンドラーとサーバー描画ページを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/successledger/internal/middleware"
	"github.com/hitoshi/successledger/internal/model"
)

const (
	oauthStateCookie = "oauth_state"
	oauthNextCookie  = "oauth_next"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションに期限がない場合のCookie有効期間（秒）
}

// AuthHandler はログインページとOAuthフローのHTTPハンドラー。
type AuthHandler struct {
	web
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(deps WebDeps, service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		web:     newWeb(deps),
		service: service,
		config:  config,
	}
}

type loginContent struct {
	Next string
}

// LoginPage はログインページを表示する。ログイン済みの場合は戻り先へリダイレクトする。
// GET /auth/login?next=/dashboard
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if h.accessor.CurrentUser(r.Context()) != nil {
		redirect(w, r, next)
		return
	}
	h.renderer.Page(w, http.StatusOK, "login", h.page(r, "Sign in", &loginContent{Next: next}))
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google/login?next=/dashboard
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		h.renderError(w, r, err)
		return
	}

	// stateをCookieに保存（CSRF対策）
	h.setShortCookie(w, oauthStateCookie, state, 600)
	h.setShortCookie(w, oauthNextCookie, safeNext(r.URL.Query().Get("next")), 600)

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		h.renderError(w, r, model.NewValidationError("The sign-in request expired or was tampered with."))
		return
	}
	h.setShortCookie(w, oauthStateCookie, "", -1)

	next := "/dashboard"
	if c, err := r.Cookie(oauthNextCookie); err == nil {
		next = safeNext(c.Value)
	}
	h.setShortCookie(w, oauthNextCookie, "", -1)

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		h.renderError(w, r, model.NewValidationError("Sign-in was cancelled."))
		return
	}

	// 3. 認証処理（初回はユーザー・identity・プロフィールを作成）
	session, err := h.service.HandleCallback(r.Context(), code)
	h.record("login", err)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.renderError(w, r, err)
		return
	}

	// 4. セッションCookieを設定（HTTP Only）。期限はサーバー側セッションに合わせる
	maxAge := session.MaxAgeSeconds(time.Now())
	if maxAge <= 0 {
		maxAge = h.config.SessionMaxAge
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	redirect(w, r, next)
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	redirect(w, r, "/")
}

// setShortCookie はOAuthフロー用の短命Cookieを設定する。maxAgeが負なら削除する。
func (h *AuthHandler) setShortCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
