package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/successledger/internal/metrics"
	"github.com/hitoshi/successledger/internal/middleware"
	"github.com/hitoshi/successledger/internal/model"
	"github.com/hitoshi/successledger/internal/revalidate"
)

// loginPath はログインページのパス。
const loginPath = "/auth/login"

// web はページハンドラーが共有する依存関係と描画ヘルパー。
type web struct {
	accessor    UserAccessor
	renderer    *Renderer
	invalidator revalidate.Invalidator
	actions     ActionRecorder
	logger      *slog.Logger
}

// WebDeps はページハンドラー共通の依存関係。
// Invalidator、Actions、Loggerはnilの場合に何もしない実装で補う。
type WebDeps struct {
	Accessor    UserAccessor
	Renderer    *Renderer
	Invalidator revalidate.Invalidator
	Actions     ActionRecorder
	Logger      *slog.Logger
}

func newWeb(deps WebDeps) web {
	w := web{
		accessor:    deps.Accessor,
		renderer:    deps.Renderer,
		invalidator: deps.Invalidator,
		actions:     deps.Actions,
		logger:      deps.Logger,
	}
	if w.invalidator == nil {
		w.invalidator = revalidate.Nop{}
	}
	if w.actions == nil {
		w.actions = metrics.Nop{}
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// page は共通データを埋めたpageDataを生成する。
func (h *web) page(r *http.Request, title string, content any) *pageData {
	data := &pageData{
		Title:     title,
		CSRFToken: middleware.CSRFToken(r.Context()),
		Content:   content,
	}
	if user := h.accessor.CurrentUser(r.Context()); user != nil {
		data.User = user
		data.Profile = h.accessor.CurrentUserProfile(r.Context(), user.ID)
	}
	return data
}

// requireUser はログインユーザーを返す。未ログインの場合は応答を書き込みfalseを返す。
// nextはログイン後の戻り先。
func (h *web) requireUser(w http.ResponseWriter, r *http.Request, next string) (*model.User, bool) {
	user, err := h.accessor.RequireUser(r.Context())
	if err != nil {
		denyAnonymous(w, r, next)
		return nil, false
	}
	return user, true
}

// renderError はエラーをページまたはJSONで返す。
// APIErrorでないエラーは詳細を隠して500とする。
func (h *web) renderError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := asAPIError(err)
	if !ok {
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apiErr = middleware.InternalError()
	}
	status := middleware.StatusCodeFor(apiErr)

	if wantsJSON(r) {
		middleware.WriteErrorResponse(w, status, apiErr)
		return
	}
	h.renderer.Page(w, status, "error", h.page(r, http.StatusText(status), apiErr))
}

// record はドメイン操作の結果をメトリクスに記録する。
func (h *web) record(action string, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	h.actions.RecordAction(action, outcome)
}

// invalidate は書き込み後に影響するページのキャッシュを破棄する。
func (h *web) invalidate(paths ...string) {
	h.invalidator.Invalidate(paths...)
}
