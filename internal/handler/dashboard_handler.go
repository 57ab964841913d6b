package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/successledger/internal/achievement"
	"github.com/hitoshi/successledger/internal/middleware"
	"github.com/hitoshi/successledger/internal/model"
)

// DashboardConfig はダッシュボードの表示と共有リンクの設定。
type DashboardConfig struct {
	BaseURL       string
	FeaturedLimit int
	ShareTTL      time.Duration // 0は無期限
}

// DashboardHandler はログインユーザー自身の実績を管理するページのハンドラー。
// ルートはRequireUserミドルウェアの内側に置く。
type DashboardHandler struct {
	web
	achievements AchievementService
	shares       ShareService
	config       DashboardConfig
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(deps WebDeps, achievements AchievementService, shares ShareService, config DashboardConfig) *DashboardHandler {
	if config.FeaturedLimit <= 0 {
		config.FeaturedLimit = 6
	}
	return &DashboardHandler{
		web:          newWeb(deps),
		achievements: achievements,
		shares:       shares,
		config:       config,
	}
}

type dashboardContent struct {
	Featured []*model.Achievement
	Stats    achievement.Stats
}

// Dashboard は注目の実績と集計を表示する。
// GET /dashboard
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r, r.URL.RequestURI())
	if !ok {
		return
	}

	list, err := h.achievements.List(r.Context(), user.ID)
	content := &dashboardContent{
		Featured: achievement.Featured(list, h.config.FeaturedLimit),
		Stats:    achievement.Summarize(list),
	}
	data := h.page(r, "Dashboard", content)
	if err != nil {
		data.Error = "We couldn't load your achievements. Please try again shortly."
	}
	h.renderer.Page(w, http.StatusOK, "dashboard", data)
}

type achievementListContent struct {
	Achievements []*model.Achievement
	Query        string
	Total        int
}

// List は自分の実績一覧を表示する。?q= で本文・STAR・カテゴリ・タグを検索する。
// GET /dashboard/achievements
func (h *DashboardHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r, r.URL.RequestURI())
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	list, err := h.achievements.List(r.Context(), user.ID)
	content := &achievementListContent{
		Achievements: achievement.Filter(list, query),
		Query:        query,
		Total:        len(list),
	}
	data := h.page(r, "My achievements", content)
	if err != nil {
		data.Error = "We couldn't load your achievements. Please try again shortly."
	}
	h.renderer.Page(w, http.StatusOK, "achievements", data)
}

type achievementFormContent struct {
	ID       string
	Form     achievementForm
	Shares   []*model.Share
	BaseURL  string
	ShareTTL time.Duration
	Now      time.Time
}

// IsEdit は編集フォームかどうかを返す。
func (c *achievementFormContent) IsEdit() bool {
	return c.ID != ""
}

// New は実績の作成フォームを表示する。日付の初期値は当日。
// GET /dashboard/achievements/new
func (h *DashboardHandler) New(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r, r.URL.RequestURI()); !ok {
		return
	}
	content := &achievementFormContent{Form: achievementForm{Date: time.Now().Format(dateLayout)}}
	h.renderer.Page(w, http.StatusOK, "achievement_form", h.page(r, "New achievement", content))
}

// Create は実績を作成する。
// POST /dashboard/achievements/new
func (h *DashboardHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r, "/dashboard/achievements/new")
	if !ok {
		return
	}

	form := parseAchievementForm(r)
	if err := validateForm(form); err != nil {
		h.formFailed(w, r, &achievementFormContent{Form: form}, err)
		return
	}

	created, err := h.achievements.Create(r.Context(), form.toNew(user.ID))
	h.record("achievement_create", err)
	if err != nil {
		h.formFailed(w, r, &achievementFormContent{Form: form}, err)
		return
	}
	h.invalidate("/", "/feed.xml")

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, map[string]string{"id": created.ID})
		return
	}
	redirect(w, r, "/dashboard/achievements")
}

// Edit は実績の編集フォームと共有リンク一覧を表示する。
// GET /dashboard/achievements/{id}
func (h *DashboardHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r, r.URL.RequestURI())
	if !ok {
		return
	}

	a, err := h.achievements.GetByID(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	content := h.editContent(r, a.ID, achievementFormFrom(a))
	h.renderer.Page(w, http.StatusOK, "achievement_form", h.page(r, "Edit achievement", content))
}

func (h *DashboardHandler) editContent(r *http.Request, id string, form achievementForm) *achievementFormContent {
	content := &achievementFormContent{
		ID:       id,
		Form:     form,
		BaseURL:  h.config.BaseURL,
		ShareTTL: h.config.ShareTTL,
		Now:      time.Now(),
	}
	if shares, err := h.shares.ListForAchievement(r.Context(), id); err == nil {
		content.Shares = shares
	}
	return content
}

// Update はフォームの内容で実績を更新する。一致する実績がない場合は404とする。
// POST /dashboard/achievements/{id}
func (h *DashboardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, ok := h.requireUser(w, r, dashboardAchievementPath(id))
	if !ok {
		return
	}

	form := parseAchievementForm(r)
	if err := validateForm(form); err != nil {
		h.formFailed(w, r, h.editContent(r, id, form), err)
		return
	}

	updated, err := h.achievements.Update(r.Context(), id, user.ID, form.toUpdate())
	if err == nil && updated == nil {
		err = model.NewAchievementNotFoundError()
	}
	h.record("achievement_update", err)
	if err != nil {
		h.formFailed(w, r, h.editContent(r, id, form), err)
		return
	}
	h.invalidate("/", "/feed.xml", achievementPath(id), "/s/*")

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"id": updated.ID})
		return
	}
	redirect(w, r, "/dashboard/achievements")
}

// Delete は実績を削除する。
// POST /dashboard/achievements/{id}/delete
func (h *DashboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, ok := h.requireUser(w, r, dashboardAchievementPath(id))
	if !ok {
		return
	}

	err := h.achievements.Delete(r.Context(), id, user.ID)
	h.record("achievement_delete", err)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.invalidate("/", "/feed.xml", achievementPath(id), "/s/*")

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	redirect(w, r, "/dashboard/achievements")
}

type shareResponse struct {
	ID        string     `json:"id"`
	Token     string     `json:"token"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateShare は実績の共有リンクを作成する。
// expires_in_daysを指定すると既定のTTLを上書きする。
// POST /dashboard/achievements/{id}/shares
func (h *DashboardHandler) CreateShare(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, ok := h.requireUser(w, r, dashboardAchievementPath(id))
	if !ok {
		return
	}

	ttl := h.config.ShareTTL
	if raw := strings.TrimSpace(r.PostFormValue("expires_in_days")); raw != "" {
		days, convErr := strconv.Atoi(raw)
		if convErr != nil {
			days = -1
		}
		if err := validateForm(shareForm{ExpiresInDays: days}); err != nil {
			h.renderError(w, r, err)
			return
		}
		ttl = time.Duration(days) * 24 * time.Hour
	}

	share, err := h.shares.CreateForOwner(r.Context(), id, user.ID, ttl)
	h.record("share_create", err)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, shareResponse{
			ID:        share.ID,
			Token:     share.ShareToken,
			URL:       h.config.BaseURL + "/s/" + share.ShareToken,
			ExpiresAt: share.ExpiresAt,
		})
		return
	}
	redirect(w, r, dashboardAchievementPath(id)+"#shares")
}

// DeleteShare は共有リンクを削除する。所有者以外は一律403とする。
// フォームのachievement_idは戻り先に使う。
// POST /dashboard/shares/{id}/delete
func (h *DashboardHandler) DeleteShare(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r, "/dashboard")
	if !ok {
		return
	}

	err := h.shares.Delete(r.Context(), chi.URLParam(r, "id"), user.ID)
	h.record("share_delete", err)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.invalidate("/s/*")

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if achievementID := r.PostFormValue("achievement_id"); achievementID != "" {
		redirect(w, r, dashboardAchievementPath(achievementID)+"#shares")
		return
	}
	redirect(w, r, "/dashboard")
}

// formFailed は入力エラーならフォームを422で再表示し、それ以外はエラーページとする。
func (h *DashboardHandler) formFailed(w http.ResponseWriter, r *http.Request, content *achievementFormContent, err error) {
	apiErr, ok := asAPIError(err)
	if !ok || wantsJSON(r) || middleware.StatusCodeFor(apiErr) != http.StatusUnprocessableEntity {
		h.renderError(w, r, err)
		return
	}
	title := "New achievement"
	if content.IsEdit() {
		title = "Edit achievement"
	}
	data := h.page(r, title, content)
	data.Error = apiErr.Message
	h.renderer.Page(w, http.StatusUnprocessableEntity, "achievement_form", data)
}
