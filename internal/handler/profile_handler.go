package handler

import (
	"net/http"

	"github.com/hitoshi/successledger/internal/middleware"
)

// ProfileHandler はログインユーザー自身のプロフィール編集を扱う。
type ProfileHandler struct {
	web
	profiles ProfileService
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(deps WebDeps, profiles ProfileService) *ProfileHandler {
	return &ProfileHandler{web: newWeb(deps), profiles: profiles}
}

type profileContent struct {
	Form profileForm
}

// Edit はプロフィール編集フォームを表示する。
// GET /dashboard/profile
func (h *ProfileHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r, r.URL.RequestURI())
	if !ok {
		return
	}

	p, err := h.profiles.Get(r.Context(), user.ID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	data := h.page(r, "Profile", &profileContent{Form: profileFormFrom(p)})
	if r.URL.Query().Get("saved") == "1" {
		data.Notice = "Profile saved."
	}
	h.renderer.Page(w, http.StatusOK, "profile", data)
}

// Update はプロフィールを更新する。空欄の項目はクリアされる。
// POST /dashboard/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r, "/dashboard/profile")
	if !ok {
		return
	}

	form := parseProfileForm(r)
	err := validateForm(form)
	if err == nil {
		_, err = h.profiles.Update(r.Context(), user.ID, form.toUpdate())
		h.record("profile_update", err)
	}
	if err != nil {
		apiErr, isAPIErr := asAPIError(err)
		if !isAPIErr || wantsJSON(r) || middleware.StatusCodeFor(apiErr) != http.StatusUnprocessableEntity {
			h.renderError(w, r, err)
			return
		}
		data := h.page(r, "Profile", &profileContent{Form: form})
		data.Error = apiErr.Message
		h.renderer.Page(w, http.StatusUnprocessableEntity, "profile", data)
		return
	}
	// 作者名とアバターは公開ページ全体に表示される
	h.invalidate("/", "/feed.xml", "/achievements/*", "/s/*")

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	redirect(w, r, "/dashboard/profile?saved=1")
}
