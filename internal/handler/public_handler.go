package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/feeds"
	"github.com/hitoshi/successledger/internal/model"
)

// feedItemLimit はRSSフィードに含める実績の最大件数。
const feedItemLimit = 50

// PublicHandler は未ログインでも閲覧できる公開ページのハンドラー。
type PublicHandler struct {
	web
	achievements AchievementService
	profiles     ProfileService
	shares       ShareService
	sanitizer    FeedSanitizer
	baseURL      string
	now          func() time.Time
}

// NewPublicHandler はPublicHandlerを生成する。
// baseURLはRSSフィードの絶対URL生成に使う。
func NewPublicHandler(deps WebDeps, achievements AchievementService, profiles ProfileService, shares ShareService, sanitizer FeedSanitizer, baseURL string) *PublicHandler {
	return &PublicHandler{
		web:          newWeb(deps),
		achievements: achievements,
		profiles:     profiles,
		shares:       shares,
		sanitizer:    sanitizer,
		baseURL:      baseURL,
		now:          time.Now,
	}
}

type homeContent struct {
	Achievements []*model.AchievementWithAuthor
}

// Home はランディングページと公開フィードを表示する。
// 取得に失敗した場合は空のフィードとエラーバナーを表示する。
// GET /
func (h *PublicHandler) Home(w http.ResponseWriter, r *http.Request) {
	list, err := h.achievements.ListPublicWithAuthors(r.Context())
	data := h.page(r, "Celebrate your wins", &homeContent{Achievements: list})
	if err != nil {
		data.Content = &homeContent{}
		data.Error = "We couldn't load the latest achievements. Please try again shortly."
	}
	h.renderer.Page(w, http.StatusOK, "home", data)
}

// Feed は公開フィードをRSS 2.0で返す。
// 本文は許可リストのHTMLに整形し、タイトルはプレーンテキストにする。
// GET /feed.xml
func (h *PublicHandler) Feed(w http.ResponseWriter, r *http.Request) {
	list, err := h.achievements.ListPublicWithAuthors(r.Context())
	if err != nil {
		http.Error(w, "feed temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	if len(list) > feedItemLimit {
		list = list[:feedItemLimit]
	}

	feed := &feeds.Feed{
		Title:       "Success Ledger",
		Link:        &feeds.Link{Href: h.baseURL + "/"},
		Description: "Recent achievements shared on Success Ledger",
		Created:     h.now(),
	}
	for _, a := range list {
		link := h.baseURL + achievementPath(a.ID)
		description := a.RawText
		if a.Category != "" {
			description = "[" + a.Category + "] " + description
		}
		item := &feeds.Item{
			Id:          link,
			Title:       excerpt(h.sanitizer.PlainText(a.RawText), 80),
			Link:        &feeds.Link{Href: link},
			Description: h.sanitizer.SanitizeHTML(description),
			Author:      &feeds.Author{Name: h.sanitizer.PlainText(a.Author.DisplayName())},
			Created:     a.CreatedAt,
			Updated:     a.UpdatedAt,
		}
		feed.Items = append(feed.Items, item)
	}
	if len(list) > 0 {
		feed.Updated = list[0].UpdatedAt
	}

	rss, err := feed.ToRss()
	if err != nil {
		h.logger.Error("failed to build rss feed", slog.String("error", err.Error()))
		http.Error(w, "feed temporarily unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write([]byte(rss))
}

type sharedContent struct {
	Achievement *model.Achievement
	Author      *model.Profile
	Share       *model.Share
}

// Shared は共有リンクの実績を表示する。期限切れのリンクは見つからない扱いとする。
// 期限付きのリンクはExpiresヘッダーで期限を伝え、ページキャッシュがそれを超えて残さないようにする。
// GET /s/{token}
func (h *PublicHandler) Shared(w http.ResponseWriter, r *http.Request) {
	share, err := h.shares.GetByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if share.IsExpired(h.now()) || share.Achievement == nil {
		h.renderError(w, r, model.NewShareNotFoundError())
		return
	}

	content := &sharedContent{
		Achievement: share.Achievement,
		Author:      h.profiles.LookupOne(r.Context(), share.Achievement.UserID),
		Share:       share.Share,
	}
	if share.ExpiresAt != nil {
		w.Header().Set("Expires", share.ExpiresAt.UTC().Format(http.TimeFormat))
	}
	h.renderer.Page(w, http.StatusOK, "share", h.page(r, "Shared achievement", content))
}
