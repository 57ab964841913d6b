package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/successledger/internal/model"
)

// AchievementHandler は公開実績ページと、いいね・コメントの操作を扱う。
// 操作はフォーム送信（PRG）とJSON（Accept: application/json）の両方に対応する。
type AchievementHandler struct {
	web
	achievements AchievementService
	likes        LikeService
	comments     CommentService
}

// NewAchievementHandler はAchievementHandlerを生成する。
func NewAchievementHandler(deps WebDeps, achievements AchievementService, likes LikeService, comments CommentService) *AchievementHandler {
	return &AchievementHandler{
		web:          newWeb(deps),
		achievements: achievements,
		likes:        likes,
		comments:     comments,
	}
}

type achievementContent struct {
	Achievement  *model.AchievementWithAuthor
	IsOwner      bool
	LikeCount    int
	Liked        bool
	Likes        []*model.LikeWithProfile
	Comments     []*model.CommentWithAuthor
	CommentError string
	CommentDraft string
	EditingID    string
}

// Show は実績の公開詳細ページを表示する。
// GET /achievements/{id}
func (h *AchievementHandler) Show(w http.ResponseWriter, r *http.Request) {
	h.renderShow(w, r, chi.URLParam(r, "id"), http.StatusOK, nil)
}

// renderShow は詳細ページを描画する。formErrがあればコメント欄にインライン表示する。
func (h *AchievementHandler) renderShow(w http.ResponseWriter, r *http.Request, id string, status int, formErr *commentFormError) {
	ctx := r.Context()
	a, err := h.achievements.GetPublic(ctx, id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	content := &achievementContent{
		Achievement: a,
		LikeCount:   h.likes.Count(ctx, a.ID),
	}
	data := h.page(r, excerpt(a.RawText, 60), content)

	if data.User != nil {
		content.IsOwner = data.User.ID == a.UserID
		if liked, err := h.likes.HasLiked(ctx, a.ID, data.User.ID); err == nil {
			content.Liked = liked
		}
	}
	if likes, err := h.likes.List(ctx, a.ID); err == nil {
		content.Likes = likes
	}
	comments, err := h.comments.ListTopLevel(ctx, a.ID)
	if err != nil {
		data.Error = "Comments could not be loaded."
	}
	content.Comments = comments

	if formErr != nil {
		content.CommentError = formErr.message
		content.CommentDraft = formErr.draft
		content.EditingID = formErr.commentID
	}
	h.renderer.Page(w, status, "achievement", data)
}

// commentFormError はコメントフォームの再表示に必要な入力とエラー。
type commentFormError struct {
	message   string
	draft     string
	commentID string
}

type likeStateResponse struct {
	Liked bool `json:"liked"`
	Count int  `json:"count"`
}

// Like はいいねを付ける。いいね済みでも成功として扱う。
// POST /achievements/{id}/like
func (h *AchievementHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.likeAction(w, r, "like", func(id, userID string) (bool, error) {
		return true, h.likes.Like(r.Context(), id, userID)
	})
}

// Unlike はいいねを取り消す。
// POST /achievements/{id}/unlike
func (h *AchievementHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.likeAction(w, r, "unlike", func(id, userID string) (bool, error) {
		return false, h.likes.Unlike(r.Context(), id, userID)
	})
}

// ToggleLike はいいねの状態を反転する。
// POST /achievements/{id}/like/toggle
func (h *AchievementHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	h.likeAction(w, r, "like_toggle", func(id, userID string) (bool, error) {
		return h.likes.Toggle(r.Context(), id, userID)
	})
}

func (h *AchievementHandler) likeAction(w http.ResponseWriter, r *http.Request, action string, op func(id, userID string) (bool, error)) {
	id := chi.URLParam(r, "id")
	user, ok := h.requireUser(w, r, achievementPath(id))
	if !ok {
		return
	}

	liked, err := op(id, user.ID)
	h.record(action, err)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.invalidate(achievementPath(id))

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, likeStateResponse{Liked: liked, Count: h.likes.Count(r.Context(), id)})
		return
	}
	redirect(w, r, achievementPath(id))
}

type authorResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Initials  string `json:"initials"`
}

type commentResponse struct {
	ID            string          `json:"id"`
	AchievementID string          `json:"achievement_id"`
	ParentID      string          `json:"parent_id,omitempty"`
	Content       string          `json:"content"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Author        *authorResponse `json:"author"`
}

func toCommentResponse(c *model.Comment, author *model.Profile) commentResponse {
	resp := commentResponse{
		ID:            c.ID,
		AchievementID: c.AchievementID,
		ParentID:      c.ParentID,
		Content:       c.Content,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if author != nil {
		resp.Author = &authorResponse{
			ID:        author.ID,
			Name:      author.DisplayName(),
			AvatarURL: author.AvatarURL,
			Initials:  author.Initials(),
		}
	}
	return resp
}

// CreateComment はコメントまたは返信を投稿する。
// POST /achievements/{id}/comments
func (h *AchievementHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, ok := h.requireUser(w, r, achievementPath(id))
	if !ok {
		return
	}

	content := r.PostFormValue("content")
	parentID := strings.TrimSpace(r.PostFormValue("parent_id"))
	comment, err := h.comments.Create(r.Context(), id, user.ID, content, parentID)
	h.record("comment_create", err)
	if err != nil {
		h.commentFailed(w, r, id, "", content, err)
		return
	}
	h.invalidate(achievementPath(id))

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, toCommentResponse(comment.Comment, comment.Author))
		return
	}
	redirect(w, r, achievementPath(id)+"#comment-"+comment.ID)
}

// Replies はコメントへの返信一覧を返す。HTMLの場合は部分テンプレートを返す。
// GET /comments/{id}/replies
func (h *AchievementHandler) Replies(w http.ResponseWriter, r *http.Request) {
	replies, err := h.comments.ListReplies(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		resp := make([]commentResponse, 0, len(replies))
		for _, c := range replies {
			resp = append(resp, toCommentResponse(c.Comment, c.Author))
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	h.renderer.Fragment(w, http.StatusOK, "replies", replies)
}

// EditComment は投稿者本人のコメントを編集する。
// フォームのachievement_idは戻り先の実績ページに使う。
// POST /comments/{id}/edit
func (h *AchievementHandler) EditComment(w http.ResponseWriter, r *http.Request) {
	commentID := chi.URLParam(r, "id")
	achievementID := r.PostFormValue("achievement_id")
	user, ok := h.requireUser(w, r, achievementPath(achievementID))
	if !ok {
		return
	}

	content := r.PostFormValue("content")
	updated, err := h.comments.Update(r.Context(), commentID, user.ID, content)
	if err == nil && updated == nil {
		err = model.NewCommentNotFoundError()
	}
	h.record("comment_update", err)
	if err != nil {
		h.commentFailed(w, r, achievementID, commentID, content, err)
		return
	}
	h.invalidate(achievementPath(updated.AchievementID))

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, toCommentResponse(updated.Comment, updated.Author))
		return
	}
	redirect(w, r, achievementPath(updated.AchievementID)+"#comment-"+updated.ID)
}

// DeleteComment は投稿者本人のコメントを削除する。一致しなくてもエラーにしない。
// POST /comments/{id}/delete
func (h *AchievementHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	achievementID := r.PostFormValue("achievement_id")
	user, ok := h.requireUser(w, r, achievementPath(achievementID))
	if !ok {
		return
	}

	err := h.comments.Delete(r.Context(), chi.URLParam(r, "id"), user.ID)
	h.record("comment_delete", err)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if achievementID != "" {
		h.invalidate(achievementPath(achievementID))
	}

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if achievementID == "" {
		redirect(w, r, "/")
		return
	}
	redirect(w, r, achievementPath(achievementID))
}

// commentFailed はコメント操作の失敗に応答する。
// 入力エラーはフォームを再表示し、それ以外はエラーページとする。
func (h *AchievementHandler) commentFailed(w http.ResponseWriter, r *http.Request, achievementID, commentID, draft string, err error) {
	apiErr, ok := asAPIError(err)
	if !ok || wantsJSON(r) || apiErr.Code != model.ErrCodeCommentContentRequired || achievementID == "" {
		h.renderError(w, r, err)
		return
	}
	h.renderShow(w, r, achievementID, http.StatusUnprocessableEntity, &commentFormError{
		message:   apiErr.Message,
		draft:     draft,
		commentID: commentID,
	})
}
