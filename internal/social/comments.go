// Package social はコメント、いいね、共有リンクを提供する。
package social

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/successledger/internal/model"
	"github.com/hitoshi/successledger/internal/repository"
	"github.com/hitoshi/successledger/internal/security"
)

// ProfileLookup は投稿者プロフィールの取得を抽象化する。
type ProfileLookup interface {
	LookupMany(ctx context.Context, userIDs []string) map[string]*model.Profile
	LookupOne(ctx context.Context, userID string) *model.Profile
}

// CommentService はコメントの一覧・投稿・編集・削除を提供する。
type CommentService struct {
	repo      repository.CommentRepository
	profiles  ProfileLookup
	sanitizer security.ContentSanitizer
	logger    *slog.Logger
}

// NewCommentService はCommentServiceを生成する。
func NewCommentService(
	repo repository.CommentRepository,
	profiles ProfileLookup,
	sanitizer security.ContentSanitizer,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		repo:      repo,
		profiles:  profiles,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// ListTopLevel は実績のトップレベルコメントを古い順に返す。
func (s *CommentService) ListTopLevel(ctx context.Context, achievementID string) ([]*model.CommentWithAuthor, error) {
	if !isUUID(achievementID) {
		return []*model.CommentWithAuthor{}, nil
	}
	comments, err := s.repo.ListTopLevel(ctx, achievementID)
	if err != nil {
		s.logger.Error("error fetching comments",
			slog.String("achievement_id", achievementID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return s.withAuthors(ctx, comments), nil
}

// ListReplies は指定コメントへの返信を古い順に返す。返信の返信はたどらない。
func (s *CommentService) ListReplies(ctx context.Context, parentID string) ([]*model.CommentWithAuthor, error) {
	if !isUUID(parentID) {
		return []*model.CommentWithAuthor{}, nil
	}
	replies, err := s.repo.ListReplies(ctx, parentID)
	if err != nil {
		s.logger.Error("error fetching replies",
			slog.String("parent_id", parentID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	return s.withAuthors(ctx, replies), nil
}

// Create はコメントを投稿する。parentIDが空でなければ返信として保存する。
// 本文は前後の空白を除いたうえでプレーンテキスト化し、空ならCOMMENT_CONTENT_REQUIREDを返す。
// 返信先は同じ実績のトップレベルコメントに限り、それ以外はCOMMENT_NOT_FOUNDを返す。
func (s *CommentService) Create(ctx context.Context, achievementID, userID, content, parentID string) (*model.CommentWithAuthor, error) {
	if !isUUID(achievementID) {
		return nil, model.NewAchievementNotFoundError()
	}
	body, err := s.cleanContent(content)
	if err != nil {
		return nil, err
	}
	if parentID != "" {
		if err := s.checkParent(ctx, achievementID, parentID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	c := &model.Comment{
		ID:            uuid.New().String(),
		AchievementID: achievementID,
		UserID:        userID,
		Content:       body,
		ParentID:      parentID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		s.logger.Error("error creating comment",
			slog.String("achievement_id", achievementID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return &model.CommentWithAuthor{
		Comment: c,
		Author:  s.profiles.LookupOne(ctx, userID),
	}, nil
}

func (s *CommentService) checkParent(ctx context.Context, achievementID, parentID string) error {
	if !isUUID(parentID) {
		return model.NewCommentNotFoundError()
	}
	parent, err := s.repo.FindByID(ctx, parentID)
	if err != nil {
		s.logger.Error("error fetching parent comment",
			slog.String("parent_id", parentID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to find parent comment: %w", err)
	}
	if parent == nil || parent.IsReply() || parent.AchievementID != achievementID {
		return model.NewCommentNotFoundError()
	}
	return nil
}

// Update は投稿者本人のコメント本文を更新し、投稿者プロフィールを付けて返す。
// 一致するコメントがない場合は(nil, nil)を返す。
func (s *CommentService) Update(ctx context.Context, id, userID, content string) (*model.CommentWithAuthor, error) {
	body, err := s.cleanContent(content)
	if err != nil {
		return nil, err
	}
	if !isUUID(id) {
		return nil, nil
	}

	c, err := s.repo.Update(ctx, id, userID, body)
	if err != nil {
		s.logger.Error("error updating comment",
			slog.String("comment_id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	if c == nil {
		return nil, nil
	}
	return &model.CommentWithAuthor{
		Comment: c,
		Author:  s.profiles.LookupOne(ctx, c.UserID),
	}, nil
}

// Delete は投稿者本人のコメントを削除する。返信はカスケード削除される。
func (s *CommentService) Delete(ctx context.Context, id, userID string) error {
	if !isUUID(id) {
		return nil
	}
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		s.logger.Error("error deleting comment",
			slog.String("comment_id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

func (s *CommentService) cleanContent(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", model.NewCommentContentRequiredError()
	}
	body := s.sanitizer.PlainText(content)
	if body == "" {
		return "", model.NewCommentContentRequiredError()
	}
	return body, nil
}

func (s *CommentService) withAuthors(ctx context.Context, comments []*model.Comment) []*model.CommentWithAuthor {
	userIDs := make([]string, 0, len(comments))
	for _, c := range comments {
		userIDs = append(userIDs, c.UserID)
	}
	profiles := s.profiles.LookupMany(ctx, userIDs)

	result := make([]*model.CommentWithAuthor, 0, len(comments))
	for _, c := range comments {
		result = append(result, &model.CommentWithAuthor{Comment: c, Author: profiles[c.UserID]})
	}
	return result
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
