// Package achievement は実績の一覧・取得・作成・更新・削除を提供する。
package achievement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/successledger/internal/model"
	"github.com/hitoshi/successledger/internal/repository"
)

// ProfileLookup は作者プロフィールの取得を抽象化する。
type ProfileLookup interface {
	LookupMany(ctx context.Context, userIDs []string) map[string]*model.Profile
	LookupOne(ctx context.Context, userID string) *model.Profile
}

// Service は実績に関するビジネスロジックを提供する。
type Service struct {
	repo     repository.AchievementRepository
	profiles ProfileLookup
	logger   *slog.Logger
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.AchievementRepository, profiles ProfileLookup, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		profiles: profiles,
		logger:   logger,
		now:      time.Now,
	}
}

// List は実績をdate降順、created_at降順で返す。
// ownerIDが空の場合は全ユーザーの実績を返す（公開フィード用）。
func (s *Service) List(ctx context.Context, ownerID string) ([]*model.Achievement, error) {
	var (
		list []*model.Achievement
		err  error
	)
	if ownerID == "" {
		list, err = s.repo.ListAll(ctx)
	} else {
		list, err = s.repo.ListByUserID(ctx, ownerID)
	}
	if err != nil {
		s.logger.Error("error fetching achievements",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return list, nil
}

// ListPublicWithAuthors は全ユーザーの実績に作者プロフィールを付けて返す。
// プロフィールは1回の一括取得で解決し、見つからない作者はAuthor=nilとなる。
func (s *Service) ListPublicWithAuthors(ctx context.Context) ([]*model.AchievementWithAuthor, error) {
	list, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}

	userIDs := make([]string, 0, len(list))
	for _, a := range list {
		userIDs = append(userIDs, a.UserID)
	}
	profiles := s.profiles.LookupMany(ctx, userIDs)

	result := make([]*model.AchievementWithAuthor, 0, len(list))
	for _, a := range list {
		result = append(result, &model.AchievementWithAuthor{
			Achievement: a,
			Author:      profiles[a.UserID],
		})
	}
	return result, nil
}

// GetByID は所有者の実績を取得する。
// 存在しない場合も他ユーザーの実績の場合もACHIEVEMENT_NOT_FOUNDを返す。
func (s *Service) GetByID(ctx context.Context, id, ownerID string) (*model.Achievement, error) {
	if !isUUID(id) {
		return nil, model.NewAchievementNotFoundError()
	}
	a, err := s.repo.FindByIDAndUserID(ctx, id, ownerID)
	if err != nil {
		s.logger.Error("error fetching achievement",
			slog.String("achievement_id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get achievement: %w", err)
	}
	if a == nil {
		return nil, model.NewAchievementNotFoundError()
	}
	return a, nil
}

// GetPublic は所有者を問わず実績を取得し、作者プロフィールを付けて返す。
func (s *Service) GetPublic(ctx context.Context, id string) (*model.AchievementWithAuthor, error) {
	if !isUUID(id) {
		return nil, model.NewAchievementNotFoundError()
	}
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("error fetching achievement",
			slog.String("achievement_id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get achievement: %w", err)
	}
	if a == nil {
		return nil, model.NewAchievementNotFoundError()
	}
	return &model.AchievementWithAuthor{
		Achievement: a,
		Author:      s.profiles.LookupOne(ctx, a.UserID),
	}, nil
}

// Create は実績を作成する。
// 日付が未指定の場合は当日、タグが未指定の場合は空配列とする。
// IsStructuredは呼び出し側が計算した値をそのまま保存する。
func (s *Service) Create(ctx context.Context, in model.NewAchievement) (*model.Achievement, error) {
	if strings.TrimSpace(in.RawText) == "" {
		return nil, model.NewValidationError("Description is required")
	}

	now := s.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	a := &model.Achievement{
		ID:            uuid.New().String(),
		UserID:        in.UserID,
		RawText:       in.RawText,
		StarSituation: in.StarSituation,
		StarTask:      in.StarTask,
		StarAction:    in.StarAction,
		StarResult:    in.StarResult,
		Date:          date,
		Category:      in.Category,
		Tags:          tags,
		IsStructured:  in.IsStructured,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		s.logger.Error("error creating achievement",
			slog.String("user_id", in.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to create achievement: %w", err)
	}

	s.logger.Info("achievement created",
		slog.String("achievement_id", a.ID),
		slog.String("user_id", a.UserID),
	)
	return a, nil
}

// Update はIDと所有者が一致する実績のnilでないフィールドを更新する。
// 一致する行がない場合は(nil, nil)を返す。
func (s *Service) Update(ctx context.Context, id, ownerID string, update model.AchievementUpdate) (*model.Achievement, error) {
	if !isUUID(id) {
		return nil, nil
	}
	if update.RawText != nil && strings.TrimSpace(*update.RawText) == "" {
		return nil, model.NewValidationError("Description is required")
	}
	if update.Tags != nil && *update.Tags == nil {
		empty := []string{}
		update.Tags = &empty
	}

	a, err := s.repo.Update(ctx, id, ownerID, update)
	if err != nil {
		s.logger.Error("error updating achievement",
			slog.String("achievement_id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to update achievement: %w", err)
	}
	return a, nil
}

// Delete はIDと所有者が一致する実績を削除する。
// 一致する行がなくても成功とし、バックエンド障害のみエラーを返す。
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	if !isUUID(id) {
		return nil
	}
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		s.logger.Error("error deleting achievement",
			slog.String("achievement_id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to delete achievement: %w", err)
	}
	return nil
}

// Stats はダッシュボードに表示する集計値。
type Stats struct {
	Total      int
	Structured int
}

// Summarize は一覧から件数と構造化済み件数を数える。
func Summarize(list []*model.Achievement) Stats {
	var st Stats
	for _, a := range list {
		st.Total++
		if a.IsStructured {
			st.Structured++
		}
	}
	return st
}

// Featured は一覧の先頭からlimit件を返す。
func Featured(list []*model.Achievement, limit int) []*model.Achievement {
	if limit <= 0 || len(list) <= limit {
		return list
	}
	return list[:limit]
}

// Filter は本文、STAR各項目、カテゴリ、タグを大文字小文字を区別せずに部分一致で絞り込む。
// queryが空白のみの場合は一覧をそのまま返す。
func Filter(list []*model.Achievement, query string) []*model.Achievement {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return list
	}

	result := make([]*model.Achievement, 0, len(list))
	for _, a := range list {
		if matches(a, q) {
			result = append(result, a)
		}
	}
	return result
}

func matches(a *model.Achievement, q string) bool {
	fields := []string{a.RawText, a.StarSituation, a.StarTask, a.StarAction, a.StarResult, a.Category}
	fields = append(fields, a.Tags...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
