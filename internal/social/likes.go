package social

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/successledger/internal/model"
	"github.com/hitoshi/successledger/internal/repository"
)

// LikeService はいいねの一覧・追加・取り消しを提供する。
type LikeService struct {
	repo     repository.LikeRepository
	profiles ProfileLookup
	logger   *slog.Logger
}

// NewLikeService はLikeServiceを生成する。
func NewLikeService(repo repository.LikeRepository, profiles ProfileLookup, logger *slog.Logger) *LikeService {
	return &LikeService{repo: repo, profiles: profiles, logger: logger}
}

// List は実績へのいいねを新しい順に、いいねしたユーザーのプロフィール付きで返す。
func (s *LikeService) List(ctx context.Context, achievementID string) ([]*model.LikeWithProfile, error) {
	if !isUUID(achievementID) {
		return []*model.LikeWithProfile{}, nil
	}
	likes, err := s.repo.ListByAchievement(ctx, achievementID)
	if err != nil {
		s.logger.Error("error fetching likes",
			slog.String("achievement_id", achievementID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}

	userIDs := make([]string, 0, len(likes))
	for _, l := range likes {
		userIDs = append(userIDs, l.UserID)
	}
	profiles := s.profiles.LookupMany(ctx, userIDs)

	result := make([]*model.LikeWithProfile, 0, len(likes))
	for _, l := range likes {
		result = append(result, &model.LikeWithProfile{Like: l, Profile: profiles[l.UserID]})
	}
	return result, nil
}

// Create はいいねを作成する。既にいいね済みの場合は一意制約違反のエラーをそのまま返す。
func (s *LikeService) Create(ctx context.Context, achievementID, userID string) error {
	if !isUUID(achievementID) {
		return model.NewAchievementNotFoundError()
	}
	like := &model.Like{
		ID:            uuid.New().String(),
		AchievementID: achievementID,
		UserID:        userID,
		CreatedAt:     time.Now(),
	}
	if err := s.repo.Create(ctx, like); err != nil {
		return fmt.Errorf("failed to create like: %w", err)
	}
	return nil
}

// Like はいいねを追加する。既にいいね済みの場合も成功とする。
func (s *LikeService) Like(ctx context.Context, achievementID, userID string) error {
	err := s.Create(ctx, achievementID, userID)
	if err == nil || repository.IsUniqueViolation(err) {
		return nil
	}
	s.logger.Error("error liking achievement",
		slog.String("achievement_id", achievementID),
		slog.String("user_id", userID),
		slog.String("error", err.Error()),
	)
	return err
}

// Unlike はいいねを取り消す。いいねしていない場合も成功とする。
func (s *LikeService) Unlike(ctx context.Context, achievementID, userID string) error {
	if !isUUID(achievementID) {
		return nil
	}
	if err := s.repo.Delete(ctx, achievementID, userID); err != nil {
		s.logger.Error("error unliking achievement",
			slog.String("achievement_id", achievementID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to delete like: %w", err)
	}
	return nil
}

// HasLiked はユーザーがいいね済みかを返す。行がない場合はfalseでエラーにしない。
func (s *LikeService) HasLiked(ctx context.Context, achievementID, userID string) (bool, error) {
	if userID == "" || !isUUID(achievementID) {
		return false, nil
	}
	liked, err := s.repo.Exists(ctx, achievementID, userID)
	if err != nil {
		s.logger.Error("error checking like",
			slog.String("achievement_id", achievementID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return liked, nil
}

// Count は実績へのいいね数を返す。取得に失敗した場合はログを出力して0を返す。
func (s *LikeService) Count(ctx context.Context, achievementID string) int {
	if !isUUID(achievementID) {
		return 0
	}
	n, err := s.repo.CountByAchievement(ctx, achievementID)
	if err != nil {
		s.logger.Error("error counting likes",
			slog.String("achievement_id", achievementID),
			slog.String("error", err.Error()),
		)
		return 0
	}
	return n
}

// Toggle はいいね済みなら取り消し、未いいねなら追加し、操作後の状態を返す。
// 同時実行による重複はDBの一意制約で防ぐ。
func (s *LikeService) Toggle(ctx context.Context, achievementID, userID string) (bool, error) {
	liked, err := s.HasLiked(ctx, achievementID, userID)
	if err != nil {
		return false, err
	}
	if liked {
		if err := s.Unlike(ctx, achievementID, userID); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := s.Like(ctx, achievementID, userID); err != nil {
		return false, err
	}
	return true, nil
}
