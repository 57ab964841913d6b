package social

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/successledger/internal/model"
	"github.com/hitoshi/successledger/internal/repository"
)

// shareTokenBytes は共有トークンの乱数バイト数。base64urlで32文字になる。
const shareTokenBytes = 24

// ShareService は実績の共有リンクを提供する。
type ShareService struct {
	repo         repository.ShareRepository
	achievements repository.AchievementRepository
	logger       *slog.Logger
	now          func() time.Time
	newToken     func() (string, error)
}

// NewShareService はShareServiceを生成する。
func NewShareService(
	repo repository.ShareRepository,
	achievements repository.AchievementRepository,
	logger *slog.Logger,
) *ShareService {
	return &ShareService{
		repo:         repo,
		achievements: achievements,
		logger:       logger,
		now:          time.Now,
		newToken:     generateToken,
	}
}

// Create は指定トークンで共有リンクを作成する。expiresAtがnilなら無期限。
// トークンが重複した場合はDUPLICATE_SHARE_TOKENを返す。
func (s *ShareService) Create(ctx context.Context, achievementID, token string, expiresAt *time.Time) (*model.Share, error) {
	share := &model.Share{
		ID:            uuid.New().String(),
		AchievementID: achievementID,
		ShareToken:    token,
		CreatedAt:     s.now(),
		ExpiresAt:     expiresAt,
	}
	if err := s.repo.Create(ctx, share); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewDuplicateShareTokenError()
		}
		s.logger.Error("error creating share",
			slog.String("achievement_id", achievementID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to create share: %w", err)
	}
	return share, nil
}

// CreateForOwner は所有者本人の実績に対してランダムトークンの共有リンクを作成する。
// ttlが0以下なら無期限とする。他ユーザーの実績にはACHIEVEMENT_NOT_FOUNDを返す。
func (s *ShareService) CreateForOwner(ctx context.Context, achievementID, ownerID string, ttl time.Duration) (*model.Share, error) {
	if !isUUID(achievementID) {
		return nil, model.NewAchievementNotFoundError()
	}
	a, err := s.achievements.FindByIDAndUserID(ctx, achievementID, ownerID)
	if err != nil {
		s.logger.Error("error verifying achievement owner",
			slog.String("achievement_id", achievementID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to verify achievement: %w", err)
	}
	if a == nil {
		return nil, model.NewAchievementNotFoundError()
	}

	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate share token: %w", err)
	}
	var expiresAt *time.Time
	if ttl > 0 {
		t := s.now().Add(ttl)
		expiresAt = &t
	}

	share, err := s.Create(ctx, achievementID, token, expiresAt)
	if err != nil {
		return nil, err
	}
	s.logger.Info("share created",
		slog.String("share_id", share.ID),
		slog.String("achievement_id", achievementID),
	)
	return share, nil
}

// GetByToken はトークンで共有リンクを検索し、対象実績を付けて返す。
// 見つからない場合はSHARE_NOT_FOUNDを返す。期限切れの判定は呼び出し側で行う。
func (s *ShareService) GetByToken(ctx context.Context, token string) (*model.ShareWithAchievement, error) {
	if token == "" {
		return nil, model.NewShareNotFoundError()
	}
	share, err := s.repo.FindByTokenWithAchievement(ctx, token)
	if err != nil {
		s.logger.Error("error fetching share",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get share: %w", err)
	}
	if share == nil {
		return nil, model.NewShareNotFoundError()
	}
	return share, nil
}

// ListForAchievement は実績の共有リンク一覧を新しい順に返す。
func (s *ShareService) ListForAchievement(ctx context.Context, achievementID string) ([]*model.Share, error) {
	if !isUUID(achievementID) {
		return []*model.Share{}, nil
	}
	shares, err := s.repo.ListByAchievement(ctx, achievementID)
	if err != nil {
		s.logger.Error("error fetching shares",
			slog.String("achievement_id", achievementID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	return shares, nil
}

// Delete は共有リンクを削除する。
// 共有リンクが存在しない場合、所有者が異なる場合、確認に失敗した場合は
// いずれも同じUnauthorizedエラーを返す。
func (s *ShareService) Delete(ctx context.Context, shareID, userID string) error {
	if !isUUID(shareID) {
		return model.NewUnauthorizedError()
	}
	ownerID, err := s.repo.FindOwnerID(ctx, shareID)
	if err != nil {
		s.logger.Error("error verifying share owner",
			slog.String("share_id", shareID),
			slog.String("error", err.Error()),
		)
		return model.NewUnauthorizedError()
	}
	if ownerID == "" || ownerID != userID {
		return model.NewUnauthorizedError()
	}

	if err := s.repo.DeleteByID(ctx, shareID); err != nil {
		s.logger.Error("error deleting share",
			slog.String("share_id", shareID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to delete share: %w", err)
	}
	return nil
}

func generateToken() (string, error) {
	b := make([]byte, shareTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
