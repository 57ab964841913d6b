// Package profile はプロフィールの取得・更新と、一覧表示用の一括取得を提供する。
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hitoshi/successledger/internal/model"
	"github.com/hitoshi/successledger/internal/repository"
	"github.com/hitoshi/successledger/internal/security"
)

// Service はプロフィールに関するビジネスロジックを提供する。
type Service struct {
	repo      repository.ProfileRepository
	urlGuard  security.URLGuard
	sanitizer security.ContentSanitizer
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	repo repository.ProfileRepository,
	urlGuard security.URLGuard,
	sanitizer security.ContentSanitizer,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		urlGuard:  urlGuard,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// Get は指定IDのプロフィールを取得する。見つからない場合はPROFILE_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Profile, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("error fetching profile",
			slog.String("profile_id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return profile, nil
}

// Update はnilでないフィールドのみを更新する。
// WebサイトとアバターのURLは公開ホストを指すhttp(s) URLのみ受け付ける。
func (s *Service) Update(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error) {
	if err := s.validateURL(update.Website); err != nil {
		return nil, err
	}
	if err := s.validateURL(update.AvatarURL); err != nil {
		return nil, err
	}
	s.cleanText(update.FullName)
	s.cleanText(update.Bio)
	s.cleanText(update.JobTitle)
	s.cleanText(update.Company)
	s.cleanText(update.Location)

	profile, err := s.repo.Update(ctx, userID, update)
	if err != nil {
		s.logger.Error("error updating profile",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}

	s.logger.Info("profile updated", slog.String("user_id", userID))
	return profile, nil
}

// LookupMany は指定ユーザーIDのプロフィールを1回のクエリでまとめて取得し、IDをキーとするマップで返す。
// 重複IDは1つにまとめる。取得に失敗した場合はログを出力して空のマップを返すため、
// 呼び出し側ではすべての行が「プロフィールなし」として扱われる。
func (s *Service) LookupMany(ctx context.Context, userIDs []string) map[string]*model.Profile {
	result := make(map[string]*model.Profile)

	ids := distinctValidIDs(userIDs)
	if len(ids) == 0 {
		return result
	}

	profiles, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("error fetching profiles",
			slog.Int("count", len(ids)),
			slog.String("error", err.Error()),
		)
		return result
	}

	for _, p := range profiles {
		result[p.ID] = p
	}
	return result
}

// LookupOne は1件のプロフィールを取得する。存在しない場合や取得失敗時はnilを返す。
func (s *Service) LookupOne(ctx context.Context, userID string) *model.Profile {
	if _, err := uuid.Parse(userID); err != nil {
		return nil
	}
	profile, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		s.logger.Error("error fetching profile",
			slog.String("profile_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return profile
}

func (s *Service) validateURL(ptr *string) error {
	if ptr == nil || *ptr == "" {
		return nil
	}
	if err := s.urlGuard.ValidateURL(*ptr); err != nil {
		var blocked *security.BlockedHostError
		if errors.As(err, &blocked) {
			return model.NewSSRFBlockedError()
		}
		return model.NewInvalidURLError(*ptr)
	}
	return nil
}

func (s *Service) cleanText(ptr *string) {
	if ptr != nil {
		*ptr = s.sanitizer.PlainText(*ptr)
	}
}

// distinctValidIDs は重複とUUIDとして不正な値を取り除く。順序は最初の出現順。
func distinctValidIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
