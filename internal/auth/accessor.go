package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/successledger/internal/middleware"
	"github.com/hitoshi/successledger/internal/model"
)

// ErrNotAuthenticated はログインが必要な操作を未ログインで呼び出したことを表す。
// HTTP層ではログインページへのリダイレクトに変換される。
var ErrNotAuthenticated = errors.New("not authenticated")

// ProfileFinder はプロフィールの単一取得に必要なインターフェース。
type ProfileFinder interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}

// Accessor はリクエストコンテキストから現在のユーザーを参照する。
type Accessor struct {
	profiles ProfileFinder
	logger   *slog.Logger
}

// NewAccessor はAccessorを生成する。
func NewAccessor(profiles ProfileFinder, logger *slog.Logger) *Accessor {
	return &Accessor{profiles: profiles, logger: logger}
}

// CurrentUser はログイン中のユーザーを返す。未ログインならnil。
func (a *Accessor) CurrentUser(ctx context.Context) *model.User {
	return middleware.UserFromContext(ctx)
}

// RequireUser はログイン中のユーザーを返す。未ログインならErrNotAuthenticatedを返す。
func (a *Accessor) RequireUser(ctx context.Context) (*model.User, error) {
	user := middleware.UserFromContext(ctx)
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	return user, nil
}

// CurrentUserProfile は指定ユーザーのプロフィールを返す。
// 存在しない場合や取得に失敗した場合はnilを返し、失敗はログに残す。
func (a *Accessor) CurrentUserProfile(ctx context.Context, userID string) *model.Profile {
	if userID == "" {
		return nil
	}
	p, err := a.profiles.FindByID(ctx, userID)
	if err != nil {
		a.logger.Error("error fetching profile",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return p
}
