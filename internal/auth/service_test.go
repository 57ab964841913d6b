package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/successledger/internal/model"
	"github.com/hitoshi/successledger/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	createWithIdentityFn func(ctx context.Context, user *model.User, identity *model.Identity, profile *model.Profile) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity, profile *model.Profile) error {
	if m.createWithIdentityFn != nil {
		return m.createWithIdentityFn(ctx, user, identity, profile)
	}
	return nil
}

type mockIdentityRepo struct {
	findByProviderFn func(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
	touchFn          func(ctx context.Context, id string, at time.Time) error
}

func (m *mockIdentityRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if m.touchFn != nil {
		return m.touchFn(ctx, id, at)
	}
	return nil
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	if m.findByProviderFn != nil {
		return m.findByProviderFn(ctx, provider, providerUserID)
	}
	return nil, nil
}

type mockSessionRepo struct {
	createFn     func(ctx context.Context, session *model.Session) error
	findByIDFn   func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.IdentityRepository = (*mockIdentityRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)

func providerReturning(info *OAuthUserInfo) *mockOAuthProvider {
	return &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return info, nil
		},
	}
}

// --- テスト ---

func TestGetLoginURL_ReturnsOAuthURL(t *testing.T) {
	provider := &mockOAuthProvider{
		getLoginURLFn: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	svc := NewService(provider, nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	expected := "https://accounts.google.com/o/oauth2/auth?state=test-state"
	if got := svc.GetLoginURL("test-state"); got != expected {
		t.Errorf("GetLoginURL() = %q, want %q", got, expected)
	}
}

func TestHandleCallback_NewUser_CreatesUserIdentityProfileAndSession(t *testing.T) {
	ctx := context.Background()

	var createdUser *model.User
	var createdIdentity *model.Identity
	var createdProfile *model.Profile
	var createdSession *model.Session

	provider := providerReturning(&OAuthUserInfo{
		ProviderUserID: "google-user-123",
		Email:          "test@example.com",
		Name:           "Test User",
		AvatarURL:      "https://lh3.googleusercontent.com/a/test.jpg",
		Provider:       "google",
	})
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity, profile *model.Profile) error {
			createdUser = user
			createdIdentity = identity
			createdProfile = profile
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(provider, userRepo, &mockIdentityRepo{}, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(ctx, "auth-code-123")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if session == nil || session.ID == "" {
		t.Fatal("expected session with ID")
	}

	if createdUser == nil {
		t.Fatal("expected user to be created")
	}
	if createdUser.Email != "test@example.com" {
		t.Errorf("user email = %q, want %q", createdUser.Email, "test@example.com")
	}

	if createdIdentity == nil || createdIdentity.UserID != createdUser.ID {
		t.Fatalf("identity = %+v", createdIdentity)
	}
	if createdIdentity.ProviderUserID != "google-user-123" {
		t.Errorf("identity providerUserID = %q, want %q", createdIdentity.ProviderUserID, "google-user-123")
	}

	// プロフィールはユーザーと同じIDで作成されること
	if createdProfile == nil || createdProfile.ID != createdUser.ID {
		t.Fatalf("profile = %+v", createdProfile)
	}
	if createdProfile.FullName != "Test User" {
		t.Errorf("profile full name = %q, want %q", createdProfile.FullName, "Test User")
	}
	if createdProfile.AvatarURL == "" {
		t.Error("profile avatar should be copied from provider")
	}

	if createdSession == nil || createdSession.UserID != createdUser.ID {
		t.Fatalf("session = %+v", createdSession)
	}
	if createdSession.ExpiresAt.Before(time.Now().Add(23 * time.Hour)) {
		t.Error("session should last SessionMaxAge seconds")
	}
}

func TestHandleCallback_NewUserWithoutName_UsesEmailLocalPart(t *testing.T) {
	var createdProfile *model.Profile
	provider := providerReturning(&OAuthUserInfo{
		ProviderUserID: "google-user-noname",
		Email:          "grace.hopper@example.com",
		Provider:       "google",
	})
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity, profile *model.Profile) error {
			createdProfile = profile
			return nil
		},
	}

	svc := NewService(provider, userRepo, &mockIdentityRepo{}, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 60})

	if _, err := svc.HandleCallback(context.Background(), "code"); err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if createdProfile.FullName != "grace.hopper" {
		t.Errorf("full name = %q, want %q", createdProfile.FullName, "grace.hopper")
	}
}

func TestHandleCallback_ExistingUser_LogsInAndCreatesSession(t *testing.T) {
	existingUserID := "existing-user-id-456"
	var createdSession *model.Session
	var touchedID string

	provider := providerReturning(&OAuthUserInfo{
		ProviderUserID: "google-user-789",
		Email:          "existing@example.com",
		Provider:       "google",
	})
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity, profile *model.Profile) error {
			t.Error("既存ユーザーでCreateWithIdentityが呼ばれてはならない")
			return nil
		},
	}
	identityRepo := &mockIdentityRepo{
		findByProviderFn: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			return &model.Identity{
				ID:             "identity-id-1",
				UserID:         existingUserID,
				Provider:       "google",
				ProviderUserID: "google-user-789",
			}, nil
		},
		touchFn: func(ctx context.Context, id string, at time.Time) error {
			touchedID = id
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(provider, userRepo, identityRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(context.Background(), "auth-code-existing")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if session.UserID != existingUserID {
		t.Errorf("session userID = %q, want %q", session.UserID, existingUserID)
	}
	if createdSession == nil || createdSession.UserID != existingUserID {
		t.Errorf("created session = %+v", createdSession)
	}
	if touchedID != "identity-id-1" {
		t.Errorf("last login should be recorded for identity-id-1, got %q", touchedID)
	}
}

func TestHandleCallback_TouchFailure_StillLogsIn(t *testing.T) {
	provider := providerReturning(&OAuthUserInfo{ProviderUserID: "g-1", Email: "a@example.com", Provider: "google"})
	identityRepo := &mockIdentityRepo{
		findByProviderFn: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			return &model.Identity{ID: "identity-1", UserID: "user-1"}, nil
		},
		touchFn: func(ctx context.Context, id string, at time.Time) error {
			return errors.New("db down")
		},
	}

	svc := NewService(provider, &mockUserRepo{}, identityRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 60})

	session, err := svc.HandleCallback(context.Background(), "code")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if session.UserID != "user-1" {
		t.Errorf("session userID = %q, want user-1", session.UserID)
	}
}

func TestHandleCallback_Errors(t *testing.T) {
	newUserInfo := &OAuthUserInfo{ProviderUserID: "x", Email: "x@example.com", Provider: "google"}

	tests := []struct {
		name        string
		provider    *mockOAuthProvider
		userRepo    *mockUserRepo
		identRepo   *mockIdentityRepo
		sessionRepo *mockSessionRepo
	}{
		{
			name: "コード交換の失敗",
			provider: &mockOAuthProvider{
				exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
					return nil, errors.New("oauth exchange failed")
				},
			},
		},
		{
			name:     "identity検索の失敗",
			provider: providerReturning(newUserInfo),
			identRepo: &mockIdentityRepo{
				findByProviderFn: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
					return nil, errors.New("db error")
				},
			},
		},
		{
			name:      "ユーザー作成の失敗",
			provider:  providerReturning(newUserInfo),
			identRepo: &mockIdentityRepo{},
			userRepo: &mockUserRepo{
				createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity, profile *model.Profile) error {
					return errors.New("db error")
				},
			},
		},
		{
			name:      "セッション保存の失敗",
			provider:  providerReturning(newUserInfo),
			identRepo: &mockIdentityRepo{},
			userRepo:  &mockUserRepo{},
			sessionRepo: &mockSessionRepo{
				createFn: func(ctx context.Context, session *model.Session) error {
					return errors.New("db error")
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.provider, tt.userRepo, tt.identRepo, tt.sessionRepo, ServiceConfig{SessionMaxAge: 86400})
			if _, err := svc.HandleCallback(context.Background(), "code"); err == nil {
				t.Fatal("expected error from HandleCallback")
			}
		})
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	var deletedSessionID string
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deletedSessionID = id
			return nil
		},
	}

	svc := NewService(nil, nil, nil, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	if err := svc.Logout(context.Background(), "session-to-delete"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if deletedSessionID != "session-to-delete" {
		t.Errorf("deleted session ID = %q, want %q", deletedSessionID, "session-to-delete")
	}
}

func TestLogout_EmptySessionID_ReturnsError(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty session ID")
	}
}

func TestGetCurrentUser_ValidSession_ReturnsUser(t *testing.T) {
	userID := "user-id-123"
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "user@example.com"}, nil
		},
	}

	svc := NewService(nil, userRepo, nil, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	user, err := svc.GetCurrentUser(context.Background(), "session-valid")
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}
	if user == nil || user.ID != userID {
		t.Errorf("user = %+v, want ID %q", user, userID)
	}
}

func TestGetCurrentUser_NoIdentity_ReturnsNil(t *testing.T) {
	t.Run("期限切れセッション", func(t *testing.T) {
		sessionRepo := &mockSessionRepo{
			findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
				return nil, nil
			},
		}
		svc := NewService(nil, nil, nil, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

		user, err := svc.GetCurrentUser(context.Background(), "expired-session")
		if user != nil || err != nil {
			t.Errorf("got (%v, %v), want (nil, nil)", user, err)
		}
	})

	t.Run("空のセッションID", func(t *testing.T) {
		svc := NewService(nil, nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

		user, err := svc.GetCurrentUser(context.Background(), "")
		if user != nil || err != nil {
			t.Errorf("got (%v, %v), want (nil, nil)", user, err)
		}
	})
}

func TestGetCurrentUser_BackendError_ReturnsError(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, errors.New("connection reset")
		},
	}
	svc := NewService(nil, nil, nil, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	if _, err := svc.GetCurrentUser(context.Background(), "s"); err == nil {
		t.Fatal("expected error")
	}
}
