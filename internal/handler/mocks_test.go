package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/successledger/internal/middleware"
	"github.com/hitoshi/successledger/internal/model"
)

// --- モック定義 ---

// mockAccessor はコンテキストに注入されたユーザーをそのまま返す。
type mockAccessor struct {
	profile *model.Profile
}

func (m *mockAccessor) CurrentUser(ctx context.Context) *model.User {
	return middleware.UserFromContext(ctx)
}

func (m *mockAccessor) RequireUser(ctx context.Context) (*model.User, error) {
	if u := middleware.UserFromContext(ctx); u != nil {
		return u, nil
	}
	return nil, model.NewAuthRequiredError()
}

func (m *mockAccessor) CurrentUserProfile(ctx context.Context, userID string) *model.Profile {
	return m.profile
}

type mockAchievementService struct {
	listFn                  func(ctx context.Context, ownerID string) ([]*model.Achievement, error)
	listPublicWithAuthorsFn func(ctx context.Context) ([]*model.AchievementWithAuthor, error)
	getByIDFn               func(ctx context.Context, id, ownerID string) (*model.Achievement, error)
	getPublicFn             func(ctx context.Context, id string) (*model.AchievementWithAuthor, error)
	createFn                func(ctx context.Context, in model.NewAchievement) (*model.Achievement, error)
	updateFn                func(ctx context.Context, id, ownerID string, update model.AchievementUpdate) (*model.Achievement, error)
	deleteFn                func(ctx context.Context, id, ownerID string) error
}

func (m *mockAchievementService) List(ctx context.Context, ownerID string) ([]*model.Achievement, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID)
	}
	return []*model.Achievement{}, nil
}

func (m *mockAchievementService) ListPublicWithAuthors(ctx context.Context) ([]*model.AchievementWithAuthor, error) {
	if m.listPublicWithAuthorsFn != nil {
		return m.listPublicWithAuthorsFn(ctx)
	}
	return []*model.AchievementWithAuthor{}, nil
}

func (m *mockAchievementService) GetByID(ctx context.Context, id, ownerID string) (*model.Achievement, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id, ownerID)
	}
	return nil, model.NewAchievementNotFoundError()
}

func (m *mockAchievementService) GetPublic(ctx context.Context, id string) (*model.AchievementWithAuthor, error) {
	if m.getPublicFn != nil {
		return m.getPublicFn(ctx, id)
	}
	return nil, model.NewAchievementNotFoundError()
}

func (m *mockAchievementService) Create(ctx context.Context, in model.NewAchievement) (*model.Achievement, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &model.Achievement{ID: "new-id", UserID: in.UserID, RawText: in.RawText}, nil
}

func (m *mockAchievementService) Update(ctx context.Context, id, ownerID string, update model.AchievementUpdate) (*model.Achievement, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, ownerID, update)
	}
	return nil, nil
}

func (m *mockAchievementService) Delete(ctx context.Context, id, ownerID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, ownerID)
	}
	return nil
}

type mockProfileService struct {
	getFn       func(ctx context.Context, id string) (*model.Profile, error)
	updateFn    func(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error)
	lookupOneFn func(ctx context.Context, userID string) *model.Profile
}

func (m *mockProfileService) Get(ctx context.Context, id string) (*model.Profile, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.Profile{ID: id}, nil
}

func (m *mockProfileService) Update(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, update)
	}
	return &model.Profile{ID: userID}, nil
}

func (m *mockProfileService) LookupOne(ctx context.Context, userID string) *model.Profile {
	if m.lookupOneFn != nil {
		return m.lookupOneFn(ctx, userID)
	}
	return nil
}

type mockCommentService struct {
	listTopLevelFn func(ctx context.Context, achievementID string) ([]*model.CommentWithAuthor, error)
	listRepliesFn  func(ctx context.Context, parentID string) ([]*model.CommentWithAuthor, error)
	createFn       func(ctx context.Context, achievementID, userID, content, parentID string) (*model.CommentWithAuthor, error)
	updateFn       func(ctx context.Context, id, userID, content string) (*model.CommentWithAuthor, error)
	deleteFn       func(ctx context.Context, id, userID string) error
}

func (m *mockCommentService) ListTopLevel(ctx context.Context, achievementID string) ([]*model.CommentWithAuthor, error) {
	if m.listTopLevelFn != nil {
		return m.listTopLevelFn(ctx, achievementID)
	}
	return []*model.CommentWithAuthor{}, nil
}

func (m *mockCommentService) ListReplies(ctx context.Context, parentID string) ([]*model.CommentWithAuthor, error) {
	if m.listRepliesFn != nil {
		return m.listRepliesFn(ctx, parentID)
	}
	return []*model.CommentWithAuthor{}, nil
}

func (m *mockCommentService) Create(ctx context.Context, achievementID, userID, content, parentID string) (*model.CommentWithAuthor, error) {
	if m.createFn != nil {
		return m.createFn(ctx, achievementID, userID, content, parentID)
	}
	return &model.CommentWithAuthor{Comment: &model.Comment{ID: "c-new", AchievementID: achievementID, UserID: userID, Content: content}}, nil
}

func (m *mockCommentService) Update(ctx context.Context, id, userID, content string) (*model.CommentWithAuthor, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, userID, content)
	}
	return nil, nil
}

func (m *mockCommentService) Delete(ctx context.Context, id, userID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, userID)
	}
	return nil
}

type mockLikeService struct {
	mu     sync.Mutex
	liked  map[string]bool // achievementID+userID -> liked
	listFn func(ctx context.Context, achievementID string) ([]*model.LikeWithProfile, error)
	err    error
}

func newMockLikeService() *mockLikeService {
	return &mockLikeService{liked: make(map[string]bool)}
}

func (m *mockLikeService) List(ctx context.Context, achievementID string) ([]*model.LikeWithProfile, error) {
	if m.listFn != nil {
		return m.listFn(ctx, achievementID)
	}
	return []*model.LikeWithProfile{}, nil
}

func (m *mockLikeService) Like(ctx context.Context, achievementID, userID string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liked[achievementID+"/"+userID] = true
	return nil
}

func (m *mockLikeService) Unlike(ctx context.Context, achievementID, userID string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.liked, achievementID+"/"+userID)
	return nil
}

func (m *mockLikeService) HasLiked(ctx context.Context, achievementID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liked[achievementID+"/"+userID], nil
}

func (m *mockLikeService) Count(ctx context.Context, achievementID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.liked {
		if strings.HasPrefix(key, achievementID+"/") {
			n++
		}
	}
	return n
}

func (m *mockLikeService) Toggle(ctx context.Context, achievementID, userID string) (bool, error) {
	liked, _ := m.HasLiked(ctx, achievementID, userID)
	if liked {
		return false, m.Unlike(ctx, achievementID, userID)
	}
	return true, m.Like(ctx, achievementID, userID)
}

type mockShareService struct {
	createForOwnerFn     func(ctx context.Context, achievementID, ownerID string, ttl time.Duration) (*model.Share, error)
	getByTokenFn         func(ctx context.Context, token string) (*model.ShareWithAchievement, error)
	listForAchievementFn func(ctx context.Context, achievementID string) ([]*model.Share, error)
	deleteFn             func(ctx context.Context, shareID, userID string) error
}

func (m *mockShareService) CreateForOwner(ctx context.Context, achievementID, ownerID string, ttl time.Duration) (*model.Share, error) {
	if m.createForOwnerFn != nil {
		return m.createForOwnerFn(ctx, achievementID, ownerID, ttl)
	}
	return &model.Share{ID: "share-1", AchievementID: achievementID, ShareToken: "tok"}, nil
}

func (m *mockShareService) GetByToken(ctx context.Context, token string) (*model.ShareWithAchievement, error) {
	if m.getByTokenFn != nil {
		return m.getByTokenFn(ctx, token)
	}
	return nil, model.NewShareNotFoundError()
}

func (m *mockShareService) ListForAchievement(ctx context.Context, achievementID string) ([]*model.Share, error) {
	if m.listForAchievementFn != nil {
		return m.listForAchievementFn(ctx, achievementID)
	}
	return []*model.Share{}, nil
}

func (m *mockShareService) Delete(ctx context.Context, shareID, userID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, shareID, userID)
	}
	return nil
}

type mockAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return &model.Session{ID: "session-1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

// recordingInvalidator は破棄されたパスを記録する。
type recordingInvalidator struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingInvalidator) Invalidate(paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, paths...)
}

func (r *recordingInvalidator) has(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.paths {
		if p == path {
			return true
		}
	}
	return false
}

// recordingActions は記録された操作を"action:outcome"の形式で保持する。
type recordingActions struct {
	mu      sync.Mutex
	records []string
}

func (r *recordingActions) RecordAction(action, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, action+":"+outcome)
}

// --- ヘルパー ---

const (
	testUserID        = "11111111-1111-1111-1111-111111111111"
	testOtherUserID   = "22222222-2222-2222-2222-222222222222"
	testAchievementID = "33333333-3333-3333-3333-333333333333"
)

func testUser() *model.User {
	return &model.User{ID: testUserID, Email: "owner@example.com", Name: "Owner"}
}

// testWeb はテスト用の共通依存関係を返す。
func testWeb(t *testing.T) (WebDeps, *recordingInvalidator, *recordingActions) {
	t.Helper()
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	inv := &recordingInvalidator{}
	actions := &recordingActions{}
	return WebDeps{
		Accessor:    &mockAccessor{profile: &model.Profile{ID: testUserID, FullName: "Ada Lovelace"}},
		Renderer:    renderer,
		Invalidator: inv,
		Actions:     actions,
	}, inv, actions
}

// asUser はリクエストにログインユーザーを注入する。
func asUser(r *http.Request, user *model.User) *http.Request {
	return r.WithContext(middleware.ContextWithUser(r.Context(), user))
}

// withRouteParam はchiのURLパラメータを設定する。
func withRouteParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func sampleAchievement() *model.Achievement {
	return &model.Achievement{
		ID:        testAchievementID,
		UserID:    testUserID,
		RawText:   "Shipped the billing migration\nwith zero downtime",
		Date:      time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Category:  "Engineering",
		Tags:      []string{"billing", "migration"},
		CreatedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func formBody(values url.Values) *strings.Reader {
	return strings.NewReader(values.Encode())
}
