package social

import (
	"context"
	"sort"
	"sync"

	"github.com/hitoshi/successledger/internal/model"
	"github.com/lib/pq"
)

// uniqueViolation はPostgreSQLの一意制約違反と同じ形のエラーを返す。
func uniqueViolation() error {
	return &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
}

// --- いいね ---

type memLikeRepo struct {
	mu    sync.Mutex
	likes []*model.Like

	existsErr error
	countErr  error
	createErr error
}

func (r *memLikeRepo) ListByAchievement(ctx context.Context, achievementID string) ([]*model.Like, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Like{}
	for _, l := range r.likes {
		if l.AchievementID == achievementID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memLikeRepo) Create(ctx context.Context, like *model.Like) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, l := range r.likes {
		if l.AchievementID == like.AchievementID && l.UserID == like.UserID {
			return uniqueViolation()
		}
	}
	r.likes = append(r.likes, like)
	return nil
}

func (r *memLikeRepo) Delete(ctx context.Context, achievementID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.likes[:0]
	for _, l := range r.likes {
		if l.AchievementID == achievementID && l.UserID == userID {
			continue
		}
		kept = append(kept, l)
	}
	r.likes = kept
	return nil
}

func (r *memLikeRepo) Exists(ctx context.Context, achievementID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existsErr != nil {
		return false, r.existsErr
	}
	for _, l := range r.likes {
		if l.AchievementID == achievementID && l.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memLikeRepo) CountByAchievement(ctx context.Context, achievementID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	n := 0
	for _, l := range r.likes {
		if l.AchievementID == achievementID {
			n++
		}
	}
	return n, nil
}

// --- 共有リンク ---

type memShareRepo struct {
	mu           sync.Mutex
	shares       map[string]*model.Share
	achievements *memAchievementRepo

	ownerErr error
}

func newMemShareRepo(achievements *memAchievementRepo) *memShareRepo {
	return &memShareRepo{shares: make(map[string]*model.Share), achievements: achievements}
}

func (r *memShareRepo) Create(ctx context.Context, share *model.Share) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.shares {
		if s.ShareToken == share.ShareToken {
			return uniqueViolation()
		}
	}
	c := *share
	r.shares[share.ID] = &c
	return nil
}

func (r *memShareRepo) FindByTokenWithAchievement(ctx context.Context, token string) (*model.ShareWithAchievement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.shares {
		if s.ShareToken == token {
			a := r.achievements.rows[s.AchievementID]
			c := *s
			return &model.ShareWithAchievement{Share: &c, Achievement: a}, nil
		}
	}
	return nil, nil
}

func (r *memShareRepo) FindOwnerID(ctx context.Context, shareID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ownerErr != nil {
		return "", r.ownerErr
	}
	s, ok := r.shares[shareID]
	if !ok {
		return "", nil
	}
	a, ok := r.achievements.rows[s.AchievementID]
	if !ok {
		return "", nil
	}
	return a.UserID, nil
}

func (r *memShareRepo) ListByAchievement(ctx context.Context, achievementID string) ([]*model.Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Share{}
	for _, s := range r.shares {
		if s.AchievementID == achievementID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memShareRepo) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.shares, id)
	return nil
}

func (r *memShareRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// --- 実績（共有リンクの所有者確認用） ---

type memAchievementRepo struct {
	rows map[string]*model.Achievement
}

func (r *memAchievementRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Achievement, error) {
	return nil, nil
}
func (r *memAchievementRepo) ListAll(ctx context.Context) ([]*model.Achievement, error) {
	return nil, nil
}
func (r *memAchievementRepo) FindByID(ctx context.Context, id string) (*model.Achievement, error) {
	return r.rows[id], nil
}
func (r *memAchievementRepo) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Achievement, error) {
	a := r.rows[id]
	if a == nil || a.UserID != userID {
		return nil, nil
	}
	return a, nil
}
func (r *memAchievementRepo) Create(ctx context.Context, a *model.Achievement) error {
	r.rows[a.ID] = a
	return nil
}
func (r *memAchievementRepo) Update(ctx context.Context, id, userID string, update model.AchievementUpdate) (*model.Achievement, error) {
	return nil, nil
}
func (r *memAchievementRepo) Delete(ctx context.Context, id, userID string) error {
	return nil
}

// --- コメント ---

type mockCommentRepo struct {
	listTopLevelFn func(ctx context.Context, achievementID string) ([]*model.Comment, error)
	listRepliesFn  func(ctx context.Context, parentID string) ([]*model.Comment, error)
	findByIDFn     func(ctx context.Context, id string) (*model.Comment, error)
	createFn       func(ctx context.Context, comment *model.Comment) error
	updateFn       func(ctx context.Context, id, userID, content string) (*model.Comment, error)
	deleteFn       func(ctx context.Context, id, userID string) error
}

func (m *mockCommentRepo) ListTopLevel(ctx context.Context, achievementID string) ([]*model.Comment, error) {
	return m.listTopLevelFn(ctx, achievementID)
}
func (m *mockCommentRepo) ListReplies(ctx context.Context, parentID string) ([]*model.Comment, error) {
	return m.listRepliesFn(ctx, parentID)
}
func (m *mockCommentRepo) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	return m.createFn(ctx, comment)
}
func (m *mockCommentRepo) Update(ctx context.Context, id, userID, content string) (*model.Comment, error) {
	return m.updateFn(ctx, id, userID, content)
}
func (m *mockCommentRepo) Delete(ctx context.Context, id, userID string) error {
	return m.deleteFn(ctx, id, userID)
}

// --- プロフィール取得 ---

type mockProfileLookup struct {
	profiles      map[string]*model.Profile
	lookupManyCnt int
	lookupOneCnt  int
}

func (m *mockProfileLookup) LookupMany(ctx context.Context, userIDs []string) map[string]*model.Profile {
	m.lookupManyCnt++
	result := make(map[string]*model.Profile)
	for _, id := range userIDs {
		if p, ok := m.profiles[id]; ok {
			result[id] = p
		}
	}
	return result
}

func (m *mockProfileLookup) LookupOne(ctx context.Context, userID string) *model.Profile {
	m.lookupOneCnt++
	return m.profiles[userID]
}

const (
	userA         = "aaaaaaaa-0000-0000-0000-000000000001"
	userB         = "bbbbbbbb-0000-0000-0000-000000000002"
	achievementID = "cccccccc-0000-0000-0000-000000000003"
)
