package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/successledger/internal/model"
)

func TestProfileHandler_Edit(t *testing.T) {
	deps, _, _ := testWeb(t)
	h := NewProfileHandler(deps, &mockProfileService{
		getFn: func(ctx context.Context, id string) (*model.Profile, error) {
			return &model.Profile{ID: id, FullName: "Ada Lovelace", Company: "Analytical Engines"}, nil
		},
	})

	t.Run("現在の値をフォームに表示する", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Edit(w, asUser(httptest.NewRequest(http.MethodGet, "/dashboard/profile", nil), testUser()))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if !strings.Contains(w.Body.String(), `value="Analytical Engines"`) {
			t.Error("company should be prefilled")
		}
	})

	t.Run("保存後は通知を表示する", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Edit(w, asUser(httptest.NewRequest(http.MethodGet, "/dashboard/profile?saved=1", nil), testUser()))

		if !strings.Contains(w.Body.String(), "Profile saved.") {
			t.Error("notice should be shown")
		}
	})
}

func TestProfileHandler_Update(t *testing.T) {
	t.Run("保存後はPRGでリダイレクトし公開ページのキャッシュを破棄する", func(t *testing.T) {
		deps, inv, actions := testWeb(t)
		var got model.ProfileUpdate
		h := NewProfileHandler(deps, &mockProfileService{
			updateFn: func(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error) {
				got = update
				return &model.Profile{ID: userID}, nil
			},
		})

		req := postForm(url.Values{"full_name": {" Ada Lovelace "}, "website": {"https://ada.example.com"}})
		w := httptest.NewRecorder()
		h.Update(w, asUser(req, testUser()))

		if w.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
		}
		if loc := w.Header().Get("Location"); loc != "/dashboard/profile?saved=1" {
			t.Errorf("Location = %q", loc)
		}
		if got.FullName == nil || *got.FullName != "Ada Lovelace" {
			t.Errorf("FullName = %v", got.FullName)
		}
		if got.Bio == nil || *got.Bio != "" {
			t.Error("empty fields should be sent to clear them")
		}
		for _, p := range []string{"/", "/feed.xml", "/achievements/*", "/s/*"} {
			if !inv.has(p) {
				t.Errorf("%s should be invalidated", p)
			}
		}
		if actions.records[0] != "profile_update:success" {
			t.Errorf("actions = %v", actions.records)
		}
	})

	t.Run("内部アドレスのURLは422で再表示する", func(t *testing.T) {
		deps, inv, _ := testWeb(t)
		h := NewProfileHandler(deps, &mockProfileService{
			updateFn: func(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error) {
				return nil, model.NewSSRFBlockedError()
			},
		})

		req := postForm(url.Values{"avatar_url": {"http://169.254.169.254/latest"}})
		w := httptest.NewRecorder()
		h.Update(w, asUser(req, testUser()))

		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
		}
		if !strings.Contains(w.Body.String(), `value="http://169.254.169.254/latest"`) {
			t.Error("submitted values should be kept")
		}
		if len(inv.paths) != 0 {
			t.Error("cache should not be invalidated on failure")
		}
	})

	t.Run("URL形式の誤りはサービスを呼ばない", func(t *testing.T) {
		deps, _, _ := testWeb(t)
		h := NewProfileHandler(deps, &mockProfileService{
			updateFn: func(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error) {
				t.Fatal("service should not be called")
				return nil, nil
			},
		})

		w := httptest.NewRecorder()
		h.Update(w, asUser(postForm(url.Values{"website": {"not a url"}}), testUser()))

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
		}
	})
}
