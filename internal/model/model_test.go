package model

import (
	"reflect"
	"testing"
	"time"
)

func TestIsStructured(t *testing.T) {
	tests := []struct {
		name                    string
		situation, task, action string
		result                  string
		want                    bool
	}{
		{"全項目あり", "s", "t", "a", "r", true},
		{"resultなし", "s", "t", "a", "", false},
		{"空白のみは未入力扱い", "s", "  ", "a", "r", false},
		{"全項目なし", "", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsStructured(tt.situation, tt.task, tt.action, tt.result)
			if got != tt.want {
				t.Errorf("IsStructured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{}},
		{"go", []string{"go"}},
		{" leadership , go,, infra ", []string{"leadership", "go", "infra"}},
		{",,,", []string{}},
	}

	for _, tt := range tests {
		got := ParseTags(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseTags(%q) = %#v, want %#v", tt.input, got, tt.want)
		}
	}
}

func TestProfile_DisplayNameAndInitials(t *testing.T) {
	var nilProfile *Profile
	if got := nilProfile.DisplayName(); got != "Anonymous" {
		t.Errorf("nil profile DisplayName = %q, want Anonymous", got)
	}

	p := &Profile{FullName: "ada lovelace byron"}
	if got := p.Initials(); got != "AL" {
		t.Errorf("Initials = %q, want AL", got)
	}
}

func TestShare_IsExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if (&Share{}).IsExpired(now) {
		t.Error("無期限の共有リンクが期限切れと判定された")
	}
	if !(&Share{ExpiresAt: &past}).IsExpired(now) {
		t.Error("過去の期限が期限切れと判定されなかった")
	}
	if (&Share{ExpiresAt: &future}).IsExpired(now) {
		t.Error("未来の期限が期限切れと判定された")
	}
}

func TestAPIError_Error(t *testing.T) {
	err := NewUnauthorizedError()
	if err.Error() != "[UNAUTHORIZED] Unauthorized" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestSession_MaxAgeSeconds(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      int
	}{
		{"残り1時間", now.Add(time.Hour), 3600},
		{"端数は切り捨て", now.Add(90*time.Second + 500*time.Millisecond), 90},
		{"ちょうど期限", now, 0},
		{"期限切れ", now.Add(-time.Minute), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{ExpiresAt: tt.expiresAt}
			if got := s.MaxAgeSeconds(now); got != tt.want {
				t.Errorf("MaxAgeSeconds() = %d, want %d", got, tt.want)
			}
		})
	}
}
