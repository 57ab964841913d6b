package model

import "time"

// User は認証済みアカウント。公開される表示情報はProfileが持ち、
// Userはメールアドレスとログイン名のみを保持する。
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity はUserとIdPアカウントの紐付け。
// (Provider, ProviderUserID)の組は一意で、ログインのたびにLastLoginAtを更新する。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
	LastLoginAt    time.Time
}

// Session はサーバー側で保持するログインセッション。IDはCookieに入る不透明な値。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// MaxAgeSeconds はnow時点からの残り有効秒数を返す。期限切れなら0。
func (s *Session) MaxAgeSeconds(now time.Time) int {
	if !now.Before(s.ExpiresAt) {
		return 0
	}
	return int(s.ExpiresAt.Sub(now) / time.Second)
}
