package model

import (
	"strings"
	"time"
)

// Profile はユーザーの公開プロフィールを表す。
// IDはUser.IDと同一。任意項目は空文字列がNULLに対応する。
type Profile struct {
	ID        string
	FullName  string
	AvatarURL string
	Bio       string
	JobTitle  string
	Company   string
	Location  string
	Website   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName は表示用の名前を返す。氏名が未設定の場合は"Anonymous"。
func (p *Profile) DisplayName() string {
	if p == nil || strings.TrimSpace(p.FullName) == "" {
		return "Anonymous"
	}
	return p.FullName
}

// Initials はアバター画像がない場合に表示する頭文字を返す。
func (p *Profile) Initials() string {
	name := p.DisplayName()
	var initials []rune
	for _, part := range strings.Fields(name) {
		initials = append(initials, []rune(part)[0])
		if len(initials) == 2 {
			break
		}
	}
	return strings.ToUpper(string(initials))
}

// ProfileUpdate はプロフィールの部分更新内容を表す。
// nilのフィールドは変更しない。空文字列を指定した場合はNULLにクリアする。
type ProfileUpdate struct {
	FullName  *string
	AvatarURL *string
	Bio       *string
	JobTitle  *string
	Company   *string
	Location  *string
	Website   *string
}

// IsEmpty は更新対象のフィールドが1つもない場合にtrueを返す。
func (u ProfileUpdate) IsEmpty() bool {
	return u.FullName == nil && u.AvatarURL == nil && u.Bio == nil &&
		u.JobTitle == nil && u.Company == nil && u.Location == nil && u.Website == nil
}
