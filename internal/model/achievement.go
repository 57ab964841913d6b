package model

import (
	"strings"
	"time"
)

// Achievement はユーザーが記録した実績を表す。
// STAR各項目とCategoryは空文字列がNULLに対応する。
type Achievement struct {
	ID            string
	UserID        string
	RawText       string
	StarSituation string
	StarTask      string
	StarAction    string
	StarResult    string
	Date          time.Time
	Category      string
	Tags          []string
	IsStructured  bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewAchievement は実績の作成内容を表す。
// IsStructuredは書き込み側が算出した値をそのまま保存する。
type NewAchievement struct {
	UserID        string
	RawText       string
	StarSituation string
	StarTask      string
	StarAction    string
	StarResult    string
	Date          time.Time
	Category      string
	Tags          []string
	IsStructured  bool
}

// AchievementUpdate は実績の部分更新内容を表す。
// nilのフィールドは変更しない。
type AchievementUpdate struct {
	RawText       *string
	StarSituation *string
	StarTask      *string
	StarAction    *string
	StarResult    *string
	Date          *time.Time
	Category      *string
	Tags          *[]string
	IsStructured  *bool
}

// IsEmpty は更新対象のフィールドが1つもない場合にtrueを返す。
func (u AchievementUpdate) IsEmpty() bool {
	return u.RawText == nil && u.StarSituation == nil && u.StarTask == nil &&
		u.StarAction == nil && u.StarResult == nil && u.Date == nil &&
		u.Category == nil && u.Tags == nil && u.IsStructured == nil
}

// AchievementWithAuthor は実績と投稿者プロフィールを結合した構造体。
// Authorがnilの場合はプロフィールが存在しないことを表す。
type AchievementWithAuthor struct {
	*Achievement
	Author *Profile
}

// IsStructured はSTARの4項目がすべて入力されている場合にtrueを返す。
// 空白のみの項目は未入力として扱う。
func IsStructured(situation, task, action, result string) bool {
	for _, s := range []string{situation, task, action, result} {
		if strings.TrimSpace(s) == "" {
			return false
		}
	}
	return true
}

// ParseTags はカンマ区切りのタグ入力を分割する。
// 前後の空白を除去し、空の要素は捨てる。
func ParseTags(input string) []string {
	tags := []string{}
	for _, t := range strings.Split(input, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
