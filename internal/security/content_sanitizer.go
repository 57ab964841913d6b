// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer はユーザーが投稿したテキストからマークアップを取り除く。
// コメントとプロフィールは保存前にプレーンテキスト化する。
// 実績本文は入力のまま保存してHTMLテンプレートでエスケープし、
// RSSフィードに埋め込む時点で許可リストのポリシーで整形する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はユーザー入力のサニタイズ機能のインターフェース。
type ContentSanitizer interface {
	// PlainText はすべてのHTMLタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
	// エンティティは元の文字に戻す（出力時のエスケープはテンプレート側で行う）。
	PlainText(input string) string

	// SanitizeHTML は許可タグ（p, br, ul, ol, li, strong, em, a）のみを残したHTMLを返す。
	SanitizeHTML(rawHTML string) string
}

// contentSanitizer はbluemondayのポリシーを保持する。ポリシーはスレッドセーフ。
type contentSanitizer struct {
	strict *bluemonday.Policy
	rich   *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
func NewContentSanitizer() ContentSanitizer {
	rich := bluemonday.NewPolicy()
	rich.AllowElements("p", "br", "ul", "ol", "li", "strong", "em")
	rich.AllowAttrs("href").OnElements("a")
	rich.AllowStandardURLs()
	rich.AllowRelativeURLs(false)
	rich.AddTargetBlankToFullyQualifiedLinks(true)
	rich.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		strict: bluemonday.StrictPolicy(),
		rich:   rich,
	}
}

// PlainText はマークアップを除去したプレーンテキストを返す。
func (s *contentSanitizer) PlainText(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(input)))
}

// SanitizeHTML は許可リストに含まれるタグのみを残す。
func (s *contentSanitizer) SanitizeHTML(rawHTML string) string {
	return s.rich.Sanitize(rawHTML)
}
