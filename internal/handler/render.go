package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/hitoshi/successledger/internal/middleware"
	"github.com/hitoshi/successledger/internal/model"
)

//go:embed templates
var templateFS embed.FS

// pageData は全ページ共通のテンプレートデータ。
// ページ固有のデータはContentに格納する。
type pageData struct {
	Title     string
	User      *model.User
	Profile   *model.Profile
	CSRFToken string
	Error     string
	Notice    string
	Content   any
}

var templateFuncs = template.FuncMap{
	"displayName": func(p *model.Profile) string { return p.DisplayName() },
	"initials":    func(p *model.Profile) string { return p.Initials() },
	"avatarURL": func(p *model.Profile) string {
		if p == nil {
			return ""
		}
		return p.AvatarURL
	},
	"formatDate": func(t time.Time) string { return t.Format("Jan 2, 2006") },
	"isoDate":    func(t time.Time) string { return t.Format(dateLayout) },
	"join":       strings.Join,
	"excerpt":    excerpt,

	"achievementPath":          achievementPath,
	"dashboardAchievementPath": dashboardAchievementPath,
}

// Renderer は埋め込みテンプレートからHTMLページを描画する。
type Renderer struct {
	base  *template.Template
	pages map[string]*template.Template
}

// NewRenderer はテンプレートを解析してRendererを生成する。
// 各ページはlayoutとpartialsを共有し、"content"ブロックを定義する。
func NewRenderer() (*Renderer, error) {
	base, err := template.New("base").Funcs(templateFuncs).
		ParseFS(templateFS, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base templates: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list page templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone base template: %w", err)
		}
		if _, err := t.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		pages[strings.TrimSuffix(path.Base(file), ".html")] = t
	}

	return &Renderer{base: base, pages: pages}, nil
}

// Page はレイアウト付きでページを描画する。
// 描画はバッファに対して行い、失敗した場合は500を返す。
func (rn *Renderer) Page(w http.ResponseWriter, status int, name string, data *pageData) {
	t, ok := rn.pages[name]
	if !ok {
		slog.Error("unknown page template", slog.String("page", name))
		middleware.WriteInternalServerError(w)
		return
	}
	rn.execute(w, status, t, "layout", data)
}

// Fragment はレイアウトなしで部分テンプレートを描画する。
func (rn *Renderer) Fragment(w http.ResponseWriter, status int, name string, data any) {
	rn.execute(w, status, rn.base, name, data)
}

func (rn *Renderer) execute(w http.ResponseWriter, status int, t *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// excerpt は本文の1行目をn文字以内に切り詰める。
func excerpt(s string, n int) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	runes := []rune(strings.TrimSpace(line))
	if len(runes) <= n {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}
