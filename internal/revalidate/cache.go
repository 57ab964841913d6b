// Package revalidate は匿名ユーザー向け公開ページのキャッシュと、
// 書き込み後にキャッシュを破棄するための再検証シグナルを提供する。
package revalidate

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/hitoshi/successledger/internal/middleware"
)

// Invalidator は書き込み操作の後に古くなったページを破棄するシグナル。
// "/achievements/*" のように末尾が "/*" のパスはそのプレフィックス配下すべてを対象にする。
// 破棄の失敗は呼び出し元のエラーにしない。
type Invalidator interface {
	Invalidate(paths ...string)
}

// CacheRecorder はキャッシュのヒット・ミスを記録する。
type CacheRecorder interface {
	RecordPageCache(hit bool)
}

// defaultMaxEntries はキャッシュの最大エントリ数のデフォルト値。
const defaultMaxEntries = 1000

type entry struct {
	status      int
	contentType string
	body        []byte
	expiresAt   time.Time
}

// PageCache はレンダリング済みページをリクエストURI単位で保持するLRUキャッシュ。
// TTL経過またはInvalidateで破棄される。並行利用可能。
//
// レンダリング中にInvalidateが呼ばれた場合、そのレンダリング結果は保存しない。
// genはInvalidateのたびに進み、ミス時に控えた値と異なれば保存を見送る。
type PageCache struct {
	mu       sync.Mutex
	gen      uint64
	ttl      time.Duration
	lru      *expirable.LRU[string, *entry]
	recorder CacheRecorder
	now      func() time.Time
}

// NewPageCache はPageCacheを生成する。ttlが0以下の場合はキャッシュしない。
// recorderはnilでもよい。
func NewPageCache(ttl time.Duration, recorder CacheRecorder) *PageCache {
	return newPageCache(ttl, defaultMaxEntries, recorder)
}

func newPageCache(ttl time.Duration, maxEntries int, recorder CacheRecorder) *PageCache {
	c := &PageCache{
		ttl:      ttl,
		recorder: recorder,
		now:      time.Now,
	}
	if ttl > 0 {
		c.lru = expirable.NewLRU[string, *entry](maxEntries, nil, ttl)
	}
	return c
}

// Invalidate は指定パスのキャッシュを破棄する。
func (c *PageCache) Invalidate(paths ...string) {
	if c.lru == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	for _, key := range c.lru.Keys() {
		if matchesAny(pathOf(key), paths) {
			c.lru.Remove(key)
		}
	}
	slog.Debug("page cache invalidated", slog.Any("paths", paths))
}

// Len は現在のエントリ数を返す。
func (c *PageCache) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

// Middleware は匿名ユーザーのGETリクエストに対してキャッシュを適用するミドルウェアを返す。
// セッションミドルウェアの後に配置する。200以外のレスポンスはキャッシュしない。
// ハンドラーがExpiresヘッダーを設定した場合、エントリはその時刻より長く残さない。
func (c *PageCache) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c.lru == nil || r.Method != http.MethodGet || middleware.UserFromContext(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}

			key := r.URL.RequestURI()
			if e, ok := c.get(key); ok {
				c.record(true)
				w.Header().Set("Content-Type", e.contentType)
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(e.status)
				w.Write(e.body)
				return
			}
			c.record(false)

			gen := c.generation()
			rec := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status == http.StatusOK {
				c.set(key, gen, rec)
			}
		})
	}
}

func (c *PageCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *PageCache) get(key string) (*entry, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return e, true
}

func (c *PageCache) set(key string, gen uint64, rec *captureWriter) {
	now := c.now()
	expiresAt := now.Add(c.ttl)
	if v := rec.Header().Get("Expires"); v != "" {
		t, err := http.ParseTime(v)
		if err != nil || !t.After(now) {
			return
		}
		if t.Before(expiresAt) {
			expiresAt = t
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.lru.Add(key, &entry{
		status:      rec.status,
		contentType: rec.Header().Get("Content-Type"),
		body:        bytes.Clone(rec.buf.Bytes()),
		expiresAt:   expiresAt,
	})
}

func (c *PageCache) record(hit bool) {
	if c.recorder != nil {
		c.recorder.RecordPageCache(hit)
	}
}

// matchesAny はpathが完全一致、または末尾*のパターンのプレフィックスに一致するかを返す。
func matchesAny(path string, patterns []string) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

// pathOf はキャッシュキーからクエリ文字列を除いたパスを返す。
func pathOf(key string) string {
	path, _, _ := strings.Cut(key, "?")
	return path
}

// captureWriter はレスポンスを書き込みつつ本文を保持する。
type captureWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	buf         bytes.Buffer
}

func (w *captureWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// Nop は何もしないInvalidator。キャッシュを無効にした構成やテストで使う。
type Nop struct{}

// Invalidate は何もしない。
func (Nop) Invalidate(...string) {}

var (
	_ Invalidator = (*PageCache)(nil)
	_ Invalidator = Nop{}
)
