package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/successledger/internal/middleware"
	"github.com/hitoshi/successledger/internal/revalidate"
	"github.com/hitoshi/successledger/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger   *slog.Logger
	Renderer *Renderer

	// ミドルウェア依存
	UserResolver      middleware.UserResolver
	CSRF              middleware.CSRFConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	RequestRecorder   middleware.RequestRecorder // nilならHTTPメトリクスを記録しない

	// ページキャッシュ。nilならキャッシュしない
	PageCache *revalidate.PageCache

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler // nilなら/metricsを公開しない

	// 認証
	Accessor    UserAccessor
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ドメインサービス
	Achievements AchievementService
	Profiles     ProfileService
	Comments     CommentService
	Likes        LikeService
	Shares       ShareService
	Actions      ActionRecorder
	Sanitizer    FeedSanitizer // nilならbluemondayの標準ポリシーを使う

	Dashboard DashboardConfig
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Session → Logging → Metrics → RateLimit(General, Write) → CSRF
//
// /health と /metrics はセッション解決とレート制限の外に配置する。
// 匿名ユーザー向けの公開ページはページキャッシュを通す。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	var invalidator revalidate.Invalidator = revalidate.Nop{}
	cached := func(next http.Handler) http.Handler { return next }
	if deps.PageCache != nil {
		invalidator = deps.PageCache
		cached = deps.PageCache.Middleware()
	}

	web := WebDeps{
		Accessor:    deps.Accessor,
		Renderer:    deps.Renderer,
		Invalidator: invalidator,
		Actions:     deps.Actions,
		Logger:      logger,
	}
	sanitizer := deps.Sanitizer
	if sanitizer == nil {
		sanitizer = security.NewContentSanitizer()
	}
	publicHandler := NewPublicHandler(web, deps.Achievements, deps.Profiles, deps.Shares, sanitizer, deps.Dashboard.BaseURL)
	achievementHandler := NewAchievementHandler(web, deps.Achievements, deps.Likes, deps.Comments)
	dashboardHandler := NewDashboardHandler(web, deps.Achievements, deps.Shares, deps.Dashboard)
	profileHandler := NewProfileHandler(web, deps.Profiles)
	authHandler := NewAuthHandler(web, deps.AuthService, deps.AuthConfig)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.UserResolver))
		r.Use(middleware.NewLoggingMiddleware(logger))
		if deps.RequestRecorder != nil {
			r.Use(middleware.NewMetricsMiddleware(deps.RequestRecorder))
		}
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
			r.Use(deps.RateLimiter.WriteMiddleware())
		}
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		r.Get("/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF).ServeHTTP)

		// --- 公開ページ ---
		r.With(cached).Get("/", publicHandler.Home)
		r.With(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin), cached).Get("/feed.xml", publicHandler.Feed)
		r.With(cached).Get("/s/{token}", publicHandler.Shared)

		r.Route("/achievements/{id}", func(r chi.Router) {
			r.With(cached).Get("/", achievementHandler.Show)
			r.Post("/like", achievementHandler.Like)
			r.Post("/unlike", achievementHandler.Unlike)
			r.Post("/like/toggle", achievementHandler.ToggleLike)
			r.Post("/comments", achievementHandler.CreateComment)
		})

		r.Route("/comments/{id}", func(r chi.Router) {
			r.Get("/replies", achievementHandler.Replies)
			r.Post("/edit", achievementHandler.EditComment)
			r.Post("/delete", achievementHandler.DeleteComment)
		})

		// --- 認証 ---
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", authHandler.LoginPage)
			r.Get("/google/login", authHandler.Login)
			r.Get("/google/callback", authHandler.Callback)
			r.Post("/logout", authHandler.Logout)
		})

		// --- ログイン必須 ---
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(middleware.NewRequireUserMiddleware(loginPath))

			r.Get("/", dashboardHandler.Dashboard)

			r.Route("/achievements", func(r chi.Router) {
				r.Get("/", dashboardHandler.List)
				r.Get("/new", dashboardHandler.New)
				r.Post("/new", dashboardHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", dashboardHandler.Edit)
					r.Post("/", dashboardHandler.Update)
					r.Post("/delete", dashboardHandler.Delete)
					r.Post("/shares", dashboardHandler.CreateShare)
				})
			})

			r.Post("/shares/{id}/delete", dashboardHandler.DeleteShare)

			r.Get("/profile", profileHandler.Edit)
			r.Post("/profile", profileHandler.Update)
		})
	})

	return r
}
