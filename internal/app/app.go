package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/successledger/internal/achievement"
	"github.com/hitoshi/successledger/internal/auth"
	"github.com/hitoshi/successledger/internal/config"
	"github.com/hitoshi/successledger/internal/database"
	"github.com/hitoshi/successledger/internal/handler"
	"github.com/hitoshi/successledger/internal/logger"
	"github.com/hitoshi/successledger/internal/metrics"
	"github.com/hitoshi/successledger/internal/middleware"
	"github.com/hitoshi/successledger/internal/profile"
	"github.com/hitoshi/successledger/internal/repository"
	"github.com/hitoshi/successledger/internal/revalidate"
	"github.com/hitoshi/successledger/internal/security"
	"github.com/hitoshi/successledger/internal/social"
	"github.com/hitoshi/successledger/internal/worker/cleanup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// oauthHTTPTimeout はIdPとの通信タイムアウト。
const oauthHTTPTimeout = 10 * time.Second

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// LOG_LEVELを.envからも指定できるよう、ログより先に読み込む
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandCleanup:
		return runCleanup(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandRollback:
		return runRollback(cfg, ParseSteps(args))
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Server はワイヤリング済みのHTTPハンドラーと、終了時に止めるべき資源をまとめたもの。
type Server struct {
	Handler     http.Handler
	rateLimiter *middleware.RateLimiter
}

// Close はバックグラウンドのgoroutineを停止する。
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// NewServer はDB接続と設定から全依存関係をワイヤリングしたServerを構築する。
// メトリクスはregに登録され、/metricsから公開される。
func NewServer(cfg *config.Config, db *sql.DB, reg *prometheus.Registry, log *slog.Logger) (*Server, error) {
	// リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	achievementRepo := repository.NewPostgresAchievementRepo(db)
	commentRepo := repository.NewPostgresCommentRepo(db)
	likeRepo := repository.NewPostgresLikeRepo(db)
	shareRepo := repository.NewPostgresShareRepo(db)

	// セキュリティ
	guard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// ドメインサービス
	profileService := profile.NewService(profileRepo, guard, sanitizer, log)
	achievementService := achievement.NewService(achievementRepo, profileService, log)
	commentService := social.NewCommentService(commentRepo, profileService, sanitizer, log)
	likeService := social.NewLikeService(likeRepo, profileService, log)
	shareService := social.NewShareService(shareRepo, achievementRepo, log)

	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		HTTPClient:   guard.NewSafeClient(oauthHTTPTimeout),
	})
	authService := auth.NewService(
		oauthProvider, userRepo, identRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	accessor := auth.NewAccessor(profileRepo, log)

	// 横断的関心事
	collector := metrics.NewCollector(reg)
	pageCache := revalidate.NewPageCache(cfg.PageCacheTTL, collector)
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitWrite),
	)

	renderer, err := handler.NewRenderer()
	if err != nil {
		rateLimiter.Stop()
		return nil, fmt.Errorf("failed to build renderer: %w", err)
	}

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:   log,
		Renderer: renderer,

		UserResolver: authService,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		RequestRecorder:   collector,
		PageCache:         pageCache,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(reg),

		Accessor:    accessor,
		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		Achievements: achievementService,
		Profiles:     profileService,
		Comments:     commentService,
		Likes:        likeService,
		Shares:       shareService,
		Actions:      collector,
		Sanitizer:    sanitizer,

		Dashboard: handler.DashboardConfig{
			BaseURL:       cfg.BaseURL,
			FeaturedLimit: cfg.FeaturedLimit,
			ShareTTL:      cfg.ShareDefaultTTL,
		},
	})

	return &Server{Handler: router, rateLimiter: rateLimiter}, nil
}

// newRegistry はGoランタイムとプロセスのコレクターを登録済みのレジストリを返す。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はWebサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDatabase(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	srv, err := NewServer(cfg, db, newRegistry(), slog.Default())
	if err != nil {
		return err
	}
	defer srv.Close()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("web server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down web server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// newCleanupJob は期限切れのセッションと共有リンクを削除するジョブを構築する。
func newCleanupJob(db *sql.DB, recorder cleanup.Recorder, log *slog.Logger) *cleanup.CleanupJob {
	return cleanup.NewCleanupJob([]cleanup.Target{
		{Kind: cleanup.KindSessions, Purger: repository.NewPostgresSessionRepo(db)},
		{Kind: cleanup.KindShares, Purger: repository.NewPostgresShareRepo(db)},
	}, recorder, log)
}

// runWorker はワーカーモードで起動する。
// クリーンアップをCleanupIntervalごとに実行し、シグナル受信で停止する。
func runWorker(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	job := newCleanupJob(db, metrics.Nop{}, slog.Default())
	scheduler := cleanup.NewScheduler(job, slog.Default())

	slog.Info("worker starting", slog.Duration("cleanup_interval", cfg.CleanupInterval))
	scheduler.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runCleanup はクリーンアップを1回だけ実行する。cronからの起動を想定する。
func runCleanup(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := newCleanupJob(db, metrics.Nop{}, slog.Default()).Run(ctx); err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	return nil
}

// runMigrate はすべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runRollback は適用済みマイグレーションをsteps件だけ巻き戻す。
func runRollback(cfg *config.Config, steps int) error {
	slog.Info("rolling back database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Int("steps", steps),
	)

	if err := database.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	slog.Info("database rollback completed successfully")
	return nil
}

// runHealthcheck は/healthにHTTPリクエストを送り、結果を返す。
// distroless環境でのDockerヘルスチェック用。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
