package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/roofmeasure/internal/auth"
	"github.com/hitoshi/roofmeasure/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// sql.DBが満たす。
type HealthChecker interface {
	Ping() error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CSRFRegistry      auth.CSRFRegistry
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	HTTPObserver      middleware.HTTPObserver

	// ハンドラー依存
	AuthService    AuthServiceInterface
	ProjectService ProjectServiceInterface
	ReportComposer ReportComposerInterface
	Metrics        Metrics

	// 運用系
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// Metrics はハンドラー群が記録するメトリクスをまとめたインターフェース。
type Metrics interface {
	AuthMetrics
	ProjectMetrics
	ReportMetrics
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Recovery
//	  → （認証ルート） Session → RateLimit(General) → （状態変更ルートのみ）CSRF
//
// 認証が先、CSRF検証が後の順序に固定する。CSRF識別子は検証済みユーザーIDのみを
// 使用し、未認証の共有スロットは存在しない。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.HTTPObserver))
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.CSRFRegistry, deps.Metrics)
	projectHandler := NewProjectHandler(deps.ProjectService, deps.Metrics)
	reportHandler := NewReportHandler(deps.ReportComposer, deps.Metrics)

	csrfCheck := middleware.NewCSRFMiddleware(deps.CSRFRegistry)

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Post("/register", authHandler.Register)
	r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)、状態変更ルートはさらにCSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/csrf-token", authHandler.CSRFToken)
		r.With(csrfCheck).Post("/logout", authHandler.Logout)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projectHandler.List)
			r.With(csrfCheck).Post("/", projectHandler.Save)
			r.Get("/{id}", projectHandler.Get)
		})

		r.With(csrfCheck).Post("/generate-pdf", reportHandler.Generate)
	})

	return r
}

// newHealthHandler はDB接続を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.Ping(); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
