package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/recipebook/internal/metrics"
	"github.com/hitoshi/recipebook/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionResolver   middleware.SessionResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// メトリクス。Gathererがnilの場合は /metrics を公開しない。
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// レシピ
	RecipeService RecipeServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → SecurityHeaders → CORS
//	  → Session → Logging → Metrics → RateLimit(General)
//
// /health と /metrics はセッション以降のチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	// RateLimiterがnilの場合はレート制限を行わない
	generalLimit, authLimit := passThrough, passThrough
	if deps.RateLimiter != nil {
		generalLimit = deps.RateLimiter.GeneralMiddleware()
		authLimit = deps.RateLimiter.AuthMiddleware()
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	recipeHandler := NewRecipeHandler(deps.RecipeService)

	// --- 運用向けルート ---
	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.SetupMetricsRoute(deps.MetricsGatherer))
	}

	// --- APIルート ---
	// ミドルウェアスタック: Session → Logging → Metrics → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))
		r.Use(middleware.NewLoggingMiddleware(logger))
		r.Use(middleware.NewMetricsMiddleware(collector))
		r.Use(generalLimit)

		// 認証（IP単位のレート制限を追加）
		r.With(authLimit).Post("/signup", authHandler.Signup)
		r.With(authLimit).Post("/login", authHandler.Login)
		r.Get("/check_session", authHandler.CheckSession)
		r.Delete("/logout", authHandler.Logout)

		// レシピ
		r.Get("/recipes", recipeHandler.ListRecipes)
		r.Post("/recipes", recipeHandler.CreateRecipe)
	})

	return r
}

func passThrough(next http.Handler) http.Handler {
	return next
}
