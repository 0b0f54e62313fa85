package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanqian/tutorials-api/internal/infra/config"
)

const apiPrefix = "/api/"

// NewRouter installs middleware, mounts the routes and returns a configured
// server. CORS runs before the JSON parser, which runs before the
// URL-encoded parser.
func NewRouter(cfg *config.Config, tutorials *TutorialHandler, health *HealthHandler, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	logger = logger.With("component", "http")

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(logger),
		metricsMiddleware(),
		errorHandlingMiddleware(logger),
		corsMiddleware(cfg.CORS.Origin),
		jsonBodyParser(cfg.Body.JSONLimit),
		urlencodedBodyParser(cfg.Body.URLEncodedLimit, cfg.Body.URLEncodedExtended),
		rateLimitMiddleware(cfg.HTTP.RateLimit, logger),
	)

	router.GET("/", welcome)
	router.GET("/healthz", health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterTutorialRoutes(router, tutorials)

	return &http.Server{
		Addr:           cfg.HTTP.ListenAddress(),
		Handler:        withRetry(router, cfg.HTTP.Retry, logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
