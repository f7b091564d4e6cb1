package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-professor-gateway/internal/gateway"
	"github.com/noah-isme/sma-professor-gateway/internal/handler"
	"github.com/noah-isme/sma-professor-gateway/internal/middleware"
	"github.com/noah-isme/sma-professor-gateway/internal/service"
	"github.com/noah-isme/sma-professor-gateway/internal/tokenstore"
	"github.com/noah-isme/sma-professor-gateway/pkg/config"
	"github.com/noah-isme/sma-professor-gateway/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-professor-gateway/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-professor-gateway/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens, closeTokens, err := tokenstore.FromConfig(cfg)
	if err != nil {
		logr.Fatal("failed to init token store", zap.Error(err))
	}
	defer closeTokens() //nolint:errcheck

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	gw := gateway.NewFromConfig(cfg, tokens, metrics, logr)
	exporter := service.NewExportService(gw, logr)
	routes := service.FlowRoutes{Home: cfg.Routes.Home, ProfessorReport: cfg.Routes.ProfessorReport}

	professorHandler := handler.NewProfessorHandler(gw, exporter, tokens, routes, metrics, validator.New(), logr)
	metricsHandler := handler.NewMetricsHandler(metrics, handler.UpstreamInfo{BaseURL: cfg.Backend.BaseURL, TokenSource: cfg.Token.Source})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if metrics != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.ForwardBearer())
	professorHandler.Register(api)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "backend", cfg.Backend.BaseURL, "token_source", cfg.Token.Source)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
