package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"PartTimeJob-backend/internal/auth"
	"PartTimeJob-backend/internal/config"
	"PartTimeJob-backend/internal/database"
	"PartTimeJob-backend/internal/files"
	"PartTimeJob-backend/internal/middleware"
	"PartTimeJob-backend/internal/telemetry"
	"PartTimeJob-backend/internal/workflow"
	appflow "PartTimeJob-backend/internal/workflow/application"
	postflow "PartTimeJob-backend/internal/workflow/jobpost"
	regflow "PartTimeJob-backend/internal/workflow/registration"
)

// MyServer holds what the route handlers are built from
type MyServer struct {
	DB     *database.DBinstanceStruct
	Config *config.Config
	Tokens *auth.TokenIssuer
	Logger *slog.Logger
	Redis  *redis.Client
	Tracer trace.Tracer

	Posts         *postflow.Service
	Applications  *appflow.Service
	Registrations *regflow.Service
}

// New wires the workflow services over db. A configured REDIS_URL backs the
// rate limiter. Spans go to the global tracer provider, so install one
// before calling New.
func New(cfg *config.Config, db *database.DBinstanceStruct, logger *slog.Logger) (*MyServer, error) {
	rdb, err := middleware.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	opts := []workflow.Option{workflow.WithLogger(logger)}
	return &MyServer{
		DB:            db,
		Config:        cfg,
		Tokens:        auth.NewTokenIssuer(cfg.SecretKey, cfg.JWTIssuer, cfg.AccessTokenTTL),
		Logger:        logger,
		Redis:         rdb,
		Tracer:        otel.Tracer(telemetry.ScopeName),
		Posts:         postflow.NewService(db.DB, opts...),
		Applications:  appflow.NewService(db.DB, files.NewResolver(), opts...),
		Registrations: regflow.NewService(db.DB, opts...),
	}, nil
}

// NewServer construct new http.Server serving the API on cfg.Port
func NewServer(cfg *config.Config, db *database.DBinstanceStruct, logger *slog.Logger) (*http.Server, error) {
	s, err := New(cfg, db, logger)
	if err != nil {
		return nil, err
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	server.RegisterOnShutdown(func() {
		if err := s.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	})

	return server, nil
}

// Close releases the redis client when one was opened
func (s *MyServer) Close() error {
	if s.Redis != nil {
		return s.Redis.Close()
	}
	return nil
}
