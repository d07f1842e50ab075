package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/thejerf/abtime"

	"quillpad/internal/auth"
	"quillpad/internal/config"
	apphttp "quillpad/internal/http"
	"quillpad/internal/metrics"
	"quillpad/internal/repository"
	"quillpad/internal/repository/redisstore"
	"quillpad/internal/repository/sqlite"
	"quillpad/internal/service"
	"quillpad/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	configureLogger(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	clock := abtime.NewRealTime()
	withClock := sqlite.WithClock(clock.Now)
	userRepo := sqlite.NewUserRepository(db, withClock)
	postRepo := sqlite.NewPostRepository(db, withClock)
	commentRepo := sqlite.NewCommentRepository(db, withClock)
	taskRepo := sqlite.NewTaskRepository(db, withClock)
	if err := sqlite.InitAll(ctx, userRepo, postRepo, commentRepo, taskRepo); err != nil {
		logger.Fatalf("init repositories: %v", err)
	}

	sessionRepo, closeSessions, err := buildSessionStore(ctx, cfg, db, clock, logger)
	if err != nil {
		logger.Fatalf("setup session store: %v", err)
	}
	defer closeSessions()

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	userService, err := service.NewUserService(userRepo, hasher, logger)
	if err != nil {
		logger.Fatalf("init user service: %v", err)
	}
	taskService := service.NewTaskService(taskRepo)
	postService := service.NewPostService(postRepo, commentRepo, service.PostOptions{
		Storage:        storageSvc,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		Logger:         logger,
	})

	sessions, err := auth.NewSessionManager(userService, sessionRepo, auth.SessionConfig{
		Secret:      []byte(cfg.Auth.SessionSecret),
		TTL:         cfg.Auth.SessionTTL,
		RememberTTL: cfg.Auth.RememberTTL,
		CookieName:  cfg.Auth.SessionCookie,
		Secure:      cfg.Auth.SecureCookie,
		Clock:       clock,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatalf("init sessions: %v", err)
	}
	tokens, err := auth.NewTokenIssuer(userService, auth.TokenConfig{
		Secret: []byte(cfg.Auth.JWTSecret),
		TTL:    cfg.Auth.TokenTTL,
		Clock:  clock,
	})
	if err != nil {
		logger.Fatalf("init tokens: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(apphttp.Deps{
		Users:         userService,
		Posts:         postService,
		Tasks:         taskService,
		Sessions:      sessions,
		Tokens:        tokens,
		Metrics:       metrics.New(),
		Logger:        logger,
		SecureCookies: cfg.Auth.SecureCookie,
		CoversEnabled: storageSvc != nil,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func buildSessionStore(ctx context.Context, cfg config.Config, db *sql.DB, clock abtime.AbstractTime, logger *logrus.Logger) (repository.SessionRepository, func(), error) {
	if cfg.Session.Backend == config.BackendRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		repo := redisstore.NewSessionRepository(rdb, clock.Now)
		if err := repo.Init(ctx); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		logger.Infof("sessions stored in redis at %s", cfg.Redis.Addr)
		return repo, func() { _ = rdb.Close() }, nil
	}

	repo := sqlite.NewSessionRepository(db)
	if err := repo.Init(ctx); err != nil {
		return nil, nil, err
	}
	return repo, func() {}, nil
}

// buildStorage returns nil when no bucket is configured; posts are then
// published without covers.
func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("no storage bucket configured, post covers disabled")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client, cfg.Storage.Bucket, cfg.Storage.KeyPrefix), nil
}
