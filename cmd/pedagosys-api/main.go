package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/noah-isme/pedagosys-api/api/swagger"
	"github.com/noah-isme/pedagosys-api/internal/backendclient"
	"github.com/noah-isme/pedagosys-api/internal/genai"
	"github.com/noah-isme/pedagosys-api/internal/handler"
	"github.com/noah-isme/pedagosys-api/internal/middleware"
	"github.com/noah-isme/pedagosys-api/internal/quiz"
	"github.com/noah-isme/pedagosys-api/internal/repository"
	"github.com/noah-isme/pedagosys-api/internal/service"
	"github.com/noah-isme/pedagosys-api/pkg/cache"
	"github.com/noah-isme/pedagosys-api/pkg/config"
	"github.com/noah-isme/pedagosys-api/pkg/database"
	"github.com/noah-isme/pedagosys-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/pedagosys-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/pedagosys-api/pkg/middleware/requestid"
	"github.com/noah-isme/pedagosys-api/pkg/storage"
)

// @title Pedagosys API
// @version 1.0.0
// @description School management service: gradebook, assignments with timed quizzes, announcements, library feed and AI tutoring
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	metrics := service.NewMetricsService()
	store := repository.NewRecordStore(backend, cfg.Store.MaxPayloadBytes, logr)
	store.OnSaveFailure(metrics.RecordStoreFailure)
	defer store.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, leaderboard cache disabled", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Leaderboard.CacheTTL, logr, cfg.Leaderboard.CacheEnabled)

	files, err := storage.NewLocalStorage(cfg.Uploads.StorageDir, cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.AllowedMIMEs)
	if err != nil {
		return err
	}
	signingSecret := cfg.Uploads.SignedURLSecret
	if signingSecret == "" {
		signingSecret = cfg.JWT.Secret
	}
	signer := storage.NewSignedURLSigner(signingSecret, cfg.Uploads.SignedURLTTL)

	userRepo := repository.NewUserRepository(ctx, store)
	assignmentRepo := repository.NewAssignmentRepository(ctx, store)
	gradeRepo := repository.NewGradeRepository(ctx, store)
	announcementRepo := repository.NewAnnouncementRepository(ctx, store)
	scheduleRepo := repository.NewScheduleRepository(ctx, store)
	postRepo := repository.NewPostRepository(ctx, store)
	settingRepo := repository.NewSettingRepository(store)

	validate := validator.New()
	aiClient := genai.NewClient(cfg.GenAI, nil, logr)
	gradingBackend := backendclient.NewClient(cfg.Backend, nil, logr)

	leaderboard := service.NewLeaderboardService(assignmentRepo, cacheSvc, cfg.Leaderboard.CacheTTL, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	if err := userSvc.Bootstrap(ctx, cfg.Bootstrap.Name, cfg.Bootstrap.Username, cfg.Bootstrap.Password); err != nil {
		logr.Warn("bootstrap account not created", zap.Error(err))
	}

	var assignmentSvc *service.AssignmentService
	var generator *service.GeneratorService
	if cfg.GenAI.GenerationEnabled {
		generator = service.NewGeneratorService(aiClient, assignmentRepo, settingRepo, leaderboard, metrics, logr, service.GeneratorOptions{
			Delay: cfg.GenAI.GenerationDelay,
		})
		assignmentSvc = service.NewAssignmentService(assignmentRepo, leaderboard, generator, validate, logr)
	} else {
		assignmentSvc = service.NewAssignmentService(assignmentRepo, leaderboard, nil, validate, logr)
	}
	quizSvc := service.NewQuizService(assignmentRepo, leaderboard, metrics, validate, logr, service.QuizServiceOptions{
		Clock:        quiz.RealClock{},
		TickInterval: cfg.Quiz.TickInterval,
	})
	defer quizSvc.Close()
	submissionSvc := service.NewSubmissionService(gradingBackend, assignmentSvc, metrics, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, userRepo, service.NewExportService(), validate, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, files, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, validate, logr)
	postSvc := service.NewPostService(postRepo, userRepo, files, signer, validate, logr)
	chatSvc := service.NewChatService(aiClient, validate, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/health", "/ready", "/metrics"))

	checks := map[string]handler.HealthCheck{}
	if pinger, ok := backend.(interface{ Ping(context.Context) error }); ok {
		checks["store"] = pinger.Ping
	}
	if redisClient != nil {
		checks["cache"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	routes := handler.Routes{
		Auth:          handler.NewAuthHandler(authSvc, userSvc),
		Users:         handler.NewUserHandler(userSvc),
		Assignments:   handler.NewAssignmentHandler(assignmentSvc),
		Quiz:          handler.NewQuizHandler(quizSvc),
		Submissions:   handler.NewSubmissionHandler(submissionSvc),
		Grades:        handler.NewGradeHandler(gradeSvc),
		Announcements: handler.NewAnnouncementHandler(announcementSvc),
		Posts:         handler.NewPostHandler(postSvc, cfg.APIPrefix+"/downloads"),
		Schedule:      handler.NewScheduleHandler(scheduleSvc),
		Chat:          handler.NewChatHandler(chatSvc, logr),
	}
	routes.Register(r.Group(cfg.APIPrefix), middleware.JWT(authSvc))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if generator != nil {
		generator.Start(gctx)
		defer generator.Stop()
		generator.TriggerStartup(gctx)
	}
	g.Go(func() error {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logr.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openBackend(ctx context.Context, cfg *config.Config) (repository.Backend, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return repository.NewPostgresBackend(db), nil
	case config.StoreDriverBolt, "":
		return repository.NewBoltBackend(cfg.Store.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
