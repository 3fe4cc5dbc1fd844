package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labgen-api/internal/config"
	"github.com/noah-isme/labgen-api/internal/database"
	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/generation"
	"github.com/noah-isme/labgen-api/internal/handler"
	"github.com/noah-isme/labgen-api/internal/middleware"
	"github.com/noah-isme/labgen-api/internal/observability"
	"github.com/noah-isme/labgen-api/internal/repository"
	"github.com/noah-isme/labgen-api/internal/router"
	"github.com/noah-isme/labgen-api/internal/service"
	"github.com/noah-isme/labgen-api/internal/utils"
	"github.com/noah-isme/labgen-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", cfg.AppName).Logger()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, probes, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		probes = append(probes, handler.HealthProbe{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
		probes = append(probes, handler.HealthProbe{Name: "nats", Check: func(context.Context) error {
			if !natsConn.IsConnected() {
				return fmt.Errorf("nats status %s", natsConn.Status())
			}
			return nil
		}})
	}

	retry := ai.DefaultRetryConfig()
	retry.MaxAttempts = cfg.AIMaxRetries + 1
	completer, err := ai.NewCompleter(ctx, ai.ProviderConfig{
		Provider:        cfg.AIProvider,
		Model:           cfg.AIModel,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.OpenAIBaseURL,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		GeminiAPIKey:    cfg.GeminiAPIKey,
		Retry:           retry,
	})
	if err != nil {
		logger.Warn().Err(err).Str("provider", cfg.AIProvider).Msg("text completion disabled, using fallback content")
		completer = nil
	}

	gateway := ai.NewGateway(completer, ai.GatewayConfig{
		Model:       cfg.AIModel,
		Temperature: cfg.AITemperature,
		Timeout:     cfg.AITimeout,
		Logger:      logger,
	})
	orchestrator := generation.NewOrchestrator(nil, nil, gateway, generation.Options{
		Delay:  cfg.GenerationDelay,
		Logger: logger,
	})

	observability.RegisterMetrics()
	validate := utils.NewValidator()

	activityService := service.NewActivityService(store, logger)
	statsService := service.NewStatsService(store, redisClient, cfg.StatsCacheTTL, logger)
	studentService := service.NewStudentService(store, activityService, statsService, validate, logger)
	templateService := service.NewTemplateService(store, activityService, validate, logger)
	questionService := service.NewQuestionService(store, gateway, validate, logger)
	batchService := service.NewBatchService(store, store, logger)
	authService := service.NewAuthService(store, logger)
	assignmentService := service.NewAssignmentService(store, store, store, activityService, statsService, validate, logger)
	batchEvents := service.NewBatchEventPublisher(redisClient, cfg.EventsChannel, natsConn, logger)
	generationService := service.NewGenerationService(store, orchestrator, activityService, statsService, batchEvents, validate, logger)
	seedService := service.NewSeedService(store, cfg.SeedTemplates, cfg.SeedToken, logger)

	if _, err := seedService.SeedDefaults(ctx); err != nil && !errors.Is(err, service.ErrSeedDisabled) {
		logger.Warn().Err(err).Msg("failed to seed default templates")
	}

	// Batches finished on other nodes change the dashboard numbers here too.
	batchEvents.Subscribe(ctx, func(event dto.BatchEvent) {
		logger.Debug().Str("batch_id", event.BatchID).Str("source", event.Source).Msg("remote batch finished")
		statsService.Invalidate(ctx)
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    2 * service.MaxTemplateImportBytes,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:       handler.NewAuthHandler(authService, logger),
		DashboardHandler:  handler.NewDashboardHandler(statsService, activityService, logger),
		StudentHandler:    handler.NewStudentHandler(studentService, assignmentService, logger),
		TemplateHandler:   handler.NewTemplateHandler(templateService, logger),
		QuestionHandler:   handler.NewQuestionHandler(questionService, generationService, logger),
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, logger),
		BatchHandler:      handler.NewBatchHandler(batchService, logger),
		SeedHandler:       handler.NewSeedHandler(seedService, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		HealthProbes:      probes,
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Str("store", cfg.DatabaseDriver).Msg("server starting")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func openStore(ctx context.Context, cfg config.Config) (repository.Store, []handler.HealthProbe, error) {
	switch cfg.DatabaseDriver {
	case config.DatabaseMemory:
		return repository.NewMemoryStore(), nil, nil
	case config.DatabasePostgres, config.DatabaseSQLite:
		connect := database.ConnectPostgres
		if cfg.DatabaseDriver == config.DatabaseSQLite {
			connect = database.ConnectSQLite
		}
		db, err := connect(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewGormStore(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		probe := handler.HealthProbe{Name: "database", Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}}
		return store, []handler.HealthProbe{probe}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
