package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/config"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/dashboard"
	mongodb "github.com/HuynhHoangThai/Oncademy-sub000/internal/database/mongo"
	redisdb "github.com/HuynhHoangThai/Oncademy-sub000/internal/database/redis"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/discovery"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/event"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/handlers"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/logger"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/middleware"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/repository"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/service"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/storage"
)

type indexer interface {
	CreateIndexes(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, logCloser, err := logger.New(cfg.Logging.Level, cfg.Logging.Pretty, cfg.Logging.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	mongoClient, db, err := mongodb.Connect(cfg.MongoDB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}

	redisClient := redisdb.NewClient(cfg.Redis, log)

	quizRepo := repository.NewQuizRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	contentRepo := repository.NewContentRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	userRepo := repository.NewUserRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	for name, repo := range map[string]indexer{"quiz": quizRepo, "attempt": attemptRepo, "dashboard": dashboardRepo} {
		if err := repo.CreateIndexes(ctx); err != nil {
			log.Warn().Err(err).Str("collection", name).Msg("failed to create indexes")
		}
	}

	var media service.MediaStore
	if store, err := storage.NewMediaStore(ctx, cfg.MinIO, log); err != nil {
		log.Warn().Err(err).Msg("media storage unavailable, image uploads are disabled")
	} else {
		media = store
	}
	cancel()

	publisher, err := event.NewEventPublisher(cfg.RabbitMQ.URI, log)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize event publisher, events will not be published")
		publisher, _ = event.NewEventPublisher("", log)
	}

	synchronizer := dashboard.NewSynchronizer(contentRepo, purchaseRepo, userRepo, dashboardRepo, publisher, cfg.Dashboard.StaleAfter, log)
	quizService := service.NewQuizService(quizRepo, attemptRepo, contentRepo, media, publisher, log)
	attemptService := service.NewAttemptService(quizRepo, attemptRepo, publisher, log)
	purchaseService := service.NewPurchaseService(purchaseRepo, contentRepo, synchronizer, log)

	var eventConsumer event.Consumer
	eventConsumer, err = event.NewEventConsumer(cfg.RabbitMQ.URI, purchaseService, synchronizer, log)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize event consumer")
		eventConsumer = nil
	} else if err := eventConsumer.Start(); err != nil {
		log.Warn().Err(err).Msg("failed to start event consumer")
		eventConsumer.Close()
		eventConsumer = nil
	}

	if !cfg.Logging.Pretty {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))
	router.MaxMultipartMemory = cfg.Server.MaxUploadSize

	router.GET("/health", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := mongoClient.Ping(pingCtx, nil); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "service": cfg.Server.ServiceName})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": cfg.Server.ServiceName})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := router.Group("/protected", middleware.Auth(cfg.Auth.JWTSecret))
	submitLimit := middleware.RateLimit(
		middleware.NewRedisLimiter(redisClient),
		"submit",
		cfg.RateLimit.SubmitLimit,
		cfg.RateLimit.SubmitWindow,
		log,
	)
	handlers.NewQuizHandler(quizService, cfg.Server.RequestTimeout, cfg.Server.MaxUploadSize, log).RegisterRoutes(protected)
	handlers.NewAttemptHandler(attemptService, cfg.Server.RequestTimeout, log).RegisterRoutes(protected, submitLimit)
	handlers.NewDashboardHandler(synchronizer, cfg.Server.RequestTimeout, log).RegisterRoutes(protected)

	var registry *discovery.ServiceRegistry
	if cfg.Consul.Enabled {
		registry, err = discovery.NewServiceRegistry(cfg.Consul, cfg.Server, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to create service registry")
		} else if err := registry.Register(); err != nil {
			log.Warn().Err(err).Msg("failed to register with Consul")
			registry = nil
		}
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("error starting server")
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down HTTP server")
	}

	if registry != nil {
		if err := registry.Deregister(); err != nil {
			log.Error().Err(err).Msg("error deregistering from Consul")
		}
	}
	if eventConsumer != nil {
		if err := eventConsumer.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event consumer")
		}
	}
	if err := publisher.Close(); err != nil {
		log.Error().Err(err).Msg("error closing event publisher")
	}
	if err := redisClient.Close(); err != nil {
		log.Error().Err(err).Msg("error closing Redis client")
	}
	mongodb.Disconnect(mongoClient, log)

	log.Info().Msg("server shutdown complete")
}
