// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/smartfit/smartfit-backend/internal/ai"
	"github.com/smartfit/smartfit-backend/internal/cache"
	"github.com/smartfit/smartfit-backend/internal/config"
	"github.com/smartfit/smartfit-backend/internal/database"
	"github.com/smartfit/smartfit-backend/internal/events"
	"github.com/smartfit/smartfit-backend/internal/handlers"
	"github.com/smartfit/smartfit-backend/internal/i18n"
	"github.com/smartfit/smartfit-backend/internal/repository"
	"github.com/smartfit/smartfit-backend/internal/router"
	"github.com/smartfit/smartfit-backend/internal/services"
	"github.com/smartfit/smartfit-backend/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	setupLogging(cfg)

	ctx := context.Background()

	// Initialize item and user stores
	itemRepo, userRepo, ping, closeDB := openRepositories(ctx, cfg)
	defer closeDB()

	// Initialize i18n
	if err := i18n.Initialize(); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	store, staticDir := openStore(cfg)

	var closetCache services.ClosetCache
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logrus.WithError(err).Warn("Redis unavailable, closet cache disabled")
		} else {
			defer client.Close()
			closetCache = cache.NewClosetCache(client, time.Duration(cfg.Redis.ClosetCacheTTLSeconds)*time.Second)
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		conn, err := events.Dial(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			logrus.WithError(err).Warn("RabbitMQ unavailable, closet events disabled")
		} else {
			defer closeAMQP(conn)
			publisher = events.NewAMQPPublisher(conn, cfg.RabbitMQ.Exchange)
		}
	}

	// External services
	analyzer := ai.NewAnalysisClient(cfg.ML.BaseURL, time.Duration(cfg.ML.TimeoutSeconds)*time.Second, store)
	uploadOpts := []services.UploadServiceOption{
		services.WithUploadCache(closetCache),
		services.WithUploadPublisher(publisher),
		services.WithRemovalConcurrency(cfg.RemoveBG.Concurrency),
	}
	if remover := ai.NewBackgroundRemover(cfg.RemoveBG.APIKey, cfg.RemoveBG.URL,
		time.Duration(cfg.RemoveBG.TimeoutSeconds)*time.Second, store); remover != nil {
		uploadOpts = append(uploadOpts, services.WithBackgroundRemover(remover))
	} else {
		logrus.Info("REMOVEBG_API_KEY not set, background removal disabled")
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(router.Dependencies{
		Config:        cfg,
		AuthService:   services.NewAuthService(userRepo, cfg),
		UploadService: services.NewUploadService(itemRepo, store, analyzer, uploadOpts...),
		ClosetService: services.NewClosetService(itemRepo, store, closetCache, publisher),
		Store:         store,
		StaticDir:     staticDir,
		Ping:          ping,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Uploads may be waiting on the analysis service, so allow for its timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ML.TimeoutSeconds+10)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}

func setupLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Log.Format == "json" || cfg.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func openRepositories(ctx context.Context, cfg *config.Config) (repository.ItemRepository, repository.UserRepository, handlers.Pinger, func()) {
	if cfg.Database.IsDocumentStore() {
		client, db, err := database.ConnectMongo(ctx, cfg.Database)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to connect to MongoDB")
		}
		if err := database.EnsureMongoIndexes(ctx, db); err != nil {
			logrus.WithError(err).Fatal("Failed to create MongoDB indexes")
		}
		ping := func(ctx context.Context) error { return client.Ping(ctx, nil) }
		return repository.NewMongoItemRepository(db), repository.NewMongoUserRepository(db), ping,
			func() { database.CloseMongo(client) }
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	ping := func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	return repository.NewGormItemRepository(db), repository.NewGormUserRepository(db), ping,
		func() { database.Close(db) }
}

func openStore(cfg *config.Config) (storage.Store, string) {
	if cfg.Storage.Driver == "s3" {
		store, err := storage.NewS3Store(cfg.AWS)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize S3 storage")
		}
		return store, ""
	}

	store, err := storage.NewLocalStore(cfg.Upload.Dir, cfg.Upload.PublicBaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize upload directory")
	}
	return store, store.Dir()
}

func closeAMQP(conn *amqp.Connection) {
	if err := conn.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close RabbitMQ connection")
	}
}
