package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/zhanibek-dev/whisperbox/internal/config"
	"github.com/zhanibek-dev/whisperbox/internal/handler"
	"github.com/zhanibek-dev/whisperbox/internal/mailer"
	"github.com/zhanibek-dev/whisperbox/internal/metrics"
	"github.com/zhanibek-dev/whisperbox/internal/repository"
	"github.com/zhanibek-dev/whisperbox/internal/suggest"
	"github.com/zhanibek-dev/whisperbox/internal/usecase"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() {
		if err := logger.Sync(); err != nil {
			log.Printf("Error syncing logger: %v\n", err)
		}
	}()

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, relying on environment")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	mongoClient, err := connectMongo(cfg.MongoURI)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.String("uri", cfg.MongoURI), zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		}
	}()
	logger.Info("Connected to MongoDB", zap.String("database", cfg.MongoDB))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))

	repo := repository.NewUserRepository(mongoClient.Database(cfg.MongoDB), redisClient, logger)
	mail := buildMailer(cfg, logger)
	metricsManager := metrics.NewManager("whisperbox")
	suggestService := suggest.NewService(cfg.SuggestAPIURL, cfg.SuggestAPIKey, cfg.SuggestModel, logger)

	authUsecase := usecase.NewAuthUsecase(repo, mail, cfg.JWTSecret, cfg.TokenTTL, logger)
	messageUsecase := usecase.NewMessageUsecase(repo, logger)

	authHandler := handler.NewAuthHandler(authUsecase, metricsManager, logger)
	messageHandler := handler.NewMessageHandler(messageUsecase, suggestService, metricsManager, logger)

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = metricsManager.Handler()
	}

	router := handler.NewRouter(authHandler, messageHandler, metricsHandler, cfg.JWTSecret, authUsecase, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func connectMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return client, nil
}

func buildMailer(cfg *config.Config, logger *zap.Logger) mailer.Mailer {
	switch cfg.Mailer {
	case "mailersend":
		return mailer.NewMailerSendService(cfg.MailerSendAPIKey, cfg.SenderEmail, cfg.SenderName, logger)
	case "smtp":
		return mailer.NewSMTPMailerService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SenderEmail, cfg.SenderName, logger)
	default:
		logger.Warn("Using log mailer, verification codes will not be emailed", zap.String("mailer", cfg.Mailer))
		return mailer.NewLogMailer(logger)
	}
}
