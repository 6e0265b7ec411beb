// Package main запускает сервис конвейеров StarFruit.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/starfruit-system/internal/batch"
	"github.com/mmeshcher/starfruit-system/internal/combine"
	"github.com/mmeshcher/starfruit-system/internal/config"
	"github.com/mmeshcher/starfruit-system/internal/handler"
	"github.com/mmeshcher/starfruit-system/internal/metrics"
	"github.com/mmeshcher/starfruit-system/internal/middleware"
	"github.com/mmeshcher/starfruit-system/internal/pos"
	"github.com/mmeshcher/starfruit-system/internal/receipt"
	"github.com/mmeshcher/starfruit-system/internal/repository"
	"github.com/mmeshcher/starfruit-system/internal/sentiment"
	"github.com/mmeshcher/starfruit-system/internal/service"
	"github.com/mmeshcher/starfruit-system/internal/staging"
	"github.com/mmeshcher/starfruit-system/internal/stream"
	"github.com/mmeshcher/starfruit-system/internal/validation"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	store, err := staging.NewPebbleStore(cfg.StagingPath)
	if err != nil {
		sugar.Fatalw("staging store initialization error", "error", err.Error())
	}
	defer store.Close()

	registry := metrics.NewRegistry()

	combineClient := combine.NewClient(cfg.CombineServiceAddress, cfg.StagingBaseURL)
	validationClient := validation.NewClient(cfg.UserServiceAddress, cfg.ProductServiceAddress)
	sentimentClient := sentiment.NewClient(cfg.SentimentServiceAddress)

	var publisher service.Publisher
	if cfg.KafkaBootstrap != "" && cfg.EnrichedTopic != "" {
		p := stream.NewPublisher(cfg.KafkaBootstrap, cfg.EnrichedTopic)
		defer p.Close()
		publisher = p
	}

	receiptRouter := receipt.NewRouter(receipt.NewHTTPFetcher(), repo, cfg.HighValueThreshold, logger, registry)
	ingestor := pos.NewIngestor(repo, receiptRouter, logger, registry)
	engine := batch.NewEngine(store, combineClient, repo, logger, registry)
	svc := service.NewService(repo, validationClient, sentimentClient, publisher, logger, registry)

	authMiddleware := middleware.NewAuthMiddleware(cfg.APIKey)
	h := handler.NewHandler(svc, store, logger, authMiddleware, registry.Handler())

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: h.SetupRouter(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фоновых проходов группировки staging-файлов
	engine.StartGroupingPasses(ctx, time.Duration(cfg.GroupingIntervalSec)*time.Second)

	// Запуск потребителя событий кассовых терминалов
	if cfg.KafkaBootstrap != "" && cfg.POSTopic != "" {
		consumer := pos.NewConsumer(cfg.KafkaBootstrap, cfg.POSTopic, cfg.POSGroupID, ingestor, logger)
		g.Go(func() error {
			sugar.Infow("starting pos consumer", "topic", cfg.POSTopic, "group", cfg.POSGroupID)
			if err := consumer.Run(ctx); err != nil {
				return fmt.Errorf("pos consumer error: %w", err)
			}
			return nil
		})
	}

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting starfruit server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
