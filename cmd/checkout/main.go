// Package main запускает HTTP-сервер системы оформления заказов VENTUS.
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

	"github.com/ventusgt/checkout-system/internal/checkout"
	"github.com/ventusgt/checkout-system/internal/config"
	"github.com/ventusgt/checkout-system/internal/coupon"
	"github.com/ventusgt/checkout-system/internal/handler"
	"github.com/ventusgt/checkout-system/internal/middleware"
	"github.com/ventusgt/checkout-system/internal/payapi"
	"github.com/ventusgt/checkout-system/internal/pixel"
	"github.com/ventusgt/checkout-system/internal/pricing"
	"github.com/ventusgt/checkout-system/internal/repository"
	"github.com/ventusgt/checkout-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var store service.ReceiptStore
	if cfg.DatabaseURI != "" {
		pg, err := repository.NewPostgresStore(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		store = pg
	} else {
		sugar.Info("database URI not set, using in-memory receipt store")
		store = repository.NewMemoryStore()
	}

	table, err := coupon.ParseTable(cfg.Coupons, nil)
	if err != nil {
		sugar.Fatalw("coupon table error", "error", err.Error())
	}
	resolver := coupon.NewTableResolver(table, nil)

	apiClient := payapi.NewClient(cfg.CheckoutAPIAddress)

	var tracker service.Tracker
	if cfg.PixelAddress != "" {
		tracker = pixel.NewClient(cfg.PixelAddress, logger)
	}

	terms := pricing.Terms{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingRate:      cfg.FlatShippingRate,
	}
	sessions := checkout.NewManager(terms, cfg.SessionTTL)

	svc := service.NewService(store, apiClient, tracker, sessions, resolver)
	defer svc.Close()

	sessionMiddleware := middleware.NewSessionMiddleware(cfg.SessionSecret)
	h := handler.NewHandler(svc, logger, sessionMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фоновой уборки просроченных сессий
	g.Go(func() error {
		sessions.StartJanitor(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting checkout server", "addr", cfg.RunAddress)
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
