package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/app"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/checkout"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/config"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/events"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/httpx"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.MustNew(cfg.ServiceName, cfg.Env)
	defer func() { _ = log.Sync() }()
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	topics := []string{events.TopicInventoryAdjusted, events.TopicOrderPaid}
	if cfg.WebhookMode == config.WebhookKafka {
		topics = append(topics, events.TopicCheckoutCompleted)
	}
	a, err := app.Open(ctx, cfg, log, topics...)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	ledger := a.Ledger()
	coord := a.Coordinator(ledger)

	var completions checkout.CompletionHandler = coord
	if cfg.WebhookMode == config.WebhookKafka {
		completions = &checkout.Forwarder{Publisher: a.Publisher}
	}

	router := httpx.NewRouter(log, a.Registry)
	(&httpx.InventoryHandler{Ledger: ledger}).Register(router)
	(&httpx.CheckoutHandler{Merger: a.Merger(), Preparer: coord, Completions: completions}).Register(router)
	(&httpx.OrdersHandler{Orders: a.Orders, Transitions: coord}).Register(router)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("webhook_mode", cfg.WebhookMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	// in-flight handlers may still publish, so wait them out before Close
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), httpx.RequestTimeout+5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	a.Close(shutdownCtx)
	cancel()
}
