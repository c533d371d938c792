package main

import (
	"context"
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
	kafkax "github.com/prthgajera30/Ecom-Application-main-sub001/internal/kafka"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/logging"
)

// checkout consumes queued payment completions and turns them into orders.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.MustNew(cfg.ServiceName+"-checkout", cfg.Env)
	defer func() { _ = log.Sync() }()
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Open(ctx, cfg, log, events.TopicInventoryAdjusted, events.TopicOrderPaid)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	handler := &checkout.Consumer{
		Handler: a.Coordinator(a.Ledger()),
		Dedup:   a.Dedup(),
		Log:     log,
	}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.CheckoutGroup, events.TopicCheckoutCompleted, cfg.CheckoutWorkers, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("checkout consumer started",
			zap.String("group", cfg.CheckoutGroup),
			zap.String("topic", events.TopicCheckoutCompleted),
			zap.Int("workers", cfg.CheckoutWorkers))
		if err := cons.Start(ctx, handler.Handle); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
	<-done

	closeCtx, cancelClose := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelClose()
	a.Close(closeCtx)
}
