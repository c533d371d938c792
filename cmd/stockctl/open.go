package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/config"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/events"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/inventory"
	kafkax "github.com/prthgajera30/Ecom-Application-main-sub001/internal/kafka"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/logging"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/mongox"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/redisx"
)

// openLedger connects only what the ledger needs: Mongo for stock, Redis for
// cache invalidation and a producer for InventoryAdjusted events.
func openLedger(ctx context.Context) (ledger, func(), error) {
	cfg := config.Load()
	log, err := logging.New(cfg.ServiceName+"-stockctl", cfg.Env)
	if err != nil {
		return nil, nil, err
	}

	client, err := mongox.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	rdb := redisx.New(cfg.RedisAddr)
	prod := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicInventoryAdjusted, 64, log)
	prod.Start(context.WithoutCancel(ctx))

	svc := &inventory.Service{
		Store:  inventory.NewMongoStore(client.Database(cfg.MongoDB)),
		Cache:  &redisx.ProductCache{RDB: rdb},
		Events: &events.Publisher{Service: cfg.ServiceName + "-stockctl", Writers: map[string]events.Writer{events.TopicInventoryAdjusted: prod}},
		Log:    log,
	}
	closeFn := func() {
		prod.Close()
		prod.WaitClosed()
		_ = rdb.Close()
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			log.Warn("mongo disconnect", zap.Error(err))
		}
		_ = log.Sync()
	}
	return svc, closeFn, nil
}
