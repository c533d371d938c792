// Package app opens the backing services once and builds the ledger, merger
// and coordinator on top of them for the cmd binaries.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/cart"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/checkout"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/config"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/events"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/inventory"
	kafkax "github.com/prthgajera30/Ecom-Application-main-sub001/internal/kafka"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/metrics"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/mongox"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/orders"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/postgres"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/redisx"
)

const producerBuffer = 1024

type App struct {
	Cfg      config.Config
	Log      *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Mongo *mongo.Client
	PG    *pgxpool.Pool
	Redis *redis.Client

	Products  *inventory.MongoStore
	Sessions  *cart.MongoStore
	Orders    *orders.Repo
	Publisher *events.Publisher

	producers []*kafkax.Producer
}

// Open connects Mongo, Postgres and Redis, applies indexes and the order
// schema, and starts one Kafka producer per topic in topics.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger, topics ...string) (*App, error) {
	a := &App{Cfg: cfg, Log: log, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	var err error
	if a.Mongo, err = mongox.Connect(ctx, cfg.MongoURI); err != nil {
		return nil, err
	}
	db := a.Mongo.Database(cfg.MongoDB)
	a.Products = inventory.NewMongoStore(db)
	a.Sessions = cart.NewMongoStore(db)
	if err := mongox.EnsureIndexes(ctx, a.Products, a.Sessions); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	if a.PG, err = postgres.Connect(ctx, cfg.PostgresDSN); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := postgres.Migrate(ctx, a.PG); err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Orders = &orders.Repo{DB: a.PG}

	a.Redis = redisx.New(cfg.RedisAddr)

	a.Publisher = &events.Publisher{Service: cfg.ServiceName, Writers: map[string]events.Writer{}}
	for _, topic := range topics {
		p := kafkax.NewProducer(cfg.KafkaBrokers, topic, producerBuffer, log)
		// producers outlive ctx and stop on Close, after the last publisher
		p.Start(context.WithoutCancel(ctx))
		a.producers = append(a.producers, p)
		a.Publisher.Writers[topic] = p
	}
	return a, nil
}

func (a *App) Ledger() *inventory.Service {
	return &inventory.Service{
		Store:   a.Products,
		Cache:   &redisx.ProductCache{RDB: a.Redis},
		Events:  a.Publisher,
		Log:     a.Log.Named("inventory"),
		Metrics: a.Metrics,
	}
}

func (a *App) Merger() *cart.Merger {
	return &cart.Merger{
		Store:   a.Sessions,
		Locker:  &redisx.Locker{RDB: a.Redis},
		LockTTL: a.Cfg.MergeLockTTL,
		Log:     a.Log.Named("cart"),
		Metrics: a.Metrics,
	}
}

// Coordinator wires the checkout coordinator. The ledger is charged for new
// orders only when CHECKOUT_DECREMENT_STOCK is set.
func (a *App) Coordinator(ledger *inventory.Service) *checkout.Coordinator {
	c := &checkout.Coordinator{
		Sessions:        a.Sessions,
		Catalog:         a.Products,
		Orders:          a.Orders,
		Users:           a.Orders,
		Notifier:        &redisx.Notifier{RDB: a.Redis},
		Events:          a.Publisher,
		DefaultCurrency: a.Cfg.DefaultCurrency,
		Log:             a.Log.Named("checkout"),
		Metrics:         a.Metrics,
	}
	if a.Cfg.DecrementStockOnOrder && ledger != nil {
		c.Ledger = ledger
	}
	return c
}

func (a *App) Dedup() *redisx.Dedup {
	return &redisx.Dedup{RDB: a.Redis, Scope: "checkout"}
}

// Close flushes the producers, then closes the stores. Nothing may publish
// once Close has started.
func (a *App) Close(ctx context.Context) {
	for _, p := range a.producers {
		p.Close()
	}
	for _, p := range a.producers {
		p.WaitClosed()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.PG != nil {
		a.PG.Close()
	}
	if a.Mongo != nil {
		if err := a.Mongo.Disconnect(ctx); err != nil {
			a.Log.Warn("mongo disconnect", zap.Error(err))
		}
	}
}
