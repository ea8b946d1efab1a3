package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"storefront/pkg/common/config"
	"storefront/pkg/common/metrics"
	"storefront/pkg/domain/service"
	"storefront/pkg/infrastructure/amqp"
	"storefront/pkg/infrastructure/mysql"
	"storefront/pkg/infrastructure/transport"
)

const serviceName = "storefront"

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	app := &cli.App{
		Name:  serviceName,
		Usage: "order lifecycle and inventory reconciliation service",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply pending database migrations and exit",
				Action: runMigrations,
			},
			{
				Name:   "seed",
				Usage:  "insert a demo catalog for local development and exit",
				Action: seedCatalog,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("storefront exited with error")
	}
}

func runMigrations(_ *cli.Context) error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	db, err := mysql.Connect(cfg.DatabaseDSN, cfg.DatabaseMaxConns)
	if err != nil {
		return err
	}
	defer db.Close()
	return mysql.Migrate(db, cfg.MigrationsDir)
}

func seedCatalog(_ *cli.Context) error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	db, err := mysql.Connect(cfg.DatabaseDSN, cfg.DatabaseMaxConns)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := mysql.Migrate(db, cfg.MigrationsDir); err != nil {
		return err
	}

	clock := service.Clock(func() time.Time { return time.Now().UTC() })
	scopes := service.NewBoundedScopeFactory(mysql.NewScopeFactory(db), cfg.DatabaseTimeout)
	products := service.NewProductService(scopes, clock)

	demo := []struct {
		name       string
		priceCents int64
		stock      int
	}{
		{"Laptop", 150000, 10},
		{"Smartphone", 59999, 25},
		{"Headphones", 9999, 40},
	}
	for _, item := range demo {
		product, err := products.CreateProduct(context.Background(), item.name, item.priceCents, item.stock)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"productID": product.ID,
			"name":      product.Name,
			"stock":     product.StockQuantity,
		}).Info("seeded product")
	}
	return nil
}

func serve(_ *cli.Context) error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}

	db, err := mysql.Connect(cfg.DatabaseDSN, cfg.DatabaseMaxConns)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := mysql.Migrate(db, cfg.MigrationsDir); err != nil {
		return err
	}

	notifier, err := amqp.NewNotifier(cfg.AMQPAddress)
	if err != nil {
		return err
	}
	defer notifier.Close()

	clock := service.Clock(func() time.Time { return time.Now().UTC() })
	scopes := service.NewBoundedScopeFactory(mysql.NewScopeFactory(db), cfg.DatabaseTimeout)
	ledger := service.NewInventoryLedger()
	lines := service.NewOrderLineService(scopes, ledger)
	orders := service.NewOrderService(scopes, lines, clock)
	states := service.NewOrderStateMachine(scopes, ledger, notifier, clock)

	router := transport.NewRouter(orders, lines, states, metrics.NewServerMetrics(serviceName))
	srv := &http.Server{Addr: cfg.ServeRESTAddress, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("address", cfg.ServeRESTAddress).Info("starting server")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
