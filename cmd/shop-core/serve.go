package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/vasiliy-maslov/shop-core/internal/catalog"
	"github.com/vasiliy-maslov/shop-core/internal/config"
	"github.com/vasiliy-maslov/shop-core/internal/customer"
	"github.com/vasiliy-maslov/shop-core/internal/discount"
	"github.com/vasiliy-maslov/shop-core/internal/events"
	handler "github.com/vasiliy-maslov/shop-core/internal/handler/http"
	"github.com/vasiliy-maslov/shop-core/internal/idempotency"
	"github.com/vasiliy-maslov/shop-core/internal/inventory"
	"github.com/vasiliy-maslov/shop-core/internal/order"
	"github.com/vasiliy-maslov/shop-core/internal/report"
	"github.com/vasiliy-maslov/shop-core/internal/transport"
)

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, !skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on startup")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	log.Info().Msg("Shop core starting...")
	if cfg.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required to serve the API")
	}

	store, err := openStore(ctx, cfg, migrate)
	if err != nil {
		return err
	}
	defer store.close()

	retry := order.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Order.MaxPlacementAttempts
	opts := []order.Option{order.WithRetry(retry)}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close Kafka writer")
			}
		}()
		opts = append(opts, order.WithPublisher(publisher))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.OrderTopic).Msg("Publishing order events")
	}

	if cfg.Redis.Addr != "" {
		rdb, err := idempotency.NewRedisClient(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, order.WithIdempotencyGuard(idempotency.NewRedisGuard(rdb, cfg.Redis.IdempotencyTTL)))
	}

	policy := discount.NewPolicy(cfg.Discount.WindowStart, cfg.Discount.WindowEnd, cfg.Discount.FrequentThreshold)

	router := transport.NewRouter(transport.Dependencies{
		Orders:    order.NewService(store, policy, opts...),
		Catalog:   catalog.NewService(store.Products()),
		Inventory: inventory.NewLedger(store.Inventory()),
		Reports:   report.NewService(store.Reports()),
		Customers: customer.NewService(store.Customers()),
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		Limiter:   handler.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Ping:      store.ping,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.App.Port).Str("store", cfg.Store.Driver).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("Server failed")
		return err
	case <-sigChan:
	}
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}
