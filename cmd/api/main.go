package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Rifate-nur-shawn/Ecom-server/handlers"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/addresses"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/auth"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/cart"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/categories"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/email"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/orders"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/payments"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/products"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/reviews"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/stores/kafka"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/stores/postgres"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/users"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/logkey"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("startup failed", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func run() error {
	db, err := postgres.OpenDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.RunMigrations(db); err != nil {
		return err
	}

	keys, err := auth.NewKeys(os.Getenv("JWT_SECRET"))
	if err != nil {
		return err
	}

	sender := email.NewSenderFromEnv()

	// Kafka and redis are optional: without brokers the order-paid events are
	// skipped, without redis the auth rate limiter is off.
	var broker *kafka.Conf
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		broker, err = kafka.NewConf(strings.Split(brokers, ","))
		if err != nil {
			return err
		}
		defer broker.Close()
	}

	var rdb *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		defer rdb.Close()
	}

	usersConf, err := users.NewConf(db, sender)
	if err != nil {
		return err
	}
	productsConf, err := products.NewConf(db)
	if err != nil {
		return err
	}
	categoriesConf, err := categories.NewConf(db)
	if err != nil {
		return err
	}
	addressesConf, err := addresses.NewConf(db)
	if err != nil {
		return err
	}
	cartConf, err := cart.NewConf(db)
	if err != nil {
		return err
	}
	ordersConf, err := orders.NewConf(db, cartConf, sender)
	if err != nil {
		return err
	}
	baseURL := os.Getenv("APP_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	paymentsConf, err := payments.NewConf(db, broker, sender, baseURL)
	if err != nil {
		return err
	}
	reviewsConf, err := reviews.NewConf(db)
	if err != nil {
		return err
	}

	router := handlers.API(handlers.Deps{
		Users:      usersConf,
		Products:   productsConf,
		Categories: categoriesConf,
		Addresses:  addressesConf,
		Cart:       cartConf,
		Orders:     ordersConf,
		Payments:   paymentsConf,
		Reviews:    reviewsConf,
		AuthKeys:   keys,
		Redis:      rdb,
	})

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	slog.Info("server stopped")
	return nil
}
