package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quickbite/orderflow/internal/adapter/logger"
	"github.com/quickbite/orderflow/internal/adapter/postgres"
	"github.com/quickbite/orderflow/internal/adapter/pricing"
	"github.com/quickbite/orderflow/internal/adapter/rabbitmq"
	"github.com/quickbite/orderflow/internal/app/dispatch"
	"github.com/quickbite/orderflow/internal/app/feed"
	"github.com/quickbite/orderflow/internal/app/order"
	"github.com/quickbite/orderflow/internal/app/sla"
	"github.com/quickbite/orderflow/internal/app/tracking"
	"github.com/quickbite/orderflow/internal/config"
	"github.com/quickbite/orderflow/internal/domain"
	"github.com/quickbite/orderflow/internal/interfaces"

	amqpAdapter "github.com/quickbite/orderflow/internal/adapter/amqp"
	httpAdapter "github.com/quickbite/orderflow/internal/adapter/http"
)

func main() {
	mode := flag.String("mode", "", "Service mode: api-server, feed-subscriber")
	port := flag.Int("port", 3000, "HTTP port (api-server)")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	scopeFlag := flag.String("scope", "", "Feed scope: all, merchant:<id>, customer:<id> (feed-subscriber)")
	subscriberName := flag.String("subscriber-name", "", "Subscriber session name (feed-subscriber)")
	heartbeatInterval := flag.Int("heartbeat-interval", 30, "Heartbeat interval in seconds")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lgr := logger.New(*mode)

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})

	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host": cfg.RabbitMQ.Host,
	})

	switch *mode {
	case "api-server":
		runAPIServer(ctx, cfg, db, mqConn, lgr, *port)

	case "feed-subscriber":
		if *scopeFlag == "" || *subscriberName == "" {
			log.Fatal("--scope and --subscriber-name are required for feed-subscriber mode")
		}
		scope, err := domain.ParseScope(*scopeFlag)
		if err != nil {
			log.Fatalf("Invalid scope: %v", err)
		}
		runFeedSubscriber(ctx, cfg, db, mqConn, lgr, scope, *subscriberName, *heartbeatInterval)

	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

func runAPIServer(ctx context.Context, cfg *config.Config, db postgres.DB, mqConn rabbitmq.Connection, lgr logger.Logger, port int) {
	orderRepo := postgres.NewOrderRepository(db)
	subscriberRepo := postgres.NewSubscriberRepository(db)

	publisher := rabbitmq.NewPublisher(mqConn)
	distributor := dispatch.New(publisher, lgr, cfg.Publish)

	tracker := sla.NewTracker(distributor, orderRepo, lgr, cfg.SLA)
	if err := tracker.Rearm(ctx); err != nil {
		lgr.Error("tracker_rearm_failed", "Failed to re-arm deadline tracker", "startup", nil, err)
	}
	go tracker.Run(ctx)

	orderService := order.NewService(orderRepo, distributor, tracker, pricing.NewStatic(cfg.Pricing), lgr, cfg.SLA)
	trackingService := tracking.NewService(orderRepo, subscriberRepo, lgr, cfg.SLA)

	orderHandler := httpAdapter.NewOrderHandler(orderService, trackingService, lgr)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", orderHandler.CreateOrder)
	mux.HandleFunc("GET /orders", orderHandler.Snapshot)
	mux.HandleFunc("GET /orders/{number}", orderHandler.GetOrder)
	mux.HandleFunc("POST /orders/{number}/status", orderHandler.UpdateStatus)
	mux.HandleFunc("GET /orders/{number}/history", orderHandler.GetHistory)
	mux.HandleFunc("GET /subscribers/status", orderHandler.GetSubscribersStatus)

	handler := httpAdapter.AuthMiddleware(mux)
	handler = httpAdapter.LoggingMiddleware(lgr)(handler)
	handler = httpAdapter.RecoveryMiddleware(lgr)(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("API server started on port %d", port), "startup", map[string]interface{}{
		"port": port,
	})

	go func() {
		<-ctx.Done()

		lgr.Info("shutdown_initiated", "Shutting down API server", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lgr.Error("server_error", "Server error", "runtime", nil, err)
	}
}

func runFeedSubscriber(ctx context.Context, cfg *config.Config, db postgres.DB, mqConn rabbitmq.Connection, lgr logger.Logger, scope domain.Scope, name string, heartbeatInterval int) {
	orderRepo := postgres.NewOrderRepository(db)
	subscriberRepo := postgres.NewSubscriberRepository(db)

	trackingService := tracking.NewService(orderRepo, subscriberRepo, lgr, cfg.SLA)
	store := tracking.NewStore(scope)
	feedService := feed.NewService(store, trackingService, subscriberRepo, lgr, name, heartbeatInterval)

	if err := feedService.Start(ctx); err != nil {
		log.Fatalf("Failed to start feed subscriber: %v", err)
	}

	eventHandler := amqpAdapter.NewEventHandler(feedService, lgr)
	consumer := rabbitmq.NewConsumer(mqConn)

	lgr.Info("service_started", fmt.Sprintf("Feed subscriber %s started for scope %s", name, scope.Key()), "startup", map[string]interface{}{
		"subscriber": name,
		"scope":      scope.Key(),
	})

	hooks := interfaces.SubscriptionHooks{
		OnConnect:    feedService.OnConnect,
		OnDisconnect: feedService.OnDisconnect,
	}

	go func() {
		if err := consumer.Subscribe(ctx, scope, hooks, eventHandler.HandleEvent); err != nil && ctx.Err() == nil {
			lgr.Error("consumer_error", "Error consuming events", "runtime", nil, err)
		}
	}()

	<-ctx.Done()

	lgr.Info("graceful_shutdown", "Shutting down feed subscriber", "shutdown", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := feedService.Shutdown(shutdownCtx); err != nil {
		lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
	}
}
