package main

import (
	"context"
	"log"
	"os"
	"time"

	httpctl "checkout-service/internal/controllers/http"
	"checkout-service/internal/gateway"
	"checkout-service/internal/infra"
	mmysql "checkout-service/internal/infra/mysql"
	"checkout-service/internal/infra/rabbitmq"
	"checkout-service/internal/outbox"
	mysqlrepo "checkout-service/internal/repository/mysql"
	"checkout-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := mmysql.NewMySQLFromEnv()
	if err != nil {
		logger.Fatal("db: connect", zap.Error(err))
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(200)
	sqlDB.SetMaxIdleConns(50)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	orderRepo := mysqlrepo.NewOrderRepository(db)
	paymentRepo := mysqlrepo.NewPaymentRepository(db)
	refundRepo := mysqlrepo.NewRefundRepository(db)
	outboxStore := outbox.NewGormStore(db)

	cartClient := infra.NewCartClient(os.Getenv("CART_SERVICE_URL"), 2*time.Second)
	productClient := infra.NewProductClient(os.Getenv("PRODUCT_SERVICE_URL"), 2*time.Second)

	publisher, err := rabbitmq.NewPublisher(os.Getenv("RABBITMQ_URL"), "checkout.exchange")
	if err != nil {
		logger.Fatal("failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:         os.Getenv("REDIS_HOST") + ":6379",
		DB:           0,
		PoolSize:     100,
		MinIdleConns: 10,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	stripeURL := os.Getenv("STRIPE_API_URL")
	if stripeURL == "" {
		stripeURL = "https://api.stripe.com"
	}
	gw := gateway.NewStripeGateway(
		stripeURL,
		os.Getenv("STRIPE_SECRET_KEY"),
		os.Getenv("STRIPE_WEBHOOK_SECRET"),
		10*time.Second,
	)

	orderService := services.NewOrderService(orderRepo, cartClient, productClient, publisher, logger)
	coordinator := services.NewCoordinator(outboxStore, orderService, logger)
	paymentService := services.NewPaymentService(paymentRepo, refundRepo, orderService, gw, coordinator, publisher, logger)

	dedup := infra.NewRedisDedupStore(redisClient, 24*time.Hour)
	reconciler := services.NewWebhookReconciler(paymentRepo, gw, dedup, coordinator, logger)

	relay := outbox.NewRelay(outboxStore, coordinator, publisher, logger)

	handler := httpctl.NewHandler(orderService, paymentService, reconciler, redisClient, logger)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	handler.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return relay.Run(ctx)
	})
	g.Go(func() error {
		logger.Info("starting checkout service", zap.String("port", port))
		return r.Run(":" + port)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
