package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	notificationapp "github.com/youngberry1/coindarks-sub001/internal/notification/application"
	notificationdomain "github.com/youngberry1/coindarks-sub001/internal/notification/domain"
	notificationmysql "github.com/youngberry1/coindarks-sub001/internal/notification/infrastructure/persistence/mysql"
	"github.com/youngberry1/coindarks-sub001/internal/notification/infrastructure/sender"
	notificationhttp "github.com/youngberry1/coindarks-sub001/internal/notification/interfaces/http"
	orderapp "github.com/youngberry1/coindarks-sub001/internal/order/application"
	orderdomain "github.com/youngberry1/coindarks-sub001/internal/order/domain"
	"github.com/youngberry1/coindarks-sub001/internal/order/infrastructure/messaging"
	ordermysql "github.com/youngberry1/coindarks-sub001/internal/order/infrastructure/persistence/mysql"
	orderhttp "github.com/youngberry1/coindarks-sub001/internal/order/interfaces/http"
	ratesapp "github.com/youngberry1/coindarks-sub001/internal/rates/application"
	ratesdomain "github.com/youngberry1/coindarks-sub001/internal/rates/domain"
	ratescache "github.com/youngberry1/coindarks-sub001/internal/rates/infrastructure/cache"
	"github.com/youngberry1/coindarks-sub001/internal/rates/infrastructure/client"
	ratesmysql "github.com/youngberry1/coindarks-sub001/internal/rates/infrastructure/persistence/mysql"
	rateshttp "github.com/youngberry1/coindarks-sub001/internal/rates/interfaces/http"
	userapp "github.com/youngberry1/coindarks-sub001/internal/user/application"
	userdomain "github.com/youngberry1/coindarks-sub001/internal/user/domain"
	usermysql "github.com/youngberry1/coindarks-sub001/internal/user/infrastructure/persistence/mysql"
	userhttp "github.com/youngberry1/coindarks-sub001/internal/user/interfaces/http"
	"github.com/youngberry1/coindarks-sub001/pkg/cache"
	"github.com/youngberry1/coindarks-sub001/pkg/config"
	"github.com/youngberry1/coindarks-sub001/pkg/db"
	"github.com/youngberry1/coindarks-sub001/pkg/logger"
	"github.com/youngberry1/coindarks-sub001/pkg/metrics"
	"github.com/youngberry1/coindarks-sub001/pkg/middleware"
	"github.com/youngberry1/coindarks-sub001/pkg/mq"
	"github.com/youngberry1/coindarks-sub001/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
)

var configPath = flag.String("config", "configs/exchange/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. 配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	ctx := context.Background()
	logger.Info(ctx, "Starting service", "service", cfg.ServiceName, "version", cfg.Version, "env", cfg.Environment)

	if err := run(cfg); err != nil {
		logger.Fatal(ctx, "Service exited with error", "error", err)
	}
	logger.Info(ctx, "Service stopped")
}

func run(cfg *config.Config) error {
	// 3. 指标
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.ServiceName)
		if err := m.Register(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
	}

	// 4. 数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		return err
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(
			&userdomain.User{},
			&ratesdomain.TradingPair{},
			&orderdomain.Order{},
			&orderdomain.AdminWallet{},
			&orderdomain.Inventory{},
			&messaging.OutboxMessage{},
			&notificationdomain.Notification{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}

	// 5. Redis，未启用或连接失败时退化为进程内缓存与限流
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Warn(context.Background(), "Redis unavailable, using in-process cache", "error", err)
		} else {
			defer redisCache.Close()
		}
	}

	var limiter ratelimit.RateLimiter = ratelimit.NewLocalRateLimiter()
	feedTTL := time.Duration(cfg.PriceFeed.CacheTTLSeconds) * time.Second
	var snapshots ratescache.SnapshotStore = ratescache.NewMemoryStore(feedTTL)
	if redisCache != nil {
		limiter = ratelimit.NewRedisRateLimiter(redisCache.GetClient(), cfg.ServiceName)
		snapshots = ratescache.NewRedisStore(redisCache)
	}

	// 6. 仓储
	userRepo := usermysql.NewUserRepository(database.DB)
	pairRepo := ratesmysql.NewTradingPairRepository(database.DB)
	orderRepo := ordermysql.NewOrderRepository(database.DB)
	walletRepo := ordermysql.NewWalletRepository(database.DB)
	inventoryRepo := ordermysql.NewInventoryRepository(database.DB)
	notificationRepo := notificationmysql.NewNotificationRepository(database.DB)

	// 7. 应用服务
	feed := ratescache.NewCachedPriceFeed(
		client.NewCoinGeckoClient(cfg.PriceFeed.BaseURL, cfg.PriceFeed.APIKey, time.Duration(cfg.PriceFeed.TimeoutMs)*time.Millisecond),
		snapshots, feedTTL, m,
	)
	resolver := ratesapp.NewRateResolver(pairRepo, feed)
	rateCmd := ratesapp.NewRateCommandService(pairRepo)

	userSvc := userapp.NewUserService(userRepo)

	orderCmd := orderapp.NewOrderCommandService(
		resolver,
		ratesdomain.NewRateBridger(toDecimals(cfg.Pricing.BridgeFallbacks)),
		orderdomain.NewOrderGuard(toDecimals(cfg.Pricing.MinimumSell), walletRepo),
		orderRepo,
		orderdomain.NewOrderNumberGenerator(cfg.Order.NumberPrefix),
		m,
		orderapp.OrderCommandConfig{
			CreateAttempts: cfg.Order.CreateAttempts,
			RetryBackoff:   time.Duration(cfg.Order.RetryBackoffMs) * time.Millisecond,
		},
	)
	orderQuery := orderapp.NewOrderQueryService(orderRepo)
	walletSvc := orderapp.NewWalletService(walletRepo, inventoryRepo)

	var notifySender notificationdomain.Sender = sender.NewLogSender()
	if cfg.Notification.Sender == "webhook" && cfg.Notification.WebhookURL != "" {
		notifySender = sender.NewWebhookSender(cfg.Notification.WebhookURL, 10*time.Second)
	}
	notificationSvc := notificationapp.NewNotificationService(notificationRepo, notifySender, userSvc, cfg.Notification.AdminAddress, m)

	// 8. 发件箱：启用 Kafka 时投递到 topic 并由消费者组处理，否则进程内直接处理
	kafkaCfg := mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		SessionTimeout: cfg.Kafka.SessionTimeout,
		MaxRetries:     cfg.Kafka.MaxRetries,
		RetryBackoff:   cfg.Kafka.RetryBackoff,
	}
	var dispatcher messaging.Dispatcher
	var consumer *mq.KafkaConsumer
	if cfg.Kafka.Enabled {
		producer := mq.NewProducer(kafkaCfg)
		defer producer.Close()
		dispatcher = messaging.NewKafkaDispatcher(producer, map[string]string{
			orderdomain.EventOrderCreated: cfg.Kafka.OrderTopic,
		})
		consumer = mq.NewConsumer(kafkaCfg, cfg.Kafka.OrderTopic)
		defer consumer.Close()
	} else {
		local := messaging.NewLocalDispatcher()
		local.Handle(orderdomain.EventOrderCreated, notificationSvc.HandleOrderCreated)
		dispatcher = local
	}
	relay := messaging.NewOutboxRelay(database.DB, dispatcher, messaging.RelayConfig{
		PollInterval: time.Duration(cfg.Outbox.PollIntervalMs) * time.Millisecond,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		Retention:    time.Duration(cfg.Outbox.RetentionHours) * time.Hour,
		RetryBackoff: time.Duration(cfg.Outbox.RetryBackoffMs) * time.Millisecond,
		MaxBackoff:   time.Duration(cfg.Outbox.MaxBackoffMs) * time.Millisecond,
	}, m)

	// 9. 接口层
	router := newRouter(cfg, m, limiter, userSvc,
		rateshttp.NewRateHandler(resolver, rateCmd),
		orderhttp.NewOrderHandler(orderCmd, orderQuery, walletSvc),
		notificationhttp.NewNotificationHandler(notificationSvc),
	)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 10. 启动
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		logger.Info(ctx, "HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path, prometheus.DefaultGatherer)
		g.Go(func() error { return metrics.Serve(metricsServer) })
	}

	g.Go(func() error { return relay.Run(ctx) })

	if consumer != nil {
		g.Go(func() error {
			return consumer.Run(ctx, func(ctx context.Context, msg *mq.Message) error {
				return notificationSvc.HandleOrderCreated(ctx, msg.Value)
			})
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info(context.Background(), "Shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if metricsServer != nil {
			_ = metricsServer.Shutdown(shutdownCtx)
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newRouter(
	cfg *config.Config,
	m *metrics.Metrics,
	limiter ratelimit.RateLimiter,
	userSvc *userapp.UserService,
	rates *rateshttp.RateHandler,
	orders *orderhttp.OrderHandler,
	notifications *notificationhttp.NotificationHandler,
) *gin.Engine {
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinMetricsMiddleware(m),
		middleware.GinTimeoutMiddleware(time.Duration(cfg.HTTP.RequestTimeout)*time.Second),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName, "version": cfg.Version})
	})

	public := r.Group("/api/v1")
	rates.RegisterRoutes(public)
	orders.RegisterPublicRoutes(public)

	api := r.Group("/api/v1", middleware.JWTAuthMiddleware(cfg.Auth.JWTSecret), userhttp.CallerMiddleware(userSvc))
	orders.RegisterRoutes(api, middleware.RateLimitMiddleware(limiter, cfg.RateLimit))
	notifications.RegisterRoutes(api)

	admin := api.Group("/admin", userhttp.RequireAdmin())
	rates.RegisterAdminRoutes(admin)
	orders.RegisterAdminRoutes(admin)
	userhttp.NewUserHandler(userSvc).RegisterAdminRoutes(admin)

	return r
}

func toDecimals(in map[string]float64) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = decimal.NewFromFloat(v)
	}
	return out
}
