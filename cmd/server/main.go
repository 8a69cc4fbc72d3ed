package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"ecobazar-system/config"
	"ecobazar-system/internal/cache"
	"ecobazar-system/internal/database"
	"ecobazar-system/internal/gateway/handlers"
	cataloghandler "ecobazar-system/internal/services/catalog/handler"
	ordershandler "ecobazar-system/internal/services/orders/handler"
	stockhandler "ecobazar-system/internal/services/stock/handler"
	storeshandler "ecobazar-system/internal/services/stores/handler"
	usershandler "ecobazar-system/internal/services/users/handler"
	"ecobazar-system/internal/telegram"
	"ecobazar-system/internal/utils"
)

func main() {
	cfg := config.LoadConfig()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}

	var appCache *cache.Cache
	if rdb, err := config.NewRedisClient(cfg.Redis); err != nil {
		logger.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		appCache = cache.New(rdb, logger)
	}

	tokens := utils.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)

	users := usershandler.NewUserHandler(db, tokens, logger)
	catalog := cataloghandler.NewCatalogHandler(db, appCache, logger)
	stores := storeshandler.NewStoreHandler(db, logger)
	stock := stockhandler.NewStockHandler(db, appCache, logger)
	orders := ordershandler.NewOrderHandler(db, nil, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telegram.BotToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Fatal("telegram bot init failed", zap.Error(err))
		}
		bot := telegram.New(api, db, orders, logger)
		orders.SetNotifier(bot)
		go bot.Run(ctx)
		logger.Info("telegram bot started", zap.String("username", api.Self.UserName))
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, bot disabled")
	}

	router := newRouter(routerDeps{
		logger:  logger,
		db:      db,
		tokens:  tokens,
		users:   handlers.NewUserHTTPHandler(users),
		catalog: handlers.NewCatalogHTTPHandler(catalog),
		stores:  handlers.NewStoreHTTPHandler(stores),
		stock:   handlers.NewStockHTTPHandler(stock),
		orders:  handlers.NewOrderHTTPHandler(orders),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
