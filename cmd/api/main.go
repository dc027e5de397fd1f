package main

import (
	"context"
	"net/http"
	"os"

	"github.com/bagelworks/orderbot-backend/api/routes"
	"github.com/bagelworks/orderbot-backend/internal/chat"
	"github.com/bagelworks/orderbot-backend/internal/engine"
	"github.com/bagelworks/orderbot-backend/internal/geo"
	"github.com/bagelworks/orderbot-backend/internal/menu"
	"github.com/bagelworks/orderbot-backend/internal/nlu"
	"github.com/bagelworks/orderbot-backend/internal/notify"
	"github.com/bagelworks/orderbot-backend/internal/sessions"
	"github.com/bagelworks/orderbot-backend/pkg/config"
	"github.com/bagelworks/orderbot-backend/pkg/db"
	"github.com/bagelworks/orderbot-backend/pkg/instance"
	"github.com/bagelworks/orderbot-backend/pkg/logger"
	"github.com/bagelworks/orderbot-backend/pkg/maps"
	"github.com/bagelworks/orderbot-backend/pkg/metrics"
	"github.com/bagelworks/orderbot-backend/pkg/migrate"
	"github.com/bagelworks/orderbot-backend/pkg/pubsub"
	"github.com/bagelworks/orderbot-backend/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	menuService, err := menu.NewService(menu.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create menu service", err)
		os.Exit(1)
	}
	catalog, err := menu.NewRefresher(menuService, logg, cfg.Store.MenuRefresh)
	if err != nil {
		logg.Error(ctx, "failed to create menu refresher", err)
		os.Exit(1)
	}
	if err := catalog.Start(ctx); err != nil {
		logg.Error(ctx, "failed to load menu", err)
		os.Exit(1)
	}

	storeInfo := engine.StoreInfo{
		Name:    cfg.Store.Name,
		Address: cfg.Store.Address,
		Phone:   cfg.Store.Phone,
		Hours:   cfg.Store.Hours,
	}
	pricing := engine.PricingConfig{
		CityTaxRate:  cfg.Store.CityTaxRate,
		StateTaxRate: cfg.Store.StateTaxRate,
		DeliveryFee:  cfg.Store.DeliveryFee,
	}

	deliveryOpts := engine.DeliveryOptions{
		InDeliveryZone: geo.ZoneCheckerFromZips(cfg.Maps.DeliveryZips),
	}
	if cfg.Maps.APIKey != "" {
		mapsClient, err := maps.NewClient(cfg.Maps.APIKey, maps.WithHTTPClient(&http.Client{Timeout: cfg.Maps.Timeout}))
		if err != nil {
			logg.Error(ctx, "failed to create maps client", err)
			os.Exit(1)
		}
		verifier, err := geo.NewVerifier(mapsClient, logg)
		if err != nil {
			logg.Error(ctx, "failed to create address verifier", err)
			os.Exit(1)
		}
		deliveryOpts.ValidateAddress = verifier.ValidateAddress
	}

	orch, err := buildOrchestrator(storeInfo, pricing, catalog, deliveryOpts, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to build conversation engine", err)
		os.Exit(1)
	}

	sessionStore, err := sessions.NewStore(redisClient, cfg.Redis.SessionTTL)
	if err != nil {
		logg.Error(ctx, "failed to create session store", err)
		os.Exit(1)
	}
	orderRepo := sessions.NewRepository(dbClient.DB())

	var notifier notify.Sender = notify.Noop{}
	if cfg.Notify.Endpoint != "" {
		sender, err := notify.NewHTTPSender(cfg.Notify)
		if err != nil {
			logg.Error(ctx, "failed to create notification sender", err)
			os.Exit(1)
		}
		notifier = sender
	}

	var events chat.ActionPublisher
	if cfg.GCP.ProjectID != "" && cfg.PubSub.ActionsTopic != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub", err)
			}
		}()
		events = chat.NewActionStream(pubsubClient.ActionsPublisher())
	}

	registry := prometheus.NewRegistry()
	turnMetrics := metrics.NewTurnMetrics(registry)

	chatService, err := chat.NewService(orch, sessionStore, orderRepo, notifier, events, turnMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create chat service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, chatService, orderRepo, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(startCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildOrchestrator(
	store engine.StoreInfo,
	pricing engine.PricingConfig,
	catalog engine.Catalog,
	deliveryOpts engine.DeliveryOptions,
	cfg *config.Config,
	logg *logger.Logger,
) (*engine.Orchestrator, error) {
	greeting, err := engine.NewGreetingHandler(store)
	if err != nil {
		return nil, err
	}
	delivery, err := engine.NewDeliveryHandler(store, deliveryOpts)
	if err != nil {
		return nil, err
	}
	bagel, err := engine.NewBagelHandler(catalog)
	if err != nil {
		return nil, err
	}
	drink, err := engine.NewDrinkHandler(catalog)
	if err != nil {
		return nil, err
	}
	checkout, err := engine.NewCheckoutHandler(catalog, pricing, store)
	if err != nil {
		return nil, err
	}

	registry, err := engine.NewRegistry(greeting, delivery, bagel, drink, checkout)
	if err != nil {
		return nil, err
	}

	var classifier engine.Classifier = nlu.Noop{}
	if cfg.NLU.Endpoint != "" {
		httpClassifier, err := nlu.NewHTTPClassifier(cfg.NLU)
		if err != nil {
			return nil, err
		}
		classifier = httpClassifier
	}

	return engine.NewOrchestrator(registry, classifier, logg)
}
