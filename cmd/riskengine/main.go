package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pranaysuyash/metaextract-sub011/pkg/app/alerts"
	"github.com/pranaysuyash/metaextract-sub011/pkg/app/anomaly"
	"github.com/pranaysuyash/metaextract-sub011/pkg/app/engine"
	"github.com/pranaysuyash/metaextract-sub011/pkg/app/events"
	appfp "github.com/pranaysuyash/metaextract-sub011/pkg/app/fingerprint"
	"github.com/pranaysuyash/metaextract-sub011/pkg/app/threatintel"
	"github.com/pranaysuyash/metaextract-sub011/pkg/cache"
	"github.com/pranaysuyash/metaextract-sub011/pkg/common"
	"github.com/pranaysuyash/metaextract-sub011/pkg/config"
	handlers "github.com/pranaysuyash/metaextract-sub011/pkg/handlers/http"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/channels"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/database"
	infrafp "github.com/pranaysuyash/metaextract-sub011/pkg/infra/fingerprint"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/health"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/httpx"
	infraLogger "github.com/pranaysuyash/metaextract-sub011/pkg/infra/logger"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/repository"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/sink/kafka"
	"github.com/pranaysuyash/metaextract-sub011/pkg/server"
)

func main() {
	ctx := context.Background()

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger := infraLogger.NewLogger()

	if err := config.Load("config"); err != nil {
		logger.WithError(err).Warn("config file not loaded, using defaults and environment")
	}
	cfg := config.GetConfig()

	db, err := database.NewDB(logger, &database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close()

	redisCache, err := cache.NewCache(common.CacheConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TLS:      cfg.Redis.TLS,
	})
	if err != nil {
		logger.Fatalf("failed to initialize cache: %v", err)
	}
	defer redisCache.Close()

	fingerprintRepo := repository.NewFingerprintRepository(db.DB)
	eventRepo := repository.NewSecurityEventRepository(db.DB)
	trainingRepo := repository.NewTrainingSampleRepository(db.DB)

	httpClient := httpx.NewClient(httpx.DefaultTimeout)

	// Event pipeline, with an optional Kafka fan-out for SIEM consumers.
	var eventSink events.Sink
	var kafkaSink *kafka.Sink
	if cfg.Events.Kafka.Enabled {
		kafkaSink, err = kafka.NewSink(cfg.Events.Kafka.Settings)
		if err != nil {
			logger.Fatalf("failed to initialize kafka sink: %v", err)
		}
		eventSink = kafkaSink
	}
	pipeline := events.NewPipeline(eventRepo, eventSink, events.Config{
		BufferSize:    cfg.Events.BufferSize,
		FlushInterval: time.Duration(cfg.Events.FlushIntervalSeconds) * time.Second,
		RetentionDays: cfg.Events.RetentionDays,
	}, logger)
	pipeline.Start(ctx)

	// Fingerprint component.
	tracker := infrafp.NewTracker(redisCache)
	analyzer := infrafp.NewAnalyzer(tracker, cfg.Fingerprint.SimilarityThreshold, logger)
	fingerprintService := appfp.NewService(
		infrafp.NewGenerator(),
		analyzer,
		tracker,
		fingerprintRepo,
		pipeline,
		time.Duration(cfg.Fingerprint.RetentionSeconds)*time.Second,
		logger,
	)

	// Behavioral anomaly component.
	ruleScorer := anomaly.NewRuleScorer(cfg.Anomaly.Threshold)
	trainableScorer := anomaly.NewTrainableScorer(
		ruleScorer,
		trainingRepo,
		cfg.Anomaly.TrainingBuffer,
		cfg.Anomaly.RetrainEveryN,
		logger,
	)
	trainableScorer.Warm(ctx)
	detector := anomaly.NewDetector(
		anomaly.NewHistory(redisCache, cfg.Anomaly.MaxHistory),
		anomaly.NewExtractor(
			cfg.Anomaly.FrequencyCeiling,
			cfg.Anomaly.BurstThreshold,
			cfg.Anomaly.OffHoursStart,
			cfg.Anomaly.OffHoursEnd,
		),
		trainableScorer,
		trainableScorer,
		time.Duration(cfg.Anomaly.WindowHours)*time.Hour,
		pipeline,
		logger,
	)

	// Alerting component.
	alertChannels, err := channels.Build(cfg.Alerts.Channels, httpClient, logger)
	if err != nil {
		logger.Fatalf("failed to build alert channels: %v", err)
	}
	prober := health.NewProber("/")
	alertManager := alerts.NewManager(
		alertChannels,
		prober,
		eventRepo,
		pipeline,
		time.Duration(cfg.Alerts.CooldownMinutes)*time.Minute,
		alerts.Thresholds{
			MemoryMB:     cfg.Alerts.MemoryThresholdMB,
			StoragePct:   cfg.Alerts.StorageThresholdPct,
			RateLimitHit: cfg.Alerts.RateLimitThreshold,
			AbuseHit:     cfg.Alerts.AbuseThreshold,
		},
		cfg.Alerts.HistorySize,
		logger,
	)
	alertManager.Start(ctx, time.Duration(cfg.Alerts.SweepSeconds)*time.Second)

	// Threat intelligence component.
	weighted, err := threatintel.BuildProviders(cfg.ThreatIntel.Providers, httpClient)
	if err != nil {
		logger.Fatalf("failed to build threat intel providers: %v", err)
	}
	blocklist := threatintel.NewTorBlocklist(
		cfg.ThreatIntel.TorExitListURL,
		httpClient,
		redisCache,
		time.Duration(cfg.ThreatIntel.RefreshMinutes)*time.Minute,
		logger,
	)
	blocklist.Start(ctx)
	threatMetrics := threatintel.NewMetrics(cfg.ThreatIntel.MetricsCapacity)
	threatMetrics.Start(ctx, time.Duration(cfg.ThreatIntel.SweepMinutes)*time.Minute)
	aggregator := threatintel.NewAggregator(
		weighted,
		blocklist,
		redisCache,
		threatintel.Bonuses{
			TorExit:  cfg.ThreatIntel.TorExitBonus,
			VPNProxy: cfg.ThreatIntel.VPNProxyBonus,
		},
		threatMetrics,
		pipeline,
		alertManager,
		logger,
	)

	evaluator := engine.NewEvaluator(
		fingerprintService,
		detector,
		aggregator,
		alertManager,
		pipeline,
		logger,
	)

	engineServer := server.NewEngineServer(
		server.NewBaseServer(cfg, logger),
		server.EngineServerDI{
			HandlerTransport: handlers.HandlerTransport{
				EvaluateHandler:        handlers.NewEvaluateHandler(logger, evaluator),
				CheckThreatHandler:     handlers.NewCheckThreatHandler(logger, aggregator),
				ReportThreatHandler:    handlers.NewReportThreatHandler(logger, aggregator),
				ThreatMetricsHandler:   handlers.NewThreatMetricsHandler(threatMetrics),
				ListEventsHandler:      handlers.NewListEventsHandler(logger, pipeline),
				EventsAnalyticsHandler: handlers.NewEventsAnalyticsHandler(logger, pipeline),
				ListAlertsHandler:      handlers.NewListAlertsHandler(alertManager),
			},
			Prober: prober,
		},
	)

	go func() {
		if err := engineServer.Run(); err != nil {
			logger.WithError(err).Fatal("engine server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := engineServer.Shutdown(); err != nil {
		logger.WithError(err).Error("server shutdown failed")
	}
	alertManager.Stop()
	threatMetrics.Stop()
	blocklist.Stop()
	pipeline.Stop()
	if kafkaSink != nil {
		kafkaSink.Close()
	}
	logger.Info("shutdown complete")
}
