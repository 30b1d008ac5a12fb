package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	alertapi "github.com/feedpulse/feedpulse/internal/alerting/api"
	"github.com/feedpulse/feedpulse/internal/alerting/service/engine"
	"github.com/feedpulse/feedpulse/internal/alerting/service/notify"
	"github.com/feedpulse/feedpulse/internal/alerting/service/ruleset"
	"github.com/feedpulse/feedpulse/internal/config"
	"github.com/feedpulse/feedpulse/internal/database"
	"github.com/feedpulse/feedpulse/internal/feedback"
	"github.com/feedpulse/feedpulse/internal/mailer"
	"github.com/feedpulse/feedpulse/internal/metrics"
)

func main() {
	log.Info().Msg("Starting feedpulse api server")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// configure log level from config
	switch strings.ToLower(cfg.Logging.Level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// optional Redis for the notification cooldown; absent Redis degrades to
	// the record-every-run behavior
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	cooldownTTL := parseDuration(cfg.Alerting.CooldownTTL, 0)

	rules := ruleset.NewPgStore(db)
	feedbackStore := feedback.NewPgStore(db)
	inbox := notify.NewPgInbox(db)
	sender := mailer.NewSMTPSender(cfg.SMTP)

	coordinator := engine.NewCoordinator(rules, feedbackStore, sender)
	recorder := notify.NewRecorder(inbox, feedbackStore, notify.NewCooldown(rdb, cooldownTTL))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ruleset.BootstrapRulesFromFile(ctx, rules, cfg.Alerting.RulesFile); err != nil {
		log.Error().Err(err).Msg("bootstrap rules from file failed")
	}

	// daily flush: force-send run that delivers breaches accumulated under
	// sendMode=daily
	flushInterval := parseDuration(cfg.Alerting.DailyFlushInterval, 24*time.Hour)
	go engine.StartDailyFlush(ctx, flushInterval, func(fctx context.Context) error {
		metrics.RunsTotal.WithLabelValues("daily_flush").Inc()
		result, err := coordinator.Run(fctx, true)
		if err != nil {
			return err
		}
		return recorder.RecordRun(fctx, result)
	})

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	alertapi.NewApi(router, rules, coordinator, recorder, inbox, cfg.Auth.JWTSecret)
	feedback.RegisterFeedbackRoutes(router, &feedback.Handler{
		Store:       feedbackStore,
		Recorder:    recorder,
		Coordinator: coordinator,
	})
	metrics.RegisterMetricsRoute(router)
	router.GET("/healthz", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Info().Msgf("Starting server on %s", cfg.Server.BindAddr)
	if err := router.Run(cfg.Server.BindAddr); err != nil {
		log.Fatal().Err(err).Msg("start feedpulse api server failed.")
	}
	log.Info().Msg("feedpulse api server exit...")
}

func parseDuration(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	return d
}
