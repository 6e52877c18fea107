package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"voice-concierge/internal/audit"
	"voice-concierge/internal/auth"
	"voice-concierge/internal/calls"
	"voice-concierge/internal/config"
	"voice-concierge/internal/conversation"
	"voice-concierge/internal/httpapi"
	"voice-concierge/internal/intelligence"
	"voice-concierge/internal/notify"
	"voice-concierge/internal/orchestrator"
	"voice-concierge/internal/reporting"
	"voice-concierge/internal/telephony"
	"voice-concierge/pkg/logger"
	"voice-concierge/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const voiceWebhookPath = "/webhooks/twilio/voice"

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	gateway, err := intelligence.NewOpenAIGateway(cfg.OpenAI.APIKey, cfg.OpenAI.ReplyModel, cfg.OpenAI.ClassifyModel)
	if err != nil {
		log.Error("intelligence init failed", "err", err)
		os.Exit(1)
	}

	var channels []notify.Channel
	if cfg.Notify.SlackBotToken != "" {
		ch, err := notify.NewSlackChannel(cfg.Notify.SlackBotToken, cfg.Notify.SlackChannelID)
		if err != nil {
			log.Error("slack init failed", "err", err)
			os.Exit(1)
		}
		channels = append(channels, ch)
	}
	if cfg.Notify.TelegramBotToken != "" {
		ch, err := notify.NewTelegramChannel(cfg.Notify.TelegramBotToken, strconv.FormatInt(cfg.Notify.TelegramChatID, 10))
		if err != nil {
			log.Error("telegram init failed", "err", err)
			os.Exit(1)
		}
		channels = append(channels, ch)
	}
	if len(channels) == 0 {
		log.Warn("no notification channels configured; escalations will not be delivered")
	}

	records := calls.NewPostgresStore(db)
	engine := orchestrator.NewEngine(
		conversation.NewRedisStore(rdb, 0),
		records,
		gateway,
		notify.NewDispatcher(log, channels...),
		orchestrator.NewRedisLocker(rdb),
		orchestrator.WithAuditTrail(audit.NewService(audit.NewMemoryRepo())),
		orchestrator.WithLogger(log),
	)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	webhook := telephony.VoiceWebhookHandler{
		Gate:      telephony.NewSignatureGate(cfg.Twilio.AuthToken, cfg.Twilio.WebhookURL),
		Calls:     engine,
		Responder: telephony.NewResponder(voiceWebhookPath),
	}
	api := httpapi.Handlers{
		Engine:  engine,
		Records: records,
		Reports: reporting.NewService(records),
	}
	registerRoutes(r, webhook, api, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
