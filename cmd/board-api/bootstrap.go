package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/LoadBoard/config"
	"github.com/BearBump/LoadBoard/internal/api/boardapi"
	"github.com/BearBump/LoadBoard/internal/broker/kafka"
	"github.com/BearBump/LoadBoard/internal/cache/redcache"
	"github.com/BearBump/LoadBoard/internal/realtime"
	"github.com/BearBump/LoadBoard/internal/services/auth"
	"github.com/BearBump/LoadBoard/internal/services/loads"
	"github.com/BearBump/LoadBoard/internal/storage/pgboard"
)

type boardAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     boardAPIOpts
	api      *boardapi.API
	hub      *realtime.Hub
	consumer *kafka.Consumer
	closers  []func()
}

func mustBootstrapBoardAPI() *boardAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.LoadBoard.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.LoadBoard.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "board-api"
	}
	loadTopic := cfg.Kafka.LoadChangedTopicName
	if loadTopic == "" {
		loadTopic = "load.changed"
	}
	notifTopic := cfg.Kafka.NotificationCreatedTopicName
	if notifTopic == "" {
		notifTopic = "notification.created"
	}
	tokenSecret := cfg.LoadBoard.TokenSecret
	if tokenSecret == "" {
		panic("loadboard.token_secret is required")
	}
	tokenTTL := time.Duration(cfg.LoadBoard.TokenTTLSeconds) * time.Second
	otpTTL := time.Duration(cfg.LoadBoard.OTPTTLSeconds) * time.Second
	cacheTTL := time.Duration(cfg.LoadBoard.CurrentLoadTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := redcache.New(redisAddr)
	otp := redcache.NewOTPStore(redisAddr, otpTTL)
	limiter := redcache.NewRateLimiter(redisAddr)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)
	consumer := kafka.NewConsumer(brokers, []string{loadTopic, notifTopic}, consumerGroup)

	hub := realtime.NewHub()
	loadsSvc := loads.New(st, producer, rc, loadTopic, cacheTTL)
	authSvc := auth.New(st, otp, tokenSecret, tokenTTL)

	api := boardapi.New(loadsSvc, authSvc, st, st, hub, limiter, boardapi.Opts{
		AuthRateLimit:  int64(cfg.LoadBoard.AuthRateLimitPerMinute),
		AuthRateWindow: time.Minute,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &boardAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: boardAPIOpts{
			httpAddr:      httpAddr,
			swaggerPath:   os.Getenv("swaggerPath"),
			loadTopic:     loadTopic,
			notifTopic:    notifTopic,
			consumerGroup: consumerGroup,
		},
		api:      api,
		hub:      hub,
		consumer: consumer,
		closers:  []func(){st.Close, hub.Close, func() { _ = producer.Close() }},
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgboard.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgboard.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *boardAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	for _, c := range a.closers {
		c()
	}
}

func (a *boardAPIApp) Run() error {
	return runBoardAPI(a.ctx, a.opts, a.api, a.hub, a.consumer)
}
