package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BearBump/LoadBoard/config"
	"github.com/BearBump/LoadBoard/internal/broker/kafka"
	"github.com/BearBump/LoadBoard/internal/broker/messages"
	"github.com/BearBump/LoadBoard/internal/services/notifier"
	"github.com/BearBump/LoadBoard/internal/storage/pgboard"
)

type loadChangedConsumer interface {
	Consume(ctx context.Context, handler func(topic string, key, value []byte) error) error
	Close() error
}

type workerFactories struct {
	newStorage  func(cfg *config.Config) (store notifier.Store, closeFn func(), err error)
	newProducer func(cfg *config.Config) notifier.Producer
	newConsumer func(cfg *config.Config, topic, group string) loadChangedConsumer

	onHTTPListen func(httpAddr string)
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (notifier.Store, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgboard.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) notifier.Producer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
		newConsumer: func(cfg *config.Config, topic, group string) loadChangedConsumer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewConsumer(brokers, []string{topic}, group)
		},
	}
}

// RunBoardWorker — фан-аут уведомлений: читает load.changed, пишет
// строки уведомлений и публикует notification.created. Оффсет
// коммитится только после успешной записи; повторы гасятся dedupe_key.
func RunBoardWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	loadTopic := cfg.Kafka.LoadChangedTopicName
	if loadTopic == "" {
		loadTopic = "load.changed"
	}
	notifTopic := cfg.Kafka.NotificationCreatedTopicName
	if notifTopic == "" {
		notifTopic = "notification.created"
	}
	group := cfg.LoadBoard.WorkerKafkaConsumerGroup
	if group == "" {
		group = "board-worker"
	}

	store, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	producer := f.newProducer(cfg)
	consumer := f.newConsumer(cfg, loadTopic, group)
	defer func() { _ = consumer.Close() }()

	svc := notifier.New(store, producer, notifTopic)

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr:    cfg.LoadBoard.WorkerHTTPAddr,
			swaggerPath: os.Getenv("swaggerPath"),
			onListen:    f.onHTTPListen,
			svc:         svc,
			group:       group,
			loadTopic:   loadTopic,
			notifTopic:  notifTopic,
		})
	}()

	go func() {
		slog.Info("kafka consumer started", "topic", loadTopic, "group", group)
		for ctx.Err() == nil {
			err := consumer.Consume(ctx, func(_topic string, _key, value []byte) error {
				var m messages.LoadChanged
				if err := json.Unmarshal(value, &m); err != nil {
					slog.Error("malformed load.changed", "error", err.Error())
					return nil // битое сообщение не станет целым при повторе
				}
				return svc.ApplyLoadChanged(ctx, m)
			})
			if err != nil && ctx.Err() == nil {
				slog.Error("kafka consume", "error", err.Error())
				time.Sleep(time.Second)
			}
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	}
}
