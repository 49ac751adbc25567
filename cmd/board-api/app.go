package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/LoadBoard/internal/api/boardapi"
	"github.com/BearBump/LoadBoard/internal/broker/messages"
	"github.com/BearBump/LoadBoard/internal/realtime"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

type boardAPIOpts struct {
	httpAddr    string
	swaggerPath string

	loadTopic     string
	notifTopic    string
	consumerGroup string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(topic string, key, value []byte) error) error
}

func runBoardAPI(ctx context.Context, opts boardAPIOpts, api *boardapi.API, hub *realtime.Hub, consumer kafkaConsumer) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8080"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	if opts.swaggerPath != "" {
		if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
			return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
		}
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			http.ServeFile(w, r, opts.swaggerPath)
		})
		swaggerURL := "/swagger.json"
		if fi, err := os.Stat(opts.swaggerPath); err == nil {
			swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
		}
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))
	}

	r.Mount("/", api.Router())

	// Мост Kafka -> realtime hub: api-инстансы получают изменения друг
	// друга и уведомления воркера. Обработка идемпотентна, поэтому
	// повторная доставка безопасна.
	go func() {
		for ctx.Err() == nil {
			err := consumer.Consume(ctx, func(topic string, _key, value []byte) error {
				switch topic {
				case opts.loadTopic:
					var m messages.LoadChanged
					if err := json.Unmarshal(value, &m); err != nil {
						slog.Error("malformed load.changed", "error", err.Error())
						return nil // битое сообщение перечитывать бессмысленно
					}
					hub.Publish(realtime.Event{Kind: realtime.EventKindLoad, Load: &m})
				case opts.notifTopic:
					var m messages.NotificationCreated
					if err := json.Unmarshal(value, &m); err != nil {
						slog.Error("malformed notification.created", "error", err.Error())
						return nil
					}
					hub.Publish(realtime.Event{Kind: realtime.EventKindNotification, Notification: &m})
				}
				return nil
			})
			if err != nil && ctx.Err() == nil {
				slog.Error("kafka consume", "error", err.Error())
				time.Sleep(time.Second)
			}
		}
	}()
	slog.Info("kafka consumer started", "topics", []string{opts.loadTopic, opts.notifTopic}, "group", opts.consumerGroup)

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}
