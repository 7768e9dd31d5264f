// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/embyclean/embyclean/internal/api"
	"github.com/embyclean/embyclean/internal/buildinfo"
	"github.com/embyclean/embyclean/internal/config"
	"github.com/embyclean/embyclean/internal/domain"
	"github.com/embyclean/embyclean/internal/emby"
	"github.com/embyclean/embyclean/internal/events"
	"github.com/embyclean/embyclean/internal/metrics"
	"github.com/embyclean/embyclean/internal/notification"
	"github.com/embyclean/embyclean/internal/notification/telegram"
	"github.com/embyclean/embyclean/internal/notification/webhook"
	"github.com/embyclean/embyclean/internal/qbittorrent"
	"github.com/embyclean/embyclean/internal/services/cleanup"
)

const busBufferSize = 64

type Application struct {
	configDir string
	logPath   string
}

func NewApplication(configDir, logPath string) *Application {
	return &Application{
		configDir: configDir,
		logPath:   logPath,
	}
}

func (app *Application) runServer() error {
	if app.logPath != "" {
		os.Setenv("EMBYCLEAN__LOG_PATH", app.logPath)
	}

	cfg, err := config.New(app.configDir, buildinfo.Version)
	if err != nil {
		return errors.Wrap(err, "failed to initialize configuration")
	}

	log.Info().
		Str("version", buildinfo.Version).
		Str("configDir", cfg.GetConfigDir()).
		Msg("Starting embyclean")

	current := cfg.Current()
	httpClient := &http.Client{Timeout: cfg.RequestTimeout()}

	var images cleanup.ImageResolver
	var embyClient *emby.Client
	if current.EmbyHost != "" {
		embyClient = emby.NewClient(emby.Config{
			Host:     current.EmbyHost,
			APIKey:   current.EmbyAPIKey,
			Username: current.EmbyUsername,
			Password: current.EmbyPassword,
			Timeout:  cfg.RequestTimeout(),
		}, httpClient)
		images = embyClient
	}

	svc := cleanup.NewService(
		cleanup.Config{RequestTimeout: cfg.RequestTimeout()},
		cleanup.SettingsFromConfig(current),
		newConnector(cfg),
		images,
		newNotifier(current, httpClient, embyClient),
	)

	var collector *metrics.Collector
	if current.MetricsEnabled {
		collector = metrics.NewCollector()
		svc.SetObserver(collector)
	}

	cfg.RegisterReloadListener(func(next *domain.Config) {
		svc.UpdateSettings(cleanup.SettingsFromConfig(*next))
		log.Info().Msg("Cleanup settings reloaded")
	})

	bus := events.NewBus()
	dispatcher := cleanup.NewDispatcher(svc)

	httpServer := api.NewServer(&api.Dependencies{
		Config:     cfg,
		Version:    buildinfo.Version,
		Dispatcher: dispatcher,
		Service:    svc,
		Bus:        bus,
		Ready: func() error {
			if !svc.Settings().Enabled {
				return errors.New("cleanup is disabled")
			}
			return nil
		},
	})

	var metricsServer *metrics.Server
	if collector != nil {
		metricsServer, err = metrics.NewServer(current.MetricsHost, current.MetricsPort, current.MetricsBasicAuthUsers, collector)
		if err != nil {
			return errors.Wrap(err, "failed to configure metrics server")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		dispatcher.Consume(gctx, bus, busBufferSize)
		return nil
	})

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			log.Info().Str("addr", metricsServer.Addr()).Msg("Starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "metrics server")
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("got error during graceful http shutdown")
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("got error during metrics server shutdown")
			}
		}
		return bus.Close()
	})

	return g.Wait()
}

// newConnector reads the current qBittorrent settings on every run so a
// config reload takes effect without a restart.
func newConnector(cfg *config.AppConfig) cleanup.Connector {
	return cleanup.ConnectFunc(func(ctx context.Context) (cleanup.TorrentClient, error) {
		current := cfg.Current()
		connector := qbittorrent.NewConnector(qbittorrent.Config{
			Host:          current.QBHost,
			Username:      current.QBUsername,
			Password:      current.QBPassword,
			BasicUsername: current.QBBasicUsername,
			BasicPassword: current.QBBasicPassword,
			TLSSkipVerify: current.QBTLSSkipVerify,
			Timeout:       cfg.RequestTimeout(),
		})
		client, err := connector.Connect(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil
	})
}

func newNotifier(cfg domain.Config, httpClient *http.Client, embyClient *emby.Client) notification.Notifier {
	var notifiers []notification.Notifier

	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		var images telegram.ImageFetcher
		if embyClient != nil {
			images = embyClient
		}
		notifiers = append(notifiers, telegram.New(telegram.Settings{
			BotToken: cfg.TelegramToken,
			ChatID:   cfg.TelegramChatID,
		}, httpClient, images, log.With().Str("module", "telegram").Logger()))
	}

	if cfg.NotifyWebhookURL != "" {
		notifiers = append(notifiers, webhook.New(cfg.NotifyWebhookURL, httpClient, log.With().Str("module", "notify-webhook").Logger()))
	}

	if len(notifiers) == 0 {
		log.Info().Msg("No notifier configured; cleanup results are only logged")
	}

	return notification.Combine(notifiers...)
}
