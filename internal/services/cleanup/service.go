// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleanup

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/embyclean/embyclean/internal/domain"
	"github.com/embyclean/embyclean/internal/notification"
)

// Config controls call timeouts and history retention.
type Config struct {
	RequestTimeout time.Duration
	HistorySize    int
}

func DefaultConfig() Config {
	return Config{
		RequestTimeout: 30 * time.Second,
		HistorySize:    defaultHistorySize,
	}
}

// Settings is the user-facing behaviour of the pipeline. A Service always
// works from one immutable snapshot per run.
type Settings struct {
	Enabled          bool
	Library          LibraryFilter
	DeleteFiles      bool
	SendNotification bool
}

func SettingsFromConfig(cfg domain.Config) Settings {
	return Settings{
		Enabled:          cfg.Enabled,
		Library:          LibraryFilter{Target: cfg.TargetLibrary, All: cfg.AllLibraries},
		DeleteFiles:      cfg.DeleteFiles,
		SendNotification: cfg.SendNotification,
	}
}

// ImageResolver builds the cover image URL for a media item.
type ImageResolver interface {
	ImageURL(ctx context.Context, itemID string) (string, error)
}

// Observer receives pipeline and dispatch counters.
type Observer interface {
	ObserveEvent(source, status string)
	ObserveCleanup(kind string)
	ObserveNotification(success bool)
}

type nopObserver struct{}

func (nopObserver) ObserveEvent(string, string) {}
func (nopObserver) ObserveCleanup(string)       {}
func (nopObserver) ObserveNotification(bool)    {}

// Result describes a completed pipeline run.
type Result struct {
	Kind        Kind
	Outcome     *Outcome
	Message     *notification.Message
	Notified    bool
	NotifyError error
}

// Service runs the cleanup pipeline for individual item events.
type Service struct {
	cfg       Config
	settings  atomic.Pointer[Settings]
	connector Connector
	images    ImageResolver
	notifier  notification.Notifier
	observer  Observer
	log       zerolog.Logger
	now       func() time.Time

	history    []ActivityEvent
	historyMu  sync.RWMutex
	historyCap int
}

func NewService(cfg Config, settings Settings, connector Connector, images ImageResolver, notifier notification.Notifier) *Service {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}
	if notifier == nil {
		notifier = notification.Nop{}
	}
	svc := &Service{
		cfg:        cfg,
		connector:  connector,
		images:     images,
		notifier:   notifier,
		observer:   nopObserver{},
		log:        log.With().Str("module", "cleanup").Logger(),
		now:        time.Now,
		historyCap: cfg.HistorySize,
	}
	svc.UpdateSettings(settings)
	return svc
}

// SetObserver installs a metrics observer. Nil restores the no-op observer.
func (s *Service) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	s.observer = o
}

// UpdateSettings atomically replaces the settings used by subsequent runs.
func (s *Service) UpdateSettings(settings Settings) {
	if settings.Enabled && !settings.Library.Configured() {
		s.log.Warn().Msg("no target library configured and allLibraries is off; every event will be skipped")
	}
	s.settings.Store(&settings)
}

func (s *Service) Settings() Settings {
	if p := s.settings.Load(); p != nil {
		return *p
	}
	return Settings{}
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.RequestTimeout)
}

// Run executes the pipeline for one event and always returns; failures are
// reported in the Result.
func (s *Service) Run(ctx context.Context, event ItemEvent) Result {
	settings := s.Settings()
	logger := s.log.With().
		Str("source", event.Source).
		Str("event", event.Kind.String()).
		Str("item", event.DisplayName()).
		Logger()

	if event.FilePath == "" {
		logger.Info().Msg("event has no file path, skipping")
		return s.finish(event, Result{Kind: KindMissingPath}, false)
	}

	if !settings.Library.Matches(event) {
		logger.Info().
			Str("library", event.LibraryHint()).
			Str("path", event.FilePath).
			Str("target", settings.Library.String()).
			Msg("item is outside the monitored library, skipping")
		return s.finish(event, Result{Kind: KindOutOfScope}, false)
	}

	imageURL := s.resolveImage(ctx, event, logger)

	match, client := s.match(ctx, event.FilePath, logger)

	var outcome Outcome
	if match.Found() {
		deleteCtx, cancel := s.callContext(ctx)
		outcome = Terminate(deleteCtx, client, match.Torrent, settings.DeleteFiles)
		cancel()
	} else {
		outcome = Unresolved(match)
	}

	switch outcome.Kind {
	case KindDeleted:
		logger.Info().
			Str("torrent", outcome.Task.Name).
			Str("hash", outcome.Task.Hash).
			Str("stage", string(match.Stage)).
			Bool("deleteFiles", settings.DeleteFiles).
			Msg("torrent deleted")
	case KindDeletionFailed:
		logger.Error().
			Str("torrent", outcome.Task.Name).
			Str("hash", outcome.Task.Hash).
			Str("reason", outcome.FailureReason).
			Msg("torrent deletion failed")
	default:
		logger.Warn().
			Str("kind", outcome.Kind.String()).
			Str("path", event.FilePath).
			Str("reason", outcome.FailureReason).
			Msg("no torrent removed")
	}

	msg := Format(event, outcome, imageURL)
	result := Result{Kind: outcome.Kind, Outcome: &outcome, Message: &msg}

	if settings.SendNotification {
		if err := s.notify(ctx, msg); err != nil {
			logger.Error().Err(err).Str("kind", KindNotifyFailed.String()).Str("notifier", s.notifier.Name()).Msg("failed to send notification")
			result.NotifyError = err
		} else {
			result.Notified = true
		}
	}

	return s.finish(event, result, settings.SendNotification)
}

// Match resolves filePath against a freshly fetched torrent listing without
// deleting anything.
func (s *Service) Match(ctx context.Context, filePath string) MatchResult {
	match, _ := s.match(ctx, filePath, s.log)
	return match
}

func (s *Service) match(ctx context.Context, filePath string, logger zerolog.Logger) (MatchResult, TorrentClient) {
	if s.connector == nil {
		logger.Error().Msg("no download client configured")
		return ClientUnavailable(""), nil
	}

	connectCtx, cancel := s.callContext(ctx)
	client, err := s.connector.Connect(connectCtx)
	cancel()
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to download client")
		return ClientUnavailable(""), nil
	}

	listCtx, cancel := s.callContext(ctx)
	torrents, err := client.ListTorrents(listCtx)
	cancel()
	if err != nil {
		logger.Error().Err(err).Msg("failed to list torrents")
		return ClientUnavailable(""), nil
	}

	logger.Debug().Int("torrents", len(torrents)).Str("filename", Basename(filePath)).Msg("resolving torrent")
	return Resolve(ctx, filePath, torrents, boundedFiles{client: client, timeout: s.cfg.RequestTimeout}), client
}

func (s *Service) resolveImage(ctx context.Context, event ItemEvent, logger zerolog.Logger) string {
	if s.images == nil || event.ItemID == "" {
		return ""
	}
	imgCtx, cancel := s.callContext(ctx)
	defer cancel()

	url, err := s.images.ImageURL(imgCtx, event.ItemID)
	if err != nil {
		logger.Warn().Err(err).Str("itemId", event.ItemID).Msg("failed to resolve cover image")
		return ""
	}
	return url
}

func (s *Service) notify(ctx context.Context, msg notification.Message) error {
	notifyCtx, cancel := s.callContext(ctx)
	defer cancel()
	return s.notifier.Send(notifyCtx, msg)
}

func (s *Service) finish(event ItemEvent, result Result, attemptedNotify bool) Result {
	s.recordActivity(event, result)
	s.observer.ObserveCleanup(result.Kind.String())
	if attemptedNotify {
		s.observer.ObserveNotification(result.Notified)
	}
	return result
}

// boundedFiles applies the per-call timeout to each file listing.
type boundedFiles struct {
	client  FileLister
	timeout time.Duration
}

func (b boundedFiles) TorrentFiles(ctx context.Context, hash string) (qbt.TorrentFiles, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.client.TorrentFiles(ctx, hash)
}
