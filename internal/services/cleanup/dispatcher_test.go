// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleanup

import (
	"context"
	"testing"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embyclean/embyclean/internal/events"
)

func playbackPayload(path string) WebhookPayload {
	return WebhookPayload{
		Event: "playback.stop",
		Item:  &WebhookItem{Name: "Foo", Type: "Movie", Path: path, ID: "1"},
	}
}

func TestHandleWebhookStatuses(t *testing.T) {
	tests := []struct {
		name        string
		enabled     bool
		payload     WebhookPayload
		wantStatus  Status
		wantMessage string
		wantDeleted int
	}{
		{
			name:        "disabled",
			enabled:     false,
			payload:     playbackPayload("/media/movies/Foo.mkv"),
			wantStatus:  StatusError,
			wantMessage: "plugin disabled",
		},
		{
			name:        "non playback event",
			enabled:     true,
			payload:     WebhookPayload{Event: "library.new"},
			wantStatus:  StatusIgnored,
			wantMessage: "not a playback event: library.new",
		},
		{
			name:        "deleted",
			enabled:     true,
			payload:     playbackPayload("/media/movies/Foo.mkv"),
			wantStatus:  StatusSuccess,
			wantMessage: "deleted torrent: Foo.mkv",
			wantDeleted: 1,
		},
		{
			name:        "missing path",
			enabled:     true,
			payload:     playbackPayload(""),
			wantStatus:  StatusSuccess,
			wantMessage: "no file path in event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{torrents: []qbt.Torrent{{Name: "Foo.mkv", Hash: "h"}}}
			settings := moviesSettings()
			settings.Enabled = tt.enabled
			svc := newTestService(connectTo(client), &recordingNotifier{}, settings)

			resp := NewDispatcher(svc).HandleWebhook(context.Background(), tt.payload)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantMessage, resp.Message)
			assert.Len(t, client.deleted, tt.wantDeleted)
		})
	}
}

func TestHandleWebhookRecoversFromPanic(t *testing.T) {
	connector := ConnectFunc(func(context.Context) (TorrentClient, error) {
		panic("boom")
	})
	observer := newCountingObserver()
	svc := newTestService(connector, &recordingNotifier{}, moviesSettings())
	svc.SetObserver(observer)
	d := NewDispatcher(svc)

	resp := d.HandleWebhook(context.Background(), playbackPayload("/media/movies/Foo.mkv"))
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, 1, observer.events["webhook/error"])

	// The next event is processed normally.
	resp = d.HandleWebhook(context.Background(), playbackPayload(""))
	assert.Equal(t, StatusSuccess, resp.Status)
}

func TestConsumeProcessesBusEvents(t *testing.T) {
	client := &fakeClient{torrents: []qbt.Torrent{{Name: "Foo.mkv", Hash: "h"}}}
	notifier := &recordingNotifier{}
	observer := newCountingObserver()
	svc := newTestService(connectTo(client), notifier, moviesSettings())
	svc.SetObserver(observer)

	bus := events.NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	subscribed := make(chan struct{})
	go func() {
		defer close(done)
		close(subscribed)
		NewDispatcher(svc).Consume(ctx, bus, 8)
	}()
	<-subscribed

	publish := func(msg *events.WebhookMessage) {
		t.Helper()
		require.Eventually(t, func() bool {
			return bus.Publish(context.Background(), msg) == nil
		}, time.Second, 10*time.Millisecond)
	}

	publish(events.NewWebhookMessage("playback.start", "Foo", "/media/movies/Foo.mkv", "1", "Movie"))
	publish(events.NewWebhookMessage("playback.stop", "Foo", "/media/movies/Foo.mkv", "1", "Movie"))

	require.Eventually(t, func() bool {
		return len(svc.GetActivity(0)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	activity := svc.GetActivity(0)
	assert.Equal(t, SourceEventBus, activity[0].Source)
	assert.Equal(t, KindDeleted, activity[0].Kind)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Consume did not stop after cancel")
	}
}

func TestHandleMessageDisabledIsSilent(t *testing.T) {
	client := &fakeClient{torrents: []qbt.Torrent{{Name: "Foo.mkv", Hash: "h"}}}
	settings := moviesSettings()
	settings.Enabled = false
	observer := newCountingObserver()
	svc := newTestService(connectTo(client), &recordingNotifier{}, settings)
	svc.SetObserver(observer)

	NewDispatcher(svc).HandleMessage(context.Background(), events.NewWebhookMessage("playback.stop", "Foo", "/media/movies/Foo.mkv", "1", "Movie"))
	NewDispatcher(svc).HandleMessage(context.Background(), nil)

	assert.Empty(t, client.deleted)
	assert.Empty(t, svc.GetActivity(0))
	assert.Equal(t, 1, observer.events["event-bus/disabled"])
}

func TestConsumeStopsWhenBusCloses(t *testing.T) {
	svc := newTestService(connectTo(&fakeClient{}), &recordingNotifier{}, moviesSettings())
	bus := events.NewBus()

	done := make(chan struct{})
	go func() {
		defer close(done)
		NewDispatcher(svc).Consume(context.Background(), bus, 1)
	}()

	require.Eventually(t, func() bool {
		return bus.Publish(context.Background(), events.NewWebhookMessage("x", "", "", "", "")) == nil
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, bus.Close())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Consume did not stop after bus close")
	}
}
