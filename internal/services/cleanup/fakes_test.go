// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleanup

import (
	"context"
	"errors"
	"sync"

	qbt "github.com/autobrr/go-qbittorrent"

	"github.com/embyclean/embyclean/internal/notification"
)

type fakeClient struct {
	mu        sync.Mutex
	torrents  []qbt.Torrent
	files     map[string]qbt.TorrentFiles
	fileErrs  map[string]error
	listErr   error
	deleteErr error

	fileCalls   []string
	deleted     []string
	deleteFlags []bool
}

func (f *fakeClient) ListTorrents(context.Context) ([]qbt.Torrent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]qbt.Torrent, len(f.torrents))
	copy(out, f.torrents)
	return out, nil
}

func (f *fakeClient) TorrentFiles(_ context.Context, hash string) (qbt.TorrentFiles, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fileCalls = append(f.fileCalls, hash)
	if err := f.fileErrs[hash]; err != nil {
		return nil, err
	}
	return f.files[hash], nil
}

func (f *fakeClient) DeleteTorrent(_ context.Context, hash string, deleteFiles bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, hash)
	f.deleteFlags = append(f.deleteFlags, deleteFiles)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	kept := f.torrents[:0]
	for _, t := range f.torrents {
		if t.Hash != hash {
			kept = append(kept, t)
		}
	}
	f.torrents = kept
	return nil
}

func connectTo(c *fakeClient) Connector {
	return ConnectFunc(func(context.Context) (TorrentClient, error) {
		return c, nil
	})
}

func unreachable() Connector {
	return ConnectFunc(func(context.Context) (TorrentClient, error) {
		return nil, errors.New("dial tcp 127.0.0.1:8080: connect: connection refused")
	})
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Message
	err  error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Send(_ context.Context, msg notification.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

type stubImages struct {
	url string
	err error
}

func (s stubImages) ImageURL(context.Context, string) (string, error) {
	return s.url, s.err
}

type countingObserver struct {
	mu            sync.Mutex
	events        map[string]int
	cleanups      map[string]int
	notifications map[bool]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{
		events:        map[string]int{},
		cleanups:      map[string]int{},
		notifications: map[bool]int{},
	}
}

func (c *countingObserver) ObserveEvent(source, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[source+"/"+status]++
}

func (c *countingObserver) ObserveCleanup(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanups[kind]++
}

func (c *countingObserver) ObserveNotification(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications[success]++
}
