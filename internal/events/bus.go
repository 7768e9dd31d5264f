// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package events

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrBusClosed    = errors.New("event bus closed")
	ErrNoSubscriber = errors.New("event was not delivered to any subscriber")
)

// Bus is an in-process pub/sub bus. Publishing never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
	allSubs     []chan Event
	logger      zerolog.Logger
	closed      bool
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string][]chan Event),
		logger:      log.With().Str("module", "events").Logger(),
	}
}

// Publish delivers e to every matching subscriber. It returns ErrBusClosed
// after Close, and ErrNoSubscriber when nobody received the event.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	delivered := 0
	for _, ch := range b.subscribers[e.EventType()] {
		select {
		case ch <- e:
			delivered++
		default:
			b.logger.Warn().
				Str("type", e.EventType()).
				Str("id", e.EventID()).
				Msg("subscriber channel full, dropping event")
		}
	}

	for _, ch := range b.allSubs {
		select {
		case ch <- e:
			delivered++
		default:
			b.logger.Warn().
				Str("type", e.EventType()).
				Msg("all-subscriber channel full, dropping event")
		}
	}

	if delivered == 0 {
		return ErrNoSubscriber
	}
	return nil
}

// Subscribe returns a channel for events of a specific type.
func (b *Bus) Subscribe(eventType string, bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

// SubscribeAll returns a channel for all events.
func (b *Bus) SubscribeAll(bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.allSubs = append(b.allSubs, ch)
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscribers {
		for i, sub := range subs {
			if sub == ch {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				close(sub)
				return
			}
		}
	}

	for i, sub := range b.allSubs {
		if sub == ch {
			b.allSubs = append(b.allSubs[:i], b.allSubs[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subscribers = nil

	for _, ch := range b.allSubs {
		close(ch)
	}
	b.allSubs = nil

	return nil
}
