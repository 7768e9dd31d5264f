// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleanup

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/embyclean/embyclean/internal/events"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusIgnored Status = "ignored"
	StatusError   Status = "error"
)

const (
	MessageDisabled = "plugin disabled"
	messageInternal = "internal error while processing event"
)

// Response is returned to webhook callers.
type Response struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Dispatcher is the entry point for inbound events. It never lets a failure
// in one event escape into the caller.
type Dispatcher struct {
	svc *Service
	log zerolog.Logger
}

func NewDispatcher(svc *Service) *Dispatcher {
	return &Dispatcher{
		svc: svc,
		log: log.With().Str("module", "dispatcher").Logger(),
	}
}

// HandleWebhook processes an inbound webhook body synchronously.
func (d *Dispatcher) HandleWebhook(ctx context.Context, payload WebhookPayload) Response {
	if !d.svc.Settings().Enabled {
		d.svc.observer.ObserveEvent(SourceWebhook, "disabled")
		return Response{Status: StatusError, Message: MessageDisabled}
	}

	kind := ParseEventKind(payload.Event)
	if !kind.Actionable() {
		d.log.Debug().Str("event", payload.Event).Msg("ignoring non-playback event")
		d.svc.observer.ObserveEvent(SourceWebhook, string(StatusIgnored))
		return Response{Status: StatusIgnored, Message: fmt.Sprintf("not a playback event: %s", payload.Event)}
	}

	d.log.Info().Str("event", payload.Event).Msg("received playback event")

	result, err := d.run(ctx, FromWebhookPayload(payload))
	if err != nil {
		d.svc.observer.ObserveEvent(SourceWebhook, string(StatusError))
		return Response{Status: StatusError, Message: messageInternal}
	}

	d.svc.observer.ObserveEvent(SourceWebhook, string(StatusSuccess))
	return Response{Status: StatusSuccess, Message: describe(result)}
}

// HandleMessage processes one bus event. Disabled, ignored and failed events
// are only logged.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg *events.WebhookMessage) {
	if msg == nil {
		return
	}
	if !d.svc.Settings().Enabled {
		d.svc.observer.ObserveEvent(SourceEventBus, "disabled")
		return
	}

	event := FromWebhookMessage(msg)
	if !event.Kind.Actionable() {
		d.svc.observer.ObserveEvent(SourceEventBus, string(StatusIgnored))
		return
	}

	d.log.Info().Str("event", msg.Event).Str("id", msg.EventID()).Msg("received playback event from bus")

	if _, err := d.run(ctx, event); err != nil {
		d.svc.observer.ObserveEvent(SourceEventBus, string(StatusError))
		return
	}
	d.svc.observer.ObserveEvent(SourceEventBus, string(StatusSuccess))
}

// Consume subscribes to webhook messages on bus and handles them one at a
// time until ctx is done or the bus is closed.
func (d *Dispatcher) Consume(ctx context.Context, bus *events.Bus, bufferSize int) {
	ch := bus.Subscribe(events.TypeWebhookMessage, bufferSize)
	defer bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			msg, ok := e.(*events.WebhookMessage)
			if !ok {
				d.log.Warn().Str("type", e.EventType()).Msg("unexpected event on webhook subscription")
				continue
			}
			d.HandleMessage(ctx, msg)
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, event ItemEvent) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Str("source", event.Source).
				Str("path", event.FilePath).
				Msg("recovered from panic while processing event")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.svc.Run(ctx, event), nil
}

func describe(r Result) string {
	switch r.Kind {
	case KindMissingPath:
		return "no file path in event"
	case KindOutOfScope:
		return "item is not in the target library"
	case KindDeleted:
		if r.Outcome != nil && r.Outcome.Task != nil {
			return "deleted torrent: " + r.Outcome.Task.Name
		}
		return "deleted torrent"
	default:
		if r.Outcome != nil && r.Outcome.FailureReason != "" {
			return r.Outcome.FailureReason
		}
		return r.Kind.String()
	}
}
