// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package events

import (
	"time"

	"github.com/google/uuid"
)

const TypeWebhookMessage = "webhook.message"

// Event is the base interface all events implement.
type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
}

type BaseEvent struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"occurred_at"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
	}
}

// WebhookMessage is a media server notification that another component has
// already parsed.
type WebhookMessage struct {
	BaseEvent
	Event     string `json:"event"`
	ItemName  string `json:"item_name"`
	ItemPath  string `json:"item_path"`
	ItemID    string `json:"item_id"`
	MediaType string `json:"media_type"`
}

func NewWebhookMessage(event, itemName, itemPath, itemID, mediaType string) *WebhookMessage {
	return &WebhookMessage{
		BaseEvent: NewBaseEvent(TypeWebhookMessage),
		Event:     event,
		ItemName:  itemName,
		ItemPath:  itemPath,
		ItemID:    itemID,
		MediaType: mediaType,
	}
}
