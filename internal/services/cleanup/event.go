// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleanup

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/embyclean/embyclean/internal/events"
)

type EventKind int

const (
	EventOther EventKind = iota
	EventPlaybackStop
	EventItemPlayed
	EventItemMarkedPlayed
)

var eventKindNames = map[string]EventKind{
	"playback.stop":   EventPlaybackStop,
	"item.played":     EventItemPlayed,
	"item.markplayed": EventItemMarkedPlayed,
}

// ParseEventKind maps a media server event name. Unknown names map to EventOther.
func ParseEventKind(name string) EventKind {
	if kind, ok := eventKindNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return kind
	}
	return EventOther
}

func (k EventKind) Actionable() bool {
	return k != EventOther
}

func (k EventKind) String() string {
	switch k {
	case EventPlaybackStop:
		return "playback.stop"
	case EventItemPlayed:
		return "item.played"
	case EventItemMarkedPlayed:
		return "item.markplayed"
	default:
		return "other"
	}
}

const (
	SourceWebhook  = "webhook"
	SourceEventBus = "event-bus"
	SourceCLI      = "cli"
)

// ItemEvent is the normalized form of a playback completion signal.
type ItemEvent struct {
	Kind     EventKind
	Source   string
	ItemID   string
	ItemName string
	ItemType string
	FilePath string
	// LibraryHints are candidate library names; the first non-empty one wins.
	LibraryHints []string
}

// LibraryHint returns the first non-empty library hint.
func (e ItemEvent) LibraryHint() string {
	for _, hint := range e.LibraryHints {
		if strings.TrimSpace(hint) != "" {
			return hint
		}
	}
	return ""
}

func (e ItemEvent) DisplayName() string {
	return orUnknown(e.ItemName)
}

func (e ItemEvent) DisplayType() string {
	return orUnknown(e.ItemType)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

// WebhookPayload is the JSON body Emby posts to process_webhook.
type WebhookPayload struct {
	Event string       `json:"Event"`
	Item  *WebhookItem `json:"Item"`
}

type WebhookItem struct {
	Name           string          `json:"Name"`
	Type           string          `json:"Type"`
	Path           string          `json:"Path"`
	ID             FlexString      `json:"Id"`
	CollectionType *string         `json:"CollectionType"`
	LibraryName    string          `json:"LibraryName"`
	Library        *WebhookLibrary `json:"library"`
}

type WebhookLibrary struct {
	Name string `json:"Name"`
}

// FlexString accepts a JSON string or number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// FromWebhookPayload normalizes an inbound webhook body.
func FromWebhookPayload(p WebhookPayload) ItemEvent {
	ev := ItemEvent{
		Kind:   ParseEventKind(p.Event),
		Source: SourceWebhook,
	}
	if p.Item == nil {
		return ev
	}

	item := p.Item
	ev.ItemID = string(item.ID)
	ev.ItemName = item.Name
	ev.ItemType = item.Type
	ev.FilePath = strings.TrimSpace(item.Path)

	// A CollectionType marks the item itself as a library folder, so its own
	// name is the library name.
	if item.CollectionType != nil {
		ev.LibraryHints = append(ev.LibraryHints, item.Name)
	}
	ev.LibraryHints = append(ev.LibraryHints, item.LibraryName)
	if item.Library != nil {
		ev.LibraryHints = append(ev.LibraryHints, item.Library.Name)
	}
	return ev
}

// FromWebhookMessage normalizes a pre-parsed bus event. Bus events carry no
// library metadata.
func FromWebhookMessage(m *events.WebhookMessage) ItemEvent {
	if m == nil {
		return ItemEvent{Kind: EventOther, Source: SourceEventBus}
	}
	return ItemEvent{
		Kind:     ParseEventKind(m.Event),
		Source:   SourceEventBus,
		ItemID:   m.ItemID,
		ItemName: m.ItemName,
		ItemType: m.MediaType,
		FilePath: strings.TrimSpace(m.ItemPath),
	}
}

// ParseWebhookBody decodes a webhook body.
func ParseWebhookBody(body []byte) (WebhookPayload, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return WebhookPayload{}, err
	}
	return p, nil
}
