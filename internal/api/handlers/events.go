// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/embyclean/embyclean/internal/events"
)

type EventsHandler struct {
	bus *events.Bus
}

func NewEventsHandler(bus *events.Bus) *EventsHandler {
	return &EventsHandler{bus: bus}
}

type webhookMessageRequest struct {
	Event     string `json:"event"`
	ItemName  string `json:"item_name"`
	ItemPath  string `json:"item_path"`
	ItemID    string `json:"item_id"`
	MediaType string `json:"media_type"`
}

type publishResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// PublishWebhookMessage puts a pre-parsed media server event on the bus.
func (h *EventsHandler) PublishWebhookMessage(w http.ResponseWriter, r *http.Request) {
	var req webhookMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody)).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("failed to decode webhook message")
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.Event == "" {
		RespondError(w, http.StatusBadRequest, "event is required")
		return
	}

	msg := events.NewWebhookMessage(req.Event, req.ItemName, req.ItemPath, req.ItemID, req.MediaType)
	if err := h.bus.Publish(r.Context(), msg); err != nil {
		if errors.Is(err, events.ErrBusClosed) || errors.Is(err, events.ErrNoSubscriber) {
			RespondError(w, http.StatusServiceUnavailable, "event bus is not accepting events")
			return
		}
		log.Error().Err(err).Msg("failed to publish webhook message")
		RespondError(w, http.StatusInternalServerError, "Failed to publish event")
		return
	}

	RespondJSON(w, http.StatusAccepted, publishResponse{Status: "queued", ID: msg.EventID()})
}
