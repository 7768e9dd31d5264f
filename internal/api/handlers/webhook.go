// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/embyclean/embyclean/internal/services/cleanup"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	dispatcher *cleanup.Dispatcher
}

func NewWebhookHandler(dispatcher *cleanup.Dispatcher) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher}
}

// ProcessWebhook accepts a JSON body, or the multipart form with a "data"
// field that Emby's built-in webhooks send.
func (h *WebhookHandler) ProcessWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := readWebhookBody(w, r)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read webhook body")
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	payload, err := cleanup.ParseWebhookBody(body)
	if err != nil {
		log.Warn().Err(err).Msg("failed to decode webhook body")
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	// A pipeline run is not abandoned when the caller hangs up.
	ctx := context.WithoutCancel(r.Context())

	RespondJSON(w, http.StatusOK, h.dispatcher.HandleWebhook(ctx, payload))
}

func readWebhookBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		if err := r.ParseMultipartForm(maxWebhookBody); err != nil {
			return nil, err
		}
		return []byte(r.FormValue("data")), nil
	case mediaType == "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return []byte(r.PostFormValue("data")), nil
	default:
		return io.ReadAll(r.Body)
	}
}
