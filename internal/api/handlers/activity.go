// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/embyclean/embyclean/internal/services/cleanup"
)

type ActivityHandler struct {
	svc *cleanup.Service
}

func NewActivityHandler(svc *cleanup.Service) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// GetActivity returns recent pipeline runs, newest last.
func (h *ActivityHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		RespondJSON(w, http.StatusOK, []cleanup.ActivityEvent{})
		return
	}
	limitParam := strings.TrimSpace(r.URL.Query().Get("limit"))
	var limit int
	if limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	activity := h.svc.GetActivity(limit)
	if activity == nil {
		activity = []cleanup.ActivityEvent{}
	}
	RespondJSON(w, http.StatusOK, activity)
}
