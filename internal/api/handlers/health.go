// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
)

// ReadinessCheck reports whether the service can take events.
type ReadinessCheck func() error

type HealthHandler struct {
	version string
	ready   ReadinessCheck
}

func NewHealthHandler(version string, ready ReadinessCheck) *HealthHandler {
	return &HealthHandler{version: version, ready: ready}
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": err.Error(),
			})
			return
		}
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
