// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireToken(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		header   string
		query    string
		wantCode int
	}{
		{name: "disabled", token: "", wantCode: http.StatusNoContent},
		{name: "missing", token: "s3cret", wantCode: http.StatusUnauthorized},
		{name: "wrong header", token: "s3cret", header: "nope", wantCode: http.StatusUnauthorized},
		{name: "header", token: "s3cret", header: "s3cret", wantCode: http.StatusNoContent},
		{name: "query", token: "s3cret", query: "s3cret", wantCode: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireToken(func() string { return tt.token })(okHandler())

			target := "/process_webhook"
			if tt.query != "" {
				target += "?apikey=" + tt.query
			}
			req := httptest.NewRequest(http.MethodPost, target, nil)
			if tt.header != "" {
				req.Header.Set(APIKeyHeader, tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestLoggerPassesThrough(t *testing.T) {
	h := Logger(zerolog.Nop())(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
