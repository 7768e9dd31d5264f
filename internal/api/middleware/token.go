// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

const (
	APIKeyHeader = "X-API-Key"
	APIKeyQuery  = "apikey"
)

// RequireToken rejects requests whose X-API-Key header or apikey query
// parameter does not equal the current token. An empty token disables the check.
func RequireToken(current func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := current()
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(APIKeyHeader)
			if provided == "" {
				provided = r.URL.Query().Get(APIKeyQuery)
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"status":  "error",
					"message": "unauthorized",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
