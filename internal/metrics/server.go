// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidBasicAuthUsers = errors.New("invalid metricsBasicAuthUsers entry")

// Server exposes the collector on its own listener.
type Server struct {
	server *http.Server
}

// NewServer builds the metrics server. basicAuthUsers is a comma separated
// list of user:bcrypt-hash pairs; when empty the endpoint is unauthenticated.
func NewServer(host string, port int, basicAuthUsers string, collector *Collector) (*Server, error) {
	users, err := ParseBasicAuthUsers(basicAuthUsers)
	if err != nil {
		return nil, err
	}

	return &Server{
		server: &http.Server{
			Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
			Handler:           NewHandler(collector, users),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func NewHandler(collector *Collector, users map[string][]byte) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		if len(users) > 0 {
			r.Use(basicAuth(users))
		}
		r.Handle("/metrics", collector.Handler())
	})

	return r
}

func (s *Server) Addr() string {
	return s.server.Addr
}

func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ParseBasicAuthUsers parses "user:hash,user2:hash2".
func ParseBasicAuthUsers(raw string) (map[string][]byte, error) {
	users := make(map[string][]byte)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		user, hash, ok := strings.Cut(entry, ":")
		if !ok || user == "" || hash == "" {
			return nil, errors.Wrapf(ErrInvalidBasicAuthUsers, "%q", user)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, errors.Wrapf(ErrInvalidBasicAuthUsers, "%q: %v", user, err)
		}
		users[user] = []byte(hash)
	}
	return users, nil
}

func basicAuth(users map[string][]byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if ok {
				if hash, exists := users[user]; exists && bcrypt.CompareHashAndPassword(hash, []byte(pass)) == nil {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		})
	}
}
