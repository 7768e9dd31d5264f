// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/embyclean/embyclean/internal/config"
	"github.com/embyclean/embyclean/internal/domain"
	"github.com/embyclean/embyclean/internal/events"
	"github.com/embyclean/embyclean/internal/services/cleanup"
)

type routeKey struct {
	Method string
	Path   string
}

type emptyClient struct{}

func (emptyClient) ListTorrents(context.Context) ([]qbt.Torrent, error) { return nil, nil }
func (emptyClient) TorrentFiles(context.Context, string) (qbt.TorrentFiles, error) {
	return nil, nil
}
func (emptyClient) DeleteTorrent(context.Context, string, bool) error { return nil }

func newTestDependencies(t *testing.T, cfg *domain.Config) *Dependencies {
	t.Helper()

	connector := cleanup.ConnectFunc(func(context.Context) (cleanup.TorrentClient, error) {
		return emptyClient{}, nil
	})
	svc := cleanup.NewService(cleanup.DefaultConfig(), cleanup.Settings{
		Enabled: true,
		Library: cleanup.LibraryFilter{All: true},
	}, connector, nil, nil)

	bus := events.NewBus()
	t.Cleanup(func() { _ = bus.Close() })

	return &Dependencies{
		Config:     &config.AppConfig{Config: cfg},
		Version:    "test",
		Dispatcher: cleanup.NewDispatcher(svc),
		Service:    svc,
		Bus:        bus,
	}
}

func TestAllEndpointsDocumented(t *testing.T) {
	server := NewServer(newTestDependencies(t, &domain.Config{BaseURL: "/"}))
	router, err := server.Handler()
	require.NoError(t, err)

	actualRoutes := collectRouterRoutes(t, router)
	documentedRoutes := loadDocumentedRoutes(t)

	undocumented := diffRoutes(actualRoutes, documentedRoutes)
	if len(undocumented) > 0 {
		t.Fatalf("found %d undocumented API endpoints:\n%s", len(undocumented), formatRoutes(undocumented))
	}

	missingHandlers := diffRoutes(documentedRoutes, actualRoutes)
	if len(missingHandlers) > 0 {
		t.Fatalf("found %d documented endpoints without handlers:\n%s", len(missingHandlers), formatRoutes(missingHandlers))
	}

	t.Logf("checked %d API routes registered in chi", len(actualRoutes))
}

func TestHandlerRequiresDispatcher(t *testing.T) {
	server := NewServer(&Dependencies{Config: &config.AppConfig{Config: &domain.Config{}}})
	_, err := server.Handler()
	require.Error(t, err)
}

func TestWebhookTokenEnforced(t *testing.T) {
	server := NewServer(newTestDependencies(t, &domain.Config{BaseURL: "/", WebhookToken: "secret"}))
	router, err := server.Handler()
	require.NoError(t, err)

	body := `{"Event":"playback.start"}`

	tests := []struct {
		name     string
		target   string
		header   string
		wantCode int
	}{
		{name: "missing token", target: "/process_webhook", wantCode: http.StatusUnauthorized},
		{name: "wrong token", target: "/process_webhook", header: "nope", wantCode: http.StatusUnauthorized},
		{name: "header token", target: "/process_webhook", header: "secret", wantCode: http.StatusOK},
		{name: "query token", target: "/process_webhook?apikey=secret", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(body))
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestBaseURLPrefixesRoutes(t *testing.T) {
	server := NewServer(newTestDependencies(t, &domain.Config{BaseURL: "/cleanup/"}))
	router, err := server.Handler()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/cleanup/process_webhook", strings.NewReader(`{"Event":"library.new"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cleanup/api/activity", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func collectRouterRoutes(t *testing.T, r chi.Routes) map[routeKey]struct{} {
	t.Helper()

	routes := make(map[routeKey]struct{})
	err := chi.Walk(r, func(method string, path string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		method = strings.ToUpper(method)
		if !isComparableMethod(method) {
			return nil
		}

		normalizedPath, ok := normalizeRoutePath(path)
		if !ok {
			return nil
		}

		routes[routeKey{Method: method, Path: normalizedPath}] = struct{}{}
		return nil
	})
	require.NoError(t, err)

	return routes
}

func loadDocumentedRoutes(t *testing.T) map[routeKey]struct{} {
	t.Helper()

	specBytes, err := GetOpenAPISpec()
	require.NoError(t, err)
	require.NotEmpty(t, specBytes, "OpenAPI spec should be embedded")

	var spec map[string]any
	require.NoError(t, yaml.Unmarshal(specBytes, &spec))

	pathsNode, ok := spec["paths"].(map[string]any)
	require.True(t, ok, "OpenAPI spec missing paths section")

	routes := make(map[routeKey]struct{})

	for path, pathItem := range pathsNode {
		normalizedPath, ok := normalizeRoutePath(path)
		if !ok {
			continue
		}

		methods, ok := pathItem.(map[string]any)
		if !ok {
			continue
		}

		for method := range methods {
			upperMethod := strings.ToUpper(method)
			if !isComparableMethod(upperMethod) {
				continue
			}

			routes[routeKey{Method: upperMethod, Path: normalizedPath}] = struct{}{}
		}
	}

	return routes
}

func normalizeRoutePath(path string) (string, bool) {
	if path == "" {
		return "", false
	}

	if strings.Contains(path, "/*") {
		return "", false
	}

	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	if path == "/api/openapi.yaml" {
		return "", false
	}

	if !strings.HasPrefix(path, "/api") && !strings.HasPrefix(path, "/health") && path != "/process_webhook" {
		return "", false
	}

	return path, true
}

func isComparableMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func diffRoutes(left, right map[routeKey]struct{}) []routeKey {
	diff := make([]routeKey, 0)
	for route := range left {
		if _, exists := right[route]; !exists {
			diff = append(diff, route)
		}
	}

	sort.Slice(diff, func(i, j int) bool {
		if diff[i].Path == diff[j].Path {
			return diff[i].Method < diff[j].Method
		}
		return diff[i].Path < diff[j].Path
	})

	return diff
}

func formatRoutes(routes []routeKey) string {
	lines := make([]string, len(routes))
	for i, route := range routes {
		lines[i] = fmt.Sprintf("%s %s", route.Method, route.Path)
	}
	return strings.Join(lines, "\n")
}
