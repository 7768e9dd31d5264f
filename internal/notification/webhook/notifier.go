// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/embyclean/embyclean/internal/buildinfo"
	"github.com/embyclean/embyclean/internal/notification"
)

type payload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Notifier posts plain-text notifications as JSON to an arbitrary URL.
type Notifier struct {
	url        string
	httpClient *http.Client
	logger     zerolog.Logger
}

func New(url string, httpClient *http.Client, logger zerolog.Logger) *Notifier {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Notifier{
		url:        url,
		httpClient: httpClient,
		logger:     logger.With().Str("notifier", "webhook").Logger(),
	}
}

func (n *Notifier) Name() string {
	return "webhook"
}

func (n *Notifier) Send(ctx context.Context, msg notification.Message) error {
	body, err := json.Marshal(payload{
		Title:    notification.StripMarkup(msg.Title),
		Body:     msg.Plain(),
		ImageURL: msg.ImageURL,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.logger.Trace().Int("status", resp.StatusCode).Msg("webhook delivered")
	return nil
}
