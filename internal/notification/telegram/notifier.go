// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/embyclean/embyclean/internal/notification"
)

const (
	defaultAPIBase = "https://api.telegram.org/bot"
	// Telegram rejects photo captions above this length.
	maxCaptionLength = 1024
)

// ImageFetcher downloads the cover image referenced by a message.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, string, error)
}

type Settings struct {
	BotToken string
	ChatID   string
	APIBase  string
}

// Notifier sends notifications via a Telegram bot using HTML parse mode.
type Notifier struct {
	settings   Settings
	httpClient *http.Client
	images     ImageFetcher
	logger     zerolog.Logger
}

func New(settings Settings, httpClient *http.Client, images ImageFetcher, logger zerolog.Logger) *Notifier {
	if settings.APIBase == "" {
		settings.APIBase = defaultAPIBase
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Notifier{
		settings:   settings,
		httpClient: httpClient,
		images:     images,
		logger:     logger.With().Str("notifier", "telegram").Logger(),
	}
}

func (n *Notifier) Name() string {
	return "telegram"
}

// Send posts the message as a photo with caption when the cover image can be
// downloaded, otherwise as a text message.
func (n *Notifier) Send(ctx context.Context, msg notification.Message) error {
	text := msg.Body
	if text == "" {
		text = msg.Title
	}

	if msg.ImageURL != "" && n.images != nil && len([]rune(text)) <= maxCaptionLength {
		data, contentType, err := n.images.FetchImage(ctx, msg.ImageURL)
		if err != nil {
			n.logger.Debug().Err(err).Msg("cover image unavailable, sending text only")
			return n.sendMessage(ctx, text)
		}
		if err := n.sendPhoto(ctx, text, data, contentType); err != nil {
			n.logger.Warn().Err(err).Msg("sendPhoto failed, falling back to text message")
			return n.sendMessage(ctx, text)
		}
		return nil
	}

	return n.sendMessage(ctx, text)
}

func (n *Notifier) endpoint(method string) string {
	return fmt.Sprintf("%s%s/%s", n.settings.APIBase, n.settings.BotToken, method)
}

func (n *Notifier) sendMessage(ctx context.Context, text string) error {
	payload := map[string]any{
		"chat_id":    n.settings.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return n.do(req)
}

func (n *Notifier) sendPhoto(ctx context.Context, caption string, image []byte, contentType string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"chat_id":    n.settings.ChatID,
		"caption":    caption,
		"parse_mode": "HTML",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}

	part, err := w.CreateFormFile("photo", "cover"+extensionFor(contentType))
	if err != nil {
		return fmt.Errorf("failed to create photo part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return fmt.Errorf("failed to write photo: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint("sendPhoto"), &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return n.do(req)
}

func (n *Notifier) do(req *http.Request) error {
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result struct {
			OK          bool   `json:"ok"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&result); err == nil && result.Description != "" {
			return fmt.Errorf("telegram error: %s", result.Description)
		}
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	default:
		return ".jpg"
	}
}
