// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package emby

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/embyclean/embyclean/internal/buildinfo"
)

const (
	authorizationHeader = "MediaBrowser Client=EmbyCleanup, Device=Server, DeviceId=1, Version=1.0.0"
	maxImageBytes       = 10 << 20
)

var (
	ErrNoCredentials = errors.New("emby credentials are not configured")
	ErrEmptyToken    = errors.New("emby returned an empty access token")
	ErrImageTooLarge = errors.New("emby image exceeds size limit")
)

// HTTPDoer describes the HTTP client used to talk to Emby.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	Host     string
	APIKey   string
	Username string
	Password string
	Timeout  time.Duration
}

type Client struct {
	host     string
	apiKey   string
	username string
	password string
	timeout  time.Duration
	http     HTTPDoer
	log      zerolog.Logger
}

func NewClient(cfg Config, doer HTTPDoer) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if doer == nil {
		doer = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		host:     strings.TrimRight(strings.TrimSpace(cfg.Host), "/"),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		username: strings.TrimSpace(cfg.Username),
		password: cfg.Password,
		timeout:  cfg.Timeout,
		http:     doer,
		log:      log.With().Str("module", "emby").Logger(),
	}
}

type authenticateRequest struct {
	Username string `json:"Username"`
	Pw       string `json:"Pw"`
}

type authenticateResponse struct {
	AccessToken string `json:"AccessToken"`
}

// Token returns the configured API key, or a session token obtained with the
// configured username and password.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	if c.host == "" || c.username == "" {
		return "", ErrNoCredentials
	}

	body, err := json.Marshal(authenticateRequest{Username: c.username, Pw: c.password})
	if err != nil {
		return "", fmt.Errorf("encode emby auth request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/emby/Users/AuthenticateByName", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build emby auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Emby-Authorization", authorizationHeader)
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("authenticate with emby: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("emby authentication returned %d", resp.StatusCode)
	}

	var auth authenticateResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", fmt.Errorf("decode emby auth response: %w", err)
	}
	if auth.AccessToken == "" {
		return "", ErrEmptyToken
	}

	c.log.Debug().Str("username", c.username).Msg("Obtained emby access token")
	return auth.AccessToken, nil
}

// PrimaryImageURL builds the URL of an item's primary image.
func (c *Client) PrimaryImageURL(itemID, token string) string {
	if c.host == "" || itemID == "" || token == "" {
		return ""
	}
	return fmt.Sprintf("%s/emby/Items/%s/Images/Primary?api_key=%s",
		c.host, url.PathEscape(itemID), url.QueryEscape(token))
}

// ImageURL resolves a token and returns the primary image URL for itemID.
func (c *Client) ImageURL(ctx context.Context, itemID string) (string, error) {
	if itemID == "" {
		return "", nil
	}
	token, err := c.Token(ctx)
	if err != nil {
		return "", err
	}
	return c.PrimaryImageURL(itemID, token), nil
}

// FetchImage downloads an image, returning its bytes and content type.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image request returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, "", ErrImageTooLarge
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}
