// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	// torrents/files and per-hash deletion both arrived with the v2 WebAPI.
	minWebAPIVersion = semver.MustParse("2.0.0")

	ErrUnsupportedVersion = errors.New("unsupported qBittorrent WebAPI version")
	ErrEmptyFilesResponse = errors.New("empty torrent files response")
)

const defaultTimeout = 30 * time.Second

// Config describes how to reach a single qBittorrent instance.
type Config struct {
	Host          string
	Username      string
	Password      string
	BasicUsername string
	BasicPassword string
	TLSSkipVerify bool
	Timeout       time.Duration
}

// Connector logs in to qBittorrent on demand. Every Connect call produces an
// independent session so concurrent cleanups never share torrent state.
type Connector struct {
	cfg Config
}

func NewConnector(cfg Config) *Connector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.Host = strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	return &Connector{cfg: cfg}
}

// Connect authenticates and verifies the WebAPI version.
func (c *Connector) Connect(ctx context.Context) (*Client, error) {
	if c.cfg.Host == "" {
		return nil, fmt.Errorf("qBittorrent host is not configured")
	}

	qcfg := qbt.Config{
		Host:          c.cfg.Host,
		Username:      c.cfg.Username,
		Password:      c.cfg.Password,
		Timeout:       int(c.cfg.Timeout.Seconds()),
		TLSSkipVerify: c.cfg.TLSSkipVerify,
	}
	if c.cfg.BasicUsername != "" {
		qcfg.BasicUser = c.cfg.BasicUsername
		qcfg.BasicPass = c.cfg.BasicPassword
	}

	qbtClient := qbt.NewClient(qcfg)

	loginCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if err := qbtClient.LoginCtx(loginCtx); err != nil {
		return nil, fmt.Errorf("failed to connect to qBittorrent instance: %w", err)
	}

	client := &Client{
		Client:  qbtClient,
		host:    c.cfg.Host,
		timeout: c.cfg.Timeout,
	}

	version, err := qbtClient.GetWebAPIVersionCtx(loginCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to read qBittorrent WebAPI version: %w", err)
	}
	if err := client.applyVersion(version); err != nil {
		return nil, err
	}

	log.Debug().
		Str("host", c.cfg.Host).
		Str("webAPIVersion", client.webAPIVersion).
		Bool("tlsSkipVerify", c.cfg.TLSSkipVerify).
		Msg("qBittorrent client connected")

	return client, nil
}

type Client struct {
	*qbt.Client
	host          string
	webAPIVersion string
	timeout       time.Duration
}

func (c *Client) applyVersion(version string) error {
	version = strings.TrimSpace(version)
	if version == "" {
		return fmt.Errorf("web API version is empty")
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		log.Warn().
			Str("host", c.host).
			Str("webAPIVersion", version).
			Err(err).
			Msg("Failed to parse qBittorrent WebAPI version; assuming it is supported")
		c.webAPIVersion = version
		return nil
	}

	if v.LessThan(minWebAPIVersion) {
		return errors.Wrapf(ErrUnsupportedVersion, "%s (need >= %s)", version, minWebAPIVersion)
	}

	c.webAPIVersion = version
	return nil
}

func (c *Client) GetWebAPIVersion() string {
	return c.webAPIVersion
}

// ListTorrents returns every torrent known to the instance, in the order qBittorrent reports them.
func (c *Client) ListTorrents(ctx context.Context) ([]qbt.Torrent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	torrents, err := c.Client.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{})
	if err != nil {
		return nil, fmt.Errorf("list torrents: %w", err)
	}
	return torrents, nil
}

// TorrentFiles fetches the member files of a single torrent.
func (c *Client) TorrentFiles(ctx context.Context, hash string) (qbt.TorrentFiles, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	files, err := c.Client.GetFilesInformationCtx(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("fetch torrent files %s: %w", hash, err)
	}
	if files == nil {
		return nil, errors.Wrap(ErrEmptyFilesResponse, hash)
	}
	return *files, nil
}

// DeleteTorrent removes exactly one torrent, optionally with its data.
func (c *Client) DeleteTorrent(ctx context.Context, hash string, deleteFiles bool) error {
	if strings.TrimSpace(hash) == "" {
		return fmt.Errorf("refusing to delete torrent without hash")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.Client.DeleteTorrentsCtx(ctx, []string{hash}, deleteFiles); err != nil {
		return err
	}

	log.Debug().
		Str("host", c.host).
		Str("hash", hash).
		Bool("deleteFiles", deleteFiles).
		Msg("Deleted torrent")
	return nil
}
