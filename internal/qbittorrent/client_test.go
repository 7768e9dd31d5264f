// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantErr error
		want    string
	}{
		{name: "modern version", version: "2.11.4", want: "2.11.4"},
		{name: "trims whitespace", version: " 2.8.3\n", want: "2.8.3"},
		{name: "exact minimum", version: "2.0.0", want: "2.0.0"},
		{name: "legacy v1 api", version: "1.9.0", wantErr: ErrUnsupportedVersion},
		{name: "unparseable keeps going", version: "weird", want: "weird"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{host: "http://qb"}
			err := c.applyVersion(tt.version)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.GetWebAPIVersion())
		})
	}
}

func TestApplyVersionRejectsEmpty(t *testing.T) {
	c := &Client{}
	require.Error(t, c.applyVersion("   "))
}

func TestNewConnectorNormalizesConfig(t *testing.T) {
	c := NewConnector(Config{Host: " http://localhost:8080/ "})
	assert.Equal(t, "http://localhost:8080", c.cfg.Host)
	assert.Equal(t, defaultTimeout, c.cfg.Timeout)

	c = NewConnector(Config{Host: "http://qb", Timeout: 5 * time.Second})
	assert.Equal(t, 5*time.Second, c.cfg.Timeout)
}

func TestConnectRequiresHost(t *testing.T) {
	c := NewConnector(Config{})
	client, err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Nil(t, client)
}

func TestDeleteTorrentRequiresHash(t *testing.T) {
	c := &Client{timeout: time.Second}
	require.Error(t, c.DeleteTorrent(context.Background(), " ", true))
}
