// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package buildinfo

import (
	"fmt"
	"runtime"
)

// Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// UserAgent is sent on every outbound request to Emby, qBittorrent and notifier endpoints.
var UserAgent = fmt.Sprintf("embyclean/%s (%s %s)", Version, runtime.GOOS, runtime.GOARCH)
