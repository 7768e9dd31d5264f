// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleanup

// Kind classifies how a single pipeline run ended.
type Kind string

const (
	KindMissingPath       Kind = "missing_path"
	KindOutOfScope        Kind = "out_of_scope"
	KindClientUnavailable Kind = "client_unavailable"
	KindNotFound          Kind = "not_found"
	KindDeletionFailed    Kind = "deletion_failed"
	KindNotifyFailed      Kind = "notify_failed"
	KindDeleted           Kind = "deleted"
)

func (k Kind) String() string {
	return string(k)
}

// Skipped reports whether the event was never ours to handle. Skipped runs
// produce no notification.
func (k Kind) Skipped() bool {
	return k == KindMissingPath || k == KindOutOfScope
}

const (
	ReasonNotFound          = "no matching torrent found"
	ReasonClientUnavailable = "failed to connect to download client"
	reasonDeletePrefix      = "failed to delete torrent: "
)
