// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleanup

import (
	"context"
	"strings"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
)

// FileLister fetches the member files of a torrent.
type FileLister interface {
	TorrentFiles(ctx context.Context, hash string) (qbt.TorrentFiles, error)
}

// TorrentClient is the download client surface used by one pipeline run.
type TorrentClient interface {
	FileLister
	ListTorrents(ctx context.Context) ([]qbt.Torrent, error)
	DeleteTorrent(ctx context.Context, hash string, deleteFiles bool) error
}

// Connector yields a freshly authenticated TorrentClient.
type Connector interface {
	Connect(ctx context.Context) (TorrentClient, error)
}

type ConnectFunc func(ctx context.Context) (TorrentClient, error)

func (f ConnectFunc) Connect(ctx context.Context) (TorrentClient, error) {
	return f(ctx)
}

type MatchStatus int

const (
	MatchNotFound MatchStatus = iota
	MatchFound
	MatchClientUnavailable
)

// MatchStage records which pass produced a match.
type MatchStage string

const (
	StageName MatchStage = "name"
	StageFile MatchStage = "file"
)

type MatchResult struct {
	Status  MatchStatus
	Torrent qbt.Torrent
	Stage   MatchStage
	Reason  string
}

func Matched(t qbt.Torrent, stage MatchStage) MatchResult {
	return MatchResult{Status: MatchFound, Torrent: t, Stage: stage}
}

func NotFound() MatchResult {
	return MatchResult{Status: MatchNotFound, Reason: ReasonNotFound}
}

func ClientUnavailable(reason string) MatchResult {
	if reason == "" {
		reason = ReasonClientUnavailable
	}
	return MatchResult{Status: MatchClientUnavailable, Reason: reason}
}

func (m MatchResult) Found() bool {
	return m.Status == MatchFound
}

// Basename returns the last element of a path using either separator.
func Basename(filePath string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(filePath), `/\`)
	if i := strings.LastIndexAny(trimmed, `/\`); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// Resolve finds the torrent holding filePath. The first pass picks the first
// torrent whose name contains the filename; only when none does, the second
// pass fetches file lists and picks the first torrent with a member file of
// exactly that name. A torrent whose files cannot be fetched is skipped.
func Resolve(ctx context.Context, filePath string, torrents []qbt.Torrent, files FileLister) MatchResult {
	filename := Basename(filePath)
	if filename == "" {
		return NotFound()
	}

	fold := cases.Fold()
	needle := fold.String(filename)

	for _, t := range torrents {
		if strings.Contains(fold.String(t.Name), needle) {
			return Matched(t, StageName)
		}
	}

	if files == nil {
		return NotFound()
	}

	for _, t := range torrents {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Str("filename", filename).Msg("torrent file scan aborted")
			return NotFound()
		}

		list, err := files.TorrentFiles(ctx, t.Hash)
		if err != nil {
			log.Debug().Err(err).Str("hash", t.Hash).Str("torrent", t.Name).Msg("skipping torrent with unreadable file list")
			continue
		}
		for _, f := range list {
			if fold.String(Basename(f.Name)) == needle {
				return Matched(t, StageFile)
			}
		}
	}

	return NotFound()
}
