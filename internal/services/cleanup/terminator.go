// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleanup

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
)

const (
	bytesPerGiB     = 1 << 30
	timestampLayout = "2006-01-02 15:04:05"
)

// TaskSummary is a display snapshot of a torrent taken before deletion.
type TaskSummary struct {
	Name          string    `json:"name"`
	Hash          string    `json:"hash"`
	AddedOn       time.Time `json:"addedOn"`
	UploadedBytes int64     `json:"uploadedBytes"`
	Tracker       string    `json:"tracker"`
	Tags          []string  `json:"tags,omitempty"`
}

func Summarize(t qbt.Torrent) TaskSummary {
	s := TaskSummary{
		Name:          t.Name,
		Hash:          t.Hash,
		UploadedBytes: t.Uploaded,
		Tracker:       t.Tracker,
		Tags:          splitTags(t.Tags),
	}
	if t.AddedOn > 0 {
		s.AddedOn = time.Unix(t.AddedOn, 0)
	}
	return s
}

// AddedOnText formats AddedOn in local time.
func (s TaskSummary) AddedOnText() string {
	if s.AddedOn.IsZero() {
		return ""
	}
	return s.AddedOn.Local().Format(timestampLayout)
}

// UploadedGiB converts the uploaded volume to GiB rounded to two decimals.
func (s TaskSummary) UploadedGiB() float64 {
	return math.Round(float64(s.UploadedBytes)/bytesPerGiB*100) / 100
}

func (s TaskSummary) UploadedGiBText() string {
	return strconv.FormatFloat(s.UploadedGiB(), 'f', 2, 64)
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

// Outcome is the result of acting on a resolved (or unresolved) torrent.
// Task is set whenever a torrent was matched, even if deletion failed.
type Outcome struct {
	Succeeded     bool         `json:"succeeded"`
	Kind          Kind         `json:"kind"`
	Task          *TaskSummary `json:"task,omitempty"`
	FailureReason string       `json:"failureReason,omitempty"`
}

// TorrentDeleter removes a single torrent by hash.
type TorrentDeleter interface {
	DeleteTorrent(ctx context.Context, hash string, deleteFiles bool) error
}

// Terminate snapshots t and issues exactly one delete call for its hash.
func Terminate(ctx context.Context, deleter TorrentDeleter, t qbt.Torrent, deleteFiles bool) Outcome {
	summary := Summarize(t)

	if err := deleter.DeleteTorrent(ctx, t.Hash, deleteFiles); err != nil {
		return Outcome{
			Kind:          KindDeletionFailed,
			Task:          &summary,
			FailureReason: reasonDeletePrefix + err.Error(),
		}
	}

	return Outcome{
		Succeeded: true,
		Kind:      KindDeleted,
		Task:      &summary,
	}
}

// Unresolved converts a non-matching MatchResult into a failed Outcome.
func Unresolved(m MatchResult) Outcome {
	kind := KindNotFound
	if m.Status == MatchClientUnavailable {
		kind = KindClientUnavailable
	}
	reason := m.Reason
	if reason == "" {
		reason = ReasonNotFound
	}
	return Outcome{Kind: kind, FailureReason: reason}
}
