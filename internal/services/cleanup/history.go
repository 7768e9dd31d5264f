// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleanup

import (
	"time"

	"github.com/google/uuid"
)

const defaultHistorySize = 50

// ActivityEvent records the outcome of one pipeline run.
type ActivityEvent struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Event       string    `json:"event"`
	ItemID      string    `json:"itemId,omitempty"`
	ItemName    string    `json:"itemName"`
	FilePath    string    `json:"filePath"`
	Kind        Kind      `json:"kind"`
	TorrentName string    `json:"torrentName,omitempty"`
	Hash        string    `json:"hash,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Notified    bool      `json:"notified"`
	Timestamp   time.Time `json:"timestamp"`
}

func (s *Service) recordActivity(event ItemEvent, result Result) {
	if s == nil {
		return
	}

	entry := ActivityEvent{
		ID:        uuid.NewString(),
		Source:    event.Source,
		Event:     event.Kind.String(),
		ItemID:    event.ItemID,
		ItemName:  event.ItemName,
		FilePath:  event.FilePath,
		Kind:      result.Kind,
		Notified:  result.Notified,
		Timestamp: s.currentTime(),
	}
	if result.Outcome != nil {
		entry.Reason = result.Outcome.FailureReason
		if task := result.Outcome.Task; task != nil {
			entry.TorrentName = task.Name
			entry.Hash = task.Hash
		}
	}

	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	limit := s.historyCap
	if limit <= 0 {
		limit = defaultHistorySize
	}
	s.history = append(s.history, entry)
	if len(s.history) > limit {
		s.history = s.history[len(s.history)-limit:]
	}
}

// GetActivity returns the most recent pipeline runs, newest last.
func (s *Service) GetActivity(limit int) []ActivityEvent {
	if s == nil {
		return nil
	}
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	events := s.history
	if len(events) == 0 {
		return nil
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]ActivityEvent, len(events))
	copy(out, events)
	return out
}

func (s *Service) currentTime() time.Time {
	if s != nil && s.now != nil {
		return s.now()
	}
	return time.Now()
}
