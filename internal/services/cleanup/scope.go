// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleanup

import (
	"strings"

	"golang.org/x/text/cases"
)

// IsInScope reports whether targetLibrary is a case-insensitive substring of
// the event's first library hint, or of its file path when no hint exists.
// An empty targetLibrary matches any event that has a hint or a path.
func IsInScope(event ItemEvent, targetLibrary string) bool {
	fold := cases.Fold()
	target := fold.String(targetLibrary)

	if hint := event.LibraryHint(); hint != "" {
		return strings.Contains(fold.String(hint), target)
	}
	if event.FilePath != "" {
		return strings.Contains(fold.String(event.FilePath), target)
	}
	return false
}

// LibraryFilter selects which events the pipeline acts on. All puts every
// event in scope; an empty Target without All matches nothing.
type LibraryFilter struct {
	Target string
	All    bool
}

// Configured reports whether the filter can ever match.
func (f LibraryFilter) Configured() bool {
	return f.All || strings.TrimSpace(f.Target) != ""
}

func (f LibraryFilter) Matches(event ItemEvent) bool {
	if f.All {
		return true
	}
	target := strings.TrimSpace(f.Target)
	if target == "" {
		return false
	}
	return IsInScope(event, target)
}

func (f LibraryFilter) String() string {
	if f.All {
		return "*"
	}
	return strings.TrimSpace(f.Target)
}
