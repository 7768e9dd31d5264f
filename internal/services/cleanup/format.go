// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleanup

import (
	"html"
	"strings"

	"github.com/embyclean/embyclean/internal/notification"
)

const NotificationTitle = "Media cleanup notification"

// Format renders the notification for one pipeline run. The body uses HTML
// emphasis with escaped values; notification.Message.Plain strips it.
func Format(event ItemEvent, outcome Outcome, imageURL string) notification.Message {
	var sb strings.Builder

	sb.WriteString("✅ <b>Media cleanup</b>\n\n")
	sb.WriteString("Title: <b>" + html.EscapeString(event.DisplayName()) + "</b>\n")
	sb.WriteString("Type: " + html.EscapeString(event.DisplayType()) + "\n")

	if outcome.Succeeded && outcome.Task != nil {
		task := outcome.Task
		sb.WriteString("Torrent: " + html.EscapeString(task.Name) + "\n")
		sb.WriteString("Added: " + orDash(task.AddedOnText()) + "\n")
		sb.WriteString("Uploaded: " + task.UploadedGiBText() + " GB\n")
		sb.WriteString("Tracker: " + html.EscapeString(orDash(task.Tracker)) + "\n")
		if len(task.Tags) > 0 {
			sb.WriteString("Tags: " + html.EscapeString(strings.Join(task.Tags, ", ")) + "\n")
		}
		sb.WriteString("Status: ✓ deleted")
	} else {
		reason := outcome.FailureReason
		if reason == "" {
			reason = ReasonNotFound
		}
		sb.WriteString("Status: ✗ failed\n")
		sb.WriteString("Reason: " + html.EscapeString(reason))
	}

	return notification.Message{
		Title:    NotificationTitle,
		Body:     sb.String(),
		ImageURL: imageURL,
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
