// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package notification

import (
	"context"
	stderrors "errors"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Message is a rendered notification. Body may carry simple HTML emphasis
// markup; channels that cannot render it use Plain.
type Message struct {
	Title    string
	Body     string
	ImageURL string
}

var markupTag = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

// Plain returns Body with markup removed and entities decoded.
func (m Message) Plain() string {
	return StripMarkup(m.Body)
}

func StripMarkup(s string) string {
	return html.UnescapeString(markupTag.ReplaceAllString(s, ""))
}

type Notifier interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Multi delivers to every notifier, even when earlier ones fail.
type Multi []Notifier

func (m Multi) Name() string {
	names := make([]string, 0, len(m))
	for _, n := range m {
		names = append(names, n.Name())
	}
	return strings.Join(names, ",")
}

func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return stderrors.Join(errs...)
}

// Nop discards messages.
type Nop struct{}

func (Nop) Name() string                        { return "none" }
func (Nop) Send(context.Context, Message) error { return nil }

// Combine returns a single notifier for the given set, skipping nil entries.
func Combine(notifiers ...Notifier) Notifier {
	var out Multi
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	switch len(out) {
	case 0:
		return Nop{}
	case 1:
		return out[0]
	default:
		return out
	}
}
