// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleanup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInScope(t *testing.T) {
	tests := []struct {
		name   string
		event  ItemEvent
		target string
		want   bool
	}{
		{
			name:   "hint contains target",
			event:  ItemEvent{LibraryHints: []string{"My Movies"}, FilePath: "/data/x.mkv"},
			target: "movies",
			want:   true,
		},
		{
			name:   "hint wins over path",
			event:  ItemEvent{LibraryHints: []string{"TV Shows"}, FilePath: "/media/movies/x.mkv"},
			target: "movies",
			want:   false,
		},
		{
			name:   "first non-empty hint wins",
			event:  ItemEvent{LibraryHints: []string{"", "  ", "Anime", "Movies"}},
			target: "movies",
			want:   false,
		},
		{
			name:   "falls back to path",
			event:  ItemEvent{FilePath: "/media/Movies/x.mkv"},
			target: "movies",
			want:   true,
		},
		{
			name:   "path mismatch",
			event:  ItemEvent{FilePath: "/media/movies/Foo.2020.mkv"},
			target: "tv",
			want:   false,
		},
		{
			name:   "nothing to compare",
			event:  ItemEvent{},
			target: "movies",
			want:   false,
		},
		{
			name:   "empty target matches any path",
			event:  ItemEvent{FilePath: "/x.mkv"},
			target: "",
			want:   true,
		},
		{
			name:   "case folding beyond ascii",
			event:  ItemEvent{LibraryHints: []string{"ÉLÉMENTS Films"}},
			target: "éléments",
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsInScope(tt.event, tt.target))
		})
	}
}

func TestLibraryFilter(t *testing.T) {
	event := ItemEvent{FilePath: "/media/movies/x.mkv"}

	assert.True(t, LibraryFilter{All: true}.Matches(ItemEvent{}))
	assert.True(t, LibraryFilter{Target: "movies"}.Matches(event))
	assert.True(t, LibraryFilter{Target: " movies "}.Matches(event))
	assert.False(t, LibraryFilter{Target: "tv"}.Matches(event))

	empty := LibraryFilter{Target: "  "}
	assert.False(t, empty.Configured())
	assert.False(t, empty.Matches(event), "an unset library must not put everything in scope")

	assert.True(t, LibraryFilter{All: true}.Configured())
	assert.Equal(t, "*", LibraryFilter{All: true, Target: "x"}.String())
	assert.Equal(t, "movies", LibraryFilter{Target: " movies"}.String())
}
