package views

import (
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/postbot/internal/post"
	"github.com/matheus3301/postbot/internal/store"
	"github.com/matheus3301/postbot/internal/tui/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func scheduled() []store.ScheduledPost {
	return []store.ScheduledPost{
		{ID: 1, ChannelID: "-100123", Text: "<b>Sale</b> on phones", PublishAt: now.Add(2 * time.Hour), Status: store.StatusPending},
		{ID: 2, ChannelID: "-100456", Text: "Lecture notes", PublishAt: now.Add(time.Hour), Status: store.StatusFailed,
			Media: []post.MediaItem{{Kind: post.Document, Ref: "doc"}}},
	}
}

func TestScheduledRows(t *testing.T) {
	rows := ScheduledRows(scheduled(), now)
	require.Len(t, rows, 2)
	assert.Equal(t, "s:1", rows[0].Key)
	assert.Equal(t, "Sale on phones", rows[0].Cells[5])
	assert.Equal(t, "2 hours from now", rows[0].Cells[2])
	assert.Equal(t, store.StatusFailed, rows[1].Cells[3])
}

func TestPublishedRows(t *testing.T) {
	rows := PublishedRows([]store.PublishedPost{
		{ChannelID: "-100123", MessageID: "77", Text: "Hi", PublishedAt: now.Add(-3 * time.Minute)},
	}, now)
	require.Len(t, rows, 1)
	assert.Equal(t, "p:-100123:77", rows[0].Key)
	assert.Equal(t, "3 minutes ago", rows[0].Cells[2])
}

func TestPostTableFilter(t *testing.T) {
	table := NewScheduledTable(ui.DefaultTheme())
	table.Update(ScheduledRows(scheduled(), now))
	assert.Equal(t, "s:1", table.KeyAt(1))
	assert.Equal(t, "s:2", table.KeyAt(2))
	assert.Equal(t, 3, table.GetRowCount())

	table.SetFilter("LECTURE")
	assert.Equal(t, "s:2", table.KeyAt(1))
	assert.Empty(t, table.KeyAt(2))
	assert.Equal(t, 2, table.GetRowCount())
	assert.Contains(t, table.GetTitle(), "(1/2)")

	table.SetFilter("")
	assert.Equal(t, "s:2", table.KeyAt(2))
	assert.Empty(t, table.KeyAt(0))
}

func TestPostTableKeepsSelection(t *testing.T) {
	table := NewScheduledTable(ui.DefaultTheme())
	table.Update(ScheduledRows(scheduled(), now))
	table.Select(2, 0)
	require.Equal(t, "s:2", table.SelectedKey())

	posts := scheduled()
	posts[0], posts[1] = posts[1], posts[0]
	table.Update(ScheduledRows(posts, now))
	assert.Equal(t, "s:2", table.SelectedKey())
}

func TestPostViewShowsContent(t *testing.T) {
	pv := NewPostView(ui.DefaultTheme())
	p := scheduled()[1]
	p.Buttons = []post.Button{{Label: "Slides", URL: "https://example.com/s"}}
	p.LastError = "chat not found"
	pv.ShowScheduled(&p)

	text := pv.GetText(true)
	assert.Contains(t, text, "Lecture notes")
	assert.Contains(t, text, "Media (1)")
	assert.Contains(t, text, "https://example.com/s")
	assert.Contains(t, text, "chat not found")
	assert.True(t, strings.Contains(pv.GetTitle(), "#2"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "👍 ok fine", sanitize("👍\U0001F3FB ok\nfine"))
	assert.Equal(t, "a b", sanitize("a\u200d\tb"))
}
