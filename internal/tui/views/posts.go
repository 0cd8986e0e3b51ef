// Package views holds the dashboard pages.
package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/postbot/internal/markup"
	"github.com/matheus3301/postbot/internal/store"
	"github.com/matheus3301/postbot/internal/tui/model"
	"github.com/matheus3301/postbot/internal/tui/ui"
	"github.com/rivo/tview"
)

const excerptLen = 60

// Row is one line of a post table.
type Row struct {
	Key   string
	Cells []string
}

func (r Row) matches(filter string) bool {
	if filter == "" {
		return true
	}
	filter = strings.ToLower(filter)
	for _, c := range r.Cells {
		if strings.Contains(strings.ToLower(c), filter) {
			return true
		}
	}
	return false
}

type column struct {
	title  string
	expand int
	right  bool
}

// PostTable lists posts with an optional filter.
type PostTable struct {
	*tview.Table
	theme   *ui.Theme
	name    string
	columns []column
	rows    []Row
	visible []Row
	filter  string
}

// NewScheduledTable creates the scheduled posts page.
func NewScheduledTable(theme *ui.Theme) *PostTable {
	return newPostTable(theme, "Scheduled", []column{
		{title: "ID"},
		{title: "CHANNEL"},
		{title: "WHEN", right: true},
		{title: "STATUS"},
		{title: "MEDIA"},
		{title: "TEXT", expand: 1},
	})
}

// NewPublishedTable creates the published posts page.
func NewPublishedTable(theme *ui.Theme) *PostTable {
	return newPostTable(theme, "Published", []column{
		{title: "CHANNEL"},
		{title: "MESSAGE"},
		{title: "WHEN", right: true},
		{title: "MEDIA"},
		{title: "TEXT", expand: 1},
	})
}

func newPostTable(theme *ui.Theme, name string, columns []column) *PostTable {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	t := &PostTable{Table: table, theme: theme, name: name, columns: columns}
	t.render()
	return t
}

func (t *PostTable) Name() string { return t.name }

func (t *PostTable) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: ":", Description: "Command"},
		{Key: "s/p", Description: "Scheduled/Published"},
		{Key: "r", Description: "Refresh"},
		{Key: "?", Description: "Help"},
		{Key: "q", Description: "Quit"},
	}
}

// Update replaces the rows, keeping the selection on the same key.
func (t *PostTable) Update(rows []Row) {
	selected := t.SelectedKey()
	t.rows = rows
	t.render()
	t.selectKey(selected)
}

// SetFilter shows only rows with a cell containing filter.
func (t *PostTable) SetFilter(filter string) {
	t.filter = filter
	t.render()
}

// Filter returns the active filter.
func (t *PostTable) Filter() string { return t.filter }

// SelectedKey returns the key of the selected row, or "".
func (t *PostTable) SelectedKey() string {
	row, _ := t.GetSelection()
	return t.KeyAt(row)
}

// KeyAt returns the key of the nth visible row (1-based), or "".
func (t *PostTable) KeyAt(n int) string {
	if n < 1 || n > len(t.visible) {
		return ""
	}
	return t.visible[n-1].Key
}

func (t *PostTable) selectKey(key string) {
	for i, r := range t.visible {
		if r.Key == key {
			t.Select(i+1, 0)
			return
		}
	}
	if len(t.visible) > 0 {
		t.Select(1, 0)
	}
}

func (t *PostTable) render() {
	t.Clear()
	for col, c := range t.columns {
		t.SetCell(0, col, tview.NewTableCell(" "+c.title).
			SetSelectable(false).
			SetTextColor(t.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(c.expand))
	}

	t.visible = t.visible[:0]
	for _, r := range t.rows {
		if !r.matches(t.filter) {
			continue
		}
		t.visible = append(t.visible, r)
		row := len(t.visible)
		for col, c := range t.columns {
			text := ""
			if col < len(r.Cells) {
				text = r.Cells[col]
			}
			cell := tview.NewTableCell(" " + tview.Escape(sanitize(text))).
				SetTextColor(t.theme.FgColor).
				SetExpansion(c.expand)
			if c.right {
				cell.SetAlign(tview.AlignRight)
			}
			t.SetCell(row, col, cell)
		}
	}

	if t.filter != "" {
		t.SetTitle(fmt.Sprintf(" %s (%d/%d) /%s ", t.name, len(t.visible), len(t.rows), t.filter))
	} else {
		t.SetTitle(fmt.Sprintf(" %s (%d) ", t.name, len(t.rows)))
	}
}

// ScheduledRows builds table rows for posts.
func ScheduledRows(posts []store.ScheduledPost, now time.Time) []Row {
	rows := make([]Row, 0, len(posts))
	for _, p := range posts {
		rows = append(rows, Row{
			Key: model.ScheduledKey(p),
			Cells: []string{
				fmt.Sprint(p.ID),
				p.ChannelID,
				humanize.RelTime(p.PublishAt, now, "ago", "from now"),
				p.Status,
				p.MediaKind(),
				markup.Excerpt(p.Text, excerptLen),
			},
		})
	}
	return rows
}

// PublishedRows builds table rows for posts.
func PublishedRows(posts []store.PublishedPost, now time.Time) []Row {
	rows := make([]Row, 0, len(posts))
	for _, p := range posts {
		rows = append(rows, Row{
			Key: model.PublishedKey(p),
			Cells: []string{
				p.ChannelID,
				p.MessageID,
				humanize.RelTime(p.PublishedAt, now, "ago", "from now"),
				p.MediaKind(),
				markup.Excerpt(p.Text, excerptLen),
			},
		})
	}
	return rows
}
