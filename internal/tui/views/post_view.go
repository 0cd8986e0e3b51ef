package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/postbot/internal/markup"
	"github.com/matheus3301/postbot/internal/post"
	"github.com/matheus3301/postbot/internal/store"
	"github.com/matheus3301/postbot/internal/tui/ui"
	"github.com/rivo/tview"
)

// PostView shows one post in full.
type PostView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewPostView creates the detail page.
func NewPostView(theme *ui.Theme) *PostView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitleColor(theme.TitleColor)
	return &PostView{TextView: tv, theme: theme}
}

func (pv *PostView) Name() string { return "Post" }

func (pv *PostView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "esc", Description: "Back"},
		{Key: "j/k", Description: "Scroll"},
		{Key: "q", Description: "Quit"},
	}
}

// ShowScheduled renders a scheduled post.
func (pv *PostView) ShowScheduled(p *store.ScheduledPost) {
	pv.SetTitle(fmt.Sprintf(" Scheduled #%d ", p.ID))
	fields := [][2]string{
		{"Channel", p.ChannelID},
		{"Publish at", p.PublishAt.Local().Format(time.DateTime)},
		{"Status", p.Status},
		{"Owner", fmt.Sprint(p.OwnerID)},
		{"Layout", string(p.Layout)},
		{"Updated", p.UpdatedAt.Local().Format(time.DateTime)},
	}
	if p.LastError != "" {
		fields = append(fields, [2]string{"Last error", p.LastError})
	}
	pv.render(fields, p.Text, p.Media, p.Buttons)
}

// ShowPublished renders a published post.
func (pv *PostView) ShowPublished(p *store.PublishedPost) {
	pv.SetTitle(fmt.Sprintf(" Published %s/%s ", p.ChannelID, p.MessageID))
	fields := [][2]string{
		{"Channel", p.ChannelID},
		{"Messages", strings.Join(p.MessageIDs, ", ")},
		{"Published", p.PublishedAt.Local().Format(time.DateTime)},
		{"Owner", fmt.Sprint(p.OwnerID)},
		{"Layout", string(p.Layout)},
	}
	if !p.UpdatedAt.Equal(p.PublishedAt) {
		fields = append(fields, [2]string{"Edited", p.UpdatedAt.Local().Format(time.DateTime)})
	}
	pv.render(fields, p.Text, p.Media, p.Buttons)
}

func (pv *PostView) render(fields [][2]string, text string, media []post.MediaItem, buttons []post.Button) {
	pv.Clear()
	label := ui.ColorName(pv.theme.MenuKeyColor)
	value := ui.ColorName(pv.theme.CounterColor)

	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "[%s::b]%-11s[-:-:-] [%s]%s[-]\n", label, f[0]+":", value, tview.Escape(f[1]))
	}

	fmt.Fprintf(&b, "\n[::b]Text[-:-:-]\n%s\n", tview.Escape(markup.ToPlain(text)))

	if len(media) > 0 {
		fmt.Fprintf(&b, "\n[::b]Media (%d)[-:-:-]\n", len(media))
		for i, m := range media {
			fmt.Fprintf(&b, "  %d. %-8s %s\n", i+1, m.Kind, tview.Escape(m.Ref))
		}
	}
	if len(buttons) > 0 {
		fmt.Fprintf(&b, "\n[::b]Buttons (%d)[-:-:-]\n", len(buttons))
		for _, btn := range buttons {
			fmt.Fprintf(&b, "  [%s]%s[-] %s\n", value, tview.Escape(btn.Label), tview.Escape(btn.URL))
		}
	}

	_, _ = fmt.Fprint(pv, b.String())
	pv.ScrollToBeginning()
}
