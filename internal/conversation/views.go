package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/matheus3301/postbot/internal/calendar"
	"github.com/matheus3301/postbot/internal/markup"
	"github.com/matheus3301/postbot/internal/platform"
	"github.com/matheus3301/postbot/internal/post"
	"github.com/matheus3301/postbot/internal/sessionstore"
)

const excerptLen = 120

func btn(text, data string) platform.Button {
	return platform.Button{Text: text, Data: data}
}

func row(bs ...platform.Button) []platform.Button { return bs }

var cancelRow = row(btn("✖ Cancel", cbCancel))

func mainMenuKeyboard() platform.Keyboard {
	return platform.Keyboard{
		row(btn("📝 Create post", cbCreate)),
		row(btn("🗓 Scheduled posts", cbScheduled)),
		row(btn("📚 Existing posts", cbPublished)),
	}
}

func escape(s string) string { return markup.Escape(s) }

func textPrompt() string {
	return "Send the post text. Formatting (bold, italic, links, spoilers…) is kept."
}

func mediaView(d *post.Draft) (string, platform.Keyboard) {
	var b strings.Builder
	if len(d.Media) == 0 {
		b.WriteString("No media attached.\n")
	} else {
		fmt.Fprintf(&b, "Media: %d item(s).\n", len(d.Media))
	}
	b.WriteString("Send photos, videos or documents in the order they should appear. Press Finish when done.")

	kb := make(platform.Keyboard, 0, len(d.Media)+2)
	for i, m := range d.Media {
		kb = append(kb, row(btn(fmt.Sprintf("❌ %d. %s", i+1, m.Kind), indexData(prefixMediaDel, i))))
	}
	kb = append(kb, row(btn("✅ Finish", cbMediaDone)), cancelRow)
	return b.String(), kb
}

func buttonsView(d *post.Draft) (string, platform.Keyboard) {
	var b strings.Builder
	if len(d.Buttons) == 0 {
		b.WriteString("No buttons yet.\n")
	} else {
		b.WriteString("Buttons:\n")
		for i, bt := range d.Buttons {
			fmt.Fprintf(&b, "%d. %s → %s\n", i+1, escape(bt.Label), escape(bt.URL))
		}
	}
	b.WriteString("\n" + buttonFormatHelp + "\nPress Finish when done.")

	kb := make(platform.Keyboard, 0, len(d.Buttons)+2)
	for i, bt := range d.Buttons {
		kb = append(kb, row(btn("❌ "+bt.Label, indexData(prefixButtonDel, i))))
	}
	kb = append(kb, row(btn("✅ Finish", cbButtonsDone)), cancelRow)
	return b.String(), kb
}

const buttonFormatHelp = "Send buttons, one per line:\n<code>Label - https://example.com</code>\nor\n<code>Label | https://example.com</code>"

func layoutLabel(l post.Layout) string {
	if l == post.PhotoBottom {
		return "media below text"
	}
	return "media above text"
}

// summary describes a draft for the decision menus.
func summary(d *post.Draft, loc *time.Location, now time.Time) string {
	var b strings.Builder
	if d.Text != "" {
		fmt.Fprintf(&b, "📝 %s\n", escape(markup.Excerpt(d.Text, excerptLen)))
	} else {
		b.WriteString("📝 (no text)\n")
	}
	if len(d.Media) > 0 {
		fmt.Fprintf(&b, "🖼 %d media (%s)\n", len(d.Media), d.MediaKindSummary())
	}
	if len(d.Buttons) > 0 {
		fmt.Fprintf(&b, "🔘 %d button(s)\n", len(d.Buttons))
	}
	fmt.Fprintf(&b, "↕️ Layout: %s\n", layoutLabel(d.EffectiveLayout()))
	if d.ScheduledAt != nil {
		fmt.Fprintf(&b, "🗓 %s\n", when(*d.ScheduledAt, loc, now))
	}
	return b.String()
}

func when(at time.Time, loc *time.Location, now time.Time) string {
	return fmt.Sprintf("%s (%s)", at.In(loc).Format("Mon 02 Jan 2006 15:04"), humanize.RelTime(at, now, "ago", "from now"))
}

func decisionView(d *post.Draft, loc *time.Location, now time.Time) (string, platform.Keyboard) {
	text := "Your post:\n\n" + summary(d, loc, now) + "\nWhat next?"
	kb := platform.Keyboard{
		row(btn("🚀 Send now", cbSendNow), btn("🗓 Schedule", cbSchedule)),
		row(btn("✏️ Text", cbEditText), btn("🖼 Media", cbEditMed), btn("🔘 Buttons", cbEditBtn)),
		row(btn("↕️ Toggle layout", cbLayout), btn("👁 Preview", cbPreview)),
		cancelRow,
	}
	return text, kb
}

func scheduledEditView(d *post.Draft, channel string, loc *time.Location, now time.Time) (string, platform.Keyboard) {
	text := fmt.Sprintf("Editing scheduled post for %s:\n\n%s\nChanges apply when you press Save.",
		escape(channel), summary(d, loc, now))
	kb := platform.Keyboard{
		row(btn("✏️ Text", cbEditText), btn("🖼 Media", cbEditMed), btn("🔘 Buttons", cbEditBtn)),
		row(btn("🗓 Change time", cbSchedule), btn("↕️ Toggle layout", cbLayout)),
		row(btn("👁 Preview", cbPreview)),
		row(btn("💾 Save", cbSave), btn("↩ Back", cbBack)),
	}
	return text, kb
}

// decisionMenu renders the menu the edit sub-flows return to.
func decisionMenu(s *sessionstore.Session, channel string, loc *time.Location, now time.Time) (string, platform.Keyboard) {
	if s.EditingScheduledID != 0 {
		return scheduledEditView(s.Draft, channel, loc, now)
	}
	return decisionView(s.Draft, loc, now)
}

func calendarKeyboard(month time.Time, now time.Time) platform.Keyboard {
	grid := calendar.Grid(month.Year(), month.Month(), now)
	kb := make(platform.Keyboard, 0, len(grid)+1)
	for _, cells := range grid {
		r := make([]platform.Button, 0, len(cells))
		for _, c := range cells {
			r = append(r, btn(c.Text, c.Data))
		}
		kb = append(kb, r)
	}
	return append(kb, cancelRow)
}

func publishedControls(channelKey, messageID string) platform.Keyboard {
	return platform.Keyboard{
		row(
			btn("✏️ Edit", publishedData(prefixPubEdit, channelKey, messageID)),
			btn("🗑 Delete", publishedData(prefixPubDelete, channelKey, messageID)),
		),
	}
}
