package views

import (
	"fmt"

	"github.com/matheus3301/postbot/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView lists the key bindings and prompt commands.
type HelpView struct {
	*tview.TextView
}

// NewHelpView creates the help page.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	kc := ui.ColorName(theme.MenuKeyColor)
	entries := []struct{ section, key, desc string }{
		{"Keys", "s", "Scheduled posts"},
		{"", "p", "Published posts"},
		{"", "enter", "Open the selected post"},
		{"", "/", "Filter the list (empty clears)"},
		{"", ":", "Command prompt"},
		{"", "r", "Refresh now"},
		{"", "esc", "Back"},
		{"", "q", "Back, or quit on the first page"},
		{"Commands", ":scheduled, :s", "Scheduled posts"},
		{"", ":published, :p", "Published posts"},
		{"", ":post <n>", "Open the nth row of the list"},
		{"", ":refresh, :r", "Refresh now"},
		{"", ":help, :h", "This page"},
		{"", ":quit, :q", "Quit"},
	}
	for _, e := range entries {
		if e.section != "" {
			_, _ = fmt.Fprintf(tv, "\n  [::b]%s[-:-:-]\n\n", e.section)
		}
		_, _ = fmt.Fprintf(tv, "  [%s]%-18s[-:-:-] %s\n", kc, e.key, e.desc)
	}
	_, _ = fmt.Fprint(tv, "\n  The dashboard is read-only. Posts are managed from the Telegram chat.\n")

	return &HelpView{TextView: tv}
}

func (hv *HelpView) Name() string { return "Help" }

func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "esc", Description: "Back"}}
}
