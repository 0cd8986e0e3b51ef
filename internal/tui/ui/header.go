package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rivo/tview"
)

// MenuHint describes a keyboard shortcut shown in the menu.
type MenuHint struct {
	Key         string
	Description string
}

// Component is a page the dashboard can push.
type Component interface {
	tview.Primitive
	Name() string
	Hints() []MenuHint
}

// Logo is the banner in the header's right corner.
type Logo struct {
	*tview.TextView
}

// NewLogo creates the banner.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 1, 0)

	title := ColorName(theme.TitleColor)
	_, _ = fmt.Fprintf(tv,
		"[%s::b]┌─┐┌─┐┌─┐┌┬┐[-:-:-]\n"+
			"[%s::b]├─┘│ │└─┐ │ [-:-:-]\n"+
			"[%s::b]┴  └─┘└─┘ ┴ [-:-:-]\n"+
			"[%s]channel desk[-:-:-]",
		title, title, title, ColorName(theme.FgColor),
	)
	return &Logo{TextView: tv}
}

// ProfileData is what the info panel shows about a profile.
type ProfileData struct {
	Profile   string
	PID       int
	Health    string
	Ready     string
	Scheduled int
	Published int
	NextRun   time.Time
	Refreshed time.Time
}

// ProfileInfo shows profile metadata in the header.
type ProfileInfo struct {
	*tview.TextView
	theme *Theme
}

// NewProfileInfo creates the info panel.
func NewProfileInfo(theme *Theme) *ProfileInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)
	return &ProfileInfo{TextView: tv, theme: theme}
}

// Update renders d.
func (pi *ProfileInfo) Update(d *ProfileData) {
	pi.Clear()
	if d == nil {
		return
	}
	fg := ColorName(pi.theme.FgColor)
	val := ColorName(pi.theme.CounterColor)

	daemon := "stopped"
	if d.PID > 0 {
		daemon = fmt.Sprintf("pid %d", d.PID)
	}
	health := fmt.Sprintf("[%s]%s[-]", ColorName(pi.theme.HealthColor(d.Health)), d.Health)
	if d.Ready != "" && d.Ready != "SERVING" {
		health += fmt.Sprintf(" [%s](not ready)[-]", ColorName(pi.theme.WarnColor))
	}
	next := "-"
	if !d.NextRun.IsZero() {
		next = humanize.Time(d.NextRun)
	}

	rows := [][2]string{
		{"Profile:", d.Profile},
		{"Daemon:", daemon},
		{"Health:", health},
		{"Queue:", fmt.Sprintf("%d scheduled, %d published", d.Scheduled, d.Published)},
		{"Next:", next},
		{"Seen:", d.Refreshed.Format("15:04:05")},
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("[%s::b]%-9s[-:-:-][%s]%s[-]", fg, r[0], val, r[1]))
	}
	_, _ = fmt.Fprint(pi, strings.Join(lines, "\n"))
}

// Menu lists the hints of the current page.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates the hint list.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)
	return &Menu{TextView: tv, theme: theme}
}

// Update renders one hint per line.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	kc := ColorName(m.theme.MenuKeyColor)
	for _, h := range hints {
		_, _ = fmt.Fprintf(m, "[%s::b]<%s>[-:-:-] %s\n", kc, h.Key, h.Description)
	}
}

// Crumbs shows the page stack.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates the breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &Crumbs{TextView: tv, theme: theme}
}

// Update renders the trail, the last entry highlighted.
func (c *Crumbs) Update(stack []string) {
	c.Clear()
	parts := make([]string, 0, len(stack))
	for i, name := range stack {
		fg, bg := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg
		attr := ""
		if i == len(stack)-1 {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:%s] %s [-:-:-]", ColorName(fg), ColorName(bg), attr, name))
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " "))
}
