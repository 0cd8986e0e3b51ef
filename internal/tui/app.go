// Package tui is the read-only operator dashboard of a profile.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/postbot/internal/tui/keys"
	"github.com/matheus3301/postbot/internal/tui/model"
	"github.com/matheus3301/postbot/internal/tui/ui"
	"github.com/matheus3301/postbot/internal/tui/views"
	"github.com/rivo/tview"
)

const refreshInterval = 5 * time.Second

// App is the dashboard shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	vm       *model.ViewModel
	registry *keys.Registry
	flash    *ui.FlashModel

	root      *tview.Flex
	pages     *ui.Pages
	info      *ui.ProfileInfo
	menu      *ui.Menu
	crumbs    *ui.Crumbs
	flashBar  *ui.FlashBar
	prompt    *ui.Prompt
	scheduled *views.PostTable
	published *views.PostTable
	postView  *views.PostView
	help      *views.HelpView

	profile string
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewApp creates the dashboard for profile, reading state through load.
func NewApp(profile string, load model.Loader) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		theme:     theme,
		vm:        model.NewViewModel(load),
		registry:  keys.NewRegistry(),
		flash:     ui.NewFlashModel(),
		pages:     ui.NewPages(),
		info:      ui.NewProfileInfo(theme),
		menu:      ui.NewMenu(theme),
		crumbs:    ui.NewCrumbs(theme),
		flashBar:  ui.NewFlashBar(theme),
		prompt:    ui.NewPrompt(theme, "scheduled", "published", "post", "refresh", "help", "quit"),
		scheduled: views.NewScheduledTable(theme),
		published: views.NewPublishedTable(theme),
		postView:  views.NewPostView(theme),
		help:      views.NewHelpView(theme),
		profile:   profile,
		ctx:       ctx,
		cancel:    cancel,
	}

	a.setupBindings()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	key := func(r rune, fn func()) *keys.Action {
		return &keys.Action{Key: tcell.KeyRune, Rune: r, Handler: fn}
	}

	a.registry.AddGlobal(key('q', a.back))
	a.registry.AddGlobal(&keys.Action{Key: tcell.KeyEscape, Handler: func() { a.pages.Pop() }})
	a.registry.AddGlobal(key('?', func() { a.pages.Push(a.help) }))
	a.registry.AddGlobal(key(':', func() { a.openPrompt(ui.PromptCommand) }))
	a.registry.AddGlobal(key('s', func() { a.pages.Reset(a.scheduled) }))
	a.registry.AddGlobal(key('p', func() { a.pages.Reset(a.published) }))
	a.registry.AddGlobal(key('r', func() { go a.refresh() }))

	for _, t := range []*views.PostTable{a.scheduled, a.published} {
		a.registry.AddView(t.Name(), key('/', func() { a.openPrompt(ui.PromptFilter) }))
		a.registry.AddView(t.Name(), &keys.Action{Key: tcell.KeyEnter, Handler: func() { a.open(t.SelectedKey()) }})
	}
	a.registry.AddView(a.postView.Name(), key('j', func() { a.scroll(a.postView.TextView, 1) }))
	a.registry.AddView(a.postView.Name(), key('k', func() { a.scroll(a.postView.TextView, -1) }))
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		AddItem(a.info, 0, 2, false).
		AddItem(a.menu, 0, 2, false).
		AddItem(ui.NewLogo(a.theme), 16, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.pages.SetOnChange(func(top ui.Component, names []string) {
		a.menu.Update(top.Hints())
		a.crumbs.Update(names)
		a.app.SetFocus(top)
	})

	a.prompt.SetOnSubmit(a.submitPrompt)
	a.prompt.SetOnCancel(a.closePrompt)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch a.app.GetFocus().(type) {
		case *ui.Prompt, *tview.InputField:
			return event
		}
		if top := a.pages.Top(); top != nil && a.registry.HandleEvent(top.Name(), event) {
			return nil
		}
		return event
	})

	a.pages.Reset(a.scheduled)
}

func (a *App) back() {
	if !a.pages.Pop() {
		a.Stop()
	}
}

func (a *App) scroll(tv *tview.TextView, delta int) {
	row, col := tv.GetScrollOffset()
	tv.ScrollTo(max(row+delta, 0), col)
}

func (a *App) open(key string) {
	if key == "" {
		return
	}
	s, p := a.vm.Lookup(key)
	switch {
	case s != nil:
		a.postView.ShowScheduled(s)
	case p != nil:
		a.postView.ShowPublished(p)
	default:
		a.flash.Warn("post no longer exists")
		a.flashBar.Update(a.flash.Current())
		return
	}
	a.pages.Push(a.postView)
}

func (a *App) openPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	if mode == ui.PromptFilter {
		if t := a.currentTable(); t != nil {
			a.prompt.SetText(t.Filter())
		}
	}
	a.root.AddItem(a.prompt, 3, 0, true)
	a.app.SetFocus(a.prompt)
}

func (a *App) closePrompt() {
	a.root.RemoveItem(a.prompt)
	if top := a.pages.Top(); top != nil {
		a.app.SetFocus(top)
	}
}

func (a *App) submitPrompt(mode ui.PromptMode, text string) {
	a.closePrompt()
	if mode == ui.PromptFilter {
		if t := a.currentTable(); t != nil {
			t.SetFilter(text)
		}
		return
	}
	if text == "" {
		return
	}
	a.runCommand(ParseCommand(text))
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "scheduled":
		a.pages.Reset(a.scheduled)
	case "published":
		a.pages.Reset(a.published)
	case "help":
		a.pages.Push(a.help)
	case "refresh":
		go a.refresh()
	case "quit":
		a.Stop()
	case "post":
		t := a.currentTable()
		n, err := strconv.Atoi(cmd.Args)
		if t == nil || err != nil {
			a.flash.Warn("usage: :post <row> on a list page")
			break
		}
		a.open(t.KeyAt(n))
	default:
		a.flash.Warn(fmt.Sprintf("unknown command %q", cmd.Name))
	}
	a.flashBar.Update(a.flash.Current())
}

func (a *App) currentTable() *views.PostTable {
	switch a.pages.Top() {
	case ui.Component(a.scheduled):
		return a.scheduled
	case ui.Component(a.published):
		return a.published
	}
	return nil
}

// refresh takes a new snapshot and redraws. Runs off the UI goroutine.
func (a *App) refresh() {
	ctx, cancel := context.WithTimeout(a.ctx, refreshInterval)
	defer cancel()
	if err := a.vm.Refresh(ctx); err != nil {
		a.flash.Err(err)
	}
	a.redraw()
}

func (a *App) redraw() {
	a.app.QueueUpdateDraw(func() {
		if s := a.vm.Snapshot(); s != nil {
			now := time.Now()
			a.info.Update(&ui.ProfileData{
				Profile:   a.profile,
				PID:       s.PID,
				Health:    s.Health,
				Ready:     s.Ready,
				Scheduled: len(s.Scheduled),
				Published: len(s.Published),
				NextRun:   s.NextRun,
				Refreshed: s.TakenAt,
			})
			a.scheduled.Update(views.ScheduledRows(s.Scheduled, now))
			a.published.Update(views.PublishedRows(s.Published, now))
		}
		a.flashBar.Update(a.flash.Current())
	})
}

func (a *App) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.refresh()
		case <-a.ctx.Done():
			return
		}
	}
}

// Run blocks until the dashboard exits.
func (a *App) Run() error {
	go func() {
		a.refresh()
		a.refreshLoop()
	}()
	return a.app.Run()
}

// Stop shuts the dashboard down.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
