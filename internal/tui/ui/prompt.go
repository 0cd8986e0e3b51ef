package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode tells a command prompt from a filter prompt.
type PromptMode int

const (
	PromptCommand PromptMode = iota
	PromptFilter
)

// Prompt is the input bar opened by ':' and '/'. In command mode it
// completes from a fixed word list.
type Prompt struct {
	*tview.InputField
	mode     PromptMode
	commands []string
	onSubmit func(mode PromptMode, text string)
	onCancel func()
}

// NewPrompt creates the input bar. commands feed completion in command mode.
func NewPrompt(theme *Theme, commands ...string) *Prompt {
	p := &Prompt{InputField: tview.NewInputField(), commands: commands}
	p.SetBorder(true)
	p.SetBorderColor(theme.PromptBorderColor)
	p.SetBackgroundColor(theme.BgColor)
	p.SetFieldBackgroundColor(theme.BgColor)
	p.SetFieldTextColor(theme.FgColor)
	p.SetLabelColor(theme.MenuKeyColor)
	p.SetAutocompleteFunc(p.complete)
	p.SetDoneFunc(p.done)
	return p
}

func (p *Prompt) done(key tcell.Key) {
	text := strings.TrimSpace(p.GetText())
	p.SetText("")
	switch key {
	case tcell.KeyEnter:
		if p.onSubmit != nil {
			p.onSubmit(p.mode, text)
		}
	case tcell.KeyEscape:
		if p.onCancel != nil {
			p.onCancel()
		}
	}
}

// complete lists the commands starting with the typed word.
func (p *Prompt) complete(current string) []string {
	if p.mode != PromptCommand || current == "" || strings.Contains(current, " ") {
		return nil
	}
	var out []string
	for _, c := range p.commands {
		if strings.HasPrefix(c, strings.ToLower(current)) && c != current {
			out = append(out, c)
		}
	}
	return out
}

func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) { p.onSubmit = fn }
func (p *Prompt) SetOnCancel(fn func())                              { p.onCancel = fn }

// Activate resets the bar for mode.
func (p *Prompt) Activate(mode PromptMode) {
	p.mode = mode
	p.SetText("")
	if mode == PromptFilter {
		p.SetLabel("/").SetTitle(" Filter posts ")
		return
	}
	p.SetLabel(":").SetTitle(" Command ")
}
