package ui

import "github.com/rivo/tview"

// Pages is a stack of components on top of tview.Pages.
type Pages struct {
	*tview.Pages
	stack    []Component
	onChange func(top Component, names []string)
}

// NewPages creates an empty stack.
func NewPages() *Pages {
	return &Pages{Pages: tview.NewPages()}
}

// SetOnChange registers fn to run after every push, pop or reset.
func (p *Pages) SetOnChange(fn func(top Component, names []string)) {
	p.onChange = fn
}

// Push shows c on top of the stack. Pushing the current top is a no-op.
func (p *Pages) Push(c Component) {
	if top := p.Top(); top != nil {
		if top.Name() == c.Name() {
			return
		}
		p.HidePage(top.Name())
	}
	if !p.HasPage(c.Name()) {
		p.AddPage(c.Name(), c, true, false)
	}
	p.stack = append(p.stack, c)
	p.ShowPage(c.Name())
	p.SendToFront(c.Name())
	p.notify()
}

// Pop removes the top component unless it is the last one.
func (p *Pages) Pop() bool {
	if len(p.stack) < 2 {
		return false
	}
	top := p.stack[len(p.stack)-1]
	p.HidePage(top.Name())
	p.stack = p.stack[:len(p.stack)-1]
	current := p.stack[len(p.stack)-1]
	p.ShowPage(current.Name())
	p.SendToFront(current.Name())
	p.notify()
	return true
}

// Reset replaces the stack with c alone.
func (p *Pages) Reset(c Component) {
	for _, old := range p.stack {
		p.HidePage(old.Name())
	}
	p.stack = nil
	p.Push(c)
}

// Top returns the visible component, or nil.
func (p *Pages) Top() Component {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

// Names returns the page names bottom to top.
func (p *Pages) Names() []string {
	names := make([]string, len(p.stack))
	for i, c := range p.stack {
		names[i] = c.Name()
	}
	return names
}

func (p *Pages) notify() {
	if p.onChange != nil {
		p.onChange(p.Top(), p.Names())
	}
}
