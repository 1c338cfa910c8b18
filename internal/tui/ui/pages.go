package ui

import "github.com/rivo/tview"

// Pages is a stack of registered components on top of tview.Pages.
type Pages struct {
	*tview.Pages
	components map[string]Component
	stack      []string
	onChange   func()
}

// NewPages creates an empty page stack.
func NewPages() *Pages {
	return &Pages{
		Pages:      tview.NewPages(),
		components: make(map[string]Component),
	}
}

// Register adds c under id. Registered pages start hidden.
func (p *Pages) Register(id string, c Component) {
	p.components[id] = c
	p.AddPage(id, c, true, false)
}

// SetOnChange sets a callback that fires when the stack changes.
func (p *Pages) SetOnChange(fn func()) {
	p.onChange = fn
}

// Push shows id on top of the stack. Pushing the current page is a no-op;
// pushing a page already deeper in the stack pops back to it.
func (p *Pages) Push(id string) {
	if p.Current() == id {
		return
	}
	for i, s := range p.stack {
		if s == id {
			for _, hidden := range p.stack[i+1:] {
				p.HidePage(hidden)
			}
			p.stack = p.stack[:i+1]
			p.show(id)
			return
		}
	}
	if cur := p.Current(); cur != "" {
		p.HidePage(cur)
	}
	p.stack = append(p.stack, id)
	p.show(id)
}

// Pop removes the top page unless it is the last one and returns the id of
// the page now shown.
func (p *Pages) Pop() string {
	if len(p.stack) <= 1 {
		return p.Current()
	}
	p.HidePage(p.stack[len(p.stack)-1])
	p.stack = p.stack[:len(p.stack)-1]
	cur := p.Current()
	p.show(cur)
	return cur
}

// Reset clears the stack and shows only id.
func (p *Pages) Reset(id string) {
	for _, s := range p.stack {
		p.HidePage(s)
	}
	p.stack = []string{id}
	p.show(id)
}

// Current returns the id of the top page.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Top returns the component of the top page.
func (p *Pages) Top() Component {
	return p.components[p.Current()]
}

// Names returns the breadcrumb labels of the stack, bottom first.
func (p *Pages) Names() []string {
	names := make([]string, len(p.stack))
	for i, id := range p.stack {
		names[i] = p.components[id].Name()
	}
	return names
}

func (p *Pages) show(id string) {
	p.ShowPage(id)
	p.SendToFront(id)
	if p.onChange != nil {
		p.onChange()
	}
}
