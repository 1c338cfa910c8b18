package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/blackzap/internal/chat"
	"github.com/matheus3301/blackzap/internal/tui/ui"
	"github.com/rivo/tview"
)

// SearchView finds people to start a conversation with.
type SearchView struct {
	*tview.Flex
	theme    *ui.Theme
	input    *tview.InputField
	results  *tview.Table
	onQuery  func(term string)
	onSelect func(c chat.Contact)
	data     []chat.Contact
}

// NewSearchView creates a new search view.
func NewSearchView(theme *ui.Theme) *SearchView {
	input := tview.NewInputField().
		SetLabel(" Buscar: ").
		SetFieldWidth(0).
		SetPlaceholder("nome ou @usuario")
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitle(" Resultados ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 1, 0, true).
		AddItem(results, 0, 1, false)

	sv := &SearchView{
		Flex:    flex,
		theme:   theme,
		input:   input,
		results: results,
	}

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && sv.onQuery != nil {
			sv.onQuery(input.GetText())
		}
	})
	results.SetSelectedFunc(func(row, _ int) {
		if c, ok := sv.at(row); ok && sv.onSelect != nil {
			sv.onSelect(c)
		}
	})

	sv.Update(nil)
	return sv
}

func (sv *SearchView) Name() string { return "Nova conversa" }

func (sv *SearchView) FocusTarget() tview.Primitive { return sv.input }

func (sv *SearchView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Search/Open"},
		{Key: "Tab", Description: "Results"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetOnQuery sets the callback run with the search term.
func (sv *SearchView) SetOnQuery(fn func(term string)) { sv.onQuery = fn }

// SetOnSelect sets the callback run when a result is opened.
func (sv *SearchView) SetOnSelect(fn func(c chat.Contact)) { sv.onSelect = fn }

// Update shows results.
func (sv *SearchView) Update(results []chat.Contact) {
	sv.data = results
	sv.results.Clear()

	for col, h := range []string{" NAME", " USERNAME", " ABOUT"} {
		sv.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.TableHeaderFg).
			SetBackgroundColor(sv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold))
	}

	for i, c := range results {
		row := i + 1
		handle := ""
		if c.Username != "" {
			handle = "@" + c.Username
		}
		name := display(c.Name)
		if c.IsVerified {
			name += fmt.Sprintf(" [%s]✔[-]", ui.Tag(sv.theme.VerifiedColor))
		}
		sv.results.SetCell(row, 0, tview.NewTableCell(" "+name).SetExpansion(1).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(row, 1, tview.NewTableCell(" "+display(handle)).SetTextColor(sv.theme.MutedColor))
		sv.results.SetCell(row, 2, tview.NewTableCell(" "+display(c.About)).SetExpansion(2).SetTextColor(sv.theme.MutedColor))
	}
}

func (sv *SearchView) at(row int) (chat.Contact, bool) {
	idx := row - 1
	if idx < 0 || idx >= len(sv.data) {
		return chat.Contact{}, false
	}
	return sv.data[idx], true
}

// Reset clears the term and the results.
func (sv *SearchView) Reset() {
	sv.input.SetText("")
	sv.Update(nil)
}

// Input returns the search input field.
func (sv *SearchView) Input() *tview.InputField { return sv.input }

// Results returns the results table.
func (sv *SearchView) Results() *tview.Table { return sv.results }
