package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/blackzap/internal/chat"
	"github.com/matheus3301/blackzap/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusView lists status updates from the last day and posts text ones.
type StatusView struct {
	*tview.Flex
	theme  *ui.Theme
	table  *tview.Table
	input  *tview.InputField
	onPost func(text string)
	now    func() time.Time
}

// NewStatusView creates a new status view.
func NewStatusView(theme *ui.Theme) *StatusView {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetTitle(" Status ")
	table.SetTitleColor(theme.TitleColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	input := tview.NewInputField().
		SetLabel(" Novo status: ").
		SetFieldWidth(0).
		SetPlaceholder("texto (Enter para publicar)")
	input.SetBorder(true)
	input.SetBorderColor(theme.BorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	sv := &StatusView{
		theme: theme,
		table: table,
		input: input,
		now:   time.Now,
	}
	sv.Flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(table, 0, 1, false).
		AddItem(input, 3, 0, true)

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && sv.onPost != nil {
			if text := input.GetText(); text != "" {
				sv.onPost(text)
				input.SetText("")
			}
		}
	})

	sv.Update(nil, false)
	return sv
}

func (sv *StatusView) Name() string { return "Status" }

func (sv *StatusView) FocusTarget() tview.Primitive { return sv.input }

func (sv *StatusView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Post"},
		{Key: "Tab", Description: "List"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetOnPost sets the callback run with a new text status.
func (sv *StatusView) SetOnPost(fn func(text string)) { sv.onPost = fn }

// Update renders updates, newest first as given.
func (sv *StatusView) Update(updates []chat.StatusUpdate, loading bool) {
	sv.table.Clear()
	for col, h := range []string{" AUTHOR", " TYPE", " CONTENT", " WHEN"} {
		sv.table.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.TableHeaderFg).
			SetBackgroundColor(sv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold))
	}

	if loading && len(updates) == 0 {
		sv.table.SetCell(1, 0, tview.NewTableCell(" [::d]Carregando...").SetSelectable(false))
		return
	}

	now := sv.now()
	for i, u := range updates {
		row := i + 1
		author := display(u.User.Name)
		if u.User.IsVerified {
			author += fmt.Sprintf(" [%s]✔[-]", ui.Tag(sv.theme.VerifiedColor))
		}
		content := display(u.Content)
		if u.Caption != "" {
			content += fmt.Sprintf(" [%s](%s)[-]", ui.Tag(sv.theme.MutedColor), display(u.Caption))
		}
		sv.table.SetCell(row, 0, tview.NewTableCell(" "+author).SetTextColor(sv.theme.FgColor))
		sv.table.SetCell(row, 1, tview.NewTableCell(" "+u.Type).SetTextColor(sv.theme.MutedColor))
		sv.table.SetCell(row, 2, tview.NewTableCell(" "+content).SetExpansion(1).SetTextColor(sv.theme.FgColor))
		sv.table.SetCell(row, 3, tview.NewTableCell(" "+formatTime(u.Timestamp, now)+" ").SetTextColor(sv.theme.MutedColor))
	}
	sv.table.SetTitle(fmt.Sprintf(" Status [%s](%d)[-] ", ui.Tag(sv.theme.CounterColor), len(updates)))
}

// Table returns the status list.
func (sv *StatusView) Table() *tview.Table { return sv.table }

// Input returns the post input.
func (sv *StatusView) Input() *tview.InputField { return sv.input }
