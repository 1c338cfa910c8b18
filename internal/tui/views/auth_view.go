package views

import (
	"fmt"

	"github.com/matheus3301/blackzap/internal/tui/ui"
	"github.com/rivo/tview"
)

// Credentials is what the auth form collects.
type Credentials struct {
	Email    string
	Password string
	Name     string
}

// AuthView is the sign-in / sign-up form shown while signed out.
type AuthView struct {
	*tview.Flex
	theme    *ui.Theme
	form     *tview.Form
	message  *tview.TextView
	onSignIn func(Credentials)
	onSignUp func(Credentials)
}

// NewAuthView creates a new auth view.
func NewAuthView(theme *ui.Theme) *AuthView {
	av := &AuthView{theme: theme}

	av.form = tview.NewForm().
		AddInputField("E-mail", "", 40, nil, nil).
		AddPasswordField("Senha", "", 40, '*', nil).
		AddInputField("Nome (cadastro)", "", 40, nil, nil).
		AddButton("Entrar", func() {
			if av.onSignIn != nil {
				av.onSignIn(av.credentials())
			}
		}).
		AddButton("Criar conta", func() {
			if av.onSignUp != nil {
				av.onSignUp(av.credentials())
			}
		})
	av.form.SetBackgroundColor(theme.BgColor)
	av.form.SetFieldBackgroundColor(theme.TableCursorBg)
	av.form.SetFieldTextColor(theme.FgColor)
	av.form.SetLabelColor(theme.MenuKeyColor)
	av.form.SetButtonBackgroundColor(theme.TableCursorBg)
	av.form.SetButtonTextColor(theme.TableCursorFg)

	av.message = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	av.message.SetBackgroundColor(theme.BgColor)

	av.Flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(av.form, 9, 0, true).
		AddItem(av.message, 0, 1, false)
	av.SetBorder(true)
	av.SetBorderColor(theme.BorderColor)
	av.SetBackgroundColor(theme.BgColor)
	av.SetTitle(" Entrar no blackzap ")
	av.SetTitleColor(theme.TitleColor)

	return av
}

func (av *AuthView) Name() string { return "Auth" }

func (av *AuthView) FocusTarget() tview.Primitive { return av.form }

func (av *AuthView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Submit"},
		{Key: "Ctrl-C", Description: "Quit"},
	}
}

// SetOnSignIn sets the callback for the sign-in button.
func (av *AuthView) SetOnSignIn(fn func(Credentials)) { av.onSignIn = fn }

// SetOnSignUp sets the callback for the sign-up button.
func (av *AuthView) SetOnSignUp(fn func(Credentials)) { av.onSignUp = fn }

func (av *AuthView) credentials() Credentials {
	text := func(label string) string {
		if f, ok := av.form.GetFormItemByLabel(label).(*tview.InputField); ok {
			return f.GetText()
		}
		return ""
	}
	return Credentials{
		Email:    text("E-mail"),
		Password: text("Senha"),
		Name:     text("Nome (cadastro)"),
	}
}

// ShowMessage displays a status line under the form.
func (av *AuthView) ShowMessage(msg string) {
	av.message.Clear()
	_, _ = fmt.Fprintf(av.message, "\n%s", display(msg))
}

// ShowError displays msg in the error color.
func (av *AuthView) ShowError(msg string) {
	av.message.Clear()
	_, _ = fmt.Fprintf(av.message, "\n[%s]%s[-]", ui.Tag(av.theme.FlashErrColor), display(msg))
}

// ClearPassword empties the password field.
func (av *AuthView) ClearPassword() {
	if f, ok := av.form.GetFormItemByLabel("Senha").(*tview.InputField); ok {
		f.SetText("")
	}
}
