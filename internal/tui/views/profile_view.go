package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/chat"
	"github.com/matheus3301/blackzap/internal/tui/ui"
	"github.com/rivo/tview"
)

// ProfileView shows the signed-in user's profile, an invite QR code and
// an edit form.
type ProfileView struct {
	*tview.Flex
	theme   *ui.Theme
	card    *tview.TextView
	form    *tview.Form
	onSave  func(backend.ProfileUpdate)
	profile chat.UserProfile
}

var profileFields = []string{"Nome", "Usuário", "Recado", "Telefone", "Avatar"}

// NewProfileView creates a new profile view.
func NewProfileView(theme *ui.Theme) *ProfileView {
	pv := &ProfileView{theme: theme}

	pv.card = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	pv.card.SetBorder(true)
	pv.card.SetBorderColor(theme.BorderColor)
	pv.card.SetBackgroundColor(theme.BgColor)
	pv.card.SetTextColor(theme.FgColor)
	pv.card.SetTitle(" Perfil ")
	pv.card.SetTitleColor(theme.TitleColor)

	pv.form = tview.NewForm()
	for _, label := range profileFields {
		pv.form.AddInputField(label, "", 40, nil, nil)
	}
	pv.form.AddButton("Salvar", func() {
		if pv.onSave != nil {
			pv.onSave(pv.update())
		}
	})
	pv.form.SetBorder(true)
	pv.form.SetBorderColor(theme.BorderColor)
	pv.form.SetBackgroundColor(theme.BgColor)
	pv.form.SetFieldBackgroundColor(theme.TableCursorBg)
	pv.form.SetFieldTextColor(theme.FgColor)
	pv.form.SetLabelColor(theme.MenuKeyColor)
	pv.form.SetButtonBackgroundColor(theme.TableCursorBg)
	pv.form.SetButtonTextColor(theme.TableCursorFg)
	pv.form.SetTitle(" Editar ")
	pv.form.SetTitleColor(theme.TitleColor)

	pv.Flex = tview.NewFlex().
		AddItem(pv.card, 0, 1, false).
		AddItem(pv.form, 0, 1, true)

	return pv
}

func (pv *ProfileView) Name() string { return "Perfil" }

func (pv *ProfileView) FocusTarget() tview.Primitive { return pv.form }

func (pv *ProfileView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Save"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetOnSave sets the callback run with the edited fields.
func (pv *ProfileView) SetOnSave(fn func(backend.ProfileUpdate)) { pv.onSave = fn }

// Update renders p. The form is refilled only when the profile changed,
// so edits in progress survive unrelated redraws.
func (pv *ProfileView) Update(p *chat.UserProfile, email string) {
	if p == nil {
		pv.card.SetText("\n  [::d]Carregando perfil...")
		return
	}

	pv.card.Clear()
	var sb strings.Builder
	name := display(p.Name)
	if p.IsVerified {
		name += fmt.Sprintf(" [%s]✔[-]", ui.Tag(pv.theme.VerifiedColor))
	}
	fmt.Fprintf(&sb, "\n  [::b]%s[-:-:-]\n", name)
	if p.IsVerified && p.VerifiedSubtitle != "" {
		fmt.Fprintf(&sb, "  [%s]%s[-]\n", ui.Tag(pv.theme.MutedColor), display(p.VerifiedSubtitle))
	}
	if p.Username != "" {
		fmt.Fprintf(&sb, "  @%s\n", display(p.Username))
	}
	fmt.Fprintf(&sb, "\n  [::d]E-mail:[-:-:-]   %s\n", display(email))
	fmt.Fprintf(&sb, "  [::d]Recado:[-:-:-]   %s\n", display(p.About))
	if p.Phone != "" {
		fmt.Fprintf(&sb, "  [::d]Telefone:[-:-:-] %s\n", display(p.Phone))
	}
	if p.Username != "" {
		url := chat.InviteURL(p.Username)
		fmt.Fprintf(&sb, "\n  [::d]Convite:[-:-:-] %s\n\n%s", display(url), renderQR(url))
	} else {
		sb.WriteString("\n  [::d]Defina um usuário para gerar o QR de convite.[-:-:-]\n")
	}
	_, _ = fmt.Fprint(pv.card, sb.String())

	if *p != pv.profile {
		pv.profile = *p
		pv.fill(*p)
	}
}

func (pv *ProfileView) fill(p chat.UserProfile) {
	values := []string{p.Name, p.Username, p.About, p.Phone, p.Avatar}
	for i, label := range profileFields {
		if f, ok := pv.form.GetFormItemByLabel(label).(*tview.InputField); ok {
			f.SetText(values[i])
		}
	}
}

// update returns only the fields that differ from the loaded profile.
func (pv *ProfileView) update() backend.ProfileUpdate {
	text := func(label string) string {
		if f, ok := pv.form.GetFormItemByLabel(label).(*tview.InputField); ok {
			return strings.TrimSpace(f.GetText())
		}
		return ""
	}
	changed := func(label, old string) string {
		if v := text(label); v != old {
			return v
		}
		return ""
	}
	return backend.ProfileUpdate{
		FullName:  changed("Nome", pv.profile.Name),
		Username:  changed("Usuário", pv.profile.Username),
		About:     changed("Recado", pv.profile.About),
		Phone:     changed("Telefone", pv.profile.Phone),
		AvatarURL: changed("Avatar", pv.profile.Avatar),
	}
}
