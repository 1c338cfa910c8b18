// Package tui is the terminal client: a page stack of views driven by the
// chat controller's state snapshots.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/chat"
	"github.com/matheus3301/blackzap/internal/lifecycle"
	"github.com/matheus3301/blackzap/internal/notify"
	"github.com/matheus3301/blackzap/internal/tui/keys"
	"github.com/matheus3301/blackzap/internal/tui/ui"
	"github.com/matheus3301/blackzap/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Page ids.
const (
	pageAuth    = "auth"
	pageChats   = "chats"
	pageThread  = "thread"
	pageDetails = "details"
	pageSearch  = "search"
	pageStatus  = "status"
	pageProfile = "profile"
	pageHelp    = "help"
)

// Options configures the App.
type Options struct {
	Controller *chat.Controller
	Tray       *notify.Tray
	Instance   string
	Logger     *zap.Logger
}

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	ctrl     *chat.Controller
	tray     *notify.Tray
	logger   *zap.Logger
	instance string
	theme    *ui.Theme
	registry *keys.Registry
	flash    *ui.FlashModel

	pages    *ui.Pages
	main     *tview.Flex
	header   *ui.AccountInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	logo     *ui.Logo
	flashBar *ui.FlashBar
	prompt   *ui.Prompt
	prompted bool

	auth    *views.AuthView
	chats   *views.ConversationList
	thread  *views.MessageThread
	details *views.ContactInfo
	search  *views.SearchView
	status  *views.StatusView
	profile *views.ProfileView
	help    *views.HelpView

	// state is the last snapshot rendered. UI goroutine only.
	state chat.State

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	theme := ui.DefaultTheme()
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:      tview.NewApplication(),
		ctrl:     opts.Controller,
		tray:     opts.Tray,
		logger:   logger,
		instance: opts.Instance,
		theme:    theme,
		registry: keys.NewRegistry(),
		flash:    ui.NewFlashModel(),
		pages:    ui.NewPages(),
		header:   ui.NewAccountInfo(theme),
		menu:     ui.NewMenu(theme),
		crumbs:   ui.NewCrumbs(theme),
		logo:     ui.NewLogo(theme),
		flashBar: ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		auth:     views.NewAuthView(theme),
		chats:    views.NewConversationList(theme),
		thread:   views.NewMessageThread(theme),
		details:  views.NewContactInfo(theme),
		search:   views.NewSearchView(theme),
		status:   views.NewStatusView(theme),
		profile:  views.NewProfileView(theme),
		help:     views.NewHelpView(theme),
		ctx:      ctx,
		cancel:   cancel,
	}

	a.setupPages()
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupPages() {
	a.pages.Register(pageAuth, a.auth)
	a.pages.Register(pageChats, a.chats)
	a.pages.Register(pageThread, a.thread)
	a.pages.Register(pageDetails, a.details)
	a.pages.Register(pageSearch, a.search)
	a.pages.Register(pageStatus, a.status)
	a.pages.Register(pageProfile, a.profile)
	a.pages.Register(pageHelp, a.help)

	a.pages.SetOnChange(func() {
		a.crumbs.Update(a.pages.Names())
		a.menu.Update(append(a.pages.Top().Hints(), a.registry.Hints(a.pages.Current())...))
		a.app.SetFocus(a.pages.Top().FocusTarget())
	})
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?', Description: "Help", Visible: true,
		Handler: func() { a.pages.Push(pageHelp) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':',
		Handler: func() { a.showPrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key:     tcell.KeyEscape,
		Handler: a.back,
	})

	a.registry.AddView(pageChats, &keys.Action{
		Key: tcell.KeyRune, Rune: '/',
		Handler: func() { a.showPrompt(ui.PromptFilter) },
	})
	a.registry.AddView(pageChats, &keys.Action{
		Key: tcell.KeyRune, Rune: 'n',
		Handler: a.showSearch,
	})
	a.registry.AddView(pageChats, &keys.Action{
		Key: tcell.KeyRune, Rune: 't',
		Handler: func() { a.pages.Push(pageStatus) },
	})
	a.registry.AddView(pageChats, &keys.Action{
		Key: tcell.KeyRune, Rune: 'p',
		Handler: func() { a.pages.Push(pageProfile) },
	})
	a.registry.AddView(pageChats, &keys.Action{
		Key: tcell.KeyRune, Rune: 'r',
		Handler: a.refresh,
	})
	a.registry.AddView(pageChats, &keys.Action{
		Key: tcell.KeyRune, Rune: 'o',
		Handler: a.openNotification,
	})
	a.registry.AddView(pageChats, &keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Handler: a.Stop,
	})
	a.registry.AddView(pageChats, &keys.Action{
		Key: tcell.KeyRune, Rune: '0',
		Handler: func() { a.chats.SetFilter("") },
	})
	for n := 1; n <= 9; n++ {
		a.registry.AddView(pageChats, &keys.Action{
			Key: tcell.KeyRune, Rune: rune('0' + n),
			Handler: func() {
				if c, ok := a.chats.ByIndex(n); ok {
					a.ctrl.Open(c.ID)
				}
			},
		})
	}

	a.registry.AddView(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'i',
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddView(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'd',
		Handler: func() {
			if c, ok := a.state.Focused(); ok {
				a.details.Update(c)
				a.pages.Push(pageDetails)
			}
		},
	})

	for _, page := range []string{pageThread, pageSearch, pageStatus} {
		a.registry.AddView(page, &keys.Action{
			Key:     tcell.KeyTab,
			Handler: a.cycleFocus,
		})
	}
}

func (a *App) setupCallbacks() {
	a.chats.SetSelectedFunc(func(row, _ int) {
		if c, ok := a.chats.ByIndex(row); ok {
			a.ctrl.Open(c.ID)
		}
	})

	a.thread.SetOnSend(func(text string) {
		a.ctrl.Send(composeMessage(text))
	})

	a.search.SetOnQuery(a.ctrl.Search)
	a.search.SetOnSelect(a.ctrl.SelectGlobal)

	a.status.SetOnPost(a.postStatus)

	a.profile.SetOnSave(func(u backend.ProfileUpdate) {
		if u.Empty() {
			a.flash.Warn("Nada para salvar")
			return
		}
		a.ctrl.UpdateProfile(u)
		a.flash.Info("Perfil atualizado")
	})

	a.auth.SetOnSignIn(func(c views.Credentials) {
		if c.Email == "" || c.Password == "" {
			a.auth.ShowError("Informe e-mail e senha")
			return
		}
		a.auth.ShowMessage("Entrando...")
		go a.authenticate(func(ctx context.Context) error {
			return a.ctrl.SignIn(ctx, c.Email, c.Password)
		})
	})
	a.auth.SetOnSignUp(func(c views.Credentials) {
		if c.Email == "" || c.Password == "" || strings.TrimSpace(c.Name) == "" {
			a.auth.ShowError("Cadastro precisa de e-mail, senha e nome")
			return
		}
		a.auth.ShowMessage("Criando conta...")
		go a.authenticate(func(ctx context.Context) error {
			return a.ctrl.SignUp(ctx, c.Email, c.Password, strings.TrimSpace(c.Name))
		})
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptCommand:
			if strings.TrimSpace(text) != "" {
				a.runCommand(ParseCommand(text))
			}
		case ui.PromptFilter:
			a.chats.SetFilter(strings.TrimSpace(text))
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)

	if a.tray != nil {
		a.tray.OnShow(func(n notify.Notification) {
			a.flash.Info(fmt.Sprintf("🔔 %s: %s", n.Title, n.Body))
		})
	}
}

func (a *App) setupLayout() {
	top := tview.NewFlex().
		AddItem(a.header, 0, 2, false).
		AddItem(a.menu, 0, 2, false).
		AddItem(a.logo, 14, 0, false)

	a.main = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, 5, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.pages, 0, 1, true)

	a.app.SetRoot(a.main, true)
	a.app.SetInputCapture(a.capture)
}

func (a *App) capture(event *tcell.EventKey) *tcell.EventKey {
	if a.prompted {
		return event
	}
	if event.Key() == tcell.KeyCtrlC {
		a.Stop()
		return nil
	}

	current := a.pages.Current()
	switch a.app.GetFocus().(type) {
	case *tview.InputField, *tview.Button, *tview.Checkbox:
		// Text entry keeps its keys; Escape and pane switching still work.
		switch {
		case event.Key() == tcell.KeyEscape && current == pageThread:
			a.app.SetFocus(a.thread.Messages())
			return nil
		case event.Key() == tcell.KeyEscape && current == pageAuth:
			return event
		case event.Key() == tcell.KeyEscape, event.Key() == tcell.KeyTab:
			if a.registry.HandleEvent(current, event) {
				return nil
			}
		}
		return event
	}

	if a.registry.HandleEvent(current, event) {
		return nil
	}
	return event
}

// Run starts the TUI and blocks until it exits.
func (a *App) Run() error {
	changes, stopChanges := a.ctrl.Changes()
	defer stopChanges()
	threads, stopThreads := a.ctrl.ThreadChanges()
	defer stopThreads()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-a.ctx.Done():
				return
			case <-ticker.C:
				a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.flash.Current()) })
			case evt, ok := <-changes:
				if !ok {
					return
				}
				if s, ok := evt.Payload.(chat.State); ok {
					a.app.QueueUpdateDraw(func() { a.render(s) })
				}
			case evt, ok := <-threads:
				if !ok {
					return
				}
				if id, ok := evt.Payload.(string); ok {
					a.app.QueueUpdateDraw(func() {
						if id == a.state.FocusedID {
							a.loadThread(id)
						}
					})
				}
			case <-a.flash.Watch():
				a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.flash.Current()) })
			}
		}
	}()

	a.pages.Reset(pageChats)
	a.render(a.ctrl.Snapshot())
	a.ctrl.SetVisible(true)
	defer a.ctrl.SetVisible(false)

	return a.app.Run()
}

// render applies a state snapshot to every view. UI goroutine only.
func (a *App) render(s chat.State) {
	prev := a.state
	a.state = s

	switch s.Phase {
	case lifecycle.SignedOut:
		if a.pages.Current() != pageAuth {
			a.auth.ClearPassword()
			a.auth.ShowMessage("")
			a.pages.Reset(pageAuth)
		}
	case lifecycle.Error:
		if prev.Phase != lifecycle.Error {
			a.flash.Warn("Falha ao carregar o perfil")
		}
	case lifecycle.Loading, lifecycle.Ready:
		if a.pages.Current() == pageAuth || a.pages.Current() == "" {
			a.pages.Reset(pageChats)
		}
	}

	a.chats.Update(s.Contacts, s.ContactsLoading)
	a.search.Update(s.GlobalResults)
	a.status.Update(s.Status, s.StatusLoading)
	a.profile.Update(s.Profile, s.Email)

	data := ui.AccountData{
		Instance: a.instance,
		Email:    s.Email,
		Phase:    string(s.Phase),
		Chats:    len(s.Contacts),
		Unread:   s.TotalUnread(),
	}
	if s.Profile != nil {
		data.Name = s.Profile.Name
		data.Username = s.Profile.Username
	}
	a.header.Update(data)
	a.logo.SetUnread(data.Unread)

	switch {
	case s.FocusedID != "" && s.FocusedID != prev.FocusedID:
		a.openThread(s)
	case s.FocusedID == "" && prev.FocusedID != "":
		if a.pages.Current() == pageThread || a.pages.Current() == pageDetails {
			a.pages.Reset(pageChats)
		}
	case s.FocusedID != "":
		if c, ok := s.Focused(); ok {
			a.thread.SetContact(c)
		}
	}
}

func (a *App) openThread(s chat.State) {
	c, ok := s.Focused()
	if !ok {
		c = chat.Contact{ID: s.FocusedID, Name: chat.NewConversationLabel}
	}
	a.thread.SetContact(c)
	a.chats.Reselect(c.ID)
	if a.pages.Current() != pageAuth {
		a.pages.Reset(pageChats)
		a.pages.Push(pageThread)
	}
	a.loadThread(c.ID)
}

// loadThread fetches the conversation off the UI goroutine and renders it
// if it is still the open one.
func (a *App) loadThread(contactID string) {
	go func() {
		msgs, err := a.ctrl.Thread(a.ctx, contactID)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				a.logger.Error("failed to load thread", zap.String("contact_id", contactID), zap.Error(err))
				a.flash.Err(err)
			}
			return
		}
		a.app.QueueUpdateDraw(func() {
			if a.state.FocusedID == contactID {
				a.thread.Update(msgs, a.state.UserID)
			}
		})
	}()
}

func (a *App) authenticate(fn func(ctx context.Context) error) {
	err := fn(a.ctx)
	a.app.QueueUpdateDraw(func() {
		if err != nil {
			a.auth.ClearPassword()
			a.auth.ShowError(authMessage(err))
			return
		}
		a.auth.ShowMessage("Carregando...")
	})
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, backend.ErrInvalidCredentials):
		return "E-mail ou senha incorretos"
	case errors.Is(err, backend.ErrEmailTaken):
		return "E-mail já cadastrado"
	}
	return err.Error()
}

func (a *App) postStatus(text string) {
	go func() {
		err := a.ctrl.PostStatus(a.ctx, backend.NewStatus{
			Type:    backend.StatusTypeText,
			Content: text,
		})
		if err != nil {
			a.logger.Error("failed to post status", zap.Error(err))
			a.flash.Err(err)
			return
		}
		a.flash.Info("Status publicado")
	}()
}

// openNotification opens the conversation of the latest notification and
// dismisses it.
func (a *App) openNotification() {
	if a.tray == nil {
		return
	}
	n, ok := a.tray.Latest()
	if !ok {
		a.flash.Warn("Nenhuma notificação")
		return
	}
	a.tray.Dismiss(n.Tag)
	a.ctrl.NotificationClicked(n.Tag)
}

func (a *App) refresh() {
	a.ctrl.Refresh()
	a.flash.Info("Atualizando...")
}

// back leaves the current page. Leaving the thread closes the conversation.
func (a *App) back() {
	switch a.pages.Current() {
	case pageThread:
		a.ctrl.Close()
	case pageSearch:
		a.search.Reset()
		a.ctrl.Search("")
		a.pages.Pop()
	default:
		a.pages.Pop()
	}
}

func (a *App) cycleFocus() {
	focused := a.app.GetFocus()
	switch a.pages.Current() {
	case pageThread:
		if focused == a.thread.Composer() {
			a.app.SetFocus(a.thread.Messages())
		} else {
			a.app.SetFocus(a.thread.Composer())
		}
	case pageSearch:
		if focused == a.search.Input() {
			a.app.SetFocus(a.search.Results())
		} else {
			a.app.SetFocus(a.search.Input())
		}
	case pageStatus:
		if focused == a.status.Input() {
			a.app.SetFocus(a.status.Table())
		} else {
			a.app.SetFocus(a.status.Input())
		}
	}
}

func (a *App) showSearch() {
	a.pages.Push(pageSearch)
}

func (a *App) showPrompt(mode ui.PromptMode) {
	if a.prompted {
		return
	}
	a.prompted = true
	a.prompt.Activate(mode)
	a.main.AddItem(a.prompt, 3, 0, false)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	if !a.prompted {
		return
	}
	a.prompted = false
	a.main.RemoveItem(a.prompt)
	if top := a.pages.Top(); top != nil {
		a.app.SetFocus(top.FocusTarget())
	}
}

func (a *App) runCommand(cmd Command) {
	a.logger.Debug("command", zap.String("name", cmd.Name), zap.String("args", cmd.Args))
	if a.state.UserID == "" && cmd.Name != "quit" && cmd.Name != "help" {
		a.flash.Warn("Entre na sua conta primeiro")
		return
	}

	switch cmd.Name {
	case "quit":
		a.Stop()
	case "help":
		a.pages.Push(pageHelp)
	case "chat":
		a.openByName(cmd.Args)
	case "search":
		a.showSearch()
		a.search.Input().SetText(cmd.Args)
		a.ctrl.Search(cmd.Args)
	case "post":
		if cmd.Args == "" {
			a.pages.Push(pageStatus)
			return
		}
		a.postStatus(cmd.Args)
	case "status":
		a.pages.Push(pageStatus)
	case "profile":
		a.pages.Push(pageProfile)
	case "refresh":
		a.refresh()
	case "notification":
		a.openNotification()
	case "signout":
		go func() {
			if err := a.ctrl.SignOut(a.ctx); err != nil {
				a.flash.Err(err)
			}
		}()
	default:
		a.flash.Warn("Comando desconhecido: " + cmd.Name)
	}
}

// openByName opens the recent chat matching name or @username, falling
// back to a global search.
func (a *App) openByName(name string) {
	if name == "" {
		a.showSearch()
		return
	}
	if c, ok := findContact(a.state.Contacts, name); ok {
		a.ctrl.Open(c.ID)
		return
	}
	a.showSearch()
	a.search.Input().SetText(name)
	a.ctrl.Search(name)
}

// findContact matches an exact @username first, then a name prefix.
func findContact(contacts []chat.Contact, name string) (chat.Contact, bool) {
	if handle, ok := strings.CutPrefix(name, "@"); ok {
		for _, c := range contacts {
			if strings.EqualFold(c.Username, handle) {
				return c, true
			}
		}
		return chat.Contact{}, false
	}
	for _, c := range contacts {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	lower := strings.ToLower(name)
	for _, c := range contacts {
		if strings.HasPrefix(strings.ToLower(c.Name), lower) {
			return c, true
		}
	}
	return chat.Contact{}, false
}

// composeMessage turns composer shortcuts into sentinel payloads:
// "/img <url>", "/audio <url>" and "/file <url>".
func composeMessage(text string) string {
	cmd, rest, ok := strings.Cut(strings.TrimSpace(text), " ")
	if !ok {
		return text
	}
	kinds := map[string]chat.Kind{
		"/img":   chat.KindImage,
		"/audio": chat.KindAudio,
		"/file":  chat.KindFile,
	}
	if k, ok := kinds[cmd]; ok && strings.TrimSpace(rest) != "" {
		return chat.Compose(k, strings.TrimSpace(rest))
	}
	return text
}

// Stop shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
