package chat

import (
	"context"
	"sync"
	"time"

	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/bus"
	"github.com/matheus3301/blackzap/internal/config"
	"github.com/matheus3301/blackzap/internal/lifecycle"
	"github.com/matheus3301/blackzap/internal/notify"
	"go.uber.org/zap"
)

// Marker persists the focused conversation between runs.
type Marker interface {
	ActiveChat() string
	SetActiveChat(id string) error
}

// Options configures a Controller. Client is required.
type Options struct {
	Client    backend.Client
	Presenter notify.Presenter
	Marker    Marker
	Bus       *bus.Bus
	Logger    *zap.Logger
	Config    config.Client
	Now       func() time.Time
}

// Controller owns the application state. All mutations run on a single
// dispatcher goroutine fed by a FIFO queue; backend calls run on their own
// goroutines and post their results back. Two refreshes may therefore
// resolve out of order, and the last to resolve wins.
type Controller struct {
	client    backend.Client
	presenter notify.Presenter
	marker    Marker
	bus       *bus.Bus
	logger    *zap.Logger
	now       func() time.Time

	agg     *Aggregator
	rec     *Reconciler
	router  *Router
	machine *lifecycle.Machine

	ops    chan func()
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.RWMutex
	state State

	// Dispatcher-only.
	permAsked   bool
	chatLoads   int
	statusLoads int
}

// NewController creates a controller. Call Start to run it.
func NewController(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Bus == nil {
		opts.Bus = bus.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Presenter == nil {
		opts.Presenter = notify.NewLogger(nil, false, opts.Logger)
	}

	c := &Controller{
		client:    opts.Client,
		presenter: opts.Presenter,
		marker:    opts.Marker,
		bus:       opts.Bus,
		logger:    opts.Logger,
		now:       opts.Now,
		agg:       NewAggregator(opts.Client, opts.Config),
		rec:       NewReconciler(opts.Client, opts.Logger),
		machine:   lifecycle.NewSession(opts.Bus),
		ops:       make(chan func(), 256),
	}
	c.agg.now = opts.Now
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.router = NewRouter(opts.Client, c.onChange, opts.Logger)
	c.state = State{Phase: lifecycle.Booting, Visible: true}
	if c.marker != nil {
		c.state.FocusedID = c.marker.ActiveChat()
	}
	return c
}

// Start runs the dispatcher, watches auth changes and bootstraps the
// session. It returns immediately; cancelling ctx stops the controller like
// Stop, without waiting.
func (c *Controller) Start(ctx context.Context) {
	context.AfterFunc(ctx, c.cancel)

	c.wg.Add(1)
	go c.dispatch()

	authCh, stopAuth := c.client.WatchAuth()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer stopAuth()
		for {
			select {
			case <-c.ctx.Done():
				return
			case evt, ok := <-authCh:
				if !ok {
					return
				}
				c.post(func() { c.onAuth(evt) })
			}
		}
	}()

	c.async(func(ctx context.Context) {
		sess, err := c.client.Session(ctx)
		c.post(func() {
			switch {
			case err != nil:
				c.logger.Error("failed to restore session", zap.Error(err))
				c.setPhase(lifecycle.SignedOut)
			case sess == nil:
				c.setPhase(lifecycle.SignedOut)
			default:
				c.signedIn(sess)
			}
		})
	})
}

// Stop tears down the subscription and waits for in-flight work.
func (c *Controller) Stop() {
	c.router.Close()
	c.cancel()
	c.wg.Wait()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

// Changes subscribes to state change notifications. The payload of each
// event is a State snapshot.
func (c *Controller) Changes() (<-chan bus.Event, func()) {
	return c.bus.Subscribe(16, bus.KindStateChanged)
}

func (c *Controller) dispatch() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case op := <-c.ops:
			op()
		}
	}
}

// post queues op for the dispatcher. Dropped after Stop.
func (c *Controller) post(op func()) {
	select {
	case c.ops <- op:
	case <-c.ctx.Done():
	}
}

// async runs fn off the dispatcher.
func (c *Controller) async(fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(c.ctx)
	}()
}

// mutate applies fn to the state and publishes the result. Dispatcher only.
func (c *Controller) mutate(fn func(s *State)) {
	c.mu.Lock()
	fn(&c.state)
	snap := c.state.clone()
	c.mu.Unlock()
	c.bus.Publish(bus.Event{Kind: bus.KindStateChanged, Payload: snap})
}

// read returns the live state for dispatcher-side decisions.
func (c *Controller) read() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) setPhase(p lifecycle.Phase) {
	if c.machine.Current() == p {
		return
	}
	if err := c.machine.Transition(p); err != nil {
		c.logger.Warn("unexpected session phase change", zap.Error(err))
		return
	}
	c.mutate(func(s *State) { s.Phase = p })
}

func (c *Controller) onAuth(evt backend.AuthEvent) {
	c.logger.Info("auth state changed", zap.String("event", string(evt.Type)))
	switch evt.Type {
	case backend.SignedOut:
		c.signedOut()
	case backend.SignedIn, backend.TokenRefreshed:
		if evt.Session != nil {
			c.signedIn(evt.Session)
		}
	}
}

// signedIn (re)loads the whole profile pipeline and binds realtime for the
// identity. Token refreshes take the same path.
func (c *Controller) signedIn(sess *backend.Session) {
	uid := sess.UserID
	c.mutate(func(s *State) {
		if s.UserID != uid {
			s.signedOut()
			if c.marker != nil {
				s.FocusedID = c.marker.ActiveChat()
			}
		}
		s.UserID = uid
		s.Email = sess.Email
	})
	c.setPhase(lifecycle.Loading)

	c.async(func(ctx context.Context) {
		c.router.Bind(ctx, uid)
		c.post(func() {
			if c.read().UserID != uid {
				c.router.Close()
			}
		})
	})

	if !c.permAsked {
		c.permAsked = true
		c.async(func(ctx context.Context) {
			p := c.presenter.RequestPermission(ctx)
			c.logger.Debug("notification permission", zap.String("permission", string(p)))
		})
	}

	c.loadProfile(uid, true)
}

func (c *Controller) signedOut() {
	c.router.Close()
	c.mutate(func(s *State) { s.signedOut() })
	c.clearMarker()
	c.setPhase(lifecycle.SignedOut)
}

// loadProfile fetches the user's profile and, once it arrives, refreshes
// chats and status. With phase set it also drives LOADING to READY/ERROR.
func (c *Controller) loadProfile(uid string, phase bool) {
	c.async(func(ctx context.Context) {
		p, err := c.client.Profile(ctx, uid)
		c.post(func() {
			if c.read().UserID != uid {
				return
			}
			if err != nil {
				c.logger.Error("failed to load profile", zap.String("user_id", uid), zap.Error(err))
				if phase {
					c.setPhase(lifecycle.Error)
				}
				return
			}
			up := userProfileFrom(*p)
			c.mutate(func(s *State) { s.Profile = &up })
			if phase {
				c.setPhase(lifecycle.Ready)
			}
			c.refreshChats()
			c.refreshStatus()
			if focused := c.read().FocusedID; focused != "" {
				c.markRead(focused)
			}
		})
	})
}

func (c *Controller) refreshChats() {
	uid := c.read().UserID
	if uid == "" {
		return
	}
	c.chatLoads++
	c.mutate(func(s *State) { s.ContactsLoading = true })
	c.async(func(ctx context.Context) {
		contacts, err := c.agg.Load(ctx, uid)
		c.post(func() {
			c.chatLoads--
			c.mutate(func(s *State) {
				s.ContactsLoading = c.chatLoads > 0
				if s.UserID != uid {
					return
				}
				if err != nil {
					c.logger.Error("failed to load recent chats", zap.Error(err))
					return
				}
				s.Contacts = contacts
			})
		})
	})
}

func (c *Controller) refreshStatus() {
	uid := c.read().UserID
	if uid == "" {
		return
	}
	c.statusLoads++
	c.mutate(func(s *State) { s.StatusLoading = true })
	since := c.now().Add(-StatusRetention)
	c.async(func(ctx context.Context) {
		posts, err := c.client.ListStatus(ctx, since)
		c.post(func() {
			c.statusLoads--
			c.mutate(func(s *State) {
				s.StatusLoading = c.statusLoads > 0
				if s.UserID != uid {
					return
				}
				if err != nil {
					c.logger.Error("failed to load status", zap.Error(err))
					return
				}
				list := make([]StatusUpdate, len(posts))
				for i, p := range posts {
					list[i] = statusUpdateFrom(p)
				}
				s.Status = list
			})
		})
	})
}

// markRead zeroes the counter now and persists in the background.
func (c *Controller) markRead(contactID string) {
	uid := c.read().UserID
	if uid == "" || contactID == "" {
		return
	}
	c.mutate(func(s *State) { s.Contacts = c.rec.Optimistic(s.Contacts, contactID) })
	c.async(func(ctx context.Context) {
		_ = c.rec.Persist(ctx, contactID, uid)
	})
}

// onChange is the router sink.
func (c *Controller) onChange(ch backend.Change) {
	c.post(func() {
		st := c.read()
		if st.UserID == "" {
			return
		}
		c.execute(Route(ch, st.UserID, st.FocusedID))
		if ch.Table == backend.TableMessages {
			c.threadChanged(ch, st.UserID)
		}
	})
}

// threadChanged announces which conversation a message change touched. The
// payload is the other party's ID.
func (c *Controller) threadChanged(ch backend.Change, uid string) {
	m, err := ch.Message()
	if err != nil {
		return
	}
	other := m.SenderID
	if other == uid {
		other = m.ContactID
	}
	c.bus.Publish(bus.Event{Kind: bus.KindThreadChanged, Payload: other})
}

// ThreadChanges subscribes to message changes per conversation. The payload
// of each event is the contact ID whose thread changed.
func (c *Controller) ThreadChanges() (<-chan bus.Event, func()) {
	return c.bus.Subscribe(16, bus.KindThreadChanged)
}

func (c *Controller) execute(plan Plan) {
	if plan.RefreshStatus {
		c.refreshStatus()
	}
	if plan.Notify {
		c.notify(plan.Message)
	}
	if plan.MarkRead {
		c.markRead(plan.Message.SenderID)
	}
	if plan.RefreshChats {
		c.refreshChats()
	}
}

func (c *Controller) notify(m backend.Message) {
	c.async(func(ctx context.Context) {
		sender, err := c.client.Profile(ctx, m.SenderID)
		if err != nil {
			c.logger.Warn("failed to fetch sender profile", zap.String("sender_id", m.SenderID), zap.Error(err))
			sender = nil
		}
		c.post(func() {
			st := c.read()
			if !ShouldNotify(c.presenter.Permission(), st.Visible, st.FocusedID, m.SenderID) {
				return
			}
			c.presenter.Show(NotificationFor(m, sender))
		})
	})
}

func (c *Controller) setMarker(id string) {
	if c.marker == nil {
		return
	}
	if err := c.marker.SetActiveChat(id); err != nil {
		c.logger.Warn("failed to persist focused conversation", zap.Error(err))
	}
}

func (c *Controller) clearMarker() {
	c.setMarker("")
}
