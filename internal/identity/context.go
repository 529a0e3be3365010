// Package identity tracks who is signed in on one client and what their
// profile is. It is the only writer of that state.
package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/dtroode/assoc-server/internal/logger"
	"github.com/dtroode/assoc-server/internal/model"
)

// State is a snapshot of the identity. User and Profile are nil when absent.
type State struct {
	User    *model.User
	Profile *model.Profile
	Loading bool
	Err     error
}

// IsAdmin reports whether the profile has the admin role.
func (s State) IsAdmin() bool {
	return s.Profile != nil && s.Profile.Role == model.RoleAdmin
}

// Context holds the identity state of one client.
type Context struct {
	store  model.SessionStore
	logger *logger.Logger

	mu           sync.Mutex
	state        State
	seq          uint64
	mounted      bool
	unmounted    bool
	mountCtx     context.Context
	cancel       context.CancelFunc
	unsubscribe  func()
	observers    map[uint64]func(State)
	nextObserver uint64

	notifyMu sync.Mutex
	wg       sync.WaitGroup
}

// New creates an unmounted Context. It reports Loading until the first
// fetch completes.
func New(store model.SessionStore, logger *logger.Logger) *Context {
	return &Context{
		store:     store,
		logger:    logger,
		state:     State{Loading: true},
		observers: make(map[uint64]func(State)),
	}
}

// Store returns the session store the context reads from.
func (c *Context) Store() model.SessionStore {
	return c.store
}

// State returns the current snapshot.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Context) snapshotLocked() State {
	s := c.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	if s.Profile != nil {
		p := *s.Profile
		s.Profile = &p
	}
	return s
}

// IsAdmin reports whether the current profile has the admin role.
func (c *Context) IsAdmin() bool {
	return c.State().IsAdmin()
}

// Subscribe registers fn to receive every state change. Calls are
// serialized and never run with the state lock held.
func (c *Context) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	c.nextObserver++
	id := c.nextObserver
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

func (c *Context) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	state := c.snapshotLocked()
	observers := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}

// Mount subscribes to auth changes and loads the current identity. Every
// later auth event reloads it in the background until Unmount.
func (c *Context) Mount(ctx context.Context) {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	c.mountCtx, c.cancel = context.WithCancel(ctx)
	mountCtx := c.mountCtx
	c.mu.Unlock()

	unsubscribe := c.store.OnAuthStateChange(c.onAuthStateChange)

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	c.FetchUser(mountCtx)
}

// Unmount stops listening and waits for background reloads to finish.
// Results that arrive afterwards are discarded.
func (c *Context) Unmount() {
	c.mu.Lock()
	if !c.mounted || c.unmounted {
		c.mu.Unlock()
		return
	}
	c.unmounted = true
	unsubscribe, cancel := c.unsubscribe, c.cancel
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	cancel()
	c.wg.Wait()
}

func (c *Context) onAuthStateChange(event model.AuthEvent, _ *model.Session) {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	ctx := c.mountCtx
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Debug("Identity: auth state changed",
		"event", event)

	go func() {
		defer c.wg.Done()
		c.FetchUser(ctx)
	}()
}

// FetchUser reloads the session and profile. Only the most recently started
// call may write its result.
func (c *Context) FetchUser(ctx context.Context) {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	c.seq++
	seq := c.seq
	c.state.Loading = true
	c.mu.Unlock()
	c.notify()

	session, err := c.store.GetCurrentSession(ctx)
	if err != nil {
		c.logger.Error("Identity: failed to get current session",
			"error", err.Error())
		c.apply(seq, func(s *State) {
			*s = State{Err: err}
		})
		return
	}
	if session == nil {
		c.apply(seq, func(s *State) {
			*s = State{}
		})
		return
	}

	user := &model.User{ID: session.UserID, Email: session.Email}
	if !c.update(seq, func(s *State) {
		s.User = user
		s.Err = nil
	}) {
		return
	}

	profile, err := c.store.FetchProfile(ctx, session.UserID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		c.apply(seq, func(s *State) {
			*s = State{User: user}
		})
	case err != nil:
		c.logger.Error("Identity: failed to fetch profile",
			"user_id", session.UserID,
			"error", err.Error())
		c.apply(seq, func(s *State) {
			*s = State{User: user, Err: err}
		})
	default:
		c.apply(seq, func(s *State) {
			*s = State{User: user, Profile: &profile}
		})
	}
}

// update mutates the state if seq is still the latest fetch.
func (c *Context) update(seq uint64, fn func(*State)) bool {
	c.mu.Lock()
	if c.unmounted || seq != c.seq {
		c.mu.Unlock()
		return false
	}
	fn(&c.state)
	c.mu.Unlock()
	c.notify()
	return true
}

// apply writes a final result and clears Loading.
func (c *Context) apply(seq uint64, fn func(*State)) {
	c.update(seq, func(s *State) {
		fn(s)
		s.Loading = false
	})
}

// SignIn checks the credentials and reloads the identity.
func (c *Context) SignIn(ctx context.Context, email, password string) model.Result {
	if _, err := c.store.SignInWithPassword(ctx, email, password); err != nil {
		c.logger.Info("Identity: sign in failed",
			"email", email,
			"error", err.Error())
		return model.Failure(err)
	}

	c.FetchUser(ctx)
	return model.Success()
}

// SignUp creates an account. The profile is provisioned by the backend.
func (c *Context) SignUp(ctx context.Context, email, password, firstName, lastName string) model.Result {
	_, err := c.store.SignUp(ctx, email, password, model.SignUpMetadata{
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		c.logger.Info("Identity: sign up failed",
			"email", email,
			"error", err.Error())
		return model.Failure(err)
	}
	return model.Success()
}

// SignOut ends the session and clears the identity.
func (c *Context) SignOut(ctx context.Context) model.Result {
	if err := c.store.SignOut(ctx); err != nil {
		c.logger.Error("Identity: sign out failed",
			"error", err.Error())
		return model.Failure(err)
	}

	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return model.Success()
	}
	// Supersede any fetch still in flight.
	c.seq++
	c.state = State{}
	c.mu.Unlock()
	c.notify()

	return model.Success()
}
