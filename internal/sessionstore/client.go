// Package sessionstore holds the session of one browser client and exposes
// the backend through the SessionStore capability contract.
package sessionstore

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/dtroode/assoc-server/internal/events"
	"github.com/dtroode/assoc-server/internal/logger"
	"github.com/dtroode/assoc-server/internal/model"
)

// Backend is the server side of the session store.
type Backend interface {
	SignUp(ctx context.Context, email, password string, meta model.SignUpMetadata) (model.User, error)
	SignInWithPassword(ctx context.Context, email, password string) (model.Session, error)
	GetSession(ctx context.Context, accessToken string) (model.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	FetchProfile(ctx context.Context, userID uuid.UUID) (model.Profile, error)
	FetchRolePermissions(ctx context.Context, role model.Role) ([]model.Permission, error)
	Subscribe(userID uuid.UUID, fn events.Handler) (unsubscribe func())
}

var _ model.SessionStore = (*Client)(nil)

// Client is a SessionStore bound to one access token.
type Client struct {
	backend Backend
	logger  *logger.Logger

	mu        sync.Mutex
	token     string
	current   *model.Session
	listeners map[uint64]model.AuthStateListener
	nextID    uint64
	watching  uuid.UUID
	unwatch   func()
}

// New creates a Client resuming accessToken. An empty token means signed out.
func New(backend Backend, accessToken string, logger *logger.Logger) *Client {
	return &Client{
		backend:   backend,
		logger:    logger,
		token:     accessToken,
		listeners: make(map[uint64]model.AuthStateListener),
	}
}

// AccessToken returns the token to persist for this client.
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// GetCurrentSession returns the live session, or nil when signed out. A
// token the backend no longer accepts is dropped.
func (c *Client) GetCurrentSession(ctx context.Context) (*model.Session, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token == "" {
		return nil, nil
	}

	session, err := c.backend.GetSession(ctx, token)
	if err != nil {
		if isDeadSession(err) {
			c.logger.Debug("Session store: dropping dead session",
				"error", err.Error())
			c.drop(token)
			return nil, nil
		}
		return nil, err
	}

	c.mu.Lock()
	if c.token == token {
		c.current = &session
		c.watchLocked(session.UserID)
	}
	c.mu.Unlock()

	s := session
	return &s, nil
}

func isDeadSession(err error) bool {
	return errors.Is(err, model.ErrSessionExpired) ||
		errors.Is(err, model.ErrSessionRevoked) ||
		errors.Is(err, model.ErrSessionMismatch)
}

func (c *Client) drop(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != token {
		return
	}
	c.token = ""
	c.current = nil
	c.unwatchLocked()
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (model.Session, error) {
	session, err := c.backend.SignInWithPassword(ctx, email, password)
	if err != nil {
		return model.Session{}, err
	}

	c.mu.Lock()
	c.token = session.AccessToken
	c.current = &session
	c.mu.Unlock()

	c.notify(model.AuthEventSignedIn, &session)

	c.mu.Lock()
	c.watchLocked(session.UserID)
	c.mu.Unlock()

	return session, nil
}

// SignUp creates the account. It does not sign the client in.
func (c *Client) SignUp(ctx context.Context, email, password string, meta model.SignUpMetadata) (model.User, error) {
	return c.backend.SignUp(ctx, email, password, meta)
}

func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	// The backend announces the sign-out to this user's clients; this one
	// notifies its own listeners below.
	c.unwatchLocked()
	c.mu.Unlock()

	if token != "" {
		if err := c.backend.SignOut(ctx, token); err != nil {
			c.mu.Lock()
			if c.current != nil {
				c.watchLocked(c.current.UserID)
			}
			c.mu.Unlock()
			return err
		}
	}

	c.mu.Lock()
	c.token = ""
	c.current = nil
	c.mu.Unlock()

	c.notify(model.AuthEventSignedOut, nil)
	return nil
}

// OnAuthStateChange registers listener for local and backend events.
func (c *Client) OnAuthStateChange(listener model.AuthStateListener) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[id] = listener
	if c.current != nil {
		c.watchLocked(c.current.UserID)
	}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.listeners, id)
			if len(c.listeners) == 0 {
				c.unwatchLocked()
			}
		})
	}
}

func (c *Client) FetchProfile(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	return c.backend.FetchProfile(ctx, userID)
}

func (c *Client) FetchRolePermissions(ctx context.Context, role model.Role) ([]model.Permission, error) {
	return c.backend.FetchRolePermissions(ctx, role)
}

// Close detaches the client from backend events and drops its listeners.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unwatchLocked()
	c.listeners = make(map[uint64]model.AuthStateListener)
}

// watchLocked follows backend events of userID while anyone listens.
func (c *Client) watchLocked(userID uuid.UUID) {
	if len(c.listeners) == 0 || c.watching == userID {
		return
	}
	c.unwatchLocked()
	c.watching = userID
	c.unwatch = c.backend.Subscribe(userID, c.onBackendEvent)
}

func (c *Client) unwatchLocked() {
	if c.unwatch != nil {
		c.unwatch()
	}
	c.unwatch = nil
	c.watching = uuid.Nil
}

func (c *Client) onBackendEvent(event model.AuthEvent) {
	c.mu.Lock()
	var session *model.Session
	if c.current != nil {
		s := *c.current
		session = &s
	}
	c.mu.Unlock()

	c.notify(event, session)
}

func (c *Client) notify(event model.AuthEvent, session *model.Session) {
	c.mu.Lock()
	listeners := make([]model.AuthStateListener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(event, session)
	}
}
