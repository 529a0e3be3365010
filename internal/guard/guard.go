// Package guard decides whether the current identity may enter a protected
// area. Every error path ends in a denial.
package guard

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/assoc-server/internal/identity"
	"github.com/dtroode/assoc-server/internal/logger"
	"github.com/dtroode/assoc-server/internal/model"
)

const (
	SignInPath       = "/signin"
	UnauthorizedPath = "/unauthorized"
)

const defaultTimeout = 5 * time.Second

// State is the position of a guard in its state machine.
type State int

const (
	Checking State = iota
	Authorized
	Denied
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Decision is the outcome of one evaluation.
type Decision struct {
	State    State
	Reason   string
	Code     string
	Redirect string
}

// Terminal reports whether the decision is Authorized or Denied.
func (d Decision) Terminal() bool {
	return d.State != Checking
}

// ProfileFetcher reads a profile straight from the session store.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, userID uuid.UUID) (model.Profile, error)
}

// PermissionChecker answers permission questions for an identity.
type PermissionChecker interface {
	Sync(ctx context.Context, user *model.User, profile *model.Profile)
	HasAllPermissions(perms []model.Permission) bool
}

// Observer is told about every terminal decision.
type Observer interface {
	ObserveDecision(guard string, d Decision, elapsed time.Duration)
}

// Guard evaluates a Policy.
type Guard struct {
	policy   Policy
	timeout  time.Duration
	recorder model.IncidentRecorder
	observer Observer
	logger   *logger.Logger
	now      func() time.Time
}

type Option func(*Guard)

// WithTimeout bounds every evaluation. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(g *Guard) { g.timeout = d }
}

// WithIncidentRecorder keeps tamper and suspension denials.
func WithIncidentRecorder(r model.IncidentRecorder) Option {
	return func(g *Guard) { g.recorder = r }
}

func WithObserver(o Observer) Option {
	return func(g *Guard) { g.observer = o }
}

func New(policy Policy, logger *logger.Logger, opts ...Option) *Guard {
	g := &Guard{
		policy:  policy,
		timeout: defaultTimeout,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) Policy() Policy {
	return g.policy
}

// Target is what a guard protects and the collaborators it checks against.
type Target struct {
	// Path is the protected location, used as the return path after sign-in.
	Path        string
	Profiles    ProfileFetcher
	Permissions PermissionChecker
}

func signInRedirect(code, path string) string {
	q := url.Values{}
	q.Set("reason", code)
	if path != "" {
		q.Set("redirect", path)
	}
	return SignInPath + "?" + q.Encode()
}

func deny(reason, code, redirect string) Decision {
	return Decision{State: Denied, Reason: reason, Code: code, Redirect: redirect}
}

// Evaluate runs the verification steps against state. A loading state
// yields Checking.
func (g *Guard) Evaluate(ctx context.Context, t Target, state identity.State) Decision {
	if state.Loading {
		return Decision{State: Checking}
	}

	start := g.now()
	evalCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	result := make(chan Decision, 1)
	go func() {
		result <- g.check(evalCtx, t, state)
	}()

	var d Decision
	select {
	case d = <-result:
	case <-evalCtx.Done():
		d = deny(ReasonTimeout, CodeSecurityError, signInRedirect(CodeSecurityError, t.Path))
	}

	g.report(ctx, t, state, d, g.now().Sub(start))
	return d
}

func (g *Guard) check(ctx context.Context, t Target, state identity.State) Decision {
	p := g.policy

	if state.User == nil {
		return deny(ReasonNoSession, p.NoSessionCode, signInRedirect(p.NoSessionCode, t.Path))
	}
	if state.Profile == nil {
		return deny(ReasonProfileUnavailable, p.NoProfileCode, signInRedirect(p.NoProfileCode, t.Path))
	}

	role := state.Profile.Role
	if p.VerifyServerSide {
		if t.Profiles == nil {
			return deny(ReasonVerificationFailed, CodeSecurityError, signInRedirect(CodeSecurityError, t.Path))
		}
		server, err := t.Profiles.FetchProfile(ctx, state.User.ID)
		if err != nil {
			g.logger.Error("Guard: server verification failed",
				"guard", p.Name,
				"user_id", state.User.ID,
				"error", err.Error())
			return deny(ReasonVerificationFailed, CodeSecurityError, signInRedirect(CodeSecurityError, t.Path))
		}
		if p.CheckBanned && server.Banned {
			return deny(ReasonSuspended, CodeAccountSuspended, UnauthorizedPath)
		}
		if server.Role != state.Profile.Role || server.Email != state.Profile.Email {
			return deny(ReasonInconsistent, CodeProfileInconsistency, signInRedirect(CodeProfileInconsistency, t.Path))
		}
		role = server.Role
	}

	if !p.allows(role) {
		return deny(ReasonInsufficientRole, CodeInsufficientRole, UnauthorizedPath)
	}

	if len(p.Permissions) > 0 {
		if t.Permissions == nil {
			return deny(ReasonInsufficientRole, CodeInsufficientRole, UnauthorizedPath)
		}
		t.Permissions.Sync(ctx, state.User, state.Profile)
		if !t.Permissions.HasAllPermissions(p.Permissions) {
			return deny(ReasonInsufficientRole, CodeInsufficientRole, UnauthorizedPath)
		}
	}

	return Decision{State: Authorized}
}

func (g *Guard) report(ctx context.Context, t Target, state identity.State, d Decision, elapsed time.Duration) {
	if g.observer != nil {
		g.observer.ObserveDecision(g.policy.Name, d, elapsed)
	}

	if d.State == Authorized {
		return
	}

	var userID uuid.UUID
	if state.User != nil {
		userID = state.User.ID
	}
	g.logger.Info("Guard: access denied",
		"guard", g.policy.Name,
		"path", t.Path,
		"user_id", userID,
		"reason", d.Reason)

	if g.recorder == nil || (d.Code != CodeProfileInconsistency && d.Code != CodeAccountSuspended) {
		return
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.recordTimeout())
	defer cancel()

	err := g.recorder.Record(recCtx, model.Incident{
		ID:         uuid.New(),
		Guard:      g.policy.Name,
		Reason:     d.Reason,
		UserID:     userID,
		Path:       t.Path,
		OccurredAt: g.now().UTC(),
	})
	if err != nil {
		g.logger.Warn("Guard: failed to record incident",
			"guard", g.policy.Name,
			"user_id", userID,
			"error", err.Error())
	}
}

func (g *Guard) recordTimeout() time.Duration {
	if g.timeout > 0 {
		return g.timeout
	}
	return defaultTimeout
}
