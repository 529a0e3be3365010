// Package permission turns the role of the signed-in profile into a set of
// named permissions and answers questions about it.
package permission

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dtroode/assoc-server/internal/identity"
	"github.com/dtroode/assoc-server/internal/logger"
	"github.com/dtroode/assoc-server/internal/model"
)

// Source is an observable identity.
type Source interface {
	State() identity.State
	Subscribe(fn func(identity.State)) (unsubscribe func())
}

type key struct {
	userID    uuid.UUID
	profileID uuid.UUID
	role      model.Role
}

func keyOf(user *model.User, profile *model.Profile) key {
	if user == nil || profile == nil {
		return key{}
	}
	return key{userID: user.ID, profileID: profile.ID, role: profile.Role}
}

// Resolver holds the permission set of one identity.
type Resolver struct {
	fetcher Fetcher
	logger  *logger.Logger

	mu      sync.RWMutex
	user    *model.User
	profile *model.Profile
	perms   map[model.Permission]struct{}
	loading bool
	err     string
	key     key
	synced  bool
	seq     uint64
	ready   chan struct{}

	// issued and applied order Sync calls by when they were requested.
	issued  uint64
	applied uint64
	stopped bool

	wg sync.WaitGroup
}

func NewResolver(fetcher Fetcher, logger *logger.Logger) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		logger:  logger,
		perms:   make(map[model.Permission]struct{}),
	}
}

// Follow syncs with source now and on every change until the returned stop
// func is called. Changes are applied in the order they were published.
func (r *Resolver) Follow(ctx context.Context, source Source) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	unsubscribe := source.Subscribe(func(s identity.State) {
		if s.Loading {
			return
		}
		r.mu.Lock()
		if r.stopped {
			r.mu.Unlock()
			return
		}
		ticket := r.issueLocked()
		r.wg.Add(1)
		r.mu.Unlock()

		go func() {
			defer r.wg.Done()
			r.sync(ctx, ticket, s.User, s.Profile)
		}()
	})

	r.mu.Lock()
	ticket := r.issueLocked()
	r.mu.Unlock()
	s := source.State()
	r.sync(ctx, ticket, s.User, s.Profile)

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.stopped = true
			r.mu.Unlock()

			unsubscribe()
			cancel()
			r.wg.Wait()
		})
	}
}

func (r *Resolver) issueLocked() uint64 {
	r.issued++
	return r.issued
}

// Sync makes the permission set reflect (user, profile) and returns once it
// does. An absent user or profile empties the set.
func (r *Resolver) Sync(ctx context.Context, user *model.User, profile *model.Profile) {
	r.mu.Lock()
	ticket := r.issueLocked()
	r.mu.Unlock()
	r.sync(ctx, ticket, user, profile)
}

// sync drops requests older than one already applied and is a no-op once
// the resolver stopped following.
func (r *Resolver) sync(ctx context.Context, ticket uint64, user *model.User, profile *model.Profile) {
	k := keyOf(user, profile)

	r.mu.Lock()
	if r.stopped || ticket < r.applied {
		r.mu.Unlock()
		return
	}
	r.applied = ticket

	if r.synced && r.key == k {
		ready := r.ready
		r.mu.Unlock()
		select {
		case <-ready:
		case <-ctx.Done():
		}
		return
	}

	r.synced = true
	r.key = k
	r.seq++
	seq := r.seq
	ready := make(chan struct{})
	r.ready = ready
	r.user, r.profile = user, profile
	r.err = ""
	r.perms = make(map[model.Permission]struct{})

	if user == nil || profile == nil {
		r.loading = false
		close(ready)
		r.mu.Unlock()
		return
	}
	r.loading = true
	role := profile.Role
	r.mu.Unlock()

	perms, err := r.fetcher.FetchRolePermissions(ctx, role)

	r.mu.Lock()
	defer r.mu.Unlock()
	defer close(ready)

	if seq != r.seq || r.stopped {
		return
	}
	r.loading = false
	r.perms = make(map[model.Permission]struct{}, len(perms))
	if err != nil {
		r.logger.Error("Permissions: failed to load role permissions",
			"role", role,
			"error", err.Error())
		r.err = err.Error()
		return
	}
	for _, p := range perms {
		r.perms[p] = struct{}{}
	}
}

func (r *Resolver) authenticatedLocked() bool {
	return r.user != nil && r.profile != nil
}

func (r *Resolver) adminLocked() bool {
	return r.profile != nil && r.profile.Role == model.RoleAdmin
}

// HasPermission reports whether the identity holds p. Admins hold every
// permission.
func (r *Resolver) HasPermission(p model.Permission) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.authenticatedLocked() {
		return false
	}
	if r.adminLocked() {
		return true
	}
	_, ok := r.perms[p]
	return ok
}

// HasRole reports whether the profile role ranks at least as high as required.
func (r *Resolver) HasRole(required model.Role) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.authenticatedLocked() {
		return false
	}
	return model.RoleRank(r.profile.Role) >= model.RoleRank(required)
}

func (r *Resolver) HasAllPermissions(perms []model.Permission) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.authenticatedLocked() {
		return false
	}
	if r.adminLocked() {
		return true
	}
	for _, p := range perms {
		if _, ok := r.perms[p]; !ok {
			return false
		}
	}
	return true
}

func (r *Resolver) HasAnyPermission(perms []model.Permission) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.authenticatedLocked() {
		return false
	}
	if r.adminLocked() {
		return true
	}
	for _, p := range perms {
		if _, ok := r.perms[p]; ok {
			return true
		}
	}
	return false
}

// AllPermissions returns the loaded permission names in lexical order.
func (r *Resolver) AllPermissions() []model.Permission {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Permission, 0, len(r.perms))
	for p := range r.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Resolver) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loading
}

// Err returns the last load failure, or an empty string.
func (r *Resolver) Err() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}
