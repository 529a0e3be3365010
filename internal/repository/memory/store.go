// Package memory keeps the session store tables in process. It backs the
// "memory" database driver and end-to-end tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/assoc-server/internal/model"
)

// Store holds all tables behind one lock.
type Store struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]model.User
	profiles    map[uuid.UUID]model.Profile
	permissions map[model.Role]map[model.Permission]struct{}
	sessions    map[uuid.UUID]model.SessionRecord
	now         func() time.Time
}

// NewStore creates a Store seeded with the default role permissions.
func NewStore() *Store {
	s := &Store{
		users:       make(map[uuid.UUID]model.User),
		profiles:    make(map[uuid.UUID]model.Profile),
		permissions: make(map[model.Role]map[model.Permission]struct{}),
		sessions:    make(map[uuid.UUID]model.SessionRecord),
		now:         time.Now,
	}
	for role, perms := range model.DefaultRolePermissions() {
		for _, p := range perms {
			s.grant(role, p)
		}
	}
	return s
}

func (s *Store) grant(role model.Role, perm model.Permission) {
	set, ok := s.permissions[role]
	if !ok {
		set = make(map[model.Permission]struct{})
		s.permissions[role] = set
	}
	set[perm] = struct{}{}
}

// Users returns the user table view.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Profiles returns the profile table view.
func (s *Store) Profiles() *ProfileRepository { return &ProfileRepository{s: s} }

// RolePermissions returns the role_permissions table view.
func (s *Store) RolePermissions() *RolePermissionRepository { return &RolePermissionRepository{s: s} }

// Sessions returns the session table view.
func (s *Store) Sessions() *SessionRepository { return &SessionRepository{s: s} }

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	s *Store
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (r *UserRepository) Create(_ context.Context, user model.User, profile model.Profile) (model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return model.User{}, model.ErrEmailTaken
		}
	}

	r.s.users[user.ID] = user
	profile.ID = user.ID
	profile.CreatedAt = user.CreatedAt
	profile.UpdatedAt = user.UpdatedAt
	r.s.profiles[user.ID] = profile

	return user, nil
}

var _ model.ProfileStore = (*ProfileRepository)(nil)

type ProfileRepository struct {
	s *Store
}

func (r *ProfileRepository) GetByID(_ context.Context, id uuid.UUID) (model.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.profiles[id]
	if !ok {
		return model.Profile{}, model.ErrNotFound
	}
	return p, nil
}

func (r *ProfileRepository) List(_ context.Context) ([]model.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	profiles := make([]model.Profile, 0, len(r.s.profiles))
	for _, p := range r.s.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].CreatedAt.Equal(profiles[j].CreatedAt) {
			return profiles[i].ID.String() < profiles[j].ID.String()
		}
		return profiles[i].CreatedAt.Before(profiles[j].CreatedAt)
	})
	return profiles, nil
}

func (r *ProfileRepository) update(id uuid.UUID, fn func(*model.Profile)) (model.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.profiles[id]
	if !ok {
		return model.Profile{}, model.ErrNotFound
	}
	fn(&p)
	p.UpdatedAt = r.s.now()
	r.s.profiles[id] = p
	return p, nil
}

func (r *ProfileRepository) UpdateRole(_ context.Context, id uuid.UUID, role model.Role) (model.Profile, error) {
	return r.update(id, func(p *model.Profile) { p.Role = role })
}

func (r *ProfileRepository) UpdateBanned(_ context.Context, id uuid.UUID, banned bool) (model.Profile, error) {
	return r.update(id, func(p *model.Profile) { p.Banned = banned })
}

var _ model.RolePermissionStore = (*RolePermissionRepository)(nil)

type RolePermissionRepository struct {
	s *Store
}

func (r *RolePermissionRepository) GetByRole(_ context.Context, role model.Role) ([]model.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	perms := make([]model.Permission, 0, len(r.s.permissions[role]))
	for p := range r.s.permissions[role] {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms, nil
}

func (r *RolePermissionRepository) Grant(_ context.Context, role model.Role, permission model.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.grant(role, permission)
	return nil
}

func (r *RolePermissionRepository) Revoke(_ context.Context, role model.Role, permission model.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.permissions[role], permission)
	return nil
}

var _ model.SessionRecordStore = (*SessionRepository)(nil)

type SessionRepository struct {
	s *Store
}

func (r *SessionRepository) Create(_ context.Context, record model.SessionRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = r.s.now()
	r.s.sessions[record.ID] = record
	return nil
}

func (r *SessionRepository) GetByID(_ context.Context, id uuid.UUID) (model.SessionRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.sessions[id]
	if !ok {
		return model.SessionRecord{}, model.ErrNotFound
	}
	return rec, nil
}

func (r *SessionRepository) Revoke(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.sessions[id]
	if ok && rec.RevokedAt == nil {
		now := r.s.now()
		rec.RevokedAt = &now
		r.s.sessions[id] = rec
	}
	return nil
}
