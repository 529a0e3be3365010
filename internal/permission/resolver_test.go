package permission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/assoc-server/internal/identity"
	"github.com/dtroode/assoc-server/internal/mocks"
	"github.com/dtroode/assoc-server/internal/model"
	"github.com/dtroode/assoc-server/internal/testutil"
)

func member(role model.Role) (*model.User, *model.Profile) {
	id := uuid.New()
	return &model.User{ID: id, Email: "jane@example.org"}, &model.Profile{ID: id, Email: "jane@example.org", Role: role}
}

func TestResolver_HasRole(t *testing.T) {
	t.Parallel()

	roles := append(model.Roles(), "superuser")
	for _, have := range roles {
		for _, want := range roles {
			t.Run(string(have)+">="+string(want), func(t *testing.T) {
				t.Parallel()

				store := mocks.NewSessionStore(t)
				store.On("FetchRolePermissions", mock.Anything, have).Return([]model.Permission{}, nil)

				r := NewResolver(store, testutil.MakeNoopLogger())
				user, profile := member(have)
				r.Sync(context.Background(), user, profile)

				assert.Equal(t, model.RoleRank(have) >= model.RoleRank(want), r.HasRole(want))
			})
		}
	}
}

func TestResolver_AdminHoldsEverything(t *testing.T) {
	t.Parallel()

	store := mocks.NewSessionStore(t)
	store.On("FetchRolePermissions", mock.Anything, model.RoleAdmin).Return([]model.Permission{}, nil)

	r := NewResolver(store, testutil.MakeNoopLogger())
	user, profile := member(model.RoleAdmin)
	r.Sync(context.Background(), user, profile)

	assert.True(t, r.HasPermission(model.PermManageUsers))
	assert.True(t, r.HasPermission("anything_at_all"))
	assert.True(t, r.HasAllPermissions([]model.Permission{model.PermCreateEvent, "x"}))
	assert.True(t, r.HasAnyPermission([]model.Permission{"y"}))
	assert.Empty(t, r.AllPermissions())
}

func TestResolver_Unauthenticated(t *testing.T) {
	t.Parallel()

	_, profile := member(model.RoleAdmin)
	user, _ := member(model.RoleAdmin)

	cases := []struct {
		name    string
		user    *model.User
		profile *model.Profile
	}{
		{name: "no user", profile: profile},
		{name: "no profile", user: user},
		{name: "nothing"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewResolver(mocks.NewSessionStore(t), testutil.MakeNoopLogger())
			r.Sync(context.Background(), tt.user, tt.profile)

			for _, role := range model.Roles() {
				assert.False(t, r.HasRole(role))
			}
			assert.False(t, r.HasPermission(model.PermCreateEvent))
			assert.False(t, r.HasAllPermissions(nil))
			assert.False(t, r.HasAnyPermission([]model.Permission{model.PermCreateEvent}))
			assert.Empty(t, r.AllPermissions())
			assert.False(t, r.Loading())
		})
	}
}

func TestResolver_MappedPermissions(t *testing.T) {
	t.Parallel()

	store := mocks.NewSessionStore(t)
	store.On("FetchRolePermissions", mock.Anything, model.RoleEditor).
		Return([]model.Permission{model.PermPublishNews, model.PermCreateEvent}, nil)

	r := NewResolver(store, testutil.MakeNoopLogger())
	user, profile := member(model.RoleEditor)
	r.Sync(context.Background(), user, profile)

	assert.True(t, r.HasPermission(model.PermCreateEvent))
	assert.False(t, r.HasPermission(model.PermManageUsers))
	assert.True(t, r.HasAllPermissions([]model.Permission{model.PermCreateEvent, model.PermPublishNews}))
	assert.False(t, r.HasAllPermissions([]model.Permission{model.PermCreateEvent, model.PermManageUsers}))
	assert.True(t, r.HasAnyPermission([]model.Permission{model.PermManageUsers, model.PermPublishNews}))
	assert.False(t, r.HasAnyPermission(nil))
	assert.Equal(t, []model.Permission{model.PermCreateEvent, model.PermPublishNews}, r.AllPermissions())
	assert.Empty(t, r.Err())

	// Same pair again does not refetch.
	r.Sync(context.Background(), user, profile)
	store.AssertNumberOfCalls(t, "FetchRolePermissions", 1)
}

func TestResolver_LoadFailure(t *testing.T) {
	t.Parallel()

	store := mocks.NewSessionStore(t)
	store.On("FetchRolePermissions", mock.Anything, model.RoleEditor).
		Return([]model.Permission{model.PermCreateEvent}, nil).Once()
	store.On("FetchRolePermissions", mock.Anything, model.RoleMember).
		Return(nil, assert.AnError).Once()

	r := NewResolver(store, testutil.MakeNoopLogger())
	user, profile := member(model.RoleEditor)
	r.Sync(context.Background(), user, profile)
	require.True(t, r.HasPermission(model.PermCreateEvent))

	demoted := *profile
	demoted.Role = model.RoleMember
	r.Sync(context.Background(), user, &demoted)

	assert.False(t, r.HasPermission(model.PermCreateEvent))
	assert.Empty(t, r.AllPermissions())
	assert.Equal(t, assert.AnError.Error(), r.Err())
	assert.False(t, r.Loading())
}

func TestResolver_Follow(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	session := &model.Session{ID: uuid.New(), UserID: userID, Email: "jane@example.org"}

	store := mocks.NewSessionStore(t)
	var listener model.AuthStateListener
	store.On("OnAuthStateChange", mock.Anything).
		Run(func(args mock.Arguments) { listener = args.Get(0).(model.AuthStateListener) }).
		Return(func() {})
	store.On("GetCurrentSession", mock.Anything).Return(session, nil)
	store.On("FetchProfile", mock.Anything, userID).
		Return(model.Profile{ID: userID, Role: model.RoleMember}, nil).Once()
	store.On("FetchProfile", mock.Anything, userID).
		Return(model.Profile{ID: userID, Role: model.RoleEditor}, nil)
	store.On("FetchRolePermissions", mock.Anything, model.RoleMember).
		Return([]model.Permission{model.PermViewMemberContent}, nil)
	store.On("FetchRolePermissions", mock.Anything, model.RoleEditor).
		Return([]model.Permission{model.PermCreateEvent}, nil)

	id := identity.New(store, testutil.MakeNoopLogger())
	id.Mount(context.Background())
	defer id.Unmount()

	r := NewResolver(store, testutil.MakeNoopLogger())
	stop := r.Follow(context.Background(), id)
	defer stop()

	assert.True(t, r.HasPermission(model.PermViewMemberContent))

	listener(model.AuthEventUserUpdated, session)

	assert.Eventually(t, func() bool {
		return r.HasPermission(model.PermCreateEvent) && r.HasRole(model.RoleEditor)
	}, time.Second, 5*time.Millisecond)
}

var _ Source = (*identity.Context)(nil)

func TestResolver_FollowEmptySource(t *testing.T) {
	t.Parallel()

	store := mocks.NewSessionStore(t)
	store.On("OnAuthStateChange", mock.Anything).Return(func() {})
	store.On("GetCurrentSession", mock.Anything).Return(nil, nil)

	id := identity.New(store, testutil.MakeNoopLogger())
	id.Mount(context.Background())
	defer id.Unmount()

	r := NewResolver(store, testutil.MakeNoopLogger())
	stop := r.Follow(context.Background(), id)
	stop()
	stop()

	assert.False(t, r.HasPermission(model.PermViewMemberContent))
	assert.Empty(t, r.Err())
}

// fakeSource publishes states only when told to.
type fakeSource struct {
	mu    sync.Mutex
	state identity.State
	subs  []func(identity.State)
}

func (f *fakeSource) State() identity.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSource) Subscribe(fn func(identity.State)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fn)
	return func() {}
}

func (f *fakeSource) publish(s identity.State) {
	f.mu.Lock()
	f.state = s
	subs := append([]func(identity.State){}, f.subs...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

func TestResolver_FollowAppliesLatestChange(t *testing.T) {
	t.Parallel()

	store := mocks.NewSessionStore(t)
	store.On("FetchRolePermissions", mock.Anything, model.RoleEditor).
		Return([]model.Permission{model.PermPublishNews}, nil).Maybe()
	store.On("FetchRolePermissions", mock.Anything, model.RoleMember).
		Return([]model.Permission{model.PermViewMemberContent}, nil)

	user, editor := member(model.RoleEditor)
	demoted := *editor
	demoted.Role = model.RoleMember

	for i := 0; i < 200; i++ {
		source := &fakeSource{}
		r := NewResolver(store, testutil.MakeNoopLogger())
		stop := r.Follow(context.Background(), source)

		source.publish(identity.State{User: user, Profile: editor})
		source.publish(identity.State{User: user, Profile: &demoted})
		require.Eventually(t, func() bool {
			return !r.Loading() && r.HasPermission(model.PermViewMemberContent)
		}, time.Second, time.Millisecond, "run %d", i)
		stop()

		require.False(t, r.HasRole(model.RoleEditor), "run %d", i)
		require.True(t, r.HasRole(model.RoleMember), "run %d", i)
		require.Equal(t, []model.Permission{model.PermViewMemberContent}, r.AllPermissions(), "run %d", i)
	}
}

func TestResolver_IgnoresChangesAfterStop(t *testing.T) {
	t.Parallel()

	store := mocks.NewSessionStore(t)
	source := &fakeSource{}

	r := NewResolver(store, testutil.MakeNoopLogger())
	stop := r.Follow(context.Background(), source)
	stop()

	user, profile := member(model.RoleEditor)
	source.publish(identity.State{User: user, Profile: profile})

	assert.False(t, r.HasRole(model.RoleEditor))
	assert.Empty(t, r.AllPermissions())
	store.AssertNotCalled(t, "FetchRolePermissions", mock.Anything, mock.Anything)
}

func TestResolver_ClearsPermissionsWhileLoading(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	store := mocks.NewSessionStore(t)
	store.On("FetchRolePermissions", mock.Anything, model.RoleEditor).
		Return([]model.Permission{model.PermPublishNews}, nil).Once()
	store.On("FetchRolePermissions", mock.Anything, model.RoleMember).
		Run(func(mock.Arguments) { <-release }).
		Return([]model.Permission{model.PermViewMemberContent}, nil).Once()

	r := NewResolver(store, testutil.MakeNoopLogger())
	user, profile := member(model.RoleEditor)
	r.Sync(context.Background(), user, profile)
	require.True(t, r.HasPermission(model.PermPublishNews))

	demoted := *profile
	demoted.Role = model.RoleMember
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Sync(context.Background(), user, &demoted)
	}()

	require.Eventually(t, r.Loading, time.Second, time.Millisecond)
	assert.False(t, r.HasPermission(model.PermPublishNews))
	assert.Empty(t, r.AllPermissions())

	close(release)
	<-done
	assert.True(t, r.HasPermission(model.PermViewMemberContent))
}
