package permission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/assoc-server/internal/mocks"
	"github.com/dtroode/assoc-server/internal/model"
)

func TestCache_HitAndInvalidate(t *testing.T) {
	t.Parallel()

	store := mocks.NewSessionStore(t)
	store.On("FetchRolePermissions", mock.Anything, model.RoleMember).
		Return([]model.Permission{model.PermViewMemberContent}, nil).Once()
	store.On("FetchRolePermissions", mock.Anything, model.RoleMember).
		Return([]model.Permission{model.PermViewMemberContent, model.PermCreateEvent}, nil).Once()

	c := NewCache(store, 8, time.Minute)
	ctx := context.Background()

	perms, err := c.FetchRolePermissions(ctx, model.RoleMember)
	require.NoError(t, err)
	assert.Len(t, perms, 1)

	perms[0] = "mutated"
	perms, err = c.FetchRolePermissions(ctx, model.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, []model.Permission{model.PermViewMemberContent}, perms)
	assert.Equal(t, 1, c.Len())

	c.Invalidate(model.RoleMember)
	assert.Equal(t, 0, c.Len())

	perms, err = c.FetchRolePermissions(ctx, model.RoleMember)
	require.NoError(t, err)
	assert.Len(t, perms, 2)
}

func TestCache_Expiry(t *testing.T) {
	t.Parallel()

	store := mocks.NewSessionStore(t)
	store.On("FetchRolePermissions", mock.Anything, model.RoleEditor).
		Return([]model.Permission{model.PermPublishNews}, nil).Twice()

	c := NewCache(store, 8, 20*time.Millisecond)
	ctx := context.Background()

	_, err := c.FetchRolePermissions(ctx, model.RoleEditor)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)

	_, err = c.FetchRolePermissions(ctx, model.RoleEditor)
	require.NoError(t, err)
}

func TestCache_Disabled(t *testing.T) {
	t.Parallel()

	store := mocks.NewSessionStore(t)
	store.On("FetchRolePermissions", mock.Anything, model.RoleMember).
		Return([]model.Permission{model.PermViewMemberContent}, nil).Times(3)

	c := NewCache(store, 8, 0)
	for i := 0; i < 3; i++ {
		_, err := c.FetchRolePermissions(context.Background(), model.RoleMember)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, c.Len())
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	t.Parallel()

	store := mocks.NewSessionStore(t)
	store.On("FetchRolePermissions", mock.Anything, model.RoleMember).Return(nil, assert.AnError).Once()
	store.On("FetchRolePermissions", mock.Anything, model.RoleMember).
		Return([]model.Permission{model.PermViewMemberContent}, nil).Once()

	c := NewCache(store, 8, time.Minute)

	_, err := c.FetchRolePermissions(context.Background(), model.RoleMember)
	assert.ErrorIs(t, err, assert.AnError)

	perms, err := c.FetchRolePermissions(context.Background(), model.RoleMember)
	require.NoError(t, err)
	assert.Len(t, perms, 1)
}

func TestCache_CoalescesConcurrentMisses(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	store := mocks.NewSessionStore(t)
	store.On("FetchRolePermissions", mock.Anything, model.RoleModerator).
		Return(func(context.Context, model.Role) ([]model.Permission, error) {
			<-release
			return []model.Permission{model.PermModerateComments}, nil
		}).Once()

	c := NewCache(store, 8, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			perms, err := c.FetchRolePermissions(context.Background(), model.RoleModerator)
			assert.NoError(t, err)
			assert.Equal(t, []model.Permission{model.PermModerateComments}, perms)
		}()
	}

	// Let the callers pile up on the single flight before it returns.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
}

func TestCache_InvalidateDuringLoad(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	store := mocks.NewSessionStore(t)
	store.On("FetchRolePermissions", mock.Anything, model.RoleMember).
		Return(func(context.Context, model.Role) ([]model.Permission, error) {
			close(started)
			<-release
			return []model.Permission{"stale"}, nil
		}).Once()

	c := NewCache(store, 8, time.Minute)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.FetchRolePermissions(context.Background(), model.RoleMember)
	}()
	<-started
	c.Invalidate(model.RoleMember)
	close(release)
	<-done

	assert.Equal(t, 0, c.Len())
}
