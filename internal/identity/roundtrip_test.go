package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/assoc-server/internal/identity"
	"github.com/dtroode/assoc-server/internal/model"
	"github.com/dtroode/assoc-server/internal/testutil"
	"github.com/dtroode/assoc-server/internal/testutil/fixture"
)

func TestContext_SignUpThenSignIn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := fixture.NewBackend(nil)
	client := b.Client("")
	defer client.Close()

	id := identity.New(client, testutil.MakeNoopLogger())
	id.Mount(ctx)
	defer id.Unmount()

	res := id.SignUp(ctx, "New.Member@Example.org", fixture.Password, "New", "Member")
	require.True(t, res.OK, "sign up: %v", res.Err)
	assert.Nil(t, id.State().User)

	res = id.SignIn(ctx, "new.member@example.org", fixture.Password)
	require.True(t, res.OK, "sign in: %v", res.Err)

	require.Eventually(t, func() bool {
		s := id.State()
		return !s.Loading && s.Profile != nil
	}, time.Second, 5*time.Millisecond)

	s := id.State()
	require.NotNil(t, s.User)
	assert.Equal(t, "new.member@example.org", s.User.Email)
	assert.Equal(t, s.User.ID, s.Profile.ID)
	assert.Equal(t, model.RoleGuest, s.Profile.Role)
	assert.False(t, s.Profile.Banned)
	assert.False(t, s.IsAdmin())
	assert.NoError(t, s.Err)
}
