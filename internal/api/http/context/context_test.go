package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	t.Parallel()

	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	_, ok = IdentityFromContext(WithIdentity(context.Background(), nil))
	assert.False(t, ok)

	id := &Identity{}
	got, ok := IdentityFromContext(WithIdentity(context.Background(), id))
	require.True(t, ok)
	assert.Same(t, id, got)
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Equal(t, "abc", RequestIDFromContext(WithRequestID(context.Background(), "abc")))
}
