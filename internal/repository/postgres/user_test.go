package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRepositories(t *testing.T) {
	db := &Connection{}

	assert.Equal(t, db, NewUserRepository(db).db)
	assert.Equal(t, db, NewProfileRepository(db).db)
	assert.Equal(t, db, NewRolePermissionRepository(db).db)
	assert.Equal(t, db, NewSessionRepository(db).db)
}

func TestConnection_PingWithoutPool(t *testing.T) {
	db := &Connection{}

	assert.Error(t, db.Ping(t.Context()))
	assert.NoError(t, db.Close())
}
