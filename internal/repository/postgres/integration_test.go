//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dtroode/assoc-server/internal/model"
	repo "github.com/dtroode/assoc-server/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "assoc_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/assoc_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestRepositories_CRUD(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	pr := repo.NewProfileRepository(conn)

	u := model.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: "$argon2id$test",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	profile := model.Profile{FirstName: "Ada", LastName: "Lovelace", Email: u.Email, Role: model.RoleGuest}

	t.Run("user_repository", func(t *testing.T) {
		saved, err := ur.Create(ctx, u, profile)
		require.NoError(t, err)
		require.Equal(t, u.ID, saved.ID)

		byEmail, err := ur.GetByEmail(ctx, "USER@example.com")
		require.NoError(t, err)
		require.Equal(t, u.ID, byEmail.ID)

		byID, err := ur.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Email, byID.Email)

		_, err = ur.Create(ctx, model.User{ID: uuid.New(), Email: u.Email, PasswordHash: "x", CreatedAt: time.Now(), UpdatedAt: time.Now()}, profile)
		require.ErrorIs(t, err, model.ErrEmailTaken)

		_, err = ur.GetByID(ctx, uuid.New())
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("profile_repository", func(t *testing.T) {
		got, err := pr.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, model.RoleGuest, got.Role)
		require.Equal(t, "Ada", got.FirstName)
		require.False(t, got.Banned)

		updated, err := pr.UpdateRole(ctx, u.ID, model.RoleMember)
		require.NoError(t, err)
		require.Equal(t, model.RoleMember, updated.Role)

		banned, err := pr.UpdateBanned(ctx, u.ID, true)
		require.NoError(t, err)
		require.True(t, banned.Banned)

		list, err := pr.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)

		_, err = pr.UpdateRole(ctx, uuid.New(), model.RoleAdmin)
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("role_permission_repository", func(t *testing.T) {
		rp := repo.NewRolePermissionRepository(conn)

		seeded, err := rp.GetByRole(ctx, model.RoleMember)
		require.NoError(t, err)
		require.Contains(t, seeded, model.PermViewMemberContent)

		require.NoError(t, rp.Grant(ctx, model.RoleMember, model.PermCreateEvent))
		require.NoError(t, rp.Grant(ctx, model.RoleMember, model.PermCreateEvent))
		perms, err := rp.GetByRole(ctx, model.RoleMember)
		require.NoError(t, err)
		require.Contains(t, perms, model.PermCreateEvent)

		require.NoError(t, rp.Revoke(ctx, model.RoleMember, model.PermCreateEvent))
		perms, err = rp.GetByRole(ctx, model.RoleMember)
		require.NoError(t, err)
		require.NotContains(t, perms, model.PermCreateEvent)

		none, err := rp.GetByRole(ctx, model.Role("unknown"))
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("session_repository", func(t *testing.T) {
		sr := repo.NewSessionRepository(conn)
		rec := model.SessionRecord{
			ID:        uuid.New(),
			UserID:    u.ID,
			TokenHash: []byte("hash"),
			IssuedAt:  time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		}
		require.NoError(t, sr.Create(ctx, rec))

		got, err := sr.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		require.Equal(t, rec.UserID, got.UserID)
		require.Nil(t, got.RevokedAt)

		require.NoError(t, sr.Revoke(ctx, rec.ID))
		got, err = sr.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		require.NotNil(t, got.RevokedAt)

		_, err = sr.GetByID(ctx, uuid.New())
		require.ErrorIs(t, err, model.ErrNotFound)
	})
}
