package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/assoc-server/internal/events"
	"github.com/dtroode/assoc-server/internal/logger"
	"github.com/dtroode/assoc-server/internal/model"
)

// PermissionInvalidator drops cached permissions of a role.
type PermissionInvalidator interface {
	Invalidate(role model.Role)
}

// Admin implements the administration area: profile roles, suspensions and
// the role to permission mapping.
type Admin struct {
	profileStore        model.ProfileStore
	rolePermissionStore model.RolePermissionStore
	bus                 events.Bus
	invalidator         PermissionInvalidator
	logger              *logger.Logger
}

func NewAdmin(
	profileStore model.ProfileStore,
	rolePermissionStore model.RolePermissionStore,
	bus events.Bus,
	invalidator PermissionInvalidator,
	logger *logger.Logger,
) *Admin {
	return &Admin{
		profileStore:        profileStore,
		rolePermissionStore: rolePermissionStore,
		bus:                 bus,
		invalidator:         invalidator,
		logger:              logger,
	}
}

func (a *Admin) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	profiles, err := a.profileStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// SetRole changes the role of userID. An admin cannot take the admin role
// away from themselves.
func (a *Admin) SetRole(ctx context.Context, actorID, userID uuid.UUID, role model.Role) (model.Profile, error) {
	if !model.IsValidRole(role) {
		return model.Profile{}, fmt.Errorf("%w: unknown role %q", model.ErrInvalidInput, role)
	}
	if actorID == userID && role != model.RoleAdmin {
		return model.Profile{}, fmt.Errorf("%w: cannot demote yourself", model.ErrInvalidInput)
	}

	profile, err := a.profileStore.UpdateRole(ctx, userID, role)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Profile{}, err
		}
		return model.Profile{}, fmt.Errorf("failed to update role: %w", err)
	}

	a.logger.Info("Admin service: role changed",
		"actor_id", actorID,
		"user_id", userID,
		"role", role)
	a.notify(ctx, userID)

	return profile, nil
}

// SetBanned suspends or reinstates userID.
func (a *Admin) SetBanned(ctx context.Context, actorID, userID uuid.UUID, banned bool) (model.Profile, error) {
	if actorID == userID {
		return model.Profile{}, fmt.Errorf("%w: cannot change your own suspension", model.ErrInvalidInput)
	}

	profile, err := a.profileStore.UpdateBanned(ctx, userID, banned)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Profile{}, err
		}
		return model.Profile{}, fmt.Errorf("failed to update suspension: %w", err)
	}

	a.logger.Info("Admin service: suspension changed",
		"actor_id", actorID,
		"user_id", userID,
		"banned", banned)
	a.notify(ctx, userID)

	return profile, nil
}

func validateMapping(role model.Role, perm model.Permission) error {
	if !model.IsValidRole(role) {
		return fmt.Errorf("%w: unknown role %q", model.ErrInvalidInput, role)
	}
	if strings.TrimSpace(string(perm)) == "" {
		return fmt.Errorf("%w: empty permission", model.ErrInvalidInput)
	}
	return nil
}

func (a *Admin) GrantPermission(ctx context.Context, role model.Role, perm model.Permission) error {
	if err := validateMapping(role, perm); err != nil {
		return err
	}
	if err := a.rolePermissionStore.Grant(ctx, role, perm); err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}

	a.invalidator.Invalidate(role)
	a.logger.Info("Admin service: permission granted",
		"role", role,
		"permission", perm)
	return nil
}

func (a *Admin) RevokePermission(ctx context.Context, role model.Role, perm model.Permission) error {
	if err := validateMapping(role, perm); err != nil {
		return err
	}
	if err := a.rolePermissionStore.Revoke(ctx, role, perm); err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}

	a.invalidator.Invalidate(role)
	a.logger.Info("Admin service: permission revoked",
		"role", role,
		"permission", perm)
	return nil
}

func (a *Admin) notify(ctx context.Context, userID uuid.UUID) {
	if err := a.bus.Publish(ctx, userID, model.AuthEventUserUpdated); err != nil {
		a.logger.Warn("Admin service: failed to publish user update",
			"user_id", userID,
			"error", err.Error())
	}
}
