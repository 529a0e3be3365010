package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/assoc-server/internal/events"
	"github.com/dtroode/assoc-server/internal/logger"
	"github.com/dtroode/assoc-server/internal/model"
	"github.com/dtroode/assoc-server/internal/password"
)

const minPasswordLength = 8

// Auth is the session store backend: accounts, sessions, profiles and the
// role to permission mapping.
type Auth struct {
	userStore           model.UserStore
	profileStore        model.ProfileStore
	rolePermissionStore model.RolePermissionStore
	sessionStore        model.SessionRecordStore
	tokenManager        model.TokenManager
	hasher              *password.Hasher
	bus                 events.Bus
	defaultRole         model.Role
	sessionTTL          time.Duration
	dummyHash           string
	logger              *logger.Logger
	now                 func() time.Time
}

// AuthParams carries the tunables of the Auth service.
type AuthParams struct {
	DefaultRole model.Role
	SessionTTL  time.Duration
	Password    password.Params
}

func NewAuth(
	userStore model.UserStore,
	profileStore model.ProfileStore,
	rolePermissionStore model.RolePermissionStore,
	sessionStore model.SessionRecordStore,
	tokenManager model.TokenManager,
	bus events.Bus,
	logger *logger.Logger,
	params AuthParams,
) *Auth {
	hasher := password.NewHasher(params.Password)
	// An unknown email is verified against this hash so it costs as much as
	// a wrong password.
	dummyHash, _ := hasher.Hash(uuid.NewString())

	defaultRole := params.DefaultRole
	if !model.IsValidRole(defaultRole) {
		defaultRole = model.RoleGuest
	}

	return &Auth{
		userStore:           userStore,
		profileStore:        profileStore,
		rolePermissionStore: rolePermissionStore,
		sessionStore:        sessionStore,
		tokenManager:        tokenManager,
		hasher:              hasher,
		bus:                 bus,
		defaultRole:         defaultRole,
		sessionTTL:          params.SessionTTL,
		dummyHash:           dummyHash,
		logger:              logger,
		now:                 time.Now,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: malformed email", model.ErrInvalidInput)
	}
	return email, nil
}

// SignUp creates an account and its profile. The profile starts with the
// configured default role.
func (a *Auth) SignUp(ctx context.Context, email, pass string, meta model.SignUpMetadata) (model.User, error) {
	a.logger.Debug("Auth service: starting sign up",
		"email", email)

	email, err := normalizeEmail(email)
	if err != nil {
		return model.User{}, err
	}
	if len(pass) < minPasswordLength {
		return model.User{}, fmt.Errorf("%w: password must be at least %d characters", model.ErrInvalidInput, minPasswordLength)
	}

	existing, err := a.userStore.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		a.logger.Error("Auth service: failed to get user by email",
			"email", email,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	if existing.ID != uuid.Nil {
		a.logger.Info("Auth service: email already taken",
			"email", email)
		return model.User{}, model.ErrEmailTaken
	}

	hash, err := a.hasher.Hash(pass)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := a.now()
	user := model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := model.Profile{
		ID:        user.ID,
		FirstName: strings.TrimSpace(meta.FirstName),
		LastName:  strings.TrimSpace(meta.LastName),
		Email:     email,
		Role:      a.defaultRole,
	}

	created, err := a.userStore.Create(ctx, user, profile)
	if err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return model.User{}, err
		}
		a.logger.Error("Auth service: failed to create user",
			"email", email,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("Auth service: user signed up",
		"user_id", created.ID,
		"role", a.defaultRole)

	return created, nil
}

// SignInWithPassword checks the credentials and issues a new session.
func (a *Auth) SignInWithPassword(ctx context.Context, email, pass string) (model.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := a.userStore.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		_, _ = a.hasher.Verify(pass, a.dummyHash)
		a.logger.Info("Auth service: sign in for unknown email",
			"email", email)
		return model.Session{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	ok, err := a.hasher.Verify(pass, user.PasswordHash)
	if err != nil {
		a.logger.Error("Auth service: stored password hash is unusable",
			"user_id", user.ID,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		a.logger.Info("Auth service: wrong password",
			"user_id", user.ID)
		return model.Session{}, model.ErrInvalidCredentials
	}

	session, err := a.issue(ctx, user)
	if err != nil {
		return model.Session{}, err
	}

	a.publish(ctx, user.ID, model.AuthEventSignedIn)
	a.logger.Info("Auth service: user signed in",
		"user_id", user.ID,
		"session_id", session.ID)

	return session, nil
}

func (a *Auth) issue(ctx context.Context, user model.User) (model.Session, error) {
	sessionID := uuid.New()
	token, err := a.tokenManager.GenerateSessionToken(model.SessionClaims{
		SessionID: sessionID,
		UserID:    user.ID,
	})
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to issue session token: %w", err)
	}

	now := a.now()
	record := model.SessionRecord{
		ID:        sessionID,
		UserID:    user.ID,
		TokenHash: hashToken(token),
		IssuedAt:  now,
		ExpiresAt: now.Add(a.sessionTTL),
		CreatedAt: now,
	}
	if err := a.sessionStore.Create(ctx, record); err != nil {
		return model.Session{}, fmt.Errorf("failed to persist session: %w", err)
	}

	return model.Session{
		ID:          sessionID,
		UserID:      user.ID,
		Email:       user.Email,
		AccessToken: token,
		IssuedAt:    record.IssuedAt,
		ExpiresAt:   record.ExpiresAt,
	}, nil
}

// GetSession resolves an access token into its live session.
func (a *Auth) GetSession(ctx context.Context, accessToken string) (model.Session, error) {
	claims, err := a.tokenManager.ParseSessionToken(accessToken)
	if errors.Is(err, model.ErrSessionExpired) {
		return model.Session{}, err
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: %v", model.ErrSessionMismatch, err)
	}

	record, err := a.sessionStore.GetByID(ctx, claims.SessionID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Session{}, model.ErrSessionRevoked
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	if err := validateRecord(record, claims, hashToken(accessToken), a.now()); err != nil {
		return model.Session{}, err
	}

	user, err := a.userStore.GetByID(ctx, record.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Session{}, model.ErrSessionRevoked
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to get session user: %w", err)
	}

	return model.Session{
		ID:          record.ID,
		UserID:      record.UserID,
		Email:       user.Email,
		AccessToken: accessToken,
		IssuedAt:    record.IssuedAt,
		ExpiresAt:   record.ExpiresAt,
	}, nil
}

// SignOut revokes the session behind accessToken. Signing out an already
// dead session succeeds.
func (a *Auth) SignOut(ctx context.Context, accessToken string) error {
	claims, err := a.tokenManager.ParseSessionToken(accessToken)
	if errors.Is(err, model.ErrSessionExpired) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := a.sessionStore.Revoke(ctx, claims.SessionID); err != nil {
		a.logger.Error("Auth service: failed to revoke session",
			"session_id", claims.SessionID,
			"error", err.Error())
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	a.publish(ctx, claims.UserID, model.AuthEventSignedOut)
	a.logger.Info("Auth service: user signed out",
		"user_id", claims.UserID,
		"session_id", claims.SessionID)

	return nil
}

func (a *Auth) FetchProfile(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	profile, err := a.profileStore.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Profile{}, model.ErrNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

func (a *Auth) FetchRolePermissions(ctx context.Context, role model.Role) ([]model.Permission, error) {
	perms, err := a.rolePermissionStore.GetByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}
	return perms, nil
}

// Subscribe registers fn for auth events published for userID.
func (a *Auth) Subscribe(userID uuid.UUID, fn events.Handler) func() {
	return a.bus.Subscribe(userID, fn)
}

func (a *Auth) publish(ctx context.Context, userID uuid.UUID, event model.AuthEvent) {
	if err := a.bus.Publish(ctx, userID, event); err != nil {
		a.logger.Warn("Auth service: failed to publish auth event",
			"user_id", userID,
			"event", event,
			"error", err.Error())
	}
}

func hashToken(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}

func validateRecord(rec model.SessionRecord, claims model.SessionClaims, presentedHash []byte, now time.Time) error {
	if rec.RevokedAt != nil {
		return model.ErrSessionRevoked
	}
	if !now.Before(rec.ExpiresAt) {
		return model.ErrSessionExpired
	}
	if rec.UserID != claims.UserID || subtle.ConstantTimeCompare(rec.TokenHash, presentedHash) != 1 {
		return model.ErrSessionMismatch
	}
	return nil
}
