// Package session owns the authenticated session: the token pair, the
// customer profile, and the rules for renewing or tearing them down.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/petalworks/storefront-core/internal/api"
	pkgerrors "github.com/petalworks/storefront-core/pkg/errors"
	"github.com/petalworks/storefront-core/pkg/events"
	"github.com/petalworks/storefront-core/pkg/logger"
	"github.com/petalworks/storefront-core/pkg/metrics"
	"github.com/petalworks/storefront-core/pkg/storage"
	"github.com/petalworks/storefront-core/pkg/types"
)

// Secure storage keys for the persisted token pair.
const (
	secureKeyAccess  = "token"
	secureKeyRefresh = "refreshToken"
)

const defaultRefreshLeeway = 30 * time.Second

type remoteAuth interface {
	Login(ctx context.Context, email, password string) (api.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Register(ctx context.Context, input api.RegisterInput) (types.Profile, error)
	UpdateProfile(ctx context.Context, profileID string, patch types.ProfilePatch, accessToken string) (types.Profile, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error
}

// Manager is the exclusive owner of the session. Every other store reads
// copies and attaches the access token it exposes.
type Manager struct {
	remote  remoteAuth
	secure  storage.Secure
	log     *logger.Logger
	met     *metrics.StoreMetrics
	hub     *events.Hub[types.Session]
	leeway  time.Duration

	mu        sync.Mutex
	current   types.Session
	refreshes singleflight.Group
}

// Params bundles the dependencies required to build a session manager.
type Params struct {
	Remote        remoteAuth
	Secure        storage.Secure
	Logger        *logger.Logger
	Metrics       *metrics.StoreMetrics
	RefreshLeeway time.Duration
}

// NewManager constructs a session manager with the provided dependencies.
func NewManager(params Params) (*Manager, error) {
	if params.Remote == nil {
		return nil, fmt.Errorf("remote auth client is required")
	}
	if params.Secure == nil {
		return nil, fmt.Errorf("secure store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	leeway := params.RefreshLeeway
	if leeway <= 0 {
		leeway = defaultRefreshLeeway
	}
	return &Manager{
		remote: params.Remote,
		secure: params.Secure,
		log:    params.Logger,
		met:    params.Metrics,
		hub:    events.NewHub[types.Session](),
		leeway: leeway,
	}, nil
}

// Login exchanges credentials for a session. On failure the current session
// is left untouched.
func (m *Manager) Login(ctx context.Context, email, password string) (types.Session, error) {
	result, err := m.remote.Login(ctx, email, password)
	if err != nil {
		return types.Session{}, err
	}

	profile := result.Profile
	m.mu.Lock()
	m.current = types.Session{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		Profile:      &profile,
	}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.persistTokens(ctx, result.AccessToken, result.RefreshToken)
	m.hub.Publish(snapshot)
	m.log.Info(m.log.WithUserEmail(ctx, profile.Email), "login succeeded")
	return snapshot, nil
}

// Refresh exchanges the stored refresh token for a new access token. The
// profile and refresh token are untouched on success; any failure collapses
// the session to logged-out so no half-valid state survives. Concurrent
// callers share a single in-flight exchange.
func (m *Manager) Refresh(ctx context.Context) (types.Session, error) {
	value, err, _ := m.refreshes.Do("refresh", func() (any, error) {
		return m.doRefresh(ctx)
	})
	if err != nil {
		return types.Session{}, err
	}
	return value.(types.Session), nil
}

func (m *Manager) doRefresh(ctx context.Context) (types.Session, error) {
	m.mu.Lock()
	refreshToken := m.current.RefreshToken
	m.mu.Unlock()

	if refreshToken == "" {
		m.met.IncTokenRefresh(metrics.ResultFailure)
		m.teardown(ctx)
		return types.Session{}, pkgerrors.New(pkgerrors.CodeSessionExpired, "no refresh token held")
	}

	access, err := m.remote.Refresh(ctx, refreshToken)
	if err != nil {
		m.met.IncTokenRefresh(metrics.ResultFailure)
		m.teardown(ctx)
		return types.Session{}, pkgerrors.Wrap(pkgerrors.CodeSessionExpired, err, "token refresh failed")
	}

	m.mu.Lock()
	m.current.AccessToken = access
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	if err := m.secure.Set(ctx, secureKeyAccess, access); err != nil {
		m.log.Error(ctx, "persisting refreshed access token", err)
	}
	m.met.IncTokenRefresh(metrics.ResultSuccess)
	m.hub.Publish(snapshot)
	return snapshot, nil
}

// EnsureFresh refreshes the access token when it is within the configured
// leeway of its expiry. Opaque or unexpired tokens are left alone.
func (m *Manager) EnsureFresh(ctx context.Context) error {
	m.mu.Lock()
	token := m.current.AccessToken
	m.mu.Unlock()
	if token == "" {
		return nil
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) > m.leeway {
		return nil
	}

	_, err := m.Refresh(ctx)
	return err
}

// Logout clears the in-memory session and deletes the persisted tokens.
// Safe to call on an already-empty session.
func (m *Manager) Logout(ctx context.Context) {
	m.teardown(ctx)
}

func (m *Manager) teardown(ctx context.Context) {
	m.mu.Lock()
	wasEmpty := m.current == (types.Session{})
	m.current = types.Session{}
	m.mu.Unlock()

	err := multierr.Combine(
		m.secure.Delete(ctx, secureKeyAccess),
		m.secure.Delete(ctx, secureKeyRefresh),
	)
	if err != nil {
		m.log.Error(ctx, "deleting persisted tokens", err)
	}
	if !wasEmpty {
		m.hub.Publish(types.Session{})
		m.log.Info(ctx, "session cleared")
	}
}

// UpdateProfile runs a profile-edit round trip and merges the result without
// touching tokens.
func (m *Manager) UpdateProfile(ctx context.Context, patch types.ProfilePatch) (types.Profile, error) {
	m.mu.Lock()
	current := m.snapshotLocked()
	m.mu.Unlock()

	if !current.Authenticated() {
		return types.Profile{}, pkgerrors.New(pkgerrors.CodeSessionExpired, "not logged in")
	}

	updated, err := m.remote.UpdateProfile(ctx, current.Profile.ID, patch, current.AccessToken)
	if err != nil {
		return types.Profile{}, err
	}

	m.mu.Lock()
	m.current.Profile = &updated
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.hub.Publish(snapshot)
	return updated, nil
}

// Register creates an account. The caller logs in afterwards; registration
// never authenticates by itself.
func (m *Manager) Register(ctx context.Context, input api.RegisterInput) (types.Profile, error) {
	return m.remote.Register(ctx, input)
}

// RequestPasswordReset asks the service to send a reset code.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	return m.remote.RequestPasswordReset(ctx, email)
}

// ConfirmPasswordReset completes the emailed-code reset flow.
func (m *Manager) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	return m.remote.ConfirmPasswordReset(ctx, email, code, newPassword)
}

// Current returns a copy of the session.
func (m *Manager) Current() types.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// AccessToken returns the token the other stores attach to remote calls.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.AccessToken
}

// Subscribe registers an observer for session changes.
func (m *Manager) Subscribe(fn func(types.Session)) (cancel func()) {
	return m.hub.Subscribe(fn)
}

func (m *Manager) snapshotLocked() types.Session {
	snapshot := m.current
	if m.current.Profile != nil {
		profile := *m.current.Profile
		snapshot.Profile = &profile
	}
	return snapshot
}

func (m *Manager) persistTokens(ctx context.Context, access, refresh string) {
	err := multierr.Combine(
		m.secure.Set(ctx, secureKeyAccess, access),
		m.secure.Set(ctx, secureKeyRefresh, refresh),
	)
	if err != nil {
		m.log.Error(ctx, "persisting tokens", err)
	}
}
