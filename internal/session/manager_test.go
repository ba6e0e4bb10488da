package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/petalworks/storefront-core/internal/api"
	pkgerrors "github.com/petalworks/storefront-core/pkg/errors"
	"github.com/petalworks/storefront-core/pkg/logger"
	"github.com/petalworks/storefront-core/pkg/storage"
	"github.com/petalworks/storefront-core/pkg/types"
)

type fakeRemote struct {
	loginResult api.LoginResult
	loginErr    error

	refreshAccess string
	refreshErr    error
	refreshDelay  time.Duration
	refreshCalls  atomic.Int32

	updatedProfile types.Profile
	updateErr      error
	updateToken    string
}

func (f *fakeRemote) Login(ctx context.Context, email, password string) (api.LoginResult, error) {
	return f.loginResult, f.loginErr
}

func (f *fakeRemote) Refresh(ctx context.Context, refreshToken string) (string, error) {
	f.refreshCalls.Add(1)
	if f.refreshDelay > 0 {
		time.Sleep(f.refreshDelay)
	}
	return f.refreshAccess, f.refreshErr
}

func (f *fakeRemote) Register(ctx context.Context, input api.RegisterInput) (types.Profile, error) {
	return types.Profile{Email: input.Email}, nil
}

func (f *fakeRemote) UpdateProfile(ctx context.Context, profileID string, patch types.ProfilePatch, accessToken string) (types.Profile, error) {
	f.updateToken = accessToken
	return f.updatedProfile, f.updateErr
}

func (f *fakeRemote) RequestPasswordReset(ctx context.Context, email string) error { return nil }

func (f *fakeRemote) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	return nil
}

func newTestManager(t *testing.T, remote *fakeRemote) (*Manager, *storage.Memory) {
	t.Helper()
	secure := storage.NewMemory()
	log := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	manager, err := NewManager(Params{Remote: remote, Secure: secure, Logger: log})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return manager, secure
}

func loggedInManager(t *testing.T, remote *fakeRemote) (*Manager, *storage.Memory) {
	t.Helper()
	remote.loginResult = api.LoginResult{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Profile:      types.Profile{ID: "9", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
	}
	manager, secure := newTestManager(t, remote)
	if _, err := manager.Login(context.Background(), "ada@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	return manager, secure
}

func TestLoginPopulatesSessionAndPersistsTokens(t *testing.T) {
	manager, secure := loggedInManager(t, &fakeRemote{})

	session := manager.Current()
	if !session.Authenticated() {
		t.Fatalf("expected authenticated session: %+v", session)
	}
	if session.AccessToken != "access-1" || session.RefreshToken != "refresh-1" {
		t.Fatalf("unexpected tokens: %+v", session)
	}

	ctx := context.Background()
	if value, ok, _ := secure.Get(ctx, "token"); !ok || value != "access-1" {
		t.Fatalf("access token not persisted: %q ok=%v", value, ok)
	}
	if value, ok, _ := secure.Get(ctx, "refreshToken"); !ok || value != "refresh-1" {
		t.Fatalf("refresh token not persisted: %q ok=%v", value, ok)
	}
}

func TestLoginFailureLeavesSessionUntouched(t *testing.T) {
	remote := &fakeRemote{loginErr: pkgerrors.New(pkgerrors.CodeInvalidCredentials, "login rejected")}
	manager, _ := newTestManager(t, remote)

	_, err := manager.Login(context.Background(), "a@a.com", "bad")
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if session := manager.Current(); session.Authenticated() || session.AccessToken != "" {
		t.Fatalf("session should stay empty: %+v", session)
	}
}

func TestRefreshReplacesOnlyAccessToken(t *testing.T) {
	remote := &fakeRemote{refreshAccess: "access-2"}
	manager, secure := loggedInManager(t, remote)
	before := manager.Current()

	after, err := manager.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if after.AccessToken != "access-2" {
		t.Fatalf("access token not replaced: %+v", after)
	}
	if after.RefreshToken != before.RefreshToken {
		t.Fatalf("refresh token changed: %q -> %q", before.RefreshToken, after.RefreshToken)
	}
	if after.Profile == nil || *after.Profile != *before.Profile {
		t.Fatalf("profile changed across refresh")
	}
	if value, _, _ := secure.Get(context.Background(), "token"); value != "access-2" {
		t.Fatalf("new access token not persisted: %q", value)
	}
}

func TestRefreshFailureTearsDownSession(t *testing.T) {
	remote := &fakeRemote{refreshErr: errors.New("refresh token rejected")}
	manager, secure := loggedInManager(t, remote)

	_, err := manager.Refresh(context.Background())
	if !pkgerrors.IsCode(err, pkgerrors.CodeSessionExpired) {
		t.Fatalf("expected session expired, got %v", err)
	}

	session := manager.Current()
	if session.Authenticated() || session.AccessToken != "" || session.Profile != nil {
		t.Fatalf("session should be fully cleared: %+v", session)
	}
	if _, ok, _ := secure.Get(context.Background(), "token"); ok {
		t.Fatalf("persisted access token should be deleted")
	}
	if _, ok, _ := secure.Get(context.Background(), "refreshToken"); ok {
		t.Fatalf("persisted refresh token should be deleted")
	}
}

func TestRefreshWithoutSessionReturnsSessionExpired(t *testing.T) {
	manager, _ := newTestManager(t, &fakeRemote{})
	_, err := manager.Refresh(context.Background())
	if !pkgerrors.IsCode(err, pkgerrors.CodeSessionExpired) {
		t.Fatalf("expected session expired, got %v", err)
	}
}

func TestConcurrentRefreshSharesOneExchange(t *testing.T) {
	remote := &fakeRemote{refreshAccess: "access-2", refreshDelay: 50 * time.Millisecond}
	manager, _ := loggedInManager(t, remote)
	remote.refreshCalls.Store(0)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.Refresh(context.Background()); err != nil {
				t.Errorf("refresh: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls := remote.refreshCalls.Load(); calls != 1 {
		t.Fatalf("expected a single refresh exchange, got %d", calls)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	manager, _ := loggedInManager(t, &fakeRemote{})
	ctx := context.Background()

	manager.Logout(ctx)
	if manager.Current().Authenticated() {
		t.Fatalf("expected logged-out session")
	}
	// second logout on an empty session is safe
	manager.Logout(ctx)
}

func TestUpdateProfileKeepsTokens(t *testing.T) {
	remote := &fakeRemote{updatedProfile: types.Profile{ID: "9", FirstName: "Ada", LastName: "King", Email: "ada@example.com"}}
	manager, _ := loggedInManager(t, remote)

	updated, err := manager.UpdateProfile(context.Background(), types.ProfilePatch{LastName: ptr("King")})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.LastName != "King" {
		t.Fatalf("profile not merged: %+v", updated)
	}
	if remote.updateToken != "access-1" {
		t.Fatalf("update did not carry the access token: %q", remote.updateToken)
	}
	session := manager.Current()
	if session.AccessToken != "access-1" || session.RefreshToken != "refresh-1" {
		t.Fatalf("tokens must be untouched: %+v", session)
	}
	if session.Profile.LastName != "King" {
		t.Fatalf("profile not updated in session: %+v", session.Profile)
	}
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	manager, _ := newTestManager(t, &fakeRemote{})
	_, err := manager.UpdateProfile(context.Background(), types.ProfilePatch{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeSessionExpired) {
		t.Fatalf("expected session expired, got %v", err)
	}
}

func TestEnsureFreshRefreshesExpiringToken(t *testing.T) {
	remote := &fakeRemote{refreshAccess: "access-2"}
	manager, _ := loggedInManager(t, remote)
	remote.refreshCalls.Store(0)

	setAccessToken(t, manager, signedToken(t, time.Now().Add(5*time.Second)))
	if err := manager.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("ensure fresh: %v", err)
	}
	if remote.refreshCalls.Load() != 1 {
		t.Fatalf("expected one refresh for an expiring token")
	}

	remote.refreshCalls.Store(0)
	setAccessToken(t, manager, signedToken(t, time.Now().Add(time.Hour)))
	if err := manager.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("ensure fresh: %v", err)
	}
	if remote.refreshCalls.Load() != 0 {
		t.Fatalf("fresh token must not trigger a refresh")
	}

	// opaque tokens are left alone
	setAccessToken(t, manager, "not-a-jwt")
	if err := manager.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("ensure fresh: %v", err)
	}
	if remote.refreshCalls.Load() != 0 {
		t.Fatalf("opaque token must not trigger a refresh")
	}
}

func TestSubscribeObservesLoginAndLogout(t *testing.T) {
	remote := &fakeRemote{loginResult: api.LoginResult{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Profile:      types.Profile{ID: "9", Email: "ada@example.com"},
	}}
	manager, _ := newTestManager(t, remote)

	var seen []bool
	cancel := manager.Subscribe(func(s types.Session) { seen = append(seen, s.Authenticated()) })
	defer cancel()

	ctx := context.Background()
	if _, err := manager.Login(ctx, "ada@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	manager.Logout(ctx)

	if len(seen) != 2 || !seen[0] || seen[1] {
		t.Fatalf("unexpected notifications: %v", seen)
	}
}

func signedToken(t *testing.T, expiry time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiry),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func setAccessToken(t *testing.T, manager *Manager, token string) {
	t.Helper()
	manager.mu.Lock()
	manager.current.AccessToken = token
	manager.mu.Unlock()
}

func ptr(value string) *string { return &value }
