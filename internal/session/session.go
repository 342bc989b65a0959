// Package session holds the signed-in user. A Session is created once and
// passed explicitly to every component that needs to know who is logged in;
// Login, Signup and Logout are the only ways to change it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/model"
	"github.com/dharsanguruparan/CircularNest/internal/notify"
)

var (
	// ErrAdminSignupDisabled is returned before any request when someone
	// tries to register an administrator account.
	ErrAdminSignupDisabled = errors.New("admin registration is disabled, only institution owners can register")
	// ErrNotLoggedIn is returned by operations that need a user.
	ErrNotLoggedIn = errors.New("not logged in")
)

// API is the subset of the API client the session uses.
type API interface {
	Login(ctx context.Context, email, password string) (*apiclient.LoginResult, error)
	Signup(ctx context.Context, req apiclient.SignupRequest) error
	Me(ctx context.Context) (*model.User, error)
	UpdateProfile(ctx context.Context, update model.Institution) (*model.User, error)
}

// Session is the process-wide authentication state.
type Session struct {
	api    API
	tokens apiclient.TokenStore
	notify notify.Notifier
	now    func() time.Time

	mu       sync.RWMutex
	user     *model.User
	loading  bool
	restored bool
}

// New creates a Session in the loading state; call Restore to finish it.
func New(api API, tokens apiclient.TokenStore, n notify.Notifier) *Session {
	if n == nil {
		n = notify.Discard
	}
	return &Session{api: api, tokens: tokens, notify: n, now: time.Now, loading: true}
}

// Bind registers the session with the client so a 401 on any call also drops
// the cached user.
func (s *Session) Bind(c *apiclient.Client) {
	c.OnUnauthorized(s.forget)
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyUser()
}

// Loading reports whether Restore has not finished yet.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Restore validates a persisted token once. A missing token leaves the
// session anonymous; an expired or rejected token is cleared. Later calls are
// no-ops.
func (s *Session) Restore(ctx context.Context) (*model.User, error) {
	s.mu.Lock()
	if s.restored {
		defer s.mu.Unlock()
		return s.copyUser(), nil
	}
	s.mu.Unlock()

	user, err := s.restore(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.loading = false
	s.restored = true
	return s.copyUser(), err
}

func (s *Session) restore(ctx context.Context) (*model.User, error) {
	token, err := s.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("read stored token: %w", err)
	}
	if token == "" {
		return nil, nil
	}
	if expired(token, s.now()) {
		s.clearToken()
		return nil, nil
	}
	user, err := s.api.Me(ctx)
	if err != nil {
		log.Printf("session restore failed: %v", err)
		s.clearToken()
		return nil, nil
	}
	return user, nil
}

// expired reads the exp claim without verifying the signature; the server
// remains the authority. Tokens that are not JWTs are left to the server.
func expired(token string, now time.Time) bool {
	if strings.Count(token, ".") != 2 {
		return false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}

// Login authenticates and persists the issued token.
func (s *Session) Login(ctx context.Context, email, password string) (*model.User, error) {
	res, err := s.api.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		s.notify.Error(apiclient.Message(err, "Login failed"))
		return nil, err
	}
	if err := s.tokens.SetToken(res.Token); err != nil {
		s.notify.Error("Login failed")
		return nil, fmt.Errorf("store token: %w", err)
	}
	user := res.User
	s.mu.Lock()
	s.user = &user
	s.loading = false
	s.restored = true
	s.mu.Unlock()
	s.notify.Success("Login successful!")
	return &user, nil
}

// Signup registers a user account. Only the user role may self-register;
// admin requests fail locally without a network call.
func (s *Session) Signup(ctx context.Context, email, password string, role model.Role, inst model.Institution) error {
	if role == model.RoleAdmin {
		s.notify.Error("Admin registration is disabled. Only institution owners can register.")
		return ErrAdminSignupDisabled
	}
	err := s.api.Signup(ctx, apiclient.SignupRequest{
		Email:       strings.TrimSpace(email),
		Password:    password,
		Role:        model.RoleUser,
		Institution: inst,
	})
	if err != nil {
		s.notify.Error(apiclient.Message(err, "Signup failed"))
		return err
	}
	s.notify.Success("Account created! Please login.")
	return nil
}

// Logout drops the user and the stored token.
func (s *Session) Logout() {
	s.forget()
	s.clearToken()
	s.notify.Success("Logged out successfully")
}

// UpdateProfile sends a partial profile update and refreshes the cached user.
func (s *Session) UpdateProfile(ctx context.Context, update model.Institution) (*model.User, error) {
	if s.User() == nil {
		return nil, ErrNotLoggedIn
	}
	updated, err := s.api.UpdateProfile(ctx, update)
	if err != nil {
		s.notify.Error(apiclient.Message(err, "Failed to update profile"))
		return nil, err
	}
	s.mu.Lock()
	if updated != nil {
		s.user = updated
	} else if s.user != nil {
		update.Apply(s.user)
	}
	out := s.copyUser()
	s.mu.Unlock()
	s.notify.Success("Profile updated successfully")
	return out, nil
}

func (s *Session) forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

func (s *Session) clearToken() {
	if err := s.tokens.ClearToken(); err != nil {
		log.Printf("clear stored token: %v", err)
	}
}

// copyUser must be called with s.mu held.
func (s *Session) copyUser() *model.User {
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}
