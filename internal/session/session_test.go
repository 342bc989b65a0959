package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/model"
	"github.com/dharsanguruparan/CircularNest/internal/notify"
	"github.com/dharsanguruparan/CircularNest/internal/session"
	"github.com/dharsanguruparan/CircularNest/internal/tokenstore"
)

type fakeAPI struct {
	meCalls     int
	signupCalls int
	me          *model.User
	meErr       error
	loginErr    error
	profile     *model.User
}

func (f *fakeAPI) Login(_ context.Context, email, _ string) (*apiclient.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &apiclient.LoginResult{Token: "issued", User: model.User{ID: "u1", Email: email, Role: model.RoleUser}}, nil
}

func (f *fakeAPI) Signup(context.Context, apiclient.SignupRequest) error {
	f.signupCalls++
	return nil
}

func (f *fakeAPI) Me(context.Context) (*model.User, error) {
	f.meCalls++
	return f.me, f.meErr
}

func (f *fakeAPI) UpdateProfile(context.Context, model.Institution) (*model.User, error) {
	return f.profile, nil
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestSession_Restore(t *testing.T) {
	t.Run("should stay anonymous without a token", func(t *testing.T) {
		api := &fakeAPI{}
		s := session.New(api, tokenstore.NewMemoryStore(""), nil)
		require.True(t, s.Loading())

		user, err := s.Restore(context.Background())

		require.NoError(t, err)
		require.Nil(t, user)
		require.False(t, s.Loading())
		require.Zero(t, api.meCalls)
	})

	t.Run("should validate a live token through /me", func(t *testing.T) {
		api := &fakeAPI{me: &model.User{ID: "u1", Role: model.RoleAdmin}}
		s := session.New(api, tokenstore.NewMemoryStore(signed(t, time.Now().Add(time.Hour))), nil)

		user, err := s.Restore(context.Background())

		require.NoError(t, err)
		require.True(t, user.IsAdmin())
		require.Equal(t, 1, api.meCalls)

		// second restore is a no-op
		_, err = s.Restore(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, api.meCalls)
	})

	t.Run("should clear an expired token without calling the API", func(t *testing.T) {
		api := &fakeAPI{}
		tokens := tokenstore.NewMemoryStore(signed(t, time.Now().Add(-time.Minute)))
		s := session.New(api, tokens, nil)

		user, err := s.Restore(context.Background())

		require.NoError(t, err)
		require.Nil(t, user)
		require.Zero(t, api.meCalls)
		token, _ := tokens.Token()
		require.Empty(t, token)
	})

	t.Run("should clear a token the server rejects", func(t *testing.T) {
		api := &fakeAPI{meErr: &apiclient.APIError{StatusCode: 500, Message: "boom"}}
		tokens := tokenstore.NewMemoryStore("opaque-token")
		s := session.New(api, tokens, nil)

		user, err := s.Restore(context.Background())

		require.NoError(t, err)
		require.Nil(t, user)
		token, _ := tokens.Token()
		require.Empty(t, token)
	})
}

func TestSession_LoginLogout(t *testing.T) {
	// given
	tokens := tokenstore.NewMemoryStore("")
	notes := notify.NewRecorder()
	s := session.New(&fakeAPI{}, tokens, notes)

	// when
	user, err := s.Login(context.Background(), "  clerk@school.in ", "pw")

	// then
	require.NoError(t, err)
	require.Equal(t, "clerk@school.in", user.Email)
	token, _ := tokens.Token()
	require.Equal(t, "issued", token)
	require.Equal(t, "u1", s.User().ID)

	s.Logout()
	require.Nil(t, s.User())
	token, _ = tokens.Token()
	require.Empty(t, token)
	require.Equal(t, []notify.Message{
		{Level: notify.LevelSuccess, Text: "Login successful!"},
		{Level: notify.LevelSuccess, Text: "Logged out successfully"},
	}, notes.Messages())
}

func TestSession_LoginFailureKeepsAnonymous(t *testing.T) {
	notes := notify.NewRecorder()
	s := session.New(&fakeAPI{loginErr: &apiclient.APIError{StatusCode: 400, Message: "Invalid credentials"}}, tokenstore.NewMemoryStore(""), notes)

	_, err := s.Login(context.Background(), "a@b.in", "bad")

	require.Error(t, err)
	require.Nil(t, s.User())
	require.Equal(t, []string{"Invalid credentials"}, notes.Errors())
}

func TestSession_AdminSignupRejectedLocally(t *testing.T) {
	api := &fakeAPI{}
	s := session.New(api, tokenstore.NewMemoryStore(""), nil)

	err := s.Signup(context.Background(), "root@gov.in", "pw", model.RoleAdmin, model.Institution{})

	require.True(t, errors.Is(err, session.ErrAdminSignupDisabled))
	require.Zero(t, api.signupCalls)

	require.NoError(t, s.Signup(context.Background(), "clerk@school.in", "pw", model.RoleUser, model.Institution{}))
	require.Equal(t, 1, api.signupCalls)
}

func TestSession_UpdateProfile(t *testing.T) {
	s := session.New(&fakeAPI{}, tokenstore.NewMemoryStore(""), nil)
	_, err := s.UpdateProfile(context.Background(), model.Institution{})
	require.ErrorIs(t, err, session.ErrNotLoggedIn)

	_, err = s.Login(context.Background(), "clerk@school.in", "pw")
	require.NoError(t, err)

	city := "Pune"
	user, err := s.UpdateProfile(context.Background(), model.Institution{City: &city})
	require.NoError(t, err)
	require.Equal(t, "Pune", user.City)
	require.Equal(t, "clerk@school.in", user.Email)
}
