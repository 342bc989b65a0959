package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/CircularNest/internal/config"
	"github.com/dharsanguruparan/CircularNest/internal/dashboard"
	"github.com/dharsanguruparan/CircularNest/internal/devserver"
	"github.com/dharsanguruparan/CircularNest/internal/signing"
)

const (
	adminEmail    = "admin@circularnest.test"
	adminPassword = "admin-secret"
)

// apiServer runs the in-memory API and counts DELETE requests.
func apiServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		JWTSecret:     []byte("jwt-secret"),
		TokenTTL:      time.Hour,
		SigningSecret: []byte("signing-secret"),
		SignedURLTTL:  time.Minute,
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
	}
	srv, err := devserver.New(cfg, devserver.NewMemoryStore(), signing.NewSigner(cfg.SigningSecret))
	require.NoError(t, err)
	var deletes atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deletes.Add(1)
		}
		srv.Handler().ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts, &deletes
}

// terminal is one person running the CLI with their own token file.
type terminal struct {
	apiURL    string
	tokenFile string
}

func newTerminal(t *testing.T, apiURL string) *terminal {
	return &terminal{apiURL: apiURL, tokenFile: filepath.Join(t.TempDir(), "token.json")}
}

func (c *terminal) run(args ...string) (string, error) {
	root := newRootCommand(&app{})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--api", c.apiURL, "--token-file", c.tokenFile}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *terminal) must(t *testing.T, args ...string) string {
	t.Helper()
	out, err := c.run(args...)
	require.NoError(t, err, strings.Join(args, " "))
	return out
}

func pdfFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	data := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("0"), 2048)...)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestReviewAndDeleteCommands(t *testing.T) {
	chdir(t, t.TempDir())
	ts, deletes := apiServer(t)

	admin := newTerminal(t, ts.URL)
	admin.must(t, "login", "--email", adminEmail, "--password", adminPassword)
	owner := newTerminal(t, ts.URL)
	owner.must(t, "signup", "--email", "owner@school.test", "--password", "owner-secret")
	owner.must(t, "login", "--email", "owner@school.test", "--password", "owner-secret")

	t.Run("should report the API as reachable", func(t *testing.T) {
		out := owner.must(t, "health")
		require.Contains(t, out, ts.URL+" ok")
	})

	t.Run("should approve a guest submission once", func(t *testing.T) {
		// given
		guest := newTerminal(t, ts.URL)
		id := strings.TrimSpace(guest.must(t, "guest-submit", pdfFile(t, "holiday.pdf"), "--title", "Holiday Notice"))

		// when
		out := admin.must(t, "pending", "approve", id, "--notes", "ok")
		_, again := admin.run("pending", "reject", id)

		// then
		require.Contains(t, out, "0 awaiting review")
		require.Error(t, again)
		require.Contains(t, admin.must(t, "circulars", "get", id), `"status": "approved"`)
	})

	t.Run("should edit only the given fields", func(t *testing.T) {
		// given
		id := strings.TrimSpace(admin.must(t, "circulars", "upload", pdfFile(t, "fees.pdf"), "--title", "Fee Schedule", "--description", "2025 fees"))

		// when
		out := admin.must(t, "circulars", "update", id, "--title", "Fee Schedule 2025")

		// then
		require.Contains(t, out, `"title": "Fee Schedule 2025"`)
		require.Contains(t, out, `"description": "2025 fees"`)
		_, err := admin.run("circulars", "update", id)
		require.ErrorContains(t, err, "nothing to update")
	})

	t.Run("should refuse to delete an approved submission without a request", func(t *testing.T) {
		// given an owner submission the admin approved
		id := strings.TrimSpace(owner.must(t, "submit", pdfFile(t, "exam.pdf"), "--title", "Exam Dates"))
		admin.must(t, "pending", "approve", id)
		before := deletes.Load()

		// when
		_, err := owner.run("pending", "delete", id)

		// then
		require.ErrorIs(t, err, dashboard.ErrApprovedImmutable)
		require.Equal(t, before, deletes.Load())
		admin.must(t, "circulars", "get", id)
	})

	t.Run("should let the owner withdraw a pending submission", func(t *testing.T) {
		id := strings.TrimSpace(owner.must(t, "submit", pdfFile(t, "draft.pdf"), "--title", "Draft"))

		owner.must(t, "pending", "delete", id)

		require.NotContains(t, owner.must(t, "pending", "mine"), id)
	})

	t.Run("should let the admin delete a published circular", func(t *testing.T) {
		id := strings.TrimSpace(admin.must(t, "circulars", "upload", pdfFile(t, "old.pdf"), "--title", "Old Notice"))

		admin.must(t, "circulars", "delete", id)

		_, err := admin.run("circulars", "get", id)
		require.Error(t, err)
	})
}

type failingLoader struct{ calls int }

func (l *failingLoader) Load(context.Context) error {
	l.calls++
	return errors.New("approved: connection refused")
}

func TestShowToleratesFailedSections(t *testing.T) {
	// given a dashboard whose sections fail to load
	a := &app{cfg: &config.Config{RefreshInterval: time.Second}}
	loader := &failingLoader{}
	rendered := 0

	// when
	err := a.show(context.Background(), loader, false, func() { rendered++ })

	// then
	require.NoError(t, err)
	require.Equal(t, 1, loader.calls)
	require.Equal(t, 1, rendered)
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
