package apiclient_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/model"
	"github.com/dharsanguruparan/CircularNest/internal/nav"
	"github.com/dharsanguruparan/CircularNest/internal/tokenstore"
)

func newClient(t *testing.T, handler http.HandlerFunc, tokens apiclient.TokenStore, opts ...apiclient.Option) *apiclient.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := apiclient.New(srv.URL, tokens, opts...)
	require.NoError(t, err)
	return c
}

func TestClient_AttachesBearerToken(t *testing.T) {
	// given
	var gotAuth, gotRequestID string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{"success":true,"user":{"_id":"u1","email":"a@b.in","role":"user"}}`))
	}, tokenstore.NewMemoryStore("tok-123"))

	// when
	user, err := c.Me(context.Background())

	// then
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-123", gotAuth)
	require.NotEmpty(t, gotRequestID)
	require.Equal(t, "u1", user.ID)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"success":true,"circulars":[],"total":0}`))
	}, tokenstore.NewMemoryStore(""))

	_, err := c.ListCirculars(context.Background(), apiclient.CircularQuery{})
	require.NoError(t, err)
	require.Empty(t, gotAuth)
}

func TestClient_UnauthorizedClearsSessionAndRedirects(t *testing.T) {
	calls := map[string]func(c *apiclient.Client) error{
		"list circulars": func(c *apiclient.Client) error {
			_, err := c.ListCirculars(context.Background(), apiclient.CircularQuery{})
			return err
		},
		"approve": func(c *apiclient.Client) error {
			return c.ApprovePending(context.Background(), "p1", "")
		},
		"download": func(c *apiclient.Client) error {
			_, err := c.DownloadCircular(context.Background(), "c1")
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			// given
			ctrl := gomock.NewController(t)
			navigator := nav.NewMockNavigator(ctrl)
			tokens := apiclient.NewMockTokenStore(ctrl)
			tokens.EXPECT().Token().Return("stale", nil)
			tokens.EXPECT().ClearToken().Return(nil)
			navigator.EXPECT().Navigate(nav.RouteLogin)
			hookRan := false
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"success":false,"message":"Token expired"}`))
			}, tokens, apiclient.WithNavigator(navigator))
			c.OnUnauthorized(func() { hookRan = true })

			// when
			err := call(c)

			// then
			require.ErrorIs(t, err, apiclient.ErrUnauthorized)
			require.True(t, hookRan)
		})
	}
}

func TestClient_ErrorMessages(t *testing.T) {
	t.Run("should surface server message", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"success":false,"message":"Only PDF files are allowed"}`))
		}, nil)

		err := c.DeletePending(context.Background(), "x")

		var apiErr *apiclient.APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		require.Equal(t, "Only PDF files are allowed", apiclient.Message(err, "fallback"))
	})

	t.Run("should use error field when message is missing", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"already reviewed"}`))
		}, nil)

		err := c.RejectPending(context.Background(), "x", "dup")
		require.Equal(t, "already reviewed", apiclient.Message(err, "fallback"))
	})

	t.Run("should treat success=false on 200 as failure", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":false,"message":"Invalid credentials"}`))
		}, nil)

		_, err := c.Login(context.Background(), "a@b.in", "nope")
		require.Equal(t, "Invalid credentials", apiclient.Message(err, "Login failed"))
	})

	t.Run("should detect HTML instead of JSON", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<!doctype html><html><body>app shell</body></html>"))
		}, nil)

		_, err := c.ListCirculars(context.Background(), apiclient.CircularQuery{})
		require.ErrorIs(t, err, apiclient.ErrHTMLResponse)
	})

	t.Run("should fall back to generic text for transport errors", func(t *testing.T) {
		c, err := apiclient.New("http://127.0.0.1:1", nil)
		require.NoError(t, err)

		_, err = c.ListCirculars(context.Background(), apiclient.CircularQuery{})
		require.Error(t, err)
		require.Equal(t, "Failed to load circulars", apiclient.Message(err, "Failed to load circulars"))
	})
}

func TestClient_ListQueryParameters(t *testing.T) {
	var gotPath, gotQuery string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"success":true,"circulars":[{"_id":"c1","status":"approved"}],"total":1}`))
	}, nil)

	list, err := c.ListCirculars(context.Background(), apiclient.CircularQuery{
		Category: model.CategoryFireDepartment,
		Status:   model.StatusApproved,
		Limit:    100,
		Page:     2,
	})

	require.NoError(t, err)
	require.Equal(t, "/api/circulars", gotPath)
	require.Equal(t, "category=Fire+Department&limit=100&page=2&status=approved", gotQuery)
	require.Len(t, list.Circulars, 1)
	require.Equal(t, "c1", list.Circulars[0].ID)

	_, err = c.ListStorageCirculars(context.Background(), apiclient.CircularQuery{UserID: "u9"})
	require.NoError(t, err)
	require.Equal(t, "/circulars", gotPath)
	require.Equal(t, "userId=u9", gotQuery)
}

func TestClient_ReviewBodies(t *testing.T) {
	type seen struct {
		method, path string
		body         map[string]string
	}
	var got []seen
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{}
		json.NewDecoder(r.Body).Decode(&body)
		got = append(got, seen{r.Method, r.URL.Path, body})
		w.Write([]byte(`{"success":true}`))
	}, nil)

	require.NoError(t, c.ApprovePending(context.Background(), "p1", "Looks good"))
	require.NoError(t, c.RejectPending(context.Background(), "p2", "Blurry scan"))
	_, err := c.UpdateCircularStatus(context.Background(), "c3", model.StatusRejected, "Duplicate")
	require.NoError(t, err)

	require.Equal(t, []seen{
		{http.MethodPut, "/api/pending/p1/approve", map[string]string{"reviewNotes": "Looks good"}},
		{http.MethodPut, "/api/pending/p2/reject", map[string]string{"reviewNotes": "Blurry scan"}},
		{http.MethodPut, "/api/circulars/c3/status", map[string]string{"status": "rejected", "reviewNotes": "Duplicate"}},
	}, got)
}

func TestClient_MultipartSubmission(t *testing.T) {
	// given
	pdf := []byte("%PDF-1.4 tiny")
	var fields map[string]string
	var fileName, fileType string
	var fileData []byte
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/pending/guest-upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		fields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		fileName = hdr.Filename
		fileType = hdr.Header.Get("Content-Type")
		fileData, _ = io.ReadAll(f)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success":true,"pendingUpload":{"_id":"p1","status":"pending","guestName":"Anonymous"}}`))
	}, nil)

	// when
	rec, err := c.SubmitGuest(context.Background(), map[string]string{"title": "Holiday Notice", "guestName": "Anonymous"}, apiclient.UploadFile{
		Name:        "holiday.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(pdf)),
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(pdf)), nil },
	})

	// then
	require.NoError(t, err)
	require.Equal(t, "p1", rec.ID)
	require.Equal(t, model.StatusPending, rec.Status)
	require.Equal(t, map[string]string{"title": "Holiday Notice", "guestName": "Anonymous"}, fields)
	require.Equal(t, "holiday.pdf", fileName)
	require.Equal(t, "application/pdf", fileType)
	require.Equal(t, pdf, fileData)
}

func TestClient_FetchBinary(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/pending/p1/file", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `inline; filename="notice.pdf"`)
		w.Write([]byte("%PDF-1.7"))
	}, nil)

	blob, err := c.PendingFile(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, "notice.pdf", blob.FileName)
	require.Equal(t, "application/pdf", blob.ContentType)
	require.Equal(t, []byte("%PDF-1.7"), blob.Data)
}

func TestNew_RejectsRelativeBase(t *testing.T) {
	_, err := apiclient.New("/api", nil)
	require.Error(t, err)
}
