package upload_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/model"
	"github.com/dharsanguruparan/CircularNest/internal/notify"
	"github.com/dharsanguruparan/CircularNest/internal/upload"
)

const mib = 1024 * 1024

func writePDF(t *testing.T, name string, size int) string {
	t.Helper()
	data := bytes.Repeat([]byte{' '}, size)
	copy(data, "%PDF-1.4\n")
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestValidateFile(t *testing.T) {
	cases := []struct {
		name, file, contentType string
		size                    int64
		want                    error
	}{
		{"text file", "notice.txt", "text/plain", 1024, upload.ErrNotPDF},
		{"oversized pdf", "notice.pdf", "application/pdf", 11 * mib, upload.ErrTooLarge},
		{"valid pdf", "notice.pdf", "application/pdf", 2 * mib, nil},
		{"exactly at the cap", "notice.pdf", "application/pdf", 10 * mib, nil},
		{"one byte over", "notice.pdf", "application/pdf", 10*mib + 1, upload.ErrTooLarge},
		{"extension only", "NOTICE.PDF", "application/octet-stream", 10, nil},
		{"mime only", "scan", "application/pdf; charset=binary", 10, nil},
		{"empty", "notice.pdf", "application/pdf", 0, upload.ErrEmptyFile},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := upload.ValidateFile(tc.file, tc.contentType, tc.size)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestOpenFile(t *testing.T) {
	t.Run("should sniff a pdf", func(t *testing.T) {
		f, err := upload.OpenFile(writePDF(t, "holiday.pdf", 2048))
		require.NoError(t, err)
		require.Equal(t, "holiday.pdf", f.Name)
		require.Equal(t, "application/pdf", f.ContentType)
		require.EqualValues(t, 2048, f.Size)
		require.NoError(t, f.Validate())
	})

	t.Run("should sniff plain text", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notice.txt")
		require.NoError(t, os.WriteFile(path, []byte("just words"), 0o600))

		f, err := upload.OpenFile(path)

		require.NoError(t, err)
		require.Contains(t, f.ContentType, "text/plain")
		require.ErrorIs(t, f.Validate(), upload.ErrNotPDF)
	})

	t.Run("should fail for a missing file", func(t *testing.T) {
		_, err := upload.OpenFile(filepath.Join(t.TempDir(), "nope.pdf"))
		require.Error(t, err)
	})
}

func TestSubmitter_RejectsLocally(t *testing.T) {
	cases := map[string]struct {
		file *upload.File
		form upload.Form
		want string
	}{
		"text file": {
			file: &upload.File{Name: "notice.txt", ContentType: "text/plain", Size: 100},
			want: "Invalid file type. Only PDF files are allowed.",
		},
		"oversized pdf": {
			file: &upload.File{Name: "notice.pdf", ContentType: "application/pdf", Size: 11 * mib},
			want: "File size must be less than 10MB",
		},
		"no file": {
			want: "Please select a PDF file",
		},
		"unknown category": {
			file: &upload.File{Name: "notice.pdf", ContentType: "application/pdf", Size: 10},
			form: upload.Form{Category: "Sports"},
			want: "invalid form: Category (category)",
		},
		"bad order date": {
			file: &upload.File{Name: "notice.pdf", ContentType: "application/pdf", Size: 10},
			form: upload.Form{OrderDate: "12/01/2024"},
			want: "invalid form: OrderDate (orderdate)",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			// given a mock with no expectations: any request fails the test
			ctrl := gomock.NewController(t)
			api := upload.NewMockAPI(ctrl)
			notes := notify.NewRecorder()
			s := upload.NewSubmitter(api, notes)

			// when
			_, err := s.Submit(context.Background(), upload.User, tc.form, tc.file)

			// then
			require.Error(t, err)
			require.Equal(t, []string{tc.want}, notes.Errors())
		})
	}
}

func TestSubmitter_GuestEmailValidated(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := upload.NewSubmitter(upload.NewMockAPI(ctrl), nil)

	_, err := s.Submit(context.Background(), upload.Guest, upload.Form{GuestEmail: "not-an-email"}, &upload.File{Name: "a.pdf", Size: 1})

	var formErr *upload.FormError
	require.ErrorAs(t, err, &formErr)
	require.Equal(t, map[string]string{"GuestEmail": "email"}, formErr.Fields)
}

func TestSubmitter_Variants(t *testing.T) {
	path := writePDF(t, "holiday.pdf", 2*mib)
	file, err := upload.OpenFile(path)
	require.NoError(t, err)

	t.Run("guest defaults", func(t *testing.T) {
		// given
		ctrl := gomock.NewController(t)
		api := upload.NewMockAPI(ctrl)
		notes := notify.NewRecorder()
		var sent []byte
		api.EXPECT().
			SubmitGuest(gomock.Any(), map[string]string{
				"title":       "Holiday Notice",
				"description": "",
				"category":    "Education",
				"guestName":   "Anonymous",
			}, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ map[string]string, f apiclient.UploadFile) (*model.PendingUpload, error) {
				require.Equal(t, "application/pdf", f.ContentType)
				rc, err := f.Open()
				require.NoError(t, err)
				defer rc.Close()
				sent, err = io.ReadAll(rc)
				require.NoError(t, err)
				return &model.PendingUpload{ID: "p1", Status: model.StatusPending, GuestName: "Anonymous"}, nil
			})
		s := upload.NewSubmitter(api, notes)

		// when
		rec, err := s.Submit(context.Background(), upload.Guest, upload.Form{Title: " Holiday Notice ", GuestName: "  "}, file)

		// then
		require.NoError(t, err)
		require.Equal(t, "p1", rec.ID)
		require.Len(t, sent, 2*mib)
		require.Empty(t, notes.Errors())
	})

	t.Run("user submission drops guest fields", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		api := upload.NewMockAPI(ctrl)
		api.EXPECT().
			SubmitPending(gomock.Any(), map[string]string{
				"title":       "Untitled",
				"description": "Bus timings",
				"category":    "Transport",
				"orderDate":   "2024-06-01",
			}, gomock.Any()).
			Return(&model.PendingUpload{ID: "p2", Status: model.StatusPending}, nil)
		s := upload.NewSubmitter(api, nil)

		_, err := s.Submit(context.Background(), upload.User, upload.Form{
			Description: "Bus timings",
			Category:    "transport",
			OrderDate:   "2024-06-01",
			GuestName:   "ignored",
		}, file)
		require.NoError(t, err)
	})

	t.Run("admin direct upload is approved", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		api := upload.NewMockAPI(ctrl)
		api.EXPECT().
			UploadCircular(gomock.Any(), map[string]string{
				"title":       "Fire drill",
				"description": "",
				"category":    "Fire Department",
				"status":      "approved",
			}, gomock.Any()).
			Return(&model.Circular{ID: "c1", Status: model.StatusApproved}, nil)
		notes := notify.NewRecorder()
		s := upload.NewSubmitter(api, notes)

		rec, err := s.Submit(context.Background(), upload.AdminDirect, upload.Form{Title: "Fire drill", Category: model.CategoryFireDepartment}, file)

		require.NoError(t, err)
		require.Equal(t, model.StatusApproved, rec.Status)
		require.Equal(t, []notify.Message{{Level: notify.LevelSuccess, Text: "Circular uploaded successfully"}}, notes.Messages())
	})

	t.Run("server error is surfaced", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		api := upload.NewMockAPI(ctrl)
		api.EXPECT().SubmitPending(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &apiclient.APIError{StatusCode: 400, Message: "Only PDF files are allowed"})
		notes := notify.NewRecorder()
		s := upload.NewSubmitter(api, notes)

		_, err := s.Submit(context.Background(), upload.User, upload.Form{}, file)

		require.Error(t, err)
		require.Equal(t, []string{"Only PDF files are allowed"}, notes.Errors())
	})

	t.Run("custom cap", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		s := upload.NewSubmitter(upload.NewMockAPI(ctrl), nil, upload.WithMaxFileSize(mib))

		_, err := s.Submit(context.Background(), upload.User, upload.Form{}, file)
		require.ErrorIs(t, err, upload.ErrTooLarge)
	})

	t.Run("should not raise the cap above 10MB", func(t *testing.T) {
		// given an 11 MiB pdf and a cap override above the limit
		ctrl := gomock.NewController(t)
		notes := notify.NewRecorder()
		s := upload.NewSubmitter(upload.NewMockAPI(ctrl), notes, upload.WithMaxFileSize(20*mib))
		big := &upload.File{Name: "big.pdf", ContentType: "application/pdf", Size: 11 * mib}

		// when
		_, err := s.Submit(context.Background(), upload.User, upload.Form{}, big)

		// then
		require.ErrorIs(t, err, upload.ErrTooLarge)
		require.Equal(t, []string{"File size must be less than 10MB"}, notes.Errors())
	})
}
