package pdfutil_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pdfutil "github.com/dharsanguruparan/CircularNest/internal/pdf"
)

func TestHasHeader(t *testing.T) {
	require.True(t, pdfutil.HasHeader([]byte("%PDF-1.7\n...")))
	require.False(t, pdfutil.HasHeader([]byte("<html>")))
	require.False(t, pdfutil.HasHeader(nil))
}

func TestExtractRejectsNonPDF(t *testing.T) {
	_, err := pdfutil.ExtractText([]byte("plain words"))
	require.ErrorIs(t, err, pdfutil.ErrNotPDF)

	_, err = pdfutil.ExtractFromReader(strings.NewReader("<!doctype html>"))
	require.ErrorIs(t, err, pdfutil.ErrNotPDF)

	_, err = pdfutil.PageCount(nil)
	require.ErrorIs(t, err, pdfutil.ErrNotPDF)
}

func TestOpenTruncatedPDF(t *testing.T) {
	_, err := pdfutil.Open([]byte("%PDF-1.4\n% truncated"))
	require.Error(t, err)
}
