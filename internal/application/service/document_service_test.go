package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/garyjia/travel-desk/internal/apperror"
	"github.com/garyjia/travel-desk/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDocumentService(t *testing.T, maxSize int64) (DocumentService, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "docs")
	fs, err := storage.NewLocalFileStorage(dir, zap.NewNop())
	require.NoError(t, err)
	return NewDocumentService(fs, DocumentConfig{PublicBaseURL: "/files/", MaxUploadBytes: maxSize}, &mockLogger{}), dir
}

func TestDocumentService_Upload(t *testing.T) {
	svc, dir := newDocumentService(t, 1024)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, "Boarding Pass.PDF", strings.NewReader("%PDF ticket"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(doc.Name, ".pdf"))
	assert.Equal(t, "/files/"+doc.Name, doc.URL)
	assert.Equal(t, "Boarding Pass.PDF", doc.OriginalName)
	assert.Equal(t, int64(11), doc.Size)

	content, err := os.ReadFile(filepath.Join(dir, doc.Name))
	require.NoError(t, err)
	assert.Equal(t, "%PDF ticket", string(content))

	resolved, err := svc.Resolve(ctx, doc.Name)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, doc.Name), resolved)
}

func TestDocumentService_UploadRejections(t *testing.T) {
	svc, dir := newDocumentService(t, 8)

	tests := []struct {
		name     string
		filename string
		content  string
		wantMsg  string
	}{
		{"no name", "", "abc", MsgNoFile},
		{"executable", "run.exe", "abc", MsgFileTypeRejected},
		{"no extension", "passport", "abc", MsgFileTypeRejected},
		{"too large", "scan.png", "0123456789", MsgFileTooLarge},
		{"empty", "scan.png", "", MsgNoFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), tt.filename, bytes.NewBufferString(tt.content))
			require.Error(t, err)
			assert.Equal(t, apperror.CodeValidation, apperror.GetCode(err))
			assert.Equal(t, tt.wantMsg, apperror.Message(err))
		})
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDocumentService_ResolveMissing(t *testing.T) {
	svc, _ := newDocumentService(t, 0)

	for _, name := range []string{"", "nope.pdf", "../../etc/passwd"} {
		_, err := svc.Resolve(context.Background(), name)
		assert.Equal(t, apperror.CodeNotFound, apperror.GetCode(err), "name %q", name)
	}
}
