package service

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/garyjia/travel-desk/internal/apperror"
	"github.com/garyjia/travel-desk/internal/application/port"
)

// Upload rejection messages
const (
	MsgNoFile           = "No file uploaded."
	MsgFileTypeRejected = "File type not allowed."
	MsgFileTooLarge     = "File exceeds the maximum upload size."
	MsgFileNotFound     = "File not found."
)

// DefaultAllowedExtensions are the document types accepted for upload
var DefaultAllowedExtensions = []string{".pdf", ".jpg", ".jpeg", ".png"}

// StoredDocument is an accepted upload
type StoredDocument struct {
	Name         string `json:"fileName"`
	OriginalName string `json:"originalName"`
	URL          string `json:"url"`
	Size         int64  `json:"size"`
}

// DocumentService stores travel documents and resolves them for download
type DocumentService interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*StoredDocument, error)

	// Resolve returns the on-disk path of a stored document
	Resolve(ctx context.Context, name string) (string, error)
}

// DocumentConfig bounds uploads
type DocumentConfig struct {
	PublicBaseURL     string
	MaxUploadBytes    int64
	AllowedExtensions []string
}

type documentServiceImpl struct {
	storage port.FileStorage
	baseURL string
	maxSize int64
	allowed map[string]bool
	logger  Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(storage port.FileStorage, cfg DocumentConfig, logger Logger) DocumentService {
	exts := cfg.AllowedExtensions
	if len(exts) == 0 {
		exts = DefaultAllowedExtensions
	}
	allowed := make(map[string]bool, len(exts))
	for _, ext := range exts {
		allowed[strings.ToLower(ext)] = true
	}

	return &documentServiceImpl{
		storage: storage,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxSize: cfg.MaxUploadBytes,
		allowed: allowed,
		logger:  logger,
	}
}

// Upload stores a document under a fresh uuid name and returns its public URL
func (s *documentServiceImpl) Upload(ctx context.Context, filename string, r io.Reader) (*StoredDocument, error) {
	original := filepath.Base(strings.TrimSpace(filename))
	if r == nil || original == "" || original == "." {
		return nil, apperror.Validation(MsgNoFile)
	}

	ext := strings.ToLower(filepath.Ext(original))
	if !s.allowed[ext] {
		return nil, apperror.Validation(MsgFileTypeRejected)
	}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}

	name := uuid.NewString() + ext
	written, err := s.storage.Save(ctx, name, src)
	if err != nil {
		s.logger.Error("Failed to store document", "error", err, "file", original)
		return nil, apperror.Internal(err)
	}

	if s.maxSize > 0 && written > s.maxSize {
		if err := s.storage.Delete(ctx, name); err != nil {
			s.logger.Error("Failed to discard oversized document", "error", err, "file", name)
		}
		return nil, apperror.Validation(MsgFileTooLarge)
	}
	if written == 0 {
		_ = s.storage.Delete(ctx, name)
		return nil, apperror.Validation(MsgNoFile)
	}

	s.logger.Info("Document stored", "file", name, "original", original, "size", written)

	return &StoredDocument{
		Name:         name,
		OriginalName: original,
		URL:          s.baseURL + "/" + name,
		Size:         written,
	}, nil
}

// Resolve returns the on-disk path of a stored document
func (s *documentServiceImpl) Resolve(ctx context.Context, name string) (string, error) {
	clean := strings.TrimPrefix(path.Clean("/"+name), "/")
	if clean == "" || !s.storage.Exists(ctx, clean) {
		return "", apperror.NotFound(MsgFileNotFound)
	}

	full, err := s.storage.Resolve(clean)
	if err != nil {
		return "", apperror.NotFound(MsgFileNotFound)
	}
	return full, nil
}
