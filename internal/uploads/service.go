package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/classforge/edugames-backend/pkg/config"
	pkgerrors "github.com/classforge/edugames-backend/pkg/errors"
	"github.com/classforge/edugames-backend/pkg/metrics"
	storage "github.com/classforge/edugames-backend/pkg/storage/s3"
)

// Service hands out bucket keys via the two upload protocols: presigned PUT
// URLs for direct browser uploads and mediated streaming through the server.
type Service interface {
	Presign(ctx context.Context, input PresignInput) (*storage.PresignedUpload, error)
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
}

// PresignInput requests a direct-upload URL.
type PresignInput struct {
	FileName    string
	ContentType string
	Folder      string
}

// UploadInput carries a mediated upload body.
type UploadInput struct {
	Body        io.Reader
	Size        int64
	FileName    string
	ContentType string
	Folder      string
}

// UploadResult is the key under which the mediated upload landed.
type UploadResult struct {
	Key string `json:"key"`
}

type blobStore interface {
	PresignPut(ctx context.Context, fileName, contentType, folder string) (storage.PresignedUpload, error)
	Upload(ctx context.Context, body io.Reader, fileName, contentType, folder string) (string, error)
}

type service struct {
	store    blobStore
	metrics  *metrics.StorageMetrics
	maxBytes int64
}

// NewService constructs the upload service.
func NewService(store blobStore, cfg config.StorageConfig, storageMetrics *metrics.StorageMetrics) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store required")
	}
	return &service{
		store:    store,
		metrics:  storageMetrics,
		maxBytes: int64(cfg.MaxUploadMB) * 1024 * 1024,
	}, nil
}

// Presign issues a presigned PUT URL plus the key the client must echo back.
func (s *service) Presign(ctx context.Context, input PresignInput) (*storage.PresignedUpload, error) {
	if strings.TrimSpace(input.FileName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fileName is required")
	}
	if strings.TrimSpace(input.ContentType) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contentType is required")
	}

	upload, err := s.store.PresignPut(ctx, input.FileName, input.ContentType, input.Folder)
	if err != nil {
		return nil, wrapStorageErr(err, "issue upload url")
	}
	s.metrics.IncPresign("put")
	return &upload, nil
}

// Upload streams the body through the server into the bucket.
func (s *service) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if input.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	if strings.TrimSpace(input.FileName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fileName is required")
	}
	if s.maxBytes > 0 && input.Size > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file exceeds the upload size limit").
			WithDetails(map[string]any{"max_bytes": s.maxBytes})
	}

	body := input.Body
	if s.maxBytes > 0 {
		// Size comes from the multipart header and can lie; cap the stream too.
		body = io.LimitReader(body, s.maxBytes+1)
	}

	key, err := s.store.Upload(ctx, body, input.FileName, input.ContentType, input.Folder)
	if err != nil {
		return nil, wrapStorageErr(err, "upload file")
	}
	s.metrics.IncUpload("mediated")
	return &UploadResult{Key: key}, nil
}

func wrapStorageErr(err error, msg string) error {
	if errors.Is(err, storage.ErrNotConfigured) {
		return pkgerrors.Wrap(pkgerrors.CodeStorageConfig, err, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorageWrite, err, msg)
}
