package games

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/classforge/edugames-backend/pkg/db/models"
	pkgerrors "github.com/classforge/edugames-backend/pkg/errors"
	"github.com/classforge/edugames-backend/pkg/logger"
	"github.com/classforge/edugames-backend/pkg/metrics"
	storage "github.com/classforge/edugames-backend/pkg/storage/s3"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	minGradeLevel = 1
	maxGradeLevel = 12
)

// Service exposes catalog management operations.
type Service interface {
	Create(ctx context.Context, input CreateGameInput) (*GameDTO, error)
	Update(ctx context.Context, gameID uuid.UUID, input UpdateGameInput) (*GameDTO, error)
	Delete(ctx context.Context, gameID uuid.UUID) error
	List(ctx context.Context) ([]GameDTO, error)
}

// CreateGameInput holds the validated payload to create a catalog entry. Keys
// are trusted verbatim; the client obtained them from the upload endpoints.
type CreateGameInput struct {
	Name         string
	GradeLevel   int
	Subject      string
	Description  *string
	FileKey      string
	FileName     string
	ThumbnailKey *string
}

// UpdateGameInput holds optional mutation values for a catalog entry.
type UpdateGameInput struct {
	Name         *string
	GradeLevel   *int
	Subject      *string
	Description  *string
	FileKey      *string
	FileName     *string
	ThumbnailKey *string
}

func (in UpdateGameInput) isEmpty() bool {
	return in.Name == nil &&
		in.GradeLevel == nil &&
		in.Subject == nil &&
		in.Description == nil &&
		in.FileKey == nil &&
		in.FileName == nil &&
		in.ThumbnailKey == nil
}

type objectStore interface {
	PresignGet(ctx context.Context, ref string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// service implements the catalog service.
type service struct {
	repo    *Repository
	storage objectStore
	metrics *metrics.StorageMetrics
	logg    *logger.Logger
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, storage objectStore, storageMetrics *metrics.StorageMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("game repository required")
	}
	if storage == nil {
		return nil, fmt.Errorf("object storage required")
	}
	return &service{
		repo:    repo,
		storage: storage,
		metrics: storageMetrics,
		logg:    logg,
	}, nil
}

// Create stores the catalog row for an already-uploaded bundle.
func (s *service) Create(ctx context.Context, input CreateGameInput) (*GameDTO, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	game := &models.Game{
		Name:         strings.TrimSpace(input.Name),
		GradeLevel:   input.GradeLevel,
		Subject:      strings.TrimSpace(input.Subject),
		Description:  input.Description,
		FileKey:      input.FileKey,
		FileName:     input.FileName,
		ThumbnailKey: input.ThumbnailKey,
	}

	created, err := s.repo.Create(ctx, game)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDatabase, err, "create game")
	}

	return s.sign(ctx, created)
}

// Update applies a partial mutation. When a bundle or thumbnail key is
// replaced, the previous blob is deleted best-effort after the row commits.
func (s *service) Update(ctx context.Context, gameID uuid.UUID, input UpdateGameInput) (*GameDTO, error) {
	if input.isEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	if input.GradeLevel != nil {
		if err := validateGradeLevel(*input.GradeLevel); err != nil {
			return nil, err
		}
	}

	game, err := s.repo.FindByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "game not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDatabase, err, "load game")
	}

	var replaced []string

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		game.Name = name
	}
	if input.GradeLevel != nil {
		game.GradeLevel = *input.GradeLevel
	}
	if input.Subject != nil {
		subject := strings.TrimSpace(*input.Subject)
		if subject == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject cannot be empty")
		}
		game.Subject = subject
	}
	if input.Description != nil {
		game.Description = input.Description
	}
	if input.FileKey != nil {
		key := strings.TrimSpace(*input.FileKey)
		if key == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "fileKey cannot be empty")
		}
		if key != game.FileKey {
			replaced = append(replaced, game.FileKey)
		}
		game.FileKey = key
	}
	if input.FileName != nil {
		game.FileName = strings.TrimSpace(*input.FileName)
	}
	if input.ThumbnailKey != nil {
		key := strings.TrimSpace(*input.ThumbnailKey)
		if game.ThumbnailKey != nil && *game.ThumbnailKey != key {
			replaced = append(replaced, *game.ThumbnailKey)
		}
		if key == "" {
			game.ThumbnailKey = nil
		} else {
			game.ThumbnailKey = &key
		}
	}

	updated, err := s.repo.Save(ctx, game)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDatabase, err, "update game")
	}

	for _, ref := range replaced {
		s.deleteBlob(ctx, ref)
	}

	return s.sign(ctx, updated)
}

// Delete removes the catalog row and its blobs. Both blob deletes are
// attempted even when the first fails; storage failures never block the row
// delete. Deleting an unknown id succeeds.
func (s *service) Delete(ctx context.Context, gameID uuid.UUID) error {
	game, err := s.repo.FindByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDatabase, err, "load game")
	}

	s.deleteBlob(ctx, game.FileKey)
	if game.ThumbnailKey != nil {
		s.deleteBlob(ctx, *game.ThumbnailKey)
	}

	if err := s.repo.Delete(ctx, gameID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDatabase, err, "delete game")
	}
	return nil
}

// List returns the whole catalog, newest first, with signed URLs.
func (s *service) List(ctx context.Context) ([]GameDTO, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDatabase, err, "list games")
	}

	dtos := make([]GameDTO, 0, len(rows))
	for i := range rows {
		dto, err := s.sign(ctx, &rows[i])
		if err != nil {
			return nil, err
		}
		dtos = append(dtos, *dto)
	}
	return dtos, nil
}

// sign maps the row to its DTO, exchanging stored keys for signed URLs.
func (s *service) sign(ctx context.Context, game *models.Game) (*GameDTO, error) {
	fileURL, err := s.storage.PresignGet(ctx, game.FileKey)
	if err != nil {
		return nil, wrapSignErr(err, "sign file url")
	}
	s.metrics.IncPresign("get")

	var thumbURL *string
	if game.ThumbnailKey != nil {
		signed, err := s.storage.PresignGet(ctx, *game.ThumbnailKey)
		if err != nil {
			return nil, wrapSignErr(err, "sign thumbnail url")
		}
		s.metrics.IncPresign("get")
		thumbURL = &signed
	}

	return newGameDTO(game, fileURL, thumbURL), nil
}

// wrapSignErr keeps a missing bucket distinct from a provider failure.
func wrapSignErr(err error, msg string) error {
	if errors.Is(err, storage.ErrNotConfigured) {
		return pkgerrors.Wrap(pkgerrors.CodeStorageConfig, err, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorageWrite, err, msg)
}

// deleteBlob removes a stored object without failing the caller. Legacy URLs
// and empty refs are counted as skipped.
func (s *service) deleteBlob(ctx context.Context, ref string) {
	if objRef := storage.ObjectRef(ref); objRef.IsZero() || objRef.IsLegacyURL() {
		s.metrics.IncBlobDelete("skipped")
		return
	}
	if err := s.storage.Delete(ctx, ref); err != nil {
		s.metrics.IncBlobDelete("failed")
		if s.logg != nil {
			ctx = s.logg.WithFields(ctx, map[string]any{"object_key": ref})
			s.logg.Warn(ctx, "blob delete failed")
		}
		return
	}
	s.metrics.IncBlobDelete("ok")
}

func validateCreate(input CreateGameInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(input.Subject) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}
	if strings.TrimSpace(input.FileKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "fileKey is required")
	}
	return validateGradeLevel(input.GradeLevel)
}

func validateGradeLevel(level int) error {
	if level < minGradeLevel || level > maxGradeLevel {
		return pkgerrors.New(pkgerrors.CodeValidation, "gradeLevel must be between 1 and 12").
			WithDetails(map[string]any{"min": minGradeLevel, "max": maxGradeLevel})
	}
	return nil
}
