package controllers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/classforge/edugames-backend/api/responses"
	"github.com/classforge/edugames-backend/api/validators"
	"github.com/classforge/edugames-backend/internal/games"
	"github.com/classforge/edugames-backend/internal/uploads"
	pkgerrors "github.com/classforge/edugames-backend/pkg/errors"
	"github.com/classforge/edugames-backend/pkg/logger"
)

// The games endpoints speak two protocols. A JSON body carries keys the
// client already obtained from the upload endpoints; a multipart body carries
// the files themselves, which are uploaded here before the catalog write.
// Both converge on the same service inputs.

type gameCreateRequest struct {
	Name         string  `json:"name" validate:"required"`
	Description  *string `json:"description"`
	GradeLevel   int     `json:"gradeLevel" validate:"required,min=1,max=12"`
	Subject      string  `json:"subject" validate:"required"`
	FileKey      string  `json:"gameFileKey" validate:"required"`
	FileName     string  `json:"fileName"`
	ThumbnailKey *string `json:"thumbnailKey"`
}

type gameUpdateRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	GradeLevel   *int    `json:"gradeLevel"`
	Subject      *string `json:"subject"`
	FileKey      *string `json:"gameFileKey"`
	FileName     *string `json:"fileName"`
	ThumbnailKey *string `json:"thumbnailKey"`
}

const (
	maxNameLen    = 120
	maxSubjectLen = 64
)

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// GamesCreate registers a catalog entry from either protocol.
func GamesCreate(svc games.Service, uploadSvc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "games service unavailable"))
			return
		}

		var input games.CreateGameInput
		if isMultipart(r) {
			parsed, err := createInputFromMultipart(r, uploadSvc)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input = *parsed
		} else {
			var payload gameCreateRequest
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input = games.CreateGameInput{
				Name:         validators.SanitizeString(payload.Name, maxNameLen),
				Description:  payload.Description,
				GradeLevel:   payload.GradeLevel,
				Subject:      validators.SanitizeString(payload.Subject, maxSubjectLen),
				FileKey:      payload.FileKey,
				FileName:     payload.FileName,
				ThumbnailKey: payload.ThumbnailKey,
			}
		}

		dto, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"game": dto})
	}
}

// GamesUpdate applies a partial mutation from either protocol.
func GamesUpdate(svc games.Service, uploadSvc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "games service unavailable"))
			return
		}

		gameID, err := parseGameID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input games.UpdateGameInput
		if isMultipart(r) {
			parsed, err := updateInputFromMultipart(r, uploadSvc)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input = *parsed
		} else {
			var payload gameUpdateRequest
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input = games.UpdateGameInput{
				Name:         payload.Name,
				Description:  payload.Description,
				GradeLevel:   payload.GradeLevel,
				Subject:      payload.Subject,
				FileKey:      payload.FileKey,
				FileName:     payload.FileName,
				ThumbnailKey: payload.ThumbnailKey,
			}
		}

		dto, err := svc.Update(r.Context(), gameID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"game": dto})
	}
}

// GamesDelete removes a catalog entry and its blobs. Repeat deletes succeed.
func GamesDelete(svc games.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "games service unavailable"))
			return
		}

		gameID, err := parseGameID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), gameID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"success": true})
	}
}

// GamesList returns the whole catalog with signed URLs.
func GamesList(svc games.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "games service unavailable"))
			return
		}

		dtos, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"games": dtos})
	}
}

func parseGameID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "gameId")
	gameID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid game id")
	}
	return gameID, nil
}

func createInputFromMultipart(r *http.Request, uploadSvc uploads.Service) (*games.CreateGameInput, error) {
	if uploadSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable")
	}
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}

	gradeLevel, err := parseGradeField(r.FormValue("gradeLevel"))
	if err != nil {
		return nil, err
	}

	input := &games.CreateGameInput{
		Name:       validators.SanitizeString(r.FormValue("name"), maxNameLen),
		GradeLevel: gradeLevel,
		Subject:    validators.SanitizeString(r.FormValue("subject"), maxSubjectLen),
	}
	if desc := strings.TrimSpace(r.FormValue("description")); desc != "" {
		input.Description = &desc
	}

	fileKey, fileName, err := uploadFormFile(r, uploadSvc, "file", "games")
	if err != nil {
		return nil, err
	}
	if fileKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	input.FileKey = fileKey
	input.FileName = fileName

	thumbKey, _, err := uploadFormFile(r, uploadSvc, "thumbnail", "thumbnails")
	if err != nil {
		return nil, err
	}
	if thumbKey != "" {
		input.ThumbnailKey = &thumbKey
	}

	return input, nil
}

func updateInputFromMultipart(r *http.Request, uploadSvc uploads.Service) (*games.UpdateGameInput, error) {
	if uploadSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable")
	}
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}

	input := &games.UpdateGameInput{}
	if v, ok := formField(r, "name"); ok {
		v = validators.SanitizeString(v, maxNameLen)
		input.Name = &v
	}
	if v, ok := formField(r, "description"); ok {
		input.Description = &v
	}
	if raw, ok := formField(r, "gradeLevel"); ok {
		gradeLevel, err := parseGradeField(raw)
		if err != nil {
			return nil, err
		}
		input.GradeLevel = &gradeLevel
	}
	if v, ok := formField(r, "subject"); ok {
		v = validators.SanitizeString(v, maxSubjectLen)
		input.Subject = &v
	}

	fileKey, fileName, err := uploadFormFile(r, uploadSvc, "file", "games")
	if err != nil {
		return nil, err
	}
	if fileKey != "" {
		input.FileKey = &fileKey
		input.FileName = &fileName
	}

	thumbKey, _, err := uploadFormFile(r, uploadSvc, "thumbnail", "thumbnails")
	if err != nil {
		return nil, err
	}
	if thumbKey != "" {
		input.ThumbnailKey = &thumbKey
	}

	return input, nil
}

func formField(r *http.Request, key string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func parseGradeField(raw string) (int, error) {
	gradeLevel, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "gradeLevel must be numeric")
	}
	return gradeLevel, nil
}

// uploadFormFile streams an optional multipart file into the bucket and
// returns its key. A missing field is not an error.
func uploadFormFile(r *http.Request, uploadSvc uploads.Service, field, folder string) (string, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return "", "", nil
		}
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart file")
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	result, err := uploadSvc.Upload(r.Context(), uploads.UploadInput{
		Body:        file,
		Size:        header.Size,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Folder:      folder,
	})
	if err != nil {
		return "", "", err
	}
	return result.Key, header.Filename, nil
}
