package controllers

import (
	"net/http"

	"github.com/classforge/edugames-backend/api/responses"
	"github.com/classforge/edugames-backend/api/validators"
	"github.com/classforge/edugames-backend/internal/uploads"
	pkgerrors "github.com/classforge/edugames-backend/pkg/errors"
	"github.com/classforge/edugames-backend/pkg/logger"
)

const multipartMemoryLimit = 32 << 20

type uploadPresignRequest struct {
	FileName    string `json:"fileName" validate:"required"`
	ContentType string `json:"contentType" validate:"required"`
	Folder      string `json:"folder"`
}

// UploadPresign issues a presigned PUT URL for a direct browser upload.
func UploadPresign(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		var payload uploadPresignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Presign(r.Context(), uploads.PresignInput{
			FileName:    payload.FileName,
			ContentType: payload.ContentType,
			Folder:      payload.Folder,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// UploadFile accepts a multipart body and streams it into the bucket.
func UploadFile(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is required"))
			return
		}
		defer file.Close()

		result, err := svc.Upload(r.Context(), uploads.UploadInput{
			Body:        file,
			Size:        header.Size,
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Folder:      r.FormValue("folder"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
