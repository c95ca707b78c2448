package controllers

import (
	"net/http"

	"github.com/classforge/edugames-backend/api/responses"
	"github.com/classforge/edugames-backend/api/validators"
	"github.com/classforge/edugames-backend/internal/students"
	pkgerrors "github.com/classforge/edugames-backend/pkg/errors"
	"github.com/classforge/edugames-backend/pkg/logger"
)

type studentsImportRequest struct {
	CSV string `json:"csv" validate:"required"`
}

// StudentsImport proxies the CSV to the roster backend and relays its
// status and JSON body unchanged.
func StudentsImport(svc students.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "import service unavailable"))
			return
		}

		var payload studentsImportRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Import(r.Context(), payload.CSV)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(result.Status)
		if _, err := w.Write(result.Body); err != nil && logg != nil {
			logg.Warn(r.Context(), "students: writing relay body failed")
		}
	}
}
