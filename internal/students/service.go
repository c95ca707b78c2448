package students

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/classforge/edugames-backend/pkg/config"
	pkgerrors "github.com/classforge/edugames-backend/pkg/errors"
	"github.com/classforge/edugames-backend/pkg/logger"
)

const (
	importPath       = "/api/admin/students/import"
	adminKeyHeader   = "x-admin-key"
	maxResponseBytes = 1 << 20
)

// ImportResult relays the roster backend's verdict as-is: its HTTP status and
// raw JSON body.
type ImportResult struct {
	Status int
	Body   json.RawMessage
}

// Service proxies student CSV imports to the external roster backend.
type Service interface {
	Import(ctx context.Context, csv string) (*ImportResult, error)
}

type service struct {
	client  *http.Client
	baseURL string
	apiKey  string
	logg    *logger.Logger
}

// NewService constructs the import proxy.
func NewService(cfg config.ImportConfig, logg *logger.Logger) (Service, error) {
	if strings.TrimSpace(cfg.BackendBaseURL) == "" {
		return nil, fmt.Errorf("import backend base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &service{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BackendBaseURL, "/"),
		apiKey:  cfg.AdminAPIKey,
		logg:    logg,
	}, nil
}

// Import forwards the CSV body with the shared admin key and relays whatever
// the roster backend answers.
func (s *service) Import(ctx context.Context, csv string) (*ImportResult, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "csv is required")
	}
	if s.apiKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "student import is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+importPath, strings.NewReader(csv))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build import request")
	}
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set(adminKeyHeader, s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reach roster backend")
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && s.logg != nil {
			s.logg.Warn(ctx, "students: closing import response body failed")
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read roster backend response")
	}

	if !json.Valid(body) {
		// Some roster backends answer plain text on failure; wrap it so the
		// console always gets JSON.
		wrapped, _ := json.Marshal(map[string]string{"message": strings.TrimSpace(string(body))})
		body = wrapped
	}

	return &ImportResult{Status: resp.StatusCode, Body: body}, nil
}
