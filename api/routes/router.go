package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/classforge/edugames-backend/api/controllers"
	"github.com/classforge/edugames-backend/api/middleware"
	"github.com/classforge/edugames-backend/internal/admins"
	"github.com/classforge/edugames-backend/internal/games"
	"github.com/classforge/edugames-backend/internal/students"
	"github.com/classforge/edugames-backend/internal/uploads"
	"github.com/classforge/edugames-backend/pkg/auth/session"
	"github.com/classforge/edugames-backend/pkg/config"
	"github.com/classforge/edugames-backend/pkg/db"
	"github.com/classforge/edugames-backend/pkg/logger"
	"github.com/classforge/edugames-backend/pkg/metrics"
	"github.com/classforge/edugames-backend/pkg/redis"
	storage "github.com/classforge/edugames-backend/pkg/storage/s3"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Storage  storage.Pinger
	Registry *prometheus.Registry

	Sessions *session.Manager
	Auth     admins.Service
	Games    games.Service
	Uploads  uploads.Service
	Students students.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
			"storage":  deps.Storage,
		}))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Registry))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(deps.Auth, cfg.Session, cfg.App, logg))
		if !cfg.App.IsProd() {
			r.Post("/register", controllers.AuthRegister(deps.Auth, logg))
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Session, deps.Sessions, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Auth, cfg.Session, cfg.App, logg))
			r.Post("/password", controllers.AuthPassword(deps.Auth, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Session, deps.Sessions, logg))

		r.Route("/upload", func(r chi.Router) {
			r.Post("/", controllers.UploadFile(deps.Uploads, logg))
			r.Post("/presigned", controllers.UploadPresign(deps.Uploads, logg))
		})

		r.Route("/games", func(r chi.Router) {
			r.Get("/", controllers.GamesList(deps.Games, logg))
			r.Post("/", controllers.GamesCreate(deps.Games, deps.Uploads, logg))
			r.Patch("/{gameId}", controllers.GamesUpdate(deps.Games, deps.Uploads, logg))
			r.Delete("/{gameId}", controllers.GamesDelete(deps.Games, logg))
		})

		r.Post("/students/import", controllers.StudentsImport(deps.Students, logg))
	})

	return r
}
