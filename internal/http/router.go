package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-conference-central/internal/auth"
	"github.com/pribylovaa/go-conference-central/internal/http/handlers"
	"github.com/pribylovaa/go-conference-central/internal/http/middleware"
	"github.com/pribylovaa/go-conference-central/internal/service"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api/v1"; если пустой — роуты регистрируются на корне.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, authn auth.Authenticator, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(),          // до логирования
		middleware.Logging(opts.Logger), // request-scoped логгер в контексте
		middleware.Authenticate(authn),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	h := handlers.New(svc)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	// profile
	r.Get("/profile", h.GetProfile)
	r.Post("/profile", h.SaveProfile)

	// conferences
	r.Post("/conference", h.CreateConference)
	r.Get("/conference/{websafeConferenceKey}", h.GetConference)
	r.Get("/conferences/created", h.ConferencesCreated)
	r.Post("/conferences/query", h.QueryConferences)
	r.Get("/conferences/attending", h.ConferencesToAttend)

	// registration
	r.Post("/conference/{websafeConferenceKey}/registration", h.Register)
	r.Delete("/conference/{websafeConferenceKey}/registration", h.Unregister)

	// announcement
	r.Get("/announcement", h.GetAnnouncement)
	r.Post("/tasks/announcement", h.RefreshAnnouncement)
}
