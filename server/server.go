package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/goliatone/go-jobportal"
	"github.com/goliatone/go-jobportal/jobs"
	"github.com/goliatone/go-jobportal/middleware/csrf"
	"github.com/goliatone/go-jobportal/middleware/jwtware"
	"github.com/goliatone/go-jobportal/social"
	"github.com/goliatone/go-router"
)

// Dependencies are the services the HTTP layer delegates to. Social is
// optional; without it the OAuth2 routes are not mounted.
type Dependencies struct {
	Authenticator *auth.Authenticator
	Tokens        *auth.TokenService
	RoleSelection *auth.RoleSelection
	Jobs          *jobs.Service
	Social        *social.Authenticator
	Logger        auth.Logger
}

// Config holds HTTP options.
type Config struct {
	AppName      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
	LoginLimit   RateLimitConfig
	// CSRFKey enables cookie CSRF protection for requests without a
	// bearer header when set. At least 32 bytes.
	CSRFKey []byte
	// Now stamps error responses, for tests.
	Now func() time.Time
}

// Server exposes the portal API. Routes are mounted through the
// go-router fiber adapter.
type Server struct {
	srv    router.Server[*fiber.App]
	app    *fiber.App
	deps   Dependencies
	config Config
	logger auth.Logger
}

// New builds the app and mounts every route.
func New(deps Dependencies, cfg Config) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = auth.DefaultLogger()
	}
	if cfg.AppName == "" {
		cfg.AppName = "jobportal"
	}

	s := &Server{deps: deps, config: cfg, logger: logger}
	s.srv = router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		s.app = fiber.New(fiber.Config{
			AppName:               cfg.AppName,
			ReadTimeout:           cfg.ReadTimeout,
			WriteTimeout:          cfg.WriteTimeout,
			BodyLimit:             cfg.BodyLimit,
			DisableStartupMessage: true,
			ErrorHandler:          NewErrorHandler(logger, cfg.Now),
		})
		s.app.Use(recover.New())
		s.app.Use(requestid.New())
		s.app.Use(RequestLogger(logger))
		return s.app
	})
	s.routes(s.srv.Router())
	return s
}

// App exposes the fiber app, mostly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving addr.
func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.srv.Serve(addr)
}

// Shutdown stops accepting connections and waits for in flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes(r router.Router[*fiber.App]) {
	if len(s.config.CSRFKey) > 0 {
		r.Use(csrf.New(csrf.Config{SecureKey: s.config.CSRFKey}))
		csrf.RegisterRoutes(r)
	}

	r.Get("/healthz", func(ctx router.Context) error {
		return ctx.JSON(router.StatusOK, map[string]string{"status": "ok"})
	}).SetName("healthz")

	parsed := jwtware.New(jwtware.Config{Tokens: s.deps.Tokens, Mode: jwtware.ModeParse})
	verified := jwtware.New(jwtware.Config{Tokens: s.deps.Tokens, Mode: jwtware.ModeVerify})

	authGroup := r.Group("/auth")
	authGroup.Post("/register", s.register).SetName("auth.register")
	authGroup.Post("/login", s.login, RateLimiter(s.config.LoginLimit, s.logger)).SetName("auth.login")
	authGroup.Get("/select-role", s.rolePrompt, parsed).SetName("auth.role.prompt")
	authGroup.Post("/select-role", s.selectRole, parsed).SetName("auth.role.select")
	authGroup.Get("/roles", s.roles, parsed).SetName("auth.roles")
	authGroup.Get("/user-role", s.userRole, parsed).SetName("auth.role.status")

	if s.deps.Social != nil {
		social.NewHTTPController(s.deps.Social, social.HTTPConfig{}).RegisterRoutes(r)
	}

	api := r.Group("/api/v1")
	api.Get("/jobs", s.listJobs, verified)
	api.Get("/jobs/:id", s.getJob, verified)
	api.Post("/jobs", s.createJob, verified)
	api.Put("/jobs/:id", s.updateJob, verified)
	api.Delete("/jobs/:id", s.deleteJob, verified)

	api.Post("/application/:jobId", s.apply, verified)
	api.Get("/application/my", s.myApplications, verified)
	api.Get("/application/recruiter/all", s.recruiterApplications, verified)
	api.Get("/application/recruiter/job/:jobId", s.jobApplications, verified)
}
