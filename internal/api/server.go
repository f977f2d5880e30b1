// Package api is the control plane's HTTP surface. Handlers
// are thin — they parse/validate inputs, call the lifecycle engine or the
// agent proxy, and translate errors to status codes.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/FilippTrigub/space-goose/internal/agentproxy"
	"github.com/FilippTrigub/space-goose/internal/config"
	"github.com/FilippTrigub/space-goose/internal/health"
	"github.com/FilippTrigub/space-goose/internal/lifecycle"
	"github.com/FilippTrigub/space-goose/internal/metadata"
	"github.com/FilippTrigub/space-goose/internal/metrics"
	"github.com/FilippTrigub/space-goose/internal/orchestrator"
	"github.com/FilippTrigub/space-goose/internal/requestid"
)

// Server is the control API's Fiber application.
type Server struct {
	app     *fiber.App
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Deps bundles the control plane's other components for wiring into routes.
type Deps struct {
	Engine  *lifecycle.Engine
	Proxy   *agentproxy.Client
	Meta    *metadata.Store
	Orch    *orchestrator.Client
	Metrics *metrics.Metrics
}

// NewServer builds the control API, wiring middleware and routes around
// the lifecycle engine and agent proxy.
func NewServer(cfg *config.Config, deps Deps, logger zerolog.Logger) (*Server, error) {
	keys, err := cfg.APIKeys()
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	s := &Server{app: app, cfg: cfg, logger: logger.With().Str("component", "api").Logger(), metrics: deps.Metrics}

	checker := health.NewChecker(s.logger)
	if deps.Meta != nil {
		checker.Register("metadata_store", func(ctx context.Context) health.Status {
			if err := deps.Meta.Ping(ctx); err != nil {
				return health.StatusDown
			}
			return health.StatusOK
		})
	}
	if deps.Orch != nil {
		checker.Register("orchestrator", func(ctx context.Context) health.Status {
			if err := deps.Orch.Ping(ctx); err != nil {
				return health.StatusDown
			}
			return health.StatusOK
		})
	}

	h := &handlers{
		engine:  deps.Engine,
		proxy:   deps.Proxy,
		meta:    deps.Meta,
		checker: checker,
		logger:  s.logger,
	}

	s.setupMiddleware(keys)
	s.setupRoutes(h, deps.Metrics)

	return s, nil
}

func (s *Server) setupMiddleware(keys []config.APIKey) {
	s.app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	s.app.Use(func(c *fiber.Ctx) error {
		_, reqID := requestid.New(c.Context())
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if s.cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, X-API-Key, X-Request-ID",
			AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
		}))
	}

	if s.cfg.RateLimitRPS > 0 {
		s.app.Use(newRateLimitMiddleware(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst))
	}

	s.app.Use(newAuthMiddleware(keys))

	s.app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if s.metrics != nil {
			s.metrics.RecordRequest(c.Route().Path, fmt.Sprintf("%d", status))
			s.metrics.ObserveDuration(c.Route().Path, time.Since(start).Seconds())
		}
		s.logger.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Str("request_id", fmt.Sprintf("%v", c.Locals("request_id"))).
			Dur("duration", time.Since(start)).
			Msg("control api request")
		return err
	})
}

func (s *Server) setupRoutes(h *handlers, m *metrics.Metrics) {
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)
	if m != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	users := s.app.Group("/users")
	users.Get("", h.ListUsers)
	users.Put("/:user/github-key", requireSelf, h.PutUserGithubKey)
	users.Get("/:user/github-key", requireSelf, h.GetUserGithubKey)
	users.Delete("/:user/github-key", requireSelf, h.DeleteUserGithubKey)

	projects := users.Group("/:user/projects")
	projects.Get("", requireSelf, h.ListProjects)
	projects.Post("", requireSelf, h.CreateProject)
	projects.Put("/:pid", requireSelf, h.UpdateProject)
	projects.Delete("/:pid", requireSelf, h.DeleteProject)
	projects.Post("/:pid/activate", requireSelf, h.ActivateProject)
	projects.Post("/:pid/deactivate", requireSelf, h.DeactivateProject)
	projects.Post("/:pid/clone-repository", requireSelf, h.CloneRepository)
	projects.Put("/:pid/github-key", requireSelf, h.PutProjectGithubKey)
	projects.Get("/:pid/agent/status", requireSelf, h.AgentStatus)

	projects.Post("/:pid/sessions", requireSelf, h.CreateSession)
	projects.Get("/:pid/sessions", requireSelf, h.ListSessions)
	projects.Delete("/:pid/sessions/:sid", requireSelf, h.DeleteSession)
	projects.Get("/:pid/sessions/:sid/messages", requireSelf, h.ListMessages)
	projects.Post("/:pid/messages", requireSelf, h.StreamMessages)
	projects.Post("/:pid/messages/send", requireSelf, h.SendMessage)

	projects.Get("/:pid/settings", requireSelf, h.ListSettings)
	projects.Put("/:pid/settings", requireSelf, h.UpdateSettingsBulk)
	projects.Get("/:pid/settings/:key", requireSelf, h.GetSetting)
	projects.Put("/:pid/settings/:key", requireSelf, h.UpdateSetting)
	projects.Delete("/:pid/settings/:key", requireSelf, h.DeleteSetting)

	projects.Get("/:pid/extensions", requireSelf, h.ListExtensions)
	projects.Post("/:pid/extensions", requireSelf, h.CreateExtension)
	projects.Put("/:pid/extensions/:name", requireSelf, h.UpdateExtension)
	projects.Delete("/:pid/extensions/:name", requireSelf, h.DeleteExtension)
	projects.Put("/:pid/extensions/:name/toggle", requireSelf, h.ToggleExtension)
}

// Start blocks serving the control API, with TLS if configured.
func (s *Server) Start() error {
	addr := s.cfg.ListenAddr
	if addr == "" {
		addr = ":8090"
	}
	s.logger.Info().Str("addr", addr).Msg("control API server starting")
	if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
		return s.app.ListenTLS(addr, s.cfg.TLSCert, s.cfg.TLSKey)
	}
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func customErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		logger.Error().Err(err).Int("status", code).Str("path", c.Path()).Msg("unhandled control api error")

		detail := err.Error()
		if code == fiber.StatusInternalServerError {
			detail = "an internal error occurred"
		}
		return c.Status(code).JSON(problemDetail{
			Type: "internal_error", Title: "Internal Server Error", Status: code, Detail: detail, Instance: c.Path(),
		})
	}
}
