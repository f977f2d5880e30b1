package api

import (
	"github.com/rs/zerolog"

	"github.com/FilippTrigub/space-goose/internal/agentproxy"
	"github.com/FilippTrigub/space-goose/internal/health"
	"github.com/FilippTrigub/space-goose/internal/lifecycle"
	"github.com/FilippTrigub/space-goose/internal/metadata"
)

// handlers holds the dependencies every route handler needs. Handlers
// stay thin: dependencies injected, no business logic.
type handlers struct {
	engine  *lifecycle.Engine
	proxy   *agentproxy.Client
	meta    *metadata.Store
	checker *health.Checker
	logger  zerolog.Logger
}
