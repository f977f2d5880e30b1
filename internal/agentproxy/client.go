// Package agentproxy is the agent proxy (C6): it resolves a project's
// in-cluster endpoint from the metadata store and forwards chat/session
// traffic to the agent running inside the project's pod, including
// relaying its server-sent-event stream back to the caller with proper
// framing and flushing.
package agentproxy

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/FilippTrigub/space-goose/internal/metadata"
)

// Client proxies chat and session traffic to per-project agent endpoints.
type Client struct {
	meta       *metadata.Store
	http       *http.Client
	reqTimeout time.Duration
	logger     zerolog.Logger
}

// Config holds agent-proxy dial settings.
type Config struct {
	// DialTimeout bounds TCP connection setup only; it does not
	// bound response body reads, since the streaming endpoint is
	// long-lived; the stream stays open as long as the agent keeps talking.
	DialTimeout time.Duration
	// RequestTimeout bounds the synchronous send_message round trip.
	RequestTimeout time.Duration
}

// DefaultConfig returns sensible dial/request timeouts.
func DefaultConfig() Config {
	return Config{DialTimeout: 5 * time.Second, RequestTimeout: 30 * time.Second}
}

// NewClient wires the metadata store into an agent proxy client. The
// underlying transport carries no overall response timeout so the
// streaming endpoint can stay open indefinitely; per-call contexts
// supply the actual deadline.
func NewClient(meta *metadata.Store, cfg Config, logger zerolog.Logger) *Client {
	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		meta:       meta,
		http:       &http.Client{Transport: transport},
		reqTimeout: cfg.RequestTimeout,
		logger:     logger.With().Str("component", "agentproxy").Logger(),
	}
}

// syncCtx bounds a synchronous (non-streaming) agent call with the
// configured request timeout. Streaming calls use the caller's context
// unmodified.
func (c *Client) syncCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.reqTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.reqTimeout)
}
