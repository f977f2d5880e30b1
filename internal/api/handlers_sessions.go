package api

import (
	"bufio"

	"github.com/gofiber/fiber/v2"

	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
	"github.com/FilippTrigub/space-goose/internal/metadata"
)

type sessionResponse struct {
	SessionID    string `json:"session_id"`
	Name         string `json:"name"`
	CreatedAt    string `json:"created_at"`
	MessageCount int    `json:"message_count"`
}

func toSessionResponse(s *metadata.Session) sessionResponse {
	return sessionResponse{
		SessionID: s.SessionID, Name: s.Name, MessageCount: s.MessageCount,
		CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

type createSessionRequest struct {
	Name string `json:"name"`
}

// CreateSession handles POST /users/{user}/projects/{pid}/sessions.
func (h *handlers) CreateSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest, "invalid_body", "Bad Request", err.Error())
	}
	sess, err := h.proxy.CreateSession(c.Context(), c.Params("pid"), req.Name)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"session": toSessionResponse(sess)})
}

// ListSessions handles GET /users/{user}/projects/{pid}/sessions.
func (h *handlers) ListSessions(c *fiber.Ctx) error {
	sessions, err := h.proxy.ListSessions(c.Params("pid"))
	if err != nil {
		return writeErr(c, err)
	}
	out := make([]sessionResponse, len(sessions))
	for i, s := range sessions {
		out[i] = toSessionResponse(s)
	}
	return c.JSON(fiber.Map{"sessions": out})
}

// DeleteSession handles DELETE /users/{user}/projects/{pid}/sessions/{sid}.
func (h *handlers) DeleteSession(c *fiber.Ctx) error {
	if err := h.proxy.DeleteSession(c.Context(), c.Params("pid"), c.Params("sid")); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "session deleted"})
}

// ListMessages handles GET /users/{user}/projects/{pid}/sessions/{sid}/messages.
func (h *handlers) ListMessages(c *fiber.Ctx) error {
	result, err := h.proxy.ListMessages(c.Context(), c.Params("pid"), c.Params("sid"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{
		"session_id":  result.SessionID,
		"messages":    result.Messages,
		"total_count": result.TotalCount,
	})
}

type sendMessageRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// SendMessage handles POST /users/{user}/projects/{pid}/messages/send.
func (h *handlers) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest, "invalid_body", "Bad Request", err.Error())
	}
	result, err := h.proxy.SendMessage(c.Context(), c.Params("pid"), req.SessionID, req.Content)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "ok", "result": result.Result, "session_id": req.SessionID})
}

// StreamMessages handles POST /users/{user}/projects/{pid}/messages, the
// SSE chat stream. It uses fasthttp's body-stream writer so the agent
// proxy can flush after every event without buffering the whole response.
func (h *handlers) StreamMessages(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest, "invalid_body", "Bad Request", err.Error())
	}

	// The stream writer runs after this handler returns, when the 200 and
	// SSE headers are already committed — too late to surface an error as
	// a status code. Check the project up front so a missing or non-active
	// project still gets its 404/400 body.
	project, err := h.meta.GetProject(c.Params("pid"))
	if err != nil {
		return writeErr(c, err)
	}
	if project.Status != metadata.StatusActive || project.Endpoint == "" {
		return writeErr(c, cperrors.New(cperrors.KindProjectNotActive, "project "+project.ID+" is not active"))
	}

	// The stream writer also outlives fiber's param buffers; project.ID is
	// already a safe copy from the store.
	projectID := project.ID
	ctx := c.Context()

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		// *fasthttp.RequestCtx implements context.Context directly; its
		// Done() channel closes when the client connection is torn down,
		// which is how the proxy detects caller disconnect.
		if err := h.proxy.StreamMessage(ctx, projectID, req.SessionID, req.Content, w); err != nil {
			h.logger.Warn().Err(err).Str("project_id", projectID).Msg("stream_message failed")
		}
		_ = w.Flush()
	})
	return nil
}
