package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/FilippTrigub/space-goose/internal/metadata"
)

type extensionResponse struct {
	Name    string            `json:"name"`
	Kind    string            `json:"kind"`
	Enabled bool              `json:"enabled"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URI     string            `json:"uri,omitempty"`
	Code    string            `json:"code,omitempty"`
}

func toExtensionResponse(e *metadata.Extension) extensionResponse {
	return extensionResponse{
		Name: e.Name, Kind: string(e.Kind), Enabled: e.Enabled,
		Command: e.Command, Args: e.Args, Env: e.Env, URI: e.URI, Code: e.Code,
	}
}

// ListExtensions handles GET /users/{user}/projects/{pid}/extensions.
func (h *handlers) ListExtensions(c *fiber.Ctx) error {
	extensions, err := h.meta.ListExtensions(c.Params("pid"))
	if err != nil {
		return writeErr(c, err)
	}
	out := make([]extensionResponse, len(extensions))
	for i, e := range extensions {
		out[i] = toExtensionResponse(e)
	}
	return c.JSON(fiber.Map{"extensions": out})
}

type extensionRequest struct {
	Name    string            `json:"name"`
	Kind    string            `json:"kind"`
	Enabled bool              `json:"enabled"`
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
	URI     string            `json:"uri"`
	Code    string            `json:"code"`
}

func (r extensionRequest) toExtension(projectID string) *metadata.Extension {
	return &metadata.Extension{
		ProjectID: projectID,
		Name:      r.Name,
		Kind:      metadata.ExtensionKind(r.Kind),
		Enabled:   r.Enabled,
		Command:   r.Command,
		Args:      r.Args,
		Env:       r.Env,
		URI:       r.URI,
		Code:      r.Code,
	}
}

// CreateExtension handles POST /users/{user}/projects/{pid}/extensions.
func (h *handlers) CreateExtension(c *fiber.Ctx) error {
	var req extensionRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest, "invalid_body", "Bad Request", err.Error())
	}
	if req.Name == "" {
		return problemResponse(c, fiber.StatusBadRequest, "missing_name", "Bad Request", "name is required")
	}
	pid := c.Params("pid")
	if err := h.engine.UpsertExtension(c.Context(), pid, req.toExtension(pid)); err != nil {
		return writeErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "extension created"})
}

// UpdateExtension handles PUT /users/{user}/projects/{pid}/extensions/{name}.
func (h *handlers) UpdateExtension(c *fiber.Ctx) error {
	var req extensionRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest, "invalid_body", "Bad Request", err.Error())
	}
	req.Name = c.Params("name")
	pid := c.Params("pid")
	if err := h.engine.UpsertExtension(c.Context(), pid, req.toExtension(pid)); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "extension updated"})
}

// DeleteExtension handles DELETE /users/{user}/projects/{pid}/extensions/{name}.
func (h *handlers) DeleteExtension(c *fiber.Ctx) error {
	if err := h.engine.DeleteExtension(c.Context(), c.Params("pid"), c.Params("name")); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "extension deleted"})
}

type toggleExtensionRequest struct {
	Enabled bool `json:"enabled"`
}

// ToggleExtension handles PUT /users/{user}/projects/{pid}/extensions/{name}/toggle.
func (h *handlers) ToggleExtension(c *fiber.Ctx) error {
	var req toggleExtensionRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest, "invalid_body", "Bad Request", err.Error())
	}
	if err := h.engine.ToggleExtension(c.Context(), c.Params("pid"), c.Params("name"), req.Enabled); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "extension toggled"})
}
