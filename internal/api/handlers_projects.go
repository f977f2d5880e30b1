package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/FilippTrigub/space-goose/internal/metadata"
)

type projectResponse struct {
	ID              string               `json:"project_id"`
	UserID          string               `json:"user_id"`
	Name            string               `json:"name"`
	Status          metadata.ProjectStatus `json:"status"`
	Endpoint        string               `json:"endpoint,omitempty"`
	RepoURL         string               `json:"repo_url,omitempty"`
	HasRepository   bool                 `json:"has_repository"`
	LastCloneError  string               `json:"last_clone_error,omitempty"`
	GithubKeySet    bool                 `json:"github_key_set"`
	GithubKeySource string               `json:"github_key_source,omitempty"`
	CreatedAt       string               `json:"created_at"`
	UpdatedAt       string               `json:"updated_at"`
}

func toProjectResponse(p *metadata.Project) projectResponse {
	return projectResponse{
		ID: p.ID, UserID: p.UserID, Name: p.Name, Status: p.Status,
		Endpoint: p.Endpoint, RepoURL: p.RepoURL, HasRepository: p.HasRepository,
		LastCloneError: p.LastCloneError, GithubKeySet: p.GithubKeySet,
		GithubKeySource: string(p.GithubKeySource),
		CreatedAt:       p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:       p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ListProjects handles GET /users/{user}/projects.
func (h *handlers) ListProjects(c *fiber.Ctx) error {
	userID := c.Params("user")
	if _, err := h.meta.GetUser(userID); err != nil {
		return writeErr(c, err)
	}
	projects, err := h.meta.ListProjectsByUser(userID)
	if err != nil {
		return writeErr(c, err)
	}
	out := make([]projectResponse, len(projects))
	for i, p := range projects {
		out[i] = toProjectResponse(p)
	}
	return c.JSON(out)
}

type createProjectRequest struct {
	Name      string  `json:"name"`
	GithubKey *string `json:"github_key"`
	RepoURL   string  `json:"repo_url"`
}

// CreateProject handles POST /users/{user}/projects.
func (h *handlers) CreateProject(c *fiber.Ctx) error {
	var req createProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest, "invalid_body", "Bad Request", err.Error())
	}
	if req.Name == "" {
		return problemResponse(c, fiber.StatusBadRequest, "missing_name", "Bad Request", "name is required")
	}
	userID := c.Params("user")
	if _, err := h.meta.UpsertUser(userID, userID); err != nil {
		return writeErr(c, err)
	}

	token := ""
	if req.GithubKey != nil {
		token = *req.GithubKey
	}
	result, err := h.engine.CreateProject(c.Context(), userID, req.Name, req.RepoURL, token)
	if err != nil {
		return writeErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"project_id": result.Project.ID,
		"message":    "project created",
	})
}

type updateProjectRequest struct {
	Name string `json:"name"`
}

// UpdateProject handles PUT /users/{user}/projects/{pid}.
func (h *handlers) UpdateProject(c *fiber.Ctx) error {
	var req updateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest, "invalid_body", "Bad Request", err.Error())
	}
	if req.Name == "" {
		return problemResponse(c, fiber.StatusBadRequest, "missing_name", "Bad Request", "name is required")
	}
	if err := h.meta.UpdateProjectFields(c.Params("pid"), map[string]interface{}{"name": req.Name}); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "project updated"})
}

// DeleteProject handles DELETE /users/{user}/projects/{pid}.
func (h *handlers) DeleteProject(c *fiber.Ctx) error {
	if err := h.engine.DeleteProject(c.Context(), c.Params("pid")); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "project deleted"})
}

// ActivateProject handles POST /users/{user}/projects/{pid}/activate.
func (h *handlers) ActivateProject(c *fiber.Ctx) error {
	project, err := h.engine.ActivateProject(c.Context(), c.Params("pid"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "project activated", "endpoint": project.Endpoint})
}

// DeactivateProject handles POST /users/{user}/projects/{pid}/deactivate.
func (h *handlers) DeactivateProject(c *fiber.Ctx) error {
	if _, err := h.engine.DeactivateProject(c.Context(), c.Params("pid")); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "project deactivated"})
}

// CloneRepository handles POST /users/{user}/projects/{pid}/clone-repository.
// A clone that ran but exited non-zero is still a 200 — the project stays
// active and the failure is reported as a warning.
func (h *handlers) CloneRepository(c *fiber.Ctx) error {
	result, err := h.engine.ManualClone(c.Context(), c.Params("pid"))
	if err != nil {
		return writeErr(c, err)
	}
	if !result.Succeeded {
		return c.JSON(fiber.Map{"message": "clone failed", "warning": result.Stderr})
	}
	return c.JSON(fiber.Map{"message": "repository cloned"})
}

// PutProjectGithubKey handles PUT /users/{user}/projects/{pid}/github-key.
func (h *handlers) PutProjectGithubKey(c *fiber.Ctx) error {
	var req githubKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest, "invalid_body", "Bad Request", err.Error())
	}
	if err := h.engine.UpdateGithubToken(c.Context(), c.Params("pid"), req.GithubKey); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "github key updated"})
}

// AgentStatus handles GET /users/{user}/projects/{pid}/agent/status.
func (h *handlers) AgentStatus(c *fiber.Ctx) error {
	status, err := h.engine.GetAgentStatus(c.Context(), c.Params("pid"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{
		"project_status":   status.ProjectStatus,
		"pod_count":        status.PodCount,
		"ready_count":      status.ReadyCount,
		"health_ok":        status.HealthOK,
		"last_clone_error": status.LastCloneError,
	})
}
