package api

import (
	"github.com/gofiber/fiber/v2"
)

type userSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListUsers handles GET /users.
func (h *handlers) ListUsers(c *fiber.Ctx) error {
	users, err := h.meta.ListUsers()
	if err != nil {
		return writeErr(c, err)
	}
	out := make([]userSummary, len(users))
	for i, u := range users {
		out[i] = userSummary{ID: u.ID, Name: u.Name}
	}
	return c.JSON(out)
}

type githubKeyRequest struct {
	GithubKey *string `json:"github_key"`
}

// PutUserGithubKey handles PUT /users/{user}/github-key.
func (h *handlers) PutUserGithubKey(c *fiber.Ctx) error {
	var req githubKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest, "invalid_body", "Bad Request", err.Error())
	}
	userID := c.Params("user")
	if _, err := h.meta.GetUser(userID); err != nil {
		return writeErr(c, err)
	}
	if err := h.engine.UpdateUserGlobalToken(c.Context(), userID, req.GithubKey); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "github key updated"})
}

// GetUserGithubKey handles GET /users/{user}/github-key.
func (h *handlers) GetUserGithubKey(c *fiber.Ctx) error {
	user, err := h.meta.GetUser(c.Params("user"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"github_key_set": user.GithubTokenSet})
}

// DeleteUserGithubKey handles DELETE /users/{user}/github-key.
func (h *handlers) DeleteUserGithubKey(c *fiber.Ctx) error {
	userID := c.Params("user")
	if _, err := h.meta.GetUser(userID); err != nil {
		return writeErr(c, err)
	}
	if err := h.engine.UpdateUserGlobalToken(c.Context(), userID, nil); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "github key removed"})
}
