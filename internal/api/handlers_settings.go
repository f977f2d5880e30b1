package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/FilippTrigub/space-goose/internal/lifecycle"
	"github.com/FilippTrigub/space-goose/internal/metadata"
)

// ListSettings handles GET /users/{user}/projects/{pid}/settings.
func (h *handlers) ListSettings(c *fiber.Ctx) error {
	settings, err := h.meta.ListSettings(c.Params("pid"))
	if err != nil {
		return writeErr(c, err)
	}
	out := make(map[string]string, len(settings))
	for _, s := range settings {
		out[s.Key] = s.Value
	}
	return c.JSON(out)
}

// GetSetting handles GET /users/{user}/projects/{pid}/settings/{key}.
// A recognized key that was never set answers with its declared default;
// only unrecognized keys are rejected.
func (h *handlers) GetSetting(c *fiber.Ctx) error {
	key := c.Params("key")
	def, ok := metadata.LookupSetting(key)
	if !ok {
		return problemResponse(c, fiber.StatusBadRequest, "unknown_setting", "Bad Request", "unrecognized setting key "+key)
	}

	settings, err := h.meta.ListSettings(c.Params("pid"))
	if err != nil {
		return writeErr(c, err)
	}
	value := def.Default
	for _, s := range settings {
		if s.Key == key {
			value = s.Value
			break
		}
	}
	return c.JSON(fiber.Map{"key": key, "value": coerceSettingValue(def, value)})
}

// coerceSettingValue converts a stored string to the setting's declared
// type so callers read back a typed JSON value. Values are validated on
// write, so a parse failure here only happens for rows written before a
// definition changed; the raw string is returned in that case.
func coerceSettingValue(def metadata.SettingDef, value string) interface{} {
	switch def.Type {
	case metadata.SettingInt:
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	case metadata.SettingFloat:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case metadata.SettingBool:
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return value
}

type updateSettingRequest struct {
	Value string `json:"value"`
}

// UpdateSetting handles PUT /users/{user}/projects/{pid}/settings/{key}.
func (h *handlers) UpdateSetting(c *fiber.Ctx) error {
	var req updateSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest, "invalid_body", "Bad Request", err.Error())
	}
	result, err := h.engine.UpdateSettings(c.Context(), c.Params("pid"), []lifecycle.SettingChange{{Key: c.Params("key"), Value: req.Value}})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"restart_required": result.RestartRequired})
}

// DeleteSetting handles DELETE /users/{user}/projects/{pid}/settings/{key}.
func (h *handlers) DeleteSetting(c *fiber.Ctx) error {
	if err := h.meta.DeleteSetting(c.Params("pid"), c.Params("key")); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "setting deleted"})
}

type updateSettingsBulkRequest map[string]string

// UpdateSettingsBulk handles PUT /users/{user}/projects/{pid}/settings.
func (h *handlers) UpdateSettingsBulk(c *fiber.Ctx) error {
	var req updateSettingsBulkRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest, "invalid_body", "Bad Request", err.Error())
	}
	changes := make([]lifecycle.SettingChange, 0, len(req))
	for k, v := range req {
		changes = append(changes, lifecycle.SettingChange{Key: k, Value: v})
	}
	result, err := h.engine.UpdateSettings(c.Context(), c.Params("pid"), changes)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"restart_required": result.RestartRequired})
}
