package api

import (
	"github.com/gofiber/fiber/v2"

	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
)

// problemDetail is an RFC 7807-shaped error body.
type problemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance"`
}

func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(problemDetail{Type: errType, Title: title, Status: status, Detail: detail, Instance: c.Path()})
}

// writeErr translates a control-plane error's Kind to its HTTP status
// into a problem-detail response.
func writeErr(c *fiber.Ctx, err error) error {
	status := cperrors.HTTPStatus(err)
	kind := cperrors.KindOf(err)
	title := "Error"
	if kind != "" {
		title = string(kind)
	}
	return problemResponse(c, status, string(kind), title, err.Error())
}
