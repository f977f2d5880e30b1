package agentproxy

import (
	"fmt"

	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
	"github.com/FilippTrigub/space-goose/internal/metadata"
)

// resolveActive loads the project and verifies it is active with a
// resolved endpoint before the caller dials it.
func (c *Client) resolveActive(projectID string) (*metadata.Project, error) {
	project, err := c.meta.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != metadata.StatusActive || project.Endpoint == "" {
		return nil, cperrors.New(cperrors.KindProjectNotActive, fmt.Sprintf("project %s is not active", projectID))
	}
	return project, nil
}
