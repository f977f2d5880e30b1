package agentproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
	"github.com/FilippTrigub/space-goose/internal/metadata"
)

func agentURL(project *metadata.Project, path string) string {
	return fmt.Sprintf("http://%s%s", project.Endpoint, path)
}

// createSessionResponse is the agent's session-creation payload.
type createSessionResponse struct {
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateSession asks the agent to open a new session, then persists the
// returned summary.
func (c *Client) CreateSession(ctx context.Context, projectID, name string) (*metadata.Session, error) {
	project, err := c.resolveActive(projectID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.syncCtx(ctx)
	defer cancel()

	body, _ := json.Marshal(map[string]string{"name": name})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, agentURL(project, "/sessions"), bytes.NewReader(body))
	if err != nil {
		return nil, cperrors.Wrap(cperrors.KindUpstream, "build create-session request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, cperrors.Wrap(cperrors.KindUpstream, "create session", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, cperrors.New(cperrors.KindUpstream, fmt.Sprintf("agent returned %d creating session", resp.StatusCode))
	}

	var agentResp createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&agentResp); err != nil {
		return nil, cperrors.Wrap(cperrors.KindUpstream, "decode create-session response", err)
	}

	sess := &metadata.Session{
		SessionID: agentResp.SessionID,
		ProjectID: projectID,
		Name:      agentResp.Name,
		CreatedAt: agentResp.CreatedAt,
	}
	if sess.Name == "" {
		sess.Name = name
	}
	if err := c.meta.AddSession(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessions returns the stored session summaries for a project. These
// are served from the metadata store, not the agent — the store already
// holds the summary every session create wrote.
func (c *Client) ListSessions(projectID string) ([]*metadata.Session, error) {
	if _, err := c.meta.GetProject(projectID); err != nil {
		return nil, err
	}
	return c.meta.ListSessions(projectID)
}

// DeleteSession deletes a session upstream and removes the local summary.
// A 404 from the agent is treated as already-gone, matching the store's
// idempotent-on-identity contract.
func (c *Client) DeleteSession(ctx context.Context, projectID, sessionID string) error {
	project, err := c.resolveActive(projectID)
	if err != nil {
		return err
	}

	ctx, cancel := c.syncCtx(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, agentURL(project, "/sessions/"+sessionID), nil)
	if err != nil {
		return cperrors.Wrap(cperrors.KindUpstream, "build delete-session request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return cperrors.Wrap(cperrors.KindUpstream, "delete session", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return cperrors.New(cperrors.KindUpstream, fmt.Sprintf("agent returned %d deleting session", resp.StatusCode))
	}

	return c.meta.RemoveSession(projectID, sessionID)
}

// MessagesResult is the agent's message-history payload, passed through
// verbatim to the caller.
type MessagesResult struct {
	SessionID  string            `json:"session_id"`
	Messages   []json.RawMessage `json:"messages"`
	TotalCount int               `json:"total_count"`
}

// ListMessages fetches the full message history for a session.
func (c *Client) ListMessages(ctx context.Context, projectID, sessionID string) (*MessagesResult, error) {
	project, err := c.resolveActive(projectID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.syncCtx(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, agentURL(project, "/sessions/"+sessionID+"/messages"), nil)
	if err != nil {
		return nil, cperrors.Wrap(cperrors.KindUpstream, "build list-messages request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, cperrors.Wrap(cperrors.KindUpstream, "list messages", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, cperrors.New(cperrors.KindNotFound, "session not found")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, cperrors.New(cperrors.KindUpstream, fmt.Sprintf("agent returned %d listing messages", resp.StatusCode))
	}

	var result MessagesResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, cperrors.Wrap(cperrors.KindUpstream, "decode list-messages response", err)
	}
	result.SessionID = sessionID
	return &result, nil
}
