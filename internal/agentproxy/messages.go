package agentproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
)

// sendRequest is the body posted to both the synchronous and streaming
// message endpoints.
type sendRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// SendResult is the agent's synchronous reply, passed through verbatim.
type SendResult struct {
	Result json.RawMessage `json:"result"`
}

// SendMessage posts to the agent's synchronous endpoint and waits for the
// full response; no intermediate events are observed.
func (c *Client) SendMessage(ctx context.Context, projectID, sessionID, content string) (*SendResult, error) {
	project, err := c.resolveActive(projectID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.syncCtx(ctx)
	defer cancel()

	body, _ := json.Marshal(sendRequest{SessionID: sessionID, Content: content})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, agentURL(project, "/messages/send"), bytes.NewReader(body))
	if err != nil {
		return nil, cperrors.Wrap(cperrors.KindUpstream, "build send-message request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, cperrors.Wrap(cperrors.KindUpstream, "send message", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, cperrors.New(cperrors.KindUpstream, fmt.Sprintf("agent returned %d sending message", resp.StatusCode))
	}

	var result SendResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, cperrors.Wrap(cperrors.KindUpstream, "decode send-message response", err)
	}

	if err := c.bumpMessageCount(projectID, sessionID); err != nil {
		c.logger.Warn().Err(err).Str("project_id", projectID).Str("session_id", sessionID).Msg("send_message: failed to update message count")
	}

	return &result, nil
}

// bumpMessageCount increments the locally stored message count for a
// session after a successful send; the agent is the source of truth for
// conversational content, the control plane only tracks the count.
func (c *Client) bumpMessageCount(projectID, sessionID string) error {
	sessions, err := c.meta.ListSessions(projectID)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		if s.SessionID == sessionID {
			return c.meta.TouchSessionMessageCount(projectID, sessionID, s.MessageCount+1)
		}
	}
	return nil
}
