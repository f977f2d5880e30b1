package agentproxy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
)

// flusher is satisfied by bufio.Writer (what Fiber's BodyStreamWriter
// hands handlers) and by http.Flusher; StreamMessage flushes through
// whichever the caller's writer supports so events reach the client as
// soon as they are relayed.
type flusher interface {
	Flush() error
}

type stdFlusher interface {
	Flush()
}

func flushWriter(w io.Writer) {
	switch f := w.(type) {
	case flusher:
		_ = f.Flush()
	case stdFlusher:
		f.Flush()
	}
}

// StreamMessage posts to the agent's streaming endpoint with
// Accept: text/event-stream and relays the upstream SSE byte stream to w
// verbatim, flushing after every event boundary (a blank line). If the
// caller's context is cancelled (the caller disconnected), the upstream
// request is cancelled so the connection is not leaked. If the upstream
// stream ends without a terminal `done`/`error` event — e.g. the
// connection drops — a synthetic `error` event is appended so the byte
// stream still satisfies the "ends after a terminal event" contract.
func (c *Client) StreamMessage(ctx context.Context, projectID, sessionID, content string, w io.Writer) error {
	project, err := c.resolveActive(projectID)
	if err != nil {
		return err
	}

	body, _ := json.Marshal(sendRequest{SessionID: sessionID, Content: content})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, agentURL(project, "/messages"), bytes.NewReader(body))
	if err != nil {
		return cperrors.Wrap(cperrors.KindUpstream, "build stream-message request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return cperrors.Wrap(cperrors.KindCancelled, "stream cancelled before upstream responded", ctx.Err())
		}
		return cperrors.Wrap(cperrors.KindUpstream, "dial stream endpoint", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return cperrors.New(cperrors.KindUpstream, fmt.Sprintf("agent returned %d for stream", resp.StatusCode))
	}

	sawTerminal, relayErr := relaySSE(ctx, resp.Body, w)
	if ctx.Err() != nil {
		// Caller disconnected; resp.Body's deferred close tears down the
		// upstream connection, and nothing further is written downstream.
		return cperrors.Wrap(cperrors.KindCancelled, "stream cancelled by caller disconnect", ctx.Err())
	}
	if relayErr != nil {
		writeTerminalError(w, relayErr.Error())
		return cperrors.Wrap(cperrors.KindUpstream, "upstream stream error", relayErr)
	}
	if !sawTerminal {
		writeTerminalError(w, "upstream closed without a terminal event")
	}
	return nil
}

// relaySSE copies resp.Body to w line by line, flushing after each blank
// line (the SSE event terminator), and reports whether a terminal
// `done`/`error` event name was observed. It stops early if ctx is
// cancelled.
func relaySSE(ctx context.Context, body io.Reader, w io.Writer) (sawTerminal bool, err error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var pendingEvent string
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return sawTerminal, nil
		default:
		}

		line := scanner.Text()
		if _, werr := io.WriteString(w, line+"\n"); werr != nil {
			return sawTerminal, werr
		}

		switch {
		case len(line) >= 7 && line[:7] == "event: ":
			pendingEvent = line[7:]
		case line == "":
			if pendingEvent == "done" || pendingEvent == "error" {
				sawTerminal = true
			}
			pendingEvent = ""
			flushWriter(w)
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return sawTerminal, scanErr
	}
	return sawTerminal, nil
}

// writeTerminalError appends a synthetic terminal error frame so the
// stream still ends on a well-formed event even when the upstream
// connection dropped mid-stream.
func writeTerminalError(w io.Writer, reason string) {
	payload, _ := json.Marshal(map[string]string{"reason": reason})
	_, _ = io.WriteString(w, "event: error\n")
	_, _ = io.WriteString(w, "data: "+string(payload)+"\n\n")
	flushWriter(w)
}
