package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// JSON-RPC error codes used for transport failures.
const (
	codeTransportError = -32000
	codeUnauthorized   = -32001
)

// StdioProxy forwards newline-delimited JSON-RPC messages to the HTTP MCP
// endpoint and writes each response back as a single line.
type StdioProxy struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewStdioProxy creates a proxy for endpoint authenticating with token.
func NewStdioProxy(endpoint, token string, timeout time.Duration) *StdioProxy {
	return &StdioProxy{
		endpoint:   endpoint,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// RunWithIO reads messages from r until EOF. Notifications produce no output.
func (p *StdioProxy) RunWithIO(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		resp, err := p.forward(line)
		if err != nil {
			id := extractID(line)
			if id == nil {
				continue
			}
			resp = jsonRPCError(id, errorCode(err), err.Error())
		}
		if len(resp) == 0 {
			continue
		}

		if _, err := w.Write(append(resp, '\n')); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// statusError is a non-2xx answer from the server.
type statusError struct {
	status      int
	description string
}

func (e *statusError) Error() string {
	if e.description != "" {
		return fmt.Sprintf("server returned %d: %s", e.status, e.description)
	}
	return fmt.Sprintf("server returned %d", e.status)
}

func errorCode(err error) int {
	if se, ok := err.(*statusError); ok && se.status == http.StatusUnauthorized {
		return codeUnauthorized
	}
	return codeTransportError
}

// forward posts one message and returns the JSON-RPC response, unwrapping
// a single SSE data frame when the server streams.
func (p *StdioProxy) forward(body []byte) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusAccepted:
		return nil, nil
	case resp.StatusCode >= 400:
		var errResp struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		desc := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			desc = errResp.Error
			if errResp.ErrorDescription != "" {
				desc += ": " + errResp.ErrorDescription
			}
		}
		return nil, &statusError{status: resp.StatusCode, description: desc}
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return sseData(respBody), nil
	}
	return bytes.TrimSpace(respBody), nil
}

// sseData returns the payload of the last data line in an SSE body.
func sseData(body []byte) []byte {
	var data []byte
	for _, line := range bytes.Split(body, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			data = bytes.TrimSpace(rest)
		}
	}
	return data
}

// extractID returns the request id, or nil for notifications and garbage.
func extractID(msg []byte) json.RawMessage {
	var req struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(msg, &req); err != nil {
		return json.RawMessage("null")
	}
	return req.ID
}

func jsonRPCError(id json.RawMessage, code int, message string) []byte {
	resp := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
	data, _ := json.Marshal(resp)
	return data
}
