package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/bobmcallan/agentdrugs/internal/oauth"
)

const maxBodyBytes = 1 << 20 // 1MB

// ErrorResponse is the error body used by every endpoint (RFC 6749 section 5.2 shape).
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, code, description string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: code, ErrorDescription: description})
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, oauth.CodeInvalidRequest, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes a JSON object from the request body into v.
// Returns false and writes a 400 error if the body is not a JSON object.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, oauth.CodeInvalidRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, oauth.CodeInvalidRequest, "Request body too large")
		return false
	}
	if !isJSONObject(raw) {
		WriteError(w, http.StatusBadRequest, oauth.CodeInvalidRequest, "Request body must be a JSON object")
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		WriteError(w, http.StatusBadRequest, oauth.CodeInvalidRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

func isJSONObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// DecodeParams reads named parameters from a JSON object body or a form
// body, whichever the Content-Type says. Only string values are kept.
func DecodeParams(w http.ResponseWriter, r *http.Request, names ...string) (map[string]string, bool) {
	params := make(map[string]string, len(names))
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		var body map[string]interface{}
		if !DecodeJSON(w, r, &body) {
			return nil, false
		}
		for _, n := range names {
			if s, ok := body[n].(string); ok {
				params[n] = s
			}
		}
		return params, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		WriteError(w, http.StatusBadRequest, oauth.CodeInvalidRequest, "invalid form data")
		return nil, false
	}
	for _, n := range names {
		params[n] = r.PostFormValue(n)
	}
	return params, true
}

// writeOAuthError writes err using its kind's status. Causes are logged,
// never sent.
func (s *Server) writeOAuthError(w http.ResponseWriter, r *http.Request, err error) {
	oe := oauth.AsError(err)
	status := oe.HTTPStatus()
	if status >= http.StatusInternalServerError {
		event := s.logger.Error()
		if cause := errors.Unwrap(oe); cause != nil {
			event = event.Err(cause)
		}
		event.
			Str("path", r.URL.Path).
			Str("code", oe.Code).
			Msg("Request failed")
	}
	WriteError(w, status, oe.Code, oe.Description)
}
