package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"dealdesk/failure"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func statusForKind(kind failure.Kind) int {
	switch kind {
	case failure.KindUnauthenticated:
		return http.StatusUnauthorized
	case failure.KindForbidden:
		return http.StatusForbidden
	case failure.KindNotFound:
		return http.StatusNotFound
	case failure.KindValidation:
		return http.StatusBadRequest
	case failure.KindUploadURL, failure.KindDispatch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a typed failure. Causes are logged, never returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := failure.KindOf(err)
	body := errorBody{Kind: string(kind), Message: "internal error"}

	var fe *failure.Error
	if errors.As(err, &fe) && kind != failure.KindInternal {
		body.Message = fe.Message
		body.Field = fe.Field
	}

	status := statusForKind(kind)
	if status >= 500 {
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
			slog.String("request_id", requestIDFromContext(r.Context())),
		)
	}
	writeJSON(w, status, errorResponse{Error: body})
}

// decodeJSON reads a single JSON object into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return failure.Validation("body", "request body is required")
		}
		return failure.Validation("body", "invalid JSON body")
	}
	return nil
}

const sessionCookie = "admin_token"

// sessionToken reads the bearer header first, then the session cookie.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "Bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			return strings.TrimSpace(h[len(prefix):])
		}
		return ""
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}
