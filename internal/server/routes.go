package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/braindrive/library/internal/observability"
	"github.com/braindrive/library/internal/scope"
	"github.com/braindrive/library/internal/tools"
	"github.com/braindrive/library/internal/toolspec"
	"github.com/braindrive/library/pkg/mcperr"
)

// maxPayloadBytes bounds tool payload bodies; transcripts are the largest
// legitimate input.
const maxPayloadBytes = 10 << 20

func (s *Server) handleToolCatalogue(w http.ResponseWriter, _ *http.Request) {
	catalogue, err := toolspec.Load()
	if err != nil {
		writeFailure(w, http.StatusBadRequest, mcperr.New(
			"TOOL_SCHEMA_ERROR",
			"Tool definitions could not be loaded.",
			map[string]any{"error": err.Error()},
		))

		return
	}

	writeJSON(w, http.StatusOK, mcperr.Success(map[string]any{"tools": catalogue}))
}

// toolHandler dispatches one named tool against the request's tenant
// library.
func (s *Server) toolHandler(name string) http.Handler {
	handler, _ := tools.Lookup(name)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		data, err := s.invokeTool(r, handler)

		status := observability.StatusOK
		code := ""

		if err != nil {
			status = observability.StatusError

			if mcpErr, ok := mcperr.As(err); ok {
				code = mcpErr.Code
			}
		}

		if s.metrics != nil {
			s.metrics.RecordCall(r.Context(), name, status, code, time.Since(started))
		}

		if err != nil {
			mcpErr, ok := mcperr.As(err)
			if !ok {
				s.log.ErrorContext(r.Context(), "tool call failed", "tool", name, "error", err)
				writeFailure(w, http.StatusInternalServerError, mcperr.New(
					"INTERNAL_ERROR",
					"Internal server error.",
					nil,
				))

				return
			}

			s.log.WarnContext(r.Context(), "tool call rejected",
				"tool", name, "code", mcpErr.Code, "error", mcpErr.Message)
			writeFailure(w, statusForCode(mcpErr.Code), mcpErr)

			return
		}

		s.log.InfoContext(r.Context(), "tool call completed",
			"tool", name, "duration_ms", time.Since(started).Milliseconds())
		writeJSON(w, http.StatusOK, mcperr.Success(data))
	})
}

func (s *Server) invokeTool(r *http.Request, handler tools.Handler) (map[string]any, error) {
	userID, err := requestUserID(r)
	if err != nil {
		return nil, err
	}

	root, err := scope.EnsureLibraryRoot(s.cfg.Library.Path, userID)
	if err != nil {
		return nil, err
	}

	payload, err := decodePayload(r)
	if err != nil {
		return nil, err
	}

	ctx := &tools.Context{
		LibraryRoot:  root,
		TemplatePath: s.cfg.Library.BaseTemplatePath,
	}

	return handler(ctx, payload)
}

// decodePayload reads the JSON body into a payload map. An empty body is an
// empty payload.
func decodePayload(r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		return nil, mcperr.New("INVALID_TYPE", "Request body could not be read.", nil)
	}

	if len(body) == 0 {
		return map[string]any{}, nil
	}

	var payload map[string]any

	err = json.Unmarshal(body, &payload)
	if err != nil {
		return nil, mcperr.New(
			"INVALID_TYPE",
			"Request body must be a JSON object.",
			map[string]any{"error": err.Error()},
		)
	}

	if payload == nil {
		payload = map[string]any{}
	}

	return payload, nil
}

// statusForCode maps auth error codes to their HTTP statuses; every other
// tool error is a 400 with the envelope carrying the detail.
func statusForCode(code string) int {
	switch code {
	case "AUTH_REQUIRED", "INVALID_USER_ID":
		return http.StatusUnauthorized
	case "AUTH_FORBIDDEN":
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// The status line is already out; an encode failure here has nowhere
	// to report.
	_ = json.NewEncoder(w).Encode(body)
}

func writeFailure(w http.ResponseWriter, status int, err *mcperr.Error) {
	writeJSON(w, status, mcperr.Failure(err))
}
