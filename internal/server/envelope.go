package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

const (
	errInternal         = "internal server error"
	errNotFound         = "not found"
	errMethodNotAllowed = "method not allowed"
)

// response is the envelope every JSON endpoint answers with.
// Result holds a single descriptive key (for example "shows") mapped to the
// payload, or nil.
type response struct {
	Code    int            `json:"code"`
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Result  map[string]any `json:"result"`
}

func newResponse(data map[string]any, status int, message string) response {
	if status == 0 {
		status = http.StatusOK
	}
	return response{
		Code:    status,
		Success: status >= 200 && status < 300,
		Message: message,
		Result:  data,
	}
}

func (s *Server) writeResponse(w http.ResponseWriter, status int, data map[string]any, message string) {
	resp := newResponse(data, status, message)
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(resp.Code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn("encode response", zap.Int("status", resp.Code), zap.Error(err))
	}
}

func (s *Server) writeData(w http.ResponseWriter, status int, key string, value any) {
	s.writeResponse(w, status, map[string]any{key: value}, "")
}

func (s *Server) writeError(w http.ResponseWriter, message string, status int) {
	s.writeResponse(w, status, nil, message)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	s.writeError(w, errMethodNotAllowed, http.StatusMethodNotAllowed)
}

// handleOptions answers preflight requests. It reports whether the request
// was consumed.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request, allow string) bool {
	if r.Method != http.MethodOptions {
		return false
	}
	w.Header().Set("Allow", allow)
	if s.cors {
		w.Header().Set("Access-Control-Allow-Methods", allow)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	}
	w.WriteHeader(http.StatusNoContent)
	return true
}
