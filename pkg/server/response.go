package server

import (
	"encoding/json"
	"net/http"

	"github.com/devicelab-dev/uiharness/pkg/core"
	"github.com/devicelab-dev/uiharness/pkg/logger"
)

// Response is the body of every command response except /texts.
type Response struct {
	Status  core.Status `json:"status"`
	Code    string      `json:"code,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Message string      `json:"message,omitempty"`
}

// writeJSON writes a JSON response with the specified status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to encode response: %v", err)
	}
}

// writeError maps err to its HTTP status and error body.
func writeError(w http.ResponseWriter, err error) {
	execErr := core.AsExecutionError(err)
	writeJSON(w, execErr.HTTPStatus(), Response{
		Status: core.StatusError,
		Code:   execErr.Code,
		Reason: execErr.Error(),
	})
}

func writeResult(w http.ResponseWriter, result *core.CommandResult) {
	if result.Error != nil {
		writeError(w, result.Error)
		return
	}
	writeJSON(w, http.StatusOK, Response{Status: core.StatusSuccess, Message: result.Message})
}
