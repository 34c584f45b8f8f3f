package flatsqlwire

import "github.com/tuannm99/flatsql/internal/sql/executor"

// ErrorKindBusy is sent to a connection refused because another session
// owns the storage directory.
const ErrorKindBusy executor.ErrorKind = "busy"

const busyMessage = "storage directory busy"

// ExecuteRequest carries one command string.
type ExecuteRequest struct {
	ID  uint64 `json:"id"`
	SQL string `json:"sql"`
}

// ExecuteResponse answers the request with the same ID. Exactly one of
// Result and Error is set.
type ExecuteResponse struct {
	ID        uint64             `json:"id"`
	Result    *executor.Result   `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	ErrorKind executor.ErrorKind `json:"error_kind,omitempty"`
}

func errorResponse(id uint64, err error) ExecuteResponse {
	return ExecuteResponse{
		ID:        id,
		Error:     err.Error(),
		ErrorKind: executor.Classify(err),
	}
}
