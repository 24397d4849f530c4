package realtime

// Action error codes surfaced to clients and mapped to HTTP statuses by the
// transport layer.
const (
	CodeBadRequest = "bad_request"
	CodeNotFound   = "not_found"
	CodeConflict   = "conflict"
)

// ActionError is a user-facing failure of a real-time action. Anything that
// is not an ActionError is an internal error and must not reach the client.
type ActionError struct {
	Code    string
	Message string
}

func (e *ActionError) Error() string { return e.Message }

func badRequest(msg string) *ActionError { return &ActionError{Code: CodeBadRequest, Message: msg} }
func notFound(msg string) *ActionError   { return &ActionError{Code: CodeNotFound, Message: msg} }
func conflict(msg string) *ActionError   { return &ActionError{Code: CodeConflict, Message: msg} }
