package httpresp

const (
	ErrUnauthorized       = "unauthorized"
	ErrMissingBearerToken = "bearer token is required"
	ErrInvalidToken       = "invalid token"
	ErrForbidden          = "forbidden"
	ErrTooManyFiles       = "too many files in one request"
	ErrFileTooLarge       = "file exceeds the per-file size limit"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// QuotaErrorResponse is the 413 body: the task's current total and what
// the rejected request would have pushed it to.
type QuotaErrorResponse struct {
	Error         string `json:"error"`
	CurrentSize   int64  `json:"current_size"`
	AttemptedSize int64  `json:"attempted_size"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

func NewQuotaErrorResponse(message string, currentSize, attemptedSize int64) QuotaErrorResponse {
	return QuotaErrorResponse{Error: message, CurrentSize: currentSize, AttemptedSize: attemptedSize}
}

func NewMessageResponse(message string) MessageResponse {
	return MessageResponse{Message: message}
}

func NewOKResponse() OKResponse {
	return OKResponse{OK: true}
}
