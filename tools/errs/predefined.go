package errs

// The realtime core's failure taxonomy. Codes follow HTTP status semantics so
// the ack translation and the HTTP layer share one set.
var (
	ErrValidationFailed     = NewCodeError(400, "validation failed")
	ErrUnsupportedMediaType = NewCodeError(400, "unsupported media type")
	ErrForbidden            = NewCodeError(401, "forbidden")
	ErrTokenInvalid         = NewCodeError(401, "token invalid")
	ErrDependencyFailed     = NewCodeError(500, "dependency failed")
	ErrInternal             = NewCodeError(500, "internal error")
)
