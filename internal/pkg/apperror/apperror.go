package apperror

// Kind classifies an error for API consumers, independent of HTTP status.
type Kind string

const (
	KindValidation           Kind = "VALIDATION"
	KindTemporalInvalid      Kind = "TEMPORAL_INVALID"
	KindConflictSchedule     Kind = "CONFLICT_SCHEDULE"
	KindConflictApproved     Kind = "CONFLICT_APPROVED"
	KindConflictPending      Kind = "CONFLICT_PENDING"
	KindNotFound             Kind = "NOT_FOUND"
	KindForbidden            Kind = "FORBIDDEN"
	KindDuplicate            Kind = "DUPLICATE"
	KindPartialImportFailure Kind = "PARTIAL_IMPORT_FAILURE"
	KindInternal             Kind = "INTERNAL"
)

// AppError is a custom error type that includes an HTTP status code, an error
// kind, and an optional underlying error.
type AppError struct {
	Kind    Kind
	Code    int    // HTTP Status Code (e.g., 400, 404)
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match two AppErrors by kind, so call sites can compare
// against sentinel values while services attach slot-specific messages.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// New creates a new AppError with a kind, status code and message.
func New(kind Kind, code int, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, kind Kind, code int, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithMessage copies e with a more specific user-facing message. The kind and
// status are retained so errors.Is still matches the sentinel.
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
	}
}
