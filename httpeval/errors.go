package httpeval

import (
	"errors"
	"net/http"

	"github.com/bpcreech/http-eval/platform"
)

// Kind classifies an Error by who caused it.
type Kind int

const (
	// KindInternal covers anything not caused by the caller or the operator.
	KindInternal Kind = iota

	// KindValidation is a malformed request: wrong path, method, encoding or
	// payload. It never carries a cause.
	KindValidation

	// KindEvaluation is a compile-time or run-time failure of the submitted
	// source. Its cause is a *platform.EvalFailure chain.
	KindEvaluation

	// KindConfiguration is a host misconfiguration, such as an insecure socket.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindEvaluation:
		return "evaluation"
	case KindConfiguration:
		return "configuration"
	default:
		return "internal"
	}
}

const (
	msgEvalFailed = "Error in eval"
	msgNoCode     = "No code specified in request body"
	msgJSONOnly   = "Only Accept-Encoding=application/json is supported"
	msgInternal   = "Internal error"
)

var (
	ErrMissingRunner  = errors.New("runner is nil")
	ErrSocketExists   = errors.New("a file already exists at the socket path")
	ErrNoSocketPath   = errors.New("socket path is empty")
	ErrServerNotReady = errors.New("server is not listening")
)

// Error is the structured failure returned to HTTP callers.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewValidationError returns a caller error with status (400 or 404).
func NewValidationError(status int, message string) *Error {
	return &Error{Kind: KindValidation, StatusCode: status, Message: message}
}

// NewEvaluationError wraps a script failure as a 400.
func NewEvaluationError(failure *platform.EvalFailure) *Error {
	return &Error{
		Kind:       KindEvaluation,
		StatusCode: http.StatusBadRequest,
		Message:    msgEvalFailed,
		Cause:      failure,
	}
}

// NewConfigurationError returns an operator error rendered as a 500.
func NewConfigurationError(message string) *Error {
	return &Error{Kind: KindConfiguration, StatusCode: http.StatusInternalServerError, Message: message}
}

// errorBody is the JSON form of a failure and its causes.
type errorBody struct {
	Error string     `json:"error"`
	Cause *errorBody `json:"cause,omitempty"`
}

// asError classifies err. Evaluation failures found anywhere in the chain
// become KindEvaluation; anything unrecognised becomes a 500.
func asError(err error) *Error {
	var he *Error
	if errors.As(err, &he) {
		return he
	}
	var failure *platform.EvalFailure
	if errors.As(err, &failure) {
		return NewEvaluationError(failure)
	}
	return &Error{
		Kind:       KindInternal,
		StatusCode: http.StatusInternalServerError,
		Message:    msgInternal,
		Cause:      err,
	}
}

// render builds the response body. Only evaluation failures expose their
// cause chain; internal errors are flattened into one description.
func (e *Error) render() *errorBody {
	switch e.Kind {
	case KindEvaluation:
		var failure *platform.EvalFailure
		if errors.As(e.Cause, &failure) {
			return &errorBody{Error: e.Message, Cause: renderFailure(failure)}
		}
		return &errorBody{Error: e.Message}
	case KindInternal:
		return &errorBody{Error: e.Error()}
	default:
		return &errorBody{Error: e.Message}
	}
}

func renderFailure(f *platform.EvalFailure) *errorBody {
	if f == nil {
		return nil
	}
	return &errorBody{Error: f.Description, Cause: renderFailure(f.Cause)}
}
