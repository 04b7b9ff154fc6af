package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies an AppError so callers can react without string matching.
type Kind string

const (
	KindDevice            Kind = "device"
	KindAnalysis          Kind = "analysis"
	KindCaptureTimeout    Kind = "capture_timeout"
	KindConfiguration     Kind = "configuration"
	KindAuth              Kind = "auth"
	KindUpload            Kind = "upload"
	KindDatabase          Kind = "database"
	KindValidation        Kind = "validation"
	KindInvalidTransition Kind = "invalid_transition"
	KindNotFound          Kind = "not_found"
	KindInternal          Kind = "internal"
)

type AppError struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code int, kind Kind, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// KindOf returns the kind of the outermost AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether any AppError in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Kind == kind {
			return true
		}
		switch x := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				if IsKind(inner, kind) {
					return true
				}
			}
			return false
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		default:
			return false
		}
	}
	return false
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, KindValidation, message, nil)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, KindNotFound, message, nil)
}

func Internal(err error) *AppError {
	return New(http.StatusInternalServerError, KindInternal, "Internal Server Error", err)
}

// Device: camera or microphone unavailable, denied or revoked.
func Device(message string, err error) *AppError {
	return New(http.StatusConflict, KindDevice, message, err)
}

// Analysis: extraction call failed or returned an unusable body.
func Analysis(message string, err error) *AppError {
	return New(http.StatusBadGateway, KindAnalysis, message, err)
}

// CaptureTimeout: the still frame could not be read in time.
func CaptureTimeout(message string, err error) *AppError {
	return New(http.StatusGatewayTimeout, KindCaptureTimeout, message, err)
}

// Configuration: missing or misprovisioned credential or backend resource.
func Configuration(message string, err error) *AppError {
	return New(http.StatusServiceUnavailable, KindConfiguration, message, err)
}

// Auth: a correctly shaped credential was rejected by the remote service.
func Auth(message string, err error) *AppError {
	return New(http.StatusBadGateway, KindAuth, message, err)
}

func Upload(message string, err error) *AppError {
	return New(http.StatusBadGateway, KindUpload, message, err)
}

func Database(message string, err error) *AppError {
	return New(http.StatusBadGateway, KindDatabase, message, err)
}

func Validation(message string, err error) *AppError {
	return New(http.StatusBadRequest, KindValidation, message, err)
}

func InvalidTransition(message string) *AppError {
	return New(http.StatusConflict, KindInvalidTransition, message, nil)
}
