/**
 * Custom error types for the OCR worker.
 *
 * Every failure mode in the recognition/export pipeline maps to one
 * ErrorCode so callers can branch on behavior (retry, fall back, abort)
 * instead of string matching.
 */

package errors

import (
	"fmt"
	"time"
)

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Transient provider errors (retried inside the engine adapter)
	ErrorRateLimited       ErrorCode = "RATE_LIMITED"
	ErrorCredentialExpired ErrorCode = "CREDENTIAL_EXPIRED"

	// Permanent provider errors (trigger engine fallback when enabled)
	ErrorProviderFailed ErrorCode = "PROVIDER_FAILED"

	// Local engine errors (terminal, non-retryable)
	ErrorEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrorImageDecode       ErrorCode = "IMAGE_DECODE_FAILED"

	// Export errors
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrorRenderFailed      ErrorCode = "RENDER_FAILED"
	ErrorStorageFailed     ErrorCode = "STORAGE_FAILED"
)

// OCRError represents a structured recognition or export error
type OCRError struct {
	Code      ErrorCode
	Message   string
	Engine    string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *OCRError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *OCRError) Unwrap() error {
	return e.Cause
}

// Transient reports whether the error is retried automatically by the
// engine adapter rather than surfaced to the manager.
func (e *OCRError) Transient() bool {
	return e.Code == ErrorRateLimited || e.Code == ErrorCredentialExpired
}

// Factory functions for common errors

func NewRateLimitedError(engine string, providerCode int, msg string) *OCRError {
	return &OCRError{
		Code:      ErrorRateLimited,
		Message:   fmt.Sprintf("provider rate limit: %s", msg),
		Engine:    engine,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"provider_code": providerCode,
		},
	}
}

func NewCredentialExpiredError(engine string, providerCode int) *OCRError {
	return &OCRError{
		Code:      ErrorCredentialExpired,
		Message:   "provider credential expired",
		Engine:    engine,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"provider_code": providerCode,
		},
	}
}

func NewProviderError(engine string, providerCode int, msg string) *OCRError {
	return &OCRError{
		Code:      ErrorProviderFailed,
		Message:   msg,
		Engine:    engine,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"provider_code": providerCode,
		},
	}
}

func NewEngineUnavailableError(engine string, cause error) *OCRError {
	return &OCRError{
		Code:      ErrorEngineUnavailable,
		Message:   fmt.Sprintf("engine %s is not available", engine),
		Engine:    engine,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewImageDecodeError(path string, cause error) *OCRError {
	return &OCRError{
		Code:      ErrorImageDecode,
		Message:   fmt.Sprintf("cannot decode image: %s", path),
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewUnsupportedFormatError(format string) *OCRError {
	return &OCRError{
		Code:      ErrorUnsupportedFormat,
		Message:   fmt.Sprintf("unsupported export format: %s", format),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"format": format,
		},
	}
}

func NewRenderError(format string, cause error) *OCRError {
	return &OCRError{
		Code:      ErrorRenderFailed,
		Message:   fmt.Sprintf("failed to render %s artifact", format),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"format": format,
		},
		Cause: cause,
	}
}

func NewStorageFailedError(cause error) *OCRError {
	return &OCRError{
		Code:      ErrorStorageFailed,
		Message:   "failed to store result",
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// ToMap converts the error to a map for structured persistence
func (e *OCRError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	if e.Engine != "" {
		result["engine"] = e.Engine
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
