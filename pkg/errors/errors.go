package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeValidation represents malformed or empty input URLs
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeUnsupportedPlatform represents URLs whose domain matches no known platform
	ErrorTypeUnsupportedPlatform ErrorType = "unsupported_platform"
	// ErrorTypeRedirect represents redirect-following failures (degraded, not fatal)
	ErrorTypeRedirect ErrorType = "redirect"
	// ErrorTypeFetch represents transport failures or exhausted retries
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeInvalidPage represents 200 responses whose body is not a product page
	ErrorTypeInvalidPage ErrorType = "invalid_page"
	// ErrorTypeExtraction represents documents from which no title could be derived
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeTimeout represents per-request timeouts
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeRateLimit represents upstream 429/503 throttling
	ErrorTypeRateLimit ErrorType = "rate_limit"
)

// ResolveError represents a typed failure in the resolve/fetch/extract pipeline.
// Pipeline stages return it instead of raising; callers inspect Type to
// degrade gracefully.
type ResolveError struct {
	Type     ErrorType
	Platform string
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *ResolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Platform, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Platform, e.Message)
}

// Unwrap returns the underlying error
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is worth retrying
func (e *ResolveError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeFetch, ErrorTypeTimeout, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// New creates a new ResolveError
func New(errType ErrorType, platform, message string, err error) *ResolveError {
	return &ResolveError{
		Type:     errType,
		Platform: platform,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewValidation creates a new validation error
func NewValidation(message string) *ResolveError {
	return New(ErrorTypeValidation, "", message, nil)
}

// NewUnsupportedPlatform creates a new unsupported platform error
func NewUnsupportedPlatform(url string) *ResolveError {
	return New(ErrorTypeUnsupportedPlatform, "", fmt.Sprintf("no platform recognizes %s", url), nil)
}

// NewRedirect creates a new redirect error
func NewRedirect(platform, message string, err error) *ResolveError {
	return New(ErrorTypeRedirect, platform, message, err)
}

// NewFetch creates a new fetch error
func NewFetch(platform, message string, err error) *ResolveError {
	return New(ErrorTypeFetch, platform, message, err)
}

// NewInvalidPage creates a new invalid page error
func NewInvalidPage(platform, message string) *ResolveError {
	return New(ErrorTypeInvalidPage, platform, message, nil)
}

// NewExtraction creates a new extraction error
func NewExtraction(platform, message string) *ResolveError {
	return New(ErrorTypeExtraction, platform, message, nil)
}

// NewTimeout creates a new timeout error
func NewTimeout(platform, message string, err error) *ResolveError {
	return New(ErrorTypeTimeout, platform, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(platform string, retryAfter string) *ResolveError {
	message := "rate limited"
	if retryAfter != "" {
		message = fmt.Sprintf("rate limited; retry after %s", retryAfter)
	}
	return New(ErrorTypeRateLimit, platform, message, nil)
}

// AsResolveError extracts a ResolveError from an error chain, wrapping
// unknown errors as fetch errors so callers always see a typed failure.
func AsResolveError(err error) *ResolveError {
	if err == nil {
		return nil
	}
	var re *ResolveError
	if errors.As(err, &re) {
		return re
	}
	return NewFetch("", err.Error(), err)
}
