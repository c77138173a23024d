package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeFetch represents network-level fetch errors
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeStorage represents persistence errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeSink represents calendar sink errors
	ErrorTypeSink ErrorType = "sink"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScrapeError represents a pipeline-specific error
type ScrapeError struct {
	Type    ErrorType
	Message string
	// Status carries an HTTP-like status code where applicable (0 otherwise)
	Status  int
	Timeout bool
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("[%s] %s (status %d): %v", e.Type, e.Message, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("[%s] %s (status %d)", e.Type, e.Message, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	default:
		return fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *ScrapeError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeFetch:
		return true
	case ErrorTypeSink:
		return e.Status == http.StatusTooManyRequests || e.Status >= 500
	default:
		return false
	}
}

// New creates a new ScrapeError
func New(errType ErrorType, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:    errType,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewFetch creates a new fetch error carrying an HTTP status code
func NewFetch(message string, status int, err error) *ScrapeError {
	e := New(ErrorTypeFetch, message, err)
	e.Status = status
	return e
}

// NewTimeout creates a fetch error for an exceeded deadline
func NewTimeout(message string, err error) *ScrapeError {
	e := NewFetch(message, http.StatusRequestTimeout, err)
	e.Timeout = true
	return e
}

// NewParsing creates a new parsing error
func NewParsing(message string, err error) *ScrapeError {
	return New(ErrorTypeParsing, message, err)
}

// NewValidation creates a new validation error
func NewValidation(message string) *ScrapeError {
	return New(ErrorTypeValidation, message, nil)
}

// NewStorage creates a new storage error
func NewStorage(message string, err error) *ScrapeError {
	return New(ErrorTypeStorage, message, err)
}

// NewSink creates a new sink error carrying an HTTP status code
func NewSink(message string, status int, err error) *ScrapeError {
	e := New(ErrorTypeSink, message, err)
	e.Status = status
	return e
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, message, err)
}

// IsTimeout reports whether err is a timeout fetch error
func IsTimeout(err error) bool {
	var se *ScrapeError
	return errors.As(err, &se) && se.Timeout
}

// TypeOf returns the error type of err, or "" for foreign errors
func TypeOf(err error) ErrorType {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Type
	}
	return ""
}
