package models

import "fmt"

// Error codes used in structured output and internal error handling.
const (
	// ErrCodeInvalidInput means the target URL is malformed or uses an
	// unsupported scheme. Fatal: no strategy is attempted.
	ErrCodeInvalidInput = "INVALID_INPUT"

	// ErrCodeHTTP covers network errors and non-2xx responses from the
	// HTTP strategies. Local: the cascade falls through.
	ErrCodeHTTP = "HTTP_ERROR"

	// ErrCodeStrategyUnavailable means the strategy's backend (a browser
	// binary) is missing on this system. Local: the cascade falls through.
	ErrCodeStrategyUnavailable = "STRATEGY_UNAVAILABLE"

	// ErrCodeStrategy is an unexpected internal fault inside a strategy,
	// including recovered panics. Local: the cascade falls through.
	ErrCodeStrategy = "STRATEGY_ERROR"

	// ErrCodeAllFailed is the terminal error when every strategy failed.
	ErrCodeAllFailed = "ALL_STRATEGIES_FAILED"
)

// ErrorDetail is the structured error in JSON output.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an output-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
