package datasource

import (
	"context"
	"errors"

	"github.com/yourusername/stock-screener/internal/models"
)

// PriceProvider fetches OHLCV history for one symbol. Returned bars are
// ordered by timestamp and carry no score or level.
type PriceProvider interface {
	// FetchBars retrieves bars for the timeframe's interval and period
	FetchBars(ctx context.Context, symbol string, tf models.Timeframe) ([]models.Bar, error)

	// Name returns the name of the data source
	Name() string
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Unwrap exposes the underlying error, or the sentinel for the code.
func (e DataSourceError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return sentinelForCode(e.Code)
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
	ErrCodeUnknown              = "unknown"
)

// Error constructors
var (
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotFound             = errors.New("data not found")
	ErrInvalidData          = errors.New("invalid data format")
	ErrNetworkError         = errors.New("network error")
	ErrServerError          = errors.New("server error")
	ErrCircuitOpen          = errors.New("circuit breaker open")
)

func sentinelForCode(code string) error {
	switch code {
	case ErrCodeRateLimitExceeded:
		return ErrRateLimitExceeded
	case ErrCodeAuthenticationFailed:
		return ErrAuthenticationFailed
	case ErrCodeNotFound:
		return ErrNotFound
	case ErrCodeInvalidData:
		return ErrInvalidData
	case ErrCodeNetworkError:
		return ErrNetworkError
	case ErrCodeServerError:
		return ErrServerError
	default:
		return nil
	}
}

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
