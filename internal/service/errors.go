// ABOUTME: Error taxonomy for vulnerability services.
// ABOUTME: Separates transport failures from general fatal feed failures.

package service

import "errors"

// ServiceError is a fatal failure while auditing a dependency
type ServiceError struct {
	Message string
	Err     error
}

// NewServiceError creates a ServiceError wrapping err, which may be nil
func NewServiceError(message string, err error) *ServiceError {
	return &ServiceError{Message: message, Err: err}
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// ConnectionError is a ServiceError raised when the feed is unreachable or
// misbehaving at the transport level.
type ConnectionError struct {
	Message string
	Err     error
}

// NewConnectionError creates a ConnectionError wrapping err, which may be nil
func NewConnectionError(message string, err error) *ConnectionError {
	return &ConnectionError{Message: message, Err: err}
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// As lets errors.As match a ConnectionError against *ServiceError.
func (e *ConnectionError) As(target any) bool {
	if t, ok := target.(**ServiceError); ok {
		*t = &ServiceError{Message: e.Message, Err: e.Err}
		return true
	}
	return false
}

// IsServiceError reports whether err is a ServiceError or ConnectionError
func IsServiceError(err error) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr)
}

// IsConnectionError reports whether err is a ConnectionError
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}
