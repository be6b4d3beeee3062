package errs

import (
	"errors"
	"fmt"
)

// FriendlyError carries a message that is safe to show to API callers.
type FriendlyError struct {
	Message string
}

func (e *FriendlyError) Error() string {
	return e.Message
}

func Friendly(format string, args ...interface{}) *FriendlyError {
	return &FriendlyError{Message: fmt.Sprintf(format, args...)}
}

// IsFriendly reports whether err or any wrapped error is user-facing.
func IsFriendly(err error) bool {
	var fe *FriendlyError
	var nf *NotFoundError
	return errors.As(err, &fe) || errors.As(err, &nf)
}

// NotFoundError signals a lookup miss for a resource the caller named.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

func NotFound(resource, key string) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: key}
}

// QueryError wraps an upstream indexed-data query failure. The underlying
// message is kept for logs but must not be shown verbatim to API callers.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("upstream query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func Query(err error) *QueryError {
	return &QueryError{Err: err}
}

// ConfigurationError signals an invalid or ambiguous vault configuration,
// e.g. zero or multiple matches where exactly one was required.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

func Configuration(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// ConservationError signals an exact-integer conservation mismatch during
// pooled position unrolling. It is fatal and never auto-corrected.
type ConservationError struct {
	Message string
}

func (e *ConservationError) Error() string {
	return e.Message
}

func Conservation(format string, args ...interface{}) *ConservationError {
	return &ConservationError{Message: fmt.Sprintf(format, args...)}
}

// UnknownTokenError signals a token whose decimals cannot be resolved.
type UnknownTokenError struct {
	Chain string
	Token string
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("unknown token %s on chain %s", e.Token, e.Chain)
}

func UnknownToken(chain, token string) *UnknownTokenError {
	return &UnknownTokenError{Chain: chain, Token: token}
}

// PriceNotFoundError signals that no price exists within the lookback window.
type PriceNotFoundError struct {
	OracleID  string
	Timestamp uint64
}

func (e *PriceNotFoundError) Error() string {
	return fmt.Sprintf("no price found for %s at %d", e.OracleID, e.Timestamp)
}

func PriceNotFound(oracleID string, timestamp uint64) *PriceNotFoundError {
	return &PriceNotFoundError{OracleID: oracleID, Timestamp: timestamp}
}
