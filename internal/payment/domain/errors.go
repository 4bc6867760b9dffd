package domain

import (
	"errors"
	"fmt"
)

// Sentinels matched through errors.Is by the delivery layers
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("payment not found")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrProcessor          = errors.New("payment processor failed")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrCacheMiss is returned by PaymentCache.Lookup when nothing is cached for the id
	ErrCacheMiss = errors.New("cache miss")

	// ErrStatusChanged is returned by PaymentRepository.TransitionStatus when the
	// status precondition no longer holds
	ErrStatusChanged = errors.New("payment status changed concurrently")
)

// ValidationError reports malformed input. It is always raised before storage access.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Value)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an unknown payment id
type NotFoundError struct {
	PaymentID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("payment not found: %s", e.PaymentID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidTransitionError reports an action the state machine does not permit from Current
type InvalidTransitionError struct {
	PaymentID string
	Current   Status
	Action    Action
	// Replay is set when Action is the one that produced Current
	Replay bool
}

func (e *InvalidTransitionError) Error() string {
	subject := "payment"
	if e.PaymentID != "" {
		subject = "payment " + e.PaymentID
	}
	if e.Replay {
		return fmt.Sprintf("cannot %s %s: already %s", e.Action, subject, e.Current)
	}
	return fmt.Sprintf("cannot %s %s in status %s", e.Action, subject, e.Current)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ProcessorError wraps a failed payment processor call
type ProcessorError struct {
	Processor string
	Op        string
	Err       error
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor %s %s failed: %v", e.Processor, e.Op, e.Err)
}

func (e *ProcessorError) Unwrap() error { return e.Err }

func (e *ProcessorError) Is(target error) bool { return target == ErrProcessor }

// StorageUnavailableError wraps any failure of the durable store
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

func (e *StorageUnavailableError) Is(target error) bool { return target == ErrStorageUnavailable }
