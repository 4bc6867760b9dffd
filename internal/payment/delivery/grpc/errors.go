package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tair/payment-service/internal/payment/domain"
)

// CodeOf maps a domain error onto a gRPC status code
func CodeOf(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, domain.ErrValidation):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrProcessor):
		return codes.Aborted
	case errors.Is(err, domain.ErrStorageUnavailable):
		return codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// ToStatusError converts a domain error into a gRPC status error
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := CodeOf(err)
	msg := err.Error()
	switch code {
	case codes.Internal:
		msg = "internal error"
	case codes.Unavailable:
		msg = domain.ErrStorageUnavailable.Error()
	}
	return status.Error(code, msg)
}
