package api

import (
	"context"
	"errors"

	"github.com/solatis/rulebuilder/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error mapping:
//   - unknown session or draft      NOT_FOUND
//   - bad path, edit or value input INVALID_ARGUMENT
//   - session limit                 RESOURCE_EXHAUSTED
//   - remote rule service or db     UNAVAILABLE
//   - context timeouts              DEADLINE_EXCEEDED
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, types.ErrSessionNotFound), errors.Is(err, types.ErrDraftNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, types.ErrInvalidPath),
		errors.Is(err, types.ErrIndexOutOfRange),
		errors.Is(err, types.ErrInvalidCombinator),
		errors.Is(err, types.ErrUnknownProperty),
		errors.Is(err, types.ErrInvalidOperator),
		errors.Is(err, types.ErrCoercionFailed),
		errors.Is(err, types.ErrUnknownEdit),
		errors.Is(err, types.ErrInvalidTree):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, types.ErrTooManySessions):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, types.ErrRemoteUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}

// invalid builds an INVALID_ARGUMENT error for malformed requests.
func invalid(format string, args ...any) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}
