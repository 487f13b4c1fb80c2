package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var codeByError = []struct {
	err  error
	code codes.Code
}{
	{ErrConversationNotFound, codes.NotFound},
	{ErrConversationConflict, codes.AlreadyExists},
	{ErrInvalidParticipants, codes.InvalidArgument},
	{ErrInvalidMessage, codes.InvalidArgument},
	{ErrNotParticipant, codes.PermissionDenied},
	{ErrSlowConsumer, codes.ResourceExhausted},
	{context.DeadlineExceeded, codes.DeadlineExceeded},
	{context.Canceled, codes.Canceled},
}

// MapToGRPCError converts a domain error into a gRPC status error.
// Unknown errors become codes.Internal.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, m := range codeByError {
		if errors.Is(err, m.err) {
			return status.Error(m.code, err.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}

// FromGRPCError is the client-side inverse of MapToGRPCError: the returned
// error matches the domain sentinel with errors.Is and keeps the server text.
func FromGRPCError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var sentinel error
	switch st.Code() {
	case codes.NotFound:
		sentinel = ErrConversationNotFound
	case codes.AlreadyExists:
		sentinel = ErrConversationConflict
	case codes.InvalidArgument:
		sentinel = ErrInvalidMessage
	case codes.PermissionDenied:
		sentinel = ErrNotParticipant
	case codes.ResourceExhausted:
		sentinel = ErrSlowConsumer
	case codes.DeadlineExceeded:
		sentinel = context.DeadlineExceeded
	case codes.Canceled:
		sentinel = context.Canceled
	default:
		return err
	}
	return &remoteError{sentinel: sentinel, status: err}
}

type remoteError struct {
	sentinel error
	status   error
}

func (e *remoteError) Error() string { return e.status.Error() }

func (e *remoteError) Unwrap() []error { return []error{e.sentinel, e.status} }
