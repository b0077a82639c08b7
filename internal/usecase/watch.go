package usecase

import (
	"context"
	stderrors "errors"

	"freshkart/internal/domain/repository"
	"freshkart/pkg/errors"
)

// pump forwards every snapshot of stream to emit until ctx is done, the
// stream fails or emit returns an error. A cancelled ctx is a normal
// release and returns nil.
func pump[T any](ctx context.Context, stream repository.Stream[T], resource string, emit func(T) error) error {
	defer stream.Stop()

	for {
		snapshot, err := stream.Next()
		if err != nil {
			return watchError(ctx, resource, err)
		}
		if err := emit(snapshot); err != nil {
			return err
		}
	}
}

func watchError(ctx context.Context, resource string, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return errors.Transient(resource+" subscription failed", err)
}
