package repository

import (
	"context"
	stderrors "errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"freshkart/internal/domain/repository"
	"freshkart/pkg/errors"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
	typingCollection        = "typing"
	usersCollection         = "users"
	productsCollection      = "products"
)

// storeError maps a Firestore failure onto the application taxonomy.
// Application errors raised inside transaction callbacks pass through.
func storeError(resource, op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch status.Code(err) {
	case codes.NotFound:
		return errors.NotFound(resource, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted, codes.Internal:
		return errors.Transient("Failed to "+op, err)
	case codes.PermissionDenied:
		return errors.Forbidden("Not allowed to "+op, err)
	case codes.Canceled:
		return context.Canceled
	}
	return errors.Internal("Failed to "+op, err)
}

// snapshotStream adapts a Firestore query listener to repository.Stream.
type snapshotStream[T any] struct {
	it       *firestore.QuerySnapshotIterator
	resource string
	decode   func(*firestore.DocumentSnapshot) (T, error)
}

func newSnapshotStream[T any](ctx context.Context, q firestore.Query, resource string, decode func(*firestore.DocumentSnapshot) (T, error)) repository.Stream[[]T] {
	return &snapshotStream[T]{
		it:       q.Snapshots(ctx),
		resource: resource,
		decode:   decode,
	}
}

func (s *snapshotStream[T]) Next() ([]T, error) {
	snap, err := s.it.Next()
	if err != nil {
		return nil, storeError(s.resource, "watch "+s.resource, err)
	}
	docs, err := snap.Documents.GetAll()
	if err != nil {
		return nil, storeError(s.resource, "read "+s.resource+" snapshot", err)
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := s.decode(doc)
		if err != nil {
			return nil, errors.Internal("Failed to parse "+s.resource+" data", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *snapshotStream[T]) Stop() {
	s.it.Stop()
}
