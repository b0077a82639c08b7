package repository

// Stream is a live query. Next blocks until the next full snapshot is
// available; the first call returns the current state. Stop releases the
// underlying listener and must be called exactly once by the owner.
type Stream[T any] interface {
	Next() (T, error)
	Stop()
}
