package storage

import (
	"context"
	"errors"
	"fmt"
)

// KeyFunc derives one candidate storage key from a request subject.
type KeyFunc[T any] func(T) string

// Resolve tries each layout in order and returns the first object found
// together with the key it was found under. Only ErrObjectNotFound moves
// on to the next layout; any other error is returned immediately. When
// every layout misses the result wraps ErrObjectNotFound.
func Resolve[T any](ctx context.Context, s Storage, subject T, layouts ...KeyFunc[T]) (*Object, string, error) {
	tried := make([]string, 0, len(layouts))
	for _, layout := range layouts {
		key := layout(subject)
		obj, err := s.GetObject(ctx, key)
		if err == nil {
			return obj, key, nil
		}
		if !errors.Is(err, ErrObjectNotFound) {
			return nil, key, err
		}
		tried = append(tried, key)
	}
	return nil, "", fmt.Errorf("no object under %q: %w", tried, ErrObjectNotFound)
}
