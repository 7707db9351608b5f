package secrets

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by resolvers when no secret exists at a path.
var ErrNotFound = errors.New("secret not found")

type Resolver interface {
	Resolve(ctx context.Context, path string) (string, error)
}

// ResolverFunc adapts a function to a Resolver.
type ResolverFunc func(ctx context.Context, path string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}
