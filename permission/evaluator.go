package permission

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownOperation is returned for operations absent from the registry.
	ErrUnknownOperation = errors.New("operation not registered")
	// ErrDenied is returned when the grant holds none of the accepted pairs.
	ErrDenied = errors.New("permission denied")
	// ErrGrantUnavailable wraps failures of the GrantLoader.
	ErrGrantUnavailable = errors.New("grant unavailable")
)

// GrantLoader reads the current grant of an account. Implementations must
// return an empty Grant, not an error, for accounts without a role.
type GrantLoader interface {
	LoadGrant(ctx context.Context, accountID string) (Grant, error)
}

// GrantLoaderFunc adapts a function to GrantLoader.
type GrantLoaderFunc func(ctx context.Context, accountID string) (Grant, error)

// LoadGrant calls f.
func (f GrantLoaderFunc) LoadGrant(ctx context.Context, accountID string) (Grant, error) {
	return f(ctx, accountID)
}

// Evaluator decides whether an account may invoke a registered operation.
type Evaluator struct {
	registry *Registry
	loader   GrantLoader
}

// NewEvaluator binds a frozen registry to a grant loader.
func NewEvaluator(registry *Registry, loader GrantLoader) (*Evaluator, error) {
	if registry == nil {
		return nil, errors.New("registry is nil")
	}
	if !registry.Frozen() {
		return nil, errors.New("registry must be frozen before evaluation")
	}
	if loader == nil {
		return nil, errors.New("grant loader is nil")
	}
	return &Evaluator{registry: registry, loader: loader}, nil
}

// Evaluate returns nil when accountID may invoke operation. The returned
// Grant is the one the decision was made on; it is empty for open
// operations, which are decided without a read.
func (e *Evaluator) Evaluate(ctx context.Context, accountID, operation string) (Grant, error) {
	req, ok := e.registry.Lookup(operation)
	if !ok {
		return Grant{}, fmt.Errorf("%w: %s", ErrUnknownOperation, operation)
	}
	if req.Open() {
		return Grant{}, nil
	}

	grant, err := e.loader.LoadGrant(ctx, accountID)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %v", ErrGrantUnavailable, err)
	}
	if !req.Allows(grant) {
		return grant, fmt.Errorf("%w: %s", ErrDenied, operation)
	}
	return grant, nil
}

// Registry returns the registry the evaluator reads.
func (e *Evaluator) Registry() *Registry {
	return e.registry
}
