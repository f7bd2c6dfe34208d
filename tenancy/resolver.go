package tenancy

import "context"

// SingleTenant is the resolver for single-tenant deployments. Every call
// resolves to the None sentinel and nothing can fail.
type SingleTenant struct{}

var _ Resolver = (*SingleTenant)(nil)

func (SingleTenant) CurrentTenant(ctx context.Context) (ID, error) {
	return None, nil
}

// MultiTenant resolves the tenant bound to the request's API key. No key, an
// unknown key, or a bad secret all fail with ErrAuthenticationRequired;
// there is deliberately no fallback to None.
type MultiTenant struct {
	store *InMemoryStore
}

var _ Resolver = (*MultiTenant)(nil)

// NewMultiTenant creates a resolver backed by the given tenant store.
func NewMultiTenant(store *InMemoryStore) *MultiTenant {
	return &MultiTenant{store: store}
}

func (r *MultiTenant) CurrentTenant(ctx context.Context) (ID, error) {
	key, ok := APIKeyFromContext(ctx)
	if !ok {
		return None, ErrAuthenticationRequired
	}
	tenant, err := r.store.ResolveKey(key)
	if err != nil {
		return None, ErrAuthenticationRequired
	}
	return tenant, nil
}
