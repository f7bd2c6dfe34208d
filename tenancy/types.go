// Package tenancy resolves the acting tenant for every store call.
//
// Single-tenant deployments resolve to the None sentinel and no row is ever
// tenant-filtered. Multi-tenant deployments must resolve an authenticated
// tenant for every request or fail fast; silently falling back to None would
// leak devices across tenants.
package tenancy

import (
	"context"
	"time"
)

// ID identifies a tenant. The empty value is the single-tenant sentinel.
type ID string

// None is the tenant id used by single-tenant deployments.
const None ID = ""

func (id ID) String() string { return string(id) }

// Tenant represents an isolated customer account.
type Tenant struct {
	ID          ID        `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Resolver resolves the acting tenant identity for a request.
type Resolver interface {
	CurrentTenant(ctx context.Context) (ID, error)
}

// Errors
var (
	ErrAuthenticationRequired = &Error{"authentication required: no resolvable tenant"}
	ErrTenantNotFound         = &Error{"tenant not found"}
	ErrInvalidKey             = &Error{"invalid api key"}
)

// Error is a simple sentinel error type
type Error struct{ msg string }

func (e *Error) Error() string { return e.msg }

type contextKey int

const apiKeyContextKey contextKey = iota

// WithAPIKey attaches a request's bearer API key to the context.
func WithAPIKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, apiKeyContextKey, key)
}

// APIKeyFromContext extracts the bearer API key, if any.
func APIKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(apiKeyContextKey).(string)
	return key, ok && key != ""
}
