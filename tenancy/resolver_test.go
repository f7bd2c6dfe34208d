package tenancy

import (
	"context"
	"errors"
	"testing"
)

func TestSingleTenantResolvesNone(t *testing.T) {
	t.Parallel()

	id, err := SingleTenant{}.CurrentTenant(context.Background())
	if err != nil {
		t.Fatalf("single-tenant resolution must never fail: %v", err)
	}
	if id != None {
		t.Errorf("expected the None sentinel, got %q", id)
	}
}

func TestMultiTenantResolvesKeyToTenant(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	tenant, err := store.CreateTenant(Tenant{Name: "Acme MSP"})
	if err != nil {
		t.Fatalf("CreateTenant failed: %v", err)
	}
	key, err := store.IssueKey(tenant.ID)
	if err != nil {
		t.Fatalf("IssueKey failed: %v", err)
	}

	resolver := NewMultiTenant(store)
	ctx := WithAPIKey(context.Background(), key)

	got, err := resolver.CurrentTenant(ctx)
	if err != nil {
		t.Fatalf("CurrentTenant failed: %v", err)
	}
	if got != tenant.ID {
		t.Errorf("resolved wrong tenant: got %q want %q", got, tenant.ID)
	}
}

func TestMultiTenantNeverFallsBackToNone(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	tenant, _ := store.CreateTenant(Tenant{Name: "Acme MSP"})
	key, _ := store.IssueKey(tenant.ID)
	resolver := NewMultiTenant(store)

	tests := []struct {
		name string
		ctx  context.Context
	}{
		{"no key at all", context.Background()},
		{"malformed key", WithAPIKey(context.Background(), "not-a-key")},
		{"unknown key id", WithAPIKey(context.Background(), "deadbeef.cafe")},
		{"wrong secret", WithAPIKey(context.Background(), keyIDOf(key)+".0000000000000000")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := resolver.CurrentTenant(tt.ctx)
			if !errors.Is(err, ErrAuthenticationRequired) {
				t.Errorf("want ErrAuthenticationRequired, got %v", err)
			}
			if id != None {
				t.Errorf("failed resolution must return the zero id, got %q", id)
			}
		})
	}
}

func keyIDOf(key string) string {
	id, _, _ := splitKey(key)
	return id
}

func TestIssueKeyUnknownTenant(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	if _, err := store.IssueKey("ghost"); !errors.Is(err, ErrTenantNotFound) {
		t.Errorf("want ErrTenantNotFound, got %v", err)
	}
}

func TestRevokedKeyStopsResolving(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	tenant, _ := store.CreateTenant(Tenant{Name: "Acme MSP"})
	key, _ := store.IssueKey(tenant.ID)

	if _, err := store.ResolveKey(key); err != nil {
		t.Fatalf("fresh key must resolve: %v", err)
	}

	store.RevokeKey(keyIDOf(key))
	if _, err := store.ResolveKey(key); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("revoked key must not resolve, got %v", err)
	}
}
