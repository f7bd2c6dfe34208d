package tenancy

import (
	"sync"
	"time"
)

// APIKey is a tenant-bound credential. Only the argon2 hash of the secret is
// retained; the full key material is returned once at issue time.
type APIKey struct {
	KeyID      string    `json:"key_id"`
	TenantID   ID        `json:"tenant_id"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// InMemoryStore is a process-local store for tenants and their API keys.
// Intentionally basic: a safe skeleton for multi-tenant deployments that do
// not yet need DB-backed tenant persistence.
type InMemoryStore struct {
	mu      sync.Mutex
	tenants map[ID]Tenant
	keys    map[string]APIKey // keyed by KeyID
}

// NewInMemoryStore creates and initializes a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tenants: make(map[ID]Tenant),
		keys:    make(map[string]APIKey),
	}
}

// CreateTenant registers a new tenant. If ID is empty a random one is generated.
func (s *InMemoryStore) CreateTenant(t Tenant) (Tenant, error) {
	if t.ID == None {
		id, err := randomHex(8)
		if err != nil {
			return Tenant{}, err
		}
		t.ID = ID(id)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
	return t, nil
}

// GetTenant looks a tenant up by id.
func (s *InMemoryStore) GetTenant(id ID) (Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return Tenant{}, ErrTenantNotFound
	}
	return t, nil
}

// ListTenants returns all tenants.
func (s *InMemoryStore) ListTenants() []Tenant {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		res = append(res, t)
	}
	return res
}

// IssueKey creates an API key bound to a tenant and returns the full key
// material ("<keyID>.<secret>"). The secret is stored hashed and cannot be
// recovered later.
func (s *InMemoryStore) IssueKey(tenantID ID) (string, error) {
	s.mu.Lock()
	_, ok := s.tenants[tenantID]
	s.mu.Unlock()
	if !ok {
		return "", ErrTenantNotFound
	}

	keyID, err := randomHex(8)
	if err != nil {
		return "", err
	}
	secret, err := randomHex(16)
	if err != nil {
		return "", err
	}
	hash, err := hashArgon(secret)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[keyID] = APIKey{
		KeyID:      keyID,
		TenantID:   tenantID,
		SecretHash: hash,
		CreatedAt:  time.Now().UTC(),
	}
	return keyID + "." + secret, nil
}

// ResolveKey verifies a full API key and returns the tenant it is bound to.
func (s *InMemoryStore) ResolveKey(key string) (ID, error) {
	keyID, secret, ok := splitKey(key)
	if !ok {
		return None, ErrInvalidKey
	}

	s.mu.Lock()
	rec, found := s.keys[keyID]
	s.mu.Unlock()
	if !found {
		return None, ErrInvalidKey
	}

	match, err := verifyArgonHash(secret, rec.SecretHash)
	if err != nil || !match {
		return None, ErrInvalidKey
	}
	return rec.TenantID, nil
}

// RevokeKey removes an API key.
func (s *InMemoryStore) RevokeKey(keyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, keyID)
}
