package connector

import (
	"fmt"

	"warrantywatch/storage"
)

// CredentialKind tags the shape of a credential payload. Every connector
// declares the kinds it accepts and payloads are validated before dispatch,
// so an unsupported or malformed credential is a typed error instead of a
// nil access at call time.
type CredentialKind string

const (
	// CredentialNone means no credential is configured. Connectors running
	// in demo mode accept it; real connectors reject it.
	CredentialNone CredentialKind = "none"

	// CredentialAPIKey is a single opaque API key or token.
	CredentialAPIKey CredentialKind = "api_key"

	// CredentialClientPair is an OAuth-style client id/secret pair.
	CredentialClientPair CredentialKind = "client_pair"

	// CredentialBasic is a username/password pair.
	CredentialBasic CredentialKind = "basic"
)

// Credentials is the tagged credential variant passed to connectors.
// Only the fields for the tagged kind are meaningful.
type Credentials struct {
	Kind CredentialKind `json:"kind" toml:"kind"`

	APIKey string `json:"api_key,omitempty" toml:"api_key"`

	ClientID     string `json:"client_id,omitempty" toml:"client_id"`
	ClientSecret string `json:"client_secret,omitempty" toml:"client_secret"`

	Username string `json:"username,omitempty" toml:"username"`
	Password string `json:"password,omitempty" toml:"password"`

	// Endpoint optionally overrides the connector's default API base URL.
	Endpoint string `json:"endpoint,omitempty" toml:"endpoint"`
}

// Validate checks that the payload matches its declared kind.
func (c Credentials) Validate() error {
	switch c.Kind {
	case "", CredentialNone:
		return nil
	case CredentialAPIKey:
		if c.APIKey == "" {
			return fmt.Errorf("api_key credential: key is empty")
		}
		return nil
	case CredentialClientPair:
		if c.ClientID == "" || c.ClientSecret == "" {
			return fmt.Errorf("client_pair credential: client id and secret are both required")
		}
		return nil
	case CredentialBasic:
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf("basic credential: username and password are both required")
		}
		return nil
	default:
		return fmt.Errorf("unsupported credential kind %q", c.Kind)
	}
}

// IsZero reports whether no credential material is present at all.
func (c Credentials) IsZero() bool {
	return (c.Kind == "" || c.Kind == CredentialNone) &&
		c.APIKey == "" && c.ClientID == "" && c.ClientSecret == "" &&
		c.Username == "" && c.Password == ""
}

// CredentialSet carries the per-manufacturer and per-platform credentials a
// sync run operates with.
type CredentialSet struct {
	Manufacturers map[storage.Manufacturer]Credentials `json:"manufacturers,omitempty" toml:"manufacturers"`
	Platforms     map[storage.Platform]Credentials     `json:"platforms,omitempty" toml:"platforms"`
}

// ForManufacturer returns the validated credentials for a manufacturer.
// A missing entry yields the zero credential, which demo connectors accept.
func (s CredentialSet) ForManufacturer(m storage.Manufacturer) (Credentials, error) {
	creds := s.Manufacturers[m]
	if err := creds.Validate(); err != nil {
		return Credentials{}, fmt.Errorf("credentials for manufacturer %s: %w", m, err)
	}
	return creds, nil
}

// ForPlatform returns the validated credentials for a platform.
func (s CredentialSet) ForPlatform(p storage.Platform) (Credentials, error) {
	creds := s.Platforms[p]
	if err := creds.Validate(); err != nil {
		return Credentials{}, fmt.Errorf("credentials for platform %s: %w", p, err)
	}
	return creds, nil
}
