package connector

import (
	"testing"

	"warrantywatch/storage"
)

func TestCredentialsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		creds   Credentials
		wantErr bool
	}{
		{"zero value passes", Credentials{}, false},
		{"explicit none passes", Credentials{Kind: CredentialNone}, false},
		{"api key present", Credentials{Kind: CredentialAPIKey, APIKey: "k"}, false},
		{"api key missing", Credentials{Kind: CredentialAPIKey}, true},
		{"client pair complete", Credentials{Kind: CredentialClientPair, ClientID: "id", ClientSecret: "s"}, false},
		{"client pair missing secret", Credentials{Kind: CredentialClientPair, ClientID: "id"}, true},
		{"basic complete", Credentials{Kind: CredentialBasic, Username: "u", Password: "p"}, false},
		{"basic missing password", Credentials{Kind: CredentialBasic, Username: "u"}, true},
		{"unknown kind", Credentials{Kind: "kerberos"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.creds.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCredentialSetLookup(t *testing.T) {
	t.Parallel()

	set := CredentialSet{
		Manufacturers: map[storage.Manufacturer]Credentials{
			storage.ManufacturerDell: {Kind: CredentialClientPair, ClientID: "id", ClientSecret: "s"},
			storage.ManufacturerHP:   {Kind: CredentialAPIKey}, // malformed
		},
	}

	if _, err := set.ForManufacturer(storage.ManufacturerDell); err != nil {
		t.Errorf("valid credentials rejected: %v", err)
	}
	if _, err := set.ForManufacturer(storage.ManufacturerHP); err == nil {
		t.Error("malformed credentials must be rejected before dispatch")
	}
	// Absent entries resolve to the zero credential for demo connectors.
	if creds, err := set.ForManufacturer(storage.ManufacturerLenovo); err != nil || !creds.IsZero() {
		t.Errorf("missing entry should yield zero credentials, got %+v err %v", creds, err)
	}
}
