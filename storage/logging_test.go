package storage

import "testing"

func TestFormatKeyValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kv   []interface{}
		want string
	}{
		{"empty", nil, ""},
		{"one pair", []interface{}{"serial", "DL123"}, " serial=DL123"},
		{"two pairs", []interface{}{"serial", "DL123", "id", 7}, " serial=DL123 id=7"},
		{"odd length", []interface{}{"serial"}, " serial=<missing>"},
		{"non-string key keeps its value", []interface{}{42, "DL123"}, " 42=DL123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := formatKeyValues(tt.kv...); got != tt.want {
				t.Errorf("formatKeyValues(%v) = %q, want %q", tt.kv, got, tt.want)
			}
		})
	}
}
