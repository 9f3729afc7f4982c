package sqlite

import "testing"

func TestParseDSN(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		memory   bool
		wantErr  bool
	}{
		{name: "memory", input: "sqlite://:memory:", expected: ":memory:", memory: true},
		{name: "absolute path", input: "sqlite:///var/lib/oncebutler.db", expected: "/var/lib/oncebutler.db"},
		{name: "relative path", input: "sqlite://data/oncebutler.db", expected: "./data/oncebutler.db"},
		{name: "dot relative path", input: "sqlite://./oncebutler.db", expected: "./oncebutler.db"},
		{name: "query string kept", input: "sqlite://oncebutler.db?_pragma=foo", expected: "./oncebutler.db?_pragma=foo"},
		{name: "escaped path", input: "sqlite://my%20bot.db", expected: "./my bot.db"},
		{name: "wrong scheme", input: "postgres://localhost/db", wantErr: true},
		{name: "empty path", input: "sqlite://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, memory, err := parseDSN(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseDSN(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDSN(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.expected || memory != tt.memory {
				t.Errorf("parseDSN(%q) = %q, %v; want %q, %v", tt.input, got, memory, tt.expected, tt.memory)
			}
		})
	}
}
