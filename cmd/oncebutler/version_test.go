package main

import "testing"

func TestVersionString(t *testing.T) {
	if got := versionString("1.2.0", ""); got != "1.2.0" {
		t.Fatalf("unexpected version: %q", got)
	}
	if got := versionString("1.2.0", "0123456789abcdef"); got != "1.2.0 (0123456789ab)" {
		t.Fatalf("unexpected version: %q", got)
	}
}
