package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseParamPairs(t *testing.T) {
	params, err := parseParamPairs([]string{"guild=g1", "min = 60", "ratio=0.5", "id='42'", ""})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[string]any{
		"guild": "g1",
		"min":   int64(60),
		"ratio": 0.5,
		"id":    "42",
	}
	if diff := cmp.Diff(want, params); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestParseParamPairs_Invalid(t *testing.T) {
	for _, pair := range []string{"novalue", "=value"} {
		if _, err := parseParamPairs([]string{pair}); err == nil {
			t.Fatalf("expected error for %q", pair)
		}
	}
}
