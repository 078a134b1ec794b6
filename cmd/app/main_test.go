package main

import (
	"strings"
	"testing"
)

func TestParseCoins(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"both", ""},
		{"BOTH", ""},
		{"bitcoin", "bitcoin"},
		{"bitcoin, solana,bitcoin", "bitcoin,solana"},
	}
	for _, tt := range tests {
		if got := strings.Join(parseCoins(tt.in), ","); got != tt.want {
			t.Errorf("parseCoins(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
