package node

import (
	"strings"
	"testing"
)

func TestBuildEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		network string
		host    string
		key     string
		want    string
	}{
		{"plain", "mainnet", "infura.io/ws/v3", "abc123", "wss://mainnet.infura.io/ws/v3/abc123"},
		{"trailing slash", "sepolia", "infura.io/ws/v3/", "abc123", "wss://sepolia.infura.io/ws/v3/abc123"},
		{"many trailing slashes", "sepolia", "infura.io/ws/v3///", "k", "wss://sepolia.infura.io/ws/v3/k"},
		{"scheme on host", "eth-sepolia", "wss://g.alchemy.com/v2", "k", "wss://eth-sepolia.g.alchemy.com/v2/k"},
		{"whitespace", " mainnet ", " infura.io/ws/v3 ", " k ", "wss://mainnet.infura.io/ws/v3/k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildEndpoint(tt.network, tt.host, tt.key)
			if err != nil {
				t.Fatalf("BuildEndpoint failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("BuildEndpoint = %s, want %s", got, tt.want)
			}
			if strings.Contains(strings.TrimPrefix(got, "wss://"), "//") {
				t.Errorf("BuildEndpoint = %s has a doubled separator", got)
			}
		})
	}
}

func TestBuildEndpointErrors(t *testing.T) {
	tests := []struct {
		name    string
		network string
		host    string
		key     string
	}{
		{"empty network", "", "infura.io", "k"},
		{"empty host", "mainnet", "", "k"},
		{"slash-only host", "mainnet", "///", "k"},
		{"empty key", "mainnet", "infura.io", ""},
		{"network with slash", "main/net", "infura.io", "k"},
		{"key with slash", "mainnet", "infura.io", "a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildEndpoint(tt.network, tt.host, tt.key); err == nil {
				t.Error("BuildEndpoint should fail")
			}
		})
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"wss://mainnet.infura.io/ws/v3/secretkey", "wss://mainnet.infura.io/***"},
		{"ws://127.0.0.1:8546", "ws://127.0.0.1:8546"},
		{"::not a url", "<invalid endpoint>"},
	}

	for _, tt := range tests {
		if got := Redact(tt.in); got != tt.want {
			t.Errorf("Redact(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if strings.Contains(Redact(tt.in), "secretkey") {
			t.Errorf("Redact(%q) leaked the key", tt.in)
		}
	}
}
