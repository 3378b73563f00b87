package internal

import (
	"strings"
	"testing"
)

func TestSessionIDRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID failed: %v", err)
	}

	encoded := sid.String()
	if len(encoded) != 22 {
		t.Fatalf("expected 22-char encoding of 16 bytes, got %d: %q", len(encoded), encoded)
	}
	if strings.ContainsAny(encoded, "+/=") {
		t.Fatalf("expected url-safe unpadded encoding, got %q", encoded)
	}

	parsed, err := ParseSessionID(encoded)
	if err != nil {
		t.Fatalf("ParseSessionID failed: %v", err)
	}
	if parsed != sid {
		t.Fatal("round trip mismatch")
	}
}

func TestParseSessionIDRejectsBadInput(t *testing.T) {
	for _, input := range []string{"", "short", strings.Repeat("A", 43), "%%%"} {
		if _, err := ParseSessionID(input); err == nil {
			t.Fatalf("expected rejection of %q", input)
		}
	}
}

func TestSessionIDsUnique(t *testing.T) {
	seen := make(map[SessionID]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		sid, err := NewSessionID()
		if err != nil {
			t.Fatalf("NewSessionID failed: %v", err)
		}
		if _, dup := seen[sid]; dup {
			t.Fatal("duplicate session id")
		}
		seen[sid] = struct{}{}
	}
}

func TestRefreshSecretRoundTrip(t *testing.T) {
	secret, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}

	encoded := EncodeRefreshSecret(secret)
	if len(encoded) != 43 {
		t.Fatalf("expected 43-char encoding of 32 bytes, got %d", len(encoded))
	}

	decoded, err := DecodeRefreshSecret(encoded)
	if err != nil {
		t.Fatalf("DecodeRefreshSecret failed: %v", err)
	}
	if decoded != secret {
		t.Fatal("round trip mismatch")
	}
}

func TestDecodeRefreshSecretRejectsWrongSize(t *testing.T) {
	if _, err := DecodeRefreshSecret(strings.Repeat("A", 22)); err == nil {
		t.Fatal("expected size rejection")
	}
}

func TestHashRefreshSecretStable(t *testing.T) {
	secret, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}

	if HashRefreshSecret(secret) != HashRefreshSecret(secret) {
		t.Fatal("expected deterministic digest")
	}

	other, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}
	if HashRefreshSecret(secret) == HashRefreshSecret(other) {
		t.Fatal("expected distinct digests for distinct secrets")
	}
}
