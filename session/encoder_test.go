package session

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func sampleSession() *Session {
	s := &Session{
		AccountID:  "acct-1",
		TenantID:   "tenant-1",
		CreatedAt:  1700000000,
		LastSeenAt: 1700000100,
		ExpiresAt:  1700003600,
	}
	for i := range s.PermHash {
		s.PermHash[i] = byte(i)
	}
	for i := range s.DeviceHash {
		s.DeviceHash[i] = byte(255 - i)
	}
	return s
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := sampleSession()

	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if data[0] != sessionFormatVersion {
		t.Fatalf("expected version byte %d, got %d", sessionFormatVersion, data[0])
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	// SessionID travels as the storage key, not inside the blob.
	decoded.SessionID = original.SessionID
	if decoded.AccountID != original.AccountID ||
		decoded.TenantID != original.TenantID ||
		decoded.PermHash != original.PermHash ||
		decoded.DeviceHash != original.DeviceHash ||
		decoded.CreatedAt != original.CreatedAt ||
		decoded.LastSeenAt != original.LastSeenAt ||
		decoded.ExpiresAt != original.ExpiresAt {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, original)
	}
}

func TestEncodeRejectsOversizedIDs(t *testing.T) {
	s := sampleSession()
	s.AccountID = strings.Repeat("a", 256)
	if _, err := Encode(s); err == nil {
		t.Fatal("expected oversized account id rejection")
	}

	s = sampleSession()
	s.TenantID = strings.Repeat("t", 256)
	if _, err := Encode(s); err == nil {
		t.Fatal("expected oversized tenant id rejection")
	}
}

func TestDecodeCorruptBlobs(t *testing.T) {
	valid, err := Encode(sampleSession())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"wrong version", append([]byte{99}, valid[1:]...)},
		{"truncated header", valid[:2]},
		{"truncated hashes", valid[:len(valid)-40]},
		{"truncated timestamps", valid[:len(valid)-3]},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.data); !errors.Is(err, ErrSessionCorrupt) {
				t.Fatalf("expected ErrSessionCorrupt, got %v", err)
			}
		})
	}
}

func TestDecodeIgnoresTrailingBytesStrictPrefix(t *testing.T) {
	valid, err := Encode(sampleSession())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// A blob with trailing garbage still decodes its valid prefix; the
	// fixed-length layout means nothing after the last timestamp is read.
	extended := append(bytes.Clone(valid), 0xDE, 0xAD)
	if _, err := Decode(extended); err != nil {
		t.Fatalf("expected prefix decode to succeed, got %v", err)
	}
}

func TestExpired(t *testing.T) {
	s := sampleSession()
	now := time.Unix(s.ExpiresAt, 0)

	if s.Expired(now) {
		t.Fatal("expiry instant itself is still valid")
	}
	if !s.Expired(now.Add(time.Second)) {
		t.Fatal("expected expired one second past the deadline")
	}
}
