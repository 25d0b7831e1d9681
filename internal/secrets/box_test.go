package secrets

import (
	"bytes"
	"testing"
)

func TestBox_RoundTrip(t *testing.T) {
	box, err := NewBox("test-passphrase")
	if err != nil {
		t.Fatalf("new box: %v", err)
	}

	cases := []string{
		"",
		"plain ascii secret",
		"Ünïcødé 寿司 🍣",
		string(bytes.Repeat([]byte("x"), 4096)),
	}
	for _, plaintext := range cases {
		sealed, err := box.EncryptString(plaintext)
		if err != nil {
			t.Fatalf("encrypt %q: %v", plaintext, err)
		}
		got, err := box.DecryptString(sealed)
		if err != nil {
			t.Fatalf("decrypt %q: %v", plaintext, err)
		}
		if got != plaintext {
			t.Fatalf("round trip mismatch: got %q want %q", got, plaintext)
		}
	}
}

func TestBox_EncryptIsNonDeterministic(t *testing.T) {
	box, _ := NewBox("test-passphrase")
	a, err := box.EncryptString("same input")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	b, err := box.EncryptString("same input")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("expected distinct ciphertexts for repeated encryption")
	}
}

func TestBox_WrongKeyFails(t *testing.T) {
	box, _ := NewBox("key-one")
	other, _ := NewBox("key-two")

	sealed, err := box.EncryptString("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := other.DecryptString(sealed); err == nil {
		t.Fatalf("expected decryption with wrong key to fail")
	}
}

func TestBox_MalformedCiphertextFails(t *testing.T) {
	box, _ := NewBox("key")

	if _, err := box.Decrypt([]byte("too short")); err == nil {
		t.Fatalf("expected error for truncated payload")
	}

	sealed, err := box.EncryptString("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff
	if _, err := box.Decrypt(sealed); err == nil {
		t.Fatalf("expected error for tampered payload")
	}
}

func TestBox_EmptyPassphraseRejected(t *testing.T) {
	if _, err := NewBox(""); err == nil {
		t.Fatalf("expected error for empty passphrase")
	}
}
