package utils

import (
	"encoding/base64"
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestFieldCipherRoundTrip(t *testing.T) {
	cipher, err := NewFieldCipher(testKey)
	if err != nil {
		t.Fatal(err)
	}

	for _, plain := range []string{"4242424242424242", "a", ""} {
		encrypted, err := cipher.Encrypt(plain)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plain, err)
		}
		if encrypted == plain && plain != "" {
			t.Fatalf("ciphertext equals plaintext for %q", plain)
		}
		decrypted, err := cipher.Decrypt(encrypted)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if decrypted != plain {
			t.Fatalf("round trip: got %q want %q", decrypted, plain)
		}
	}
}

func TestFieldCipherNoncesDiffer(t *testing.T) {
	cipher, err := NewFieldCipher(testKey)
	if err != nil {
		t.Fatal(err)
	}

	first, err := cipher.Encrypt("4242424242424242")
	if err != nil {
		t.Fatal(err)
	}
	second, err := cipher.Encrypt("4242424242424242")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("two encryptions of the same value produced identical ciphertexts")
	}
}

func TestFieldCipherKeyValidation(t *testing.T) {
	if _, err := NewFieldCipher("too-short"); err == nil {
		t.Fatal("expected error for short key")
	}

	// Base64-encoded 32-byte keys are accepted too.
	encoded := base64.StdEncoding.EncodeToString([]byte(testKey))
	if _, err := NewFieldCipher(encoded); err != nil {
		t.Fatalf("base64 key rejected: %v", err)
	}
}

func TestFieldCipherRejectsTampering(t *testing.T) {
	cipher, err := NewFieldCipher(testKey)
	if err != nil {
		t.Fatal(err)
	}

	encrypted, err := cipher.Encrypt("021000021")
	if err != nil {
		t.Fatal(err)
	}

	raw, _ := base64.StdEncoding.DecodeString(encrypted)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := cipher.Decrypt(tampered); err == nil {
		t.Fatal("tampered ciphertext decrypted without error")
	}

	if _, err := cipher.Decrypt("AAAA"); err == nil {
		t.Fatal("expected error for truncated ciphertext")
	}

	if _, err := cipher.Decrypt(strings.Repeat("!", 16)); err == nil {
		t.Fatal("expected error for invalid base64")
	}
}
