package auth

import "testing"

func TestHashAndVerifyToken(t *testing.T) {
	hash, err := HashToken("an-api-token-of-decent-length")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	if hash == "an-api-token-of-decent-length" {
		t.Fatalf("hash must not equal the plaintext token")
	}

	if !VerifyToken(hash, "an-api-token-of-decent-length") {
		t.Fatalf("expected token to verify")
	}
	if VerifyToken(hash, "wrong-token-wrong-token") {
		t.Fatalf("wrong token must not verify")
	}
	if VerifyToken("", "an-api-token-of-decent-length") {
		t.Fatalf("empty hash must never verify")
	}
}

func TestHashTokenRejectsShortTokens(t *testing.T) {
	if _, err := HashToken("short"); err == nil {
		t.Fatalf("expected short token to be rejected")
	}
}
