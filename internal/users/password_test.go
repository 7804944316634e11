package users

import (
	"strings"
	"testing"
)

func TestHashPassword_ProducesPHCFormat(t *testing.T) {
	hash, err := hashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=4$") {
		t.Errorf("unexpected hash format: %q", hash)
	}
}

func TestHashPassword_SaltsAreUnique(t *testing.T) {
	first, err := hashPassword("same password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := hashPassword("same password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Error("two hashes of the same password must differ (random salt)")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := hashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !verifyPassword("hunter2hunter2", hash) {
		t.Error("expected the correct password to verify")
	}
	if verifyPassword("wrong password", hash) {
		t.Error("expected a wrong password to fail")
	}
	if verifyPassword("", hash) {
		t.Error("expected an empty password to fail")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	malformed := []string{
		"",
		"plaintext",
		"$argon2id$v=19$garbage",
		"$argon2id$v=19$m=65536,t=3,p=4$!!!$AAAA",
		"$argon2id$v=19$m=65536,t=3,p=4$AAAA$!!!",
	}
	for _, hash := range malformed {
		if verifyPassword("anything", hash) {
			t.Errorf("expected malformed hash %q to fail verification", hash)
		}
	}
}
