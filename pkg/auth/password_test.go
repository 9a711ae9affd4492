package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash must not equal the password")
	}
	if err := h.Compare(hash, "correct horse battery"); err != nil {
		t.Errorf("Compare: %v", err)
	}
	if err := h.Compare(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("expected ErrPasswordMismatch, got %v", err)
	}
	if err := h.Compare("not-a-hash", "x"); err == nil || errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("expected malformed hash error, got %v", err)
	}
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	if h := NewBcryptHasher(99); h.cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d", h.cost)
	}
}
