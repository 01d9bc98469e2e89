package session

import (
	"errors"
	"testing"
)

func TestResolveIsDeterministic(t *testing.T) {
	a, err := Resolve("main-account")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	b, err := Resolve("main-account")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if a != b {
		t.Errorf("expected identical IDs, got %s and %s", a, b)
	}
}

func TestResolveNormalizesNames(t *testing.T) {
	a, _ := Resolve("Main-Account")
	b, _ := Resolve("  main-account\n")

	if a != b {
		t.Errorf("expected normalized names to resolve identically, got %s and %s", a, b)
	}
}

func TestResolveDistinctNames(t *testing.T) {
	a, _ := Resolve("alice")
	b, _ := Resolve("bob")

	if a == b {
		t.Errorf("distinct names resolved to the same ID %s", a)
	}
}

func TestResolveEmptyName(t *testing.T) {
	if _, err := Resolve("   "); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
}
