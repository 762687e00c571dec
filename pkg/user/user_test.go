package user

import "testing"

func TestParseRole(t *testing.T) {
	r, err := ParseRole("commercial_agent")
	if err != nil || r != CommercialAgent {
		t.Fatalf("expected COMMERCIAL_AGENT, got %q %v", r, err)
	}
	if _, err := ParseRole("janitor"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestHasAny(t *testing.T) {
	roles := []Role{Seller}
	if !HasAny(roles, Admin, Seller) {
		t.Fatal("expected match")
	}
	if HasAny(roles, Admin, CommercialAgent) {
		t.Fatal("unexpected match")
	}
	if HasAny(nil, Admin) {
		t.Fatal("empty roles never match")
	}
}
