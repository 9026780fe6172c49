package auth

import (
	"strings"
	"testing"
)

const testSecret = "unit-test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("user-1", "tenant-1", []string{"admin"}, testSecret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseAccessToken(token, testSecret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" || claims.TenantID != "tenant-1" {
		t.Fatalf("claims lost in round trip: %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "admin" {
		t.Fatalf("roles lost: %v", claims.Roles)
	}
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("user-1", "tenant-1", nil, testSecret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseAccessToken(token, "other-secret"); err == nil {
		t.Fatal("token signed with another secret must not parse")
	}
}

func TestParseAccessToken_Garbage(t *testing.T) {
	if _, err := ParseAccessToken("not.a.token", testSecret); err == nil {
		t.Fatal("garbage must not parse")
	}
	if _, err := ParseAccessToken(strings.Repeat("a", 64), testSecret); err == nil {
		t.Fatal("garbage must not parse")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("demo-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "demo-password" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPassword(hash, "demo-password") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "wrong-password") {
		t.Fatal("wrong password accepted")
	}
}
