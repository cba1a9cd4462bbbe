package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestIssueAccessToken(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()
	roles := []string{"ADMIN", "TECH"}

	signed, err := IssueAccessToken(secret, userID, roles, time.Hour)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	parsed, err := jwt.Parse(signed, func(tok *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !parsed.Valid {
		t.Fatal("token should be valid")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("claims should be a map")
	}
	if claims["sub"] != userID.String() {
		t.Fatalf("sub = %v, want %v", claims["sub"], userID)
	}
	if claims["type"] != "access" {
		t.Fatalf("type = %v, want access", claims["type"])
	}

	rawRoles, ok := claims["roles"].([]interface{})
	if !ok || len(rawRoles) != 2 {
		t.Fatalf("roles = %v, want two entries", claims["roles"])
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		t.Fatalf("GetExpirationTime() error = %v", err)
	}
	if remaining := time.Until(exp.Time); remaining < 55*time.Minute || remaining > time.Hour {
		t.Fatalf("expiry in %v, want about an hour", remaining)
	}
}

func TestIssueAccessTokenWrongSecretFails(t *testing.T) {
	signed, err := IssueAccessToken("right-secret", uuid.New(), []string{"TECH"}, time.Hour)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	_, err = jwt.Parse(signed, func(tok *jwt.Token) (interface{}, error) {
		return []byte("wrong-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err == nil {
		t.Fatal("parsing with the wrong secret should fail")
	}
}
