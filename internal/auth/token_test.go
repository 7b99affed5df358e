package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "a-long-enough-secret-for-tests"

func TestIssueAndValidate(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Minute)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	t.Run("ValidToken", func(t *testing.T) {
		token, err := issuer.Issue("user-1", "ana@packquiz.local")
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		claims, err := issuer.Validate(token)
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if claims.UserID != "user-1" || claims.Email != "ana@packquiz.local" {
			t.Fatalf("unexpected claims %+v", claims)
		}
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		token, _ := issuer.Issue("user-1", "ana@packquiz.local")
		later := *issuer
		later.now = func() time.Time { return time.Now().Add(time.Hour) }
		if _, err := later.Validate(token); !errors.Is(err, jwt.ErrTokenExpired) {
			t.Fatalf("expected expired token, got %v", err)
		}
	})

	t.Run("InvalidSignature", func(t *testing.T) {
		token, _ := issuer.Issue("user-1", "ana@packquiz.local")
		other, _ := NewTokenIssuer("a-different-secret", time.Minute)
		if _, err := other.Validate(token); !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			t.Fatalf("expected invalid signature, got %v", err)
		}
	})
}

func TestMissingSecret(t *testing.T) {
	if _, err := NewTokenIssuer("", time.Minute); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}
