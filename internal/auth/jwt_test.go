package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "dGVzdC1zZWNyZXQtZm9yLWp3dC12YWxpZGF0aW9uLXRlc3Q="

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewJWTService(testSecret)

	token, err := svc.GenerateAccessToken("user-123")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("got subject %q, want %q", claims.Subject, "user-123")
	}
	if claims.ExpiresAt == nil {
		t.Fatal("missing expiry")
	}
	wantExpiry := time.Now().Add(AccessTokenExpiry)
	if diff := claims.ExpiresAt.Time.Sub(wantExpiry); diff < -time.Minute || diff > time.Minute {
		t.Errorf("expiry %v not near %v", claims.ExpiresAt.Time, wantExpiry)
	}
}

func TestGenerateAccessTokenEmptyUserID(t *testing.T) {
	svc := NewJWTService(testSecret)

	if _, err := svc.GenerateAccessToken(""); !errors.Is(err, ErrEmptyUserID) {
		t.Fatalf("got err=%v, want ErrEmptyUserID", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := NewJWTService(testSecret)
	other := NewJWTService("a-completely-different-secret-value")

	token, err := svc.GenerateAccessToken("user-123")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got err=%v, want ErrInvalidToken", err)
	}
}

func TestValidateTokenMalformed(t *testing.T) {
	svc := NewJWTService(testSecret)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"truncated", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ValidateToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("got err=%v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestValidateTokenExpired(t *testing.T) {
	// Zero leeway so an already-expired token is rejected immediately.
	svc := NewJWTServiceWithLeeway(testSecret, 0)

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-1 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("got err=%v, want ErrExpiredToken", err)
	}
}

func TestValidateTokenExpiredWithinLeeway(t *testing.T) {
	svc := NewJWTServiceWithLeeway(testSecret, 5*time.Minute)

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			IssuedAt:  jwt.NewNumericDate(now.Add(-1 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-1 * time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.ValidateToken(token); err != nil {
		t.Fatalf("token within leeway rejected: %v", err)
	}
}

func TestValidateTokenRejectsWrongAlgorithm(t *testing.T) {
	svc := NewJWTService(testSecret)

	// HS512 signed with the same secret must still be rejected.
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got err=%v, want ErrInvalidToken", err)
	}
}

func TestValidateTokenEmptySubject(t *testing.T) {
	svc := NewJWTService(testSecret)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got err=%v, want ErrInvalidToken", err)
	}
}
