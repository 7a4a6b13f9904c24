package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func runAuth(t *testing.T, header string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth("secret")(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, c.Get(SubjectKey).(string))
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, called
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	signed := signToken(t, jwt.SigningMethodHS256, []byte("secret"), jwt.RegisteredClaims{
		Subject:   "5f1c9a2e-4a8b-4c1d-9e0f-123456789abc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	rec, called := runAuth(t, "Bearer "+signed)

	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "5f1c9a2e-4a8b-4c1d-9e0f-123456789abc" {
		t.Fatalf("subject not set, got %q", rec.Body.String())
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	expired := signToken(t, jwt.SigningMethodHS256, []byte("secret"), jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{Subject: "u1"})
	noSubject := signToken(t, jwt.SigningMethodHS256, []byte("secret"), jwt.RegisteredClaims{})
	wrongAlg := signToken(t, jwt.SigningMethodHS512, []byte("secret"), jwt.RegisteredClaims{Subject: "u1"})

	tests := map[string]string{
		"missing header":  "",
		"not bearer":      "Token abc",
		"garbage token":   "Bearer not-a-token",
		"expired":         "Bearer " + expired,
		"wrong key":       "Bearer " + wrongKey,
		"no subject":      "Bearer " + noSubject,
		"wrong algorithm": "Bearer " + wrongAlg,
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			rec, called := runAuth(t, header)
			if called {
				t.Fatalf("should not reach next")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}
