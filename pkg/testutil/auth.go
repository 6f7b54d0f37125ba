package testutil

import (
	"errors"
	"net/http"
	"strings"

	"docverify/internal/platform/middleware"
)

// TokenValidator accepts tokens of the form "<role>:<subject>" so router tests can
// exercise the real auth middleware without signing JWTs.
type TokenValidator struct{}

func (TokenValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	role, subject, ok := strings.Cut(token, ":")
	if !ok || role == "" || subject == "" {
		return nil, errors.New("malformed test token")
	}
	return &middleware.JWTClaims{Subject: subject, Role: role}, nil
}

// Bearer sets an Authorization header understood by TokenValidator.
func Bearer(req *http.Request, role, subject string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+role+":"+subject)
	return req
}
