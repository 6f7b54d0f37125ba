// Package e2e drives a running docverify server through its HTTP API.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "docverify"
	tokenAudience = "docverify-api"
)

// TestContext carries one scenario's state: the caller's token, the last response
// and values remembered between steps.
type TestContext struct {
	BaseURL    string
	SigningKey string
	client     *http.Client

	accessToken string
	status      int
	body        []byte
	vars        map[string]string
}

// NewTestContext reads DOCVERIFY_E2E_URL and DOCVERIFY_JWT_SIGNING_KEY.
func NewTestContext() *TestContext {
	key := os.Getenv("DOCVERIFY_JWT_SIGNING_KEY")
	if key == "" {
		key = "dev-secret-key-change-in-production"
	}
	return &TestContext{
		BaseURL:    strings.TrimRight(os.Getenv("DOCVERIFY_E2E_URL"), "/"),
		SigningKey: key,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears everything a previous scenario left behind.
func (tc *TestContext) Reset() {
	tc.accessToken = ""
	tc.status = 0
	tc.body = nil
	tc.vars = map[string]string{}
}

// AuthenticateAs mints an access token the server accepts for subject in role.
func (tc *TestContext) AuthenticateAs(subject, role string) error {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iss":  tokenIssuer,
		"aud":  []string{tokenAudience},
		"iat":  now.Unix(),
		"exp":  now.Add(15 * time.Minute).Unix(),
		"jti":  fmt.Sprintf("e2e-%d", now.UnixNano()),
	})
	signed, err := token.SignedString([]byte(tc.SigningKey))
	if err != nil {
		return err
	}
	tc.accessToken = signed
	return nil
}

func (tc *TestContext) GetAccessToken() string {
	return tc.accessToken
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, tc.BaseURL+tc.Expand(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.accessToken)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tc.status = resp.StatusCode
	tc.body, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) StatusCode() int {
	return tc.status
}

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var payload map[string]any
	if err := json.Unmarshal(tc.body, &payload); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	v, ok := payload[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %s", field, tc.body)
	}
	return v, nil
}

// DecodeResponse unmarshals the last response body into out.
func (tc *TestContext) DecodeResponse(out any) error {
	return json.Unmarshal(tc.body, out)
}

func (tc *TestContext) Remember(name, value string) {
	tc.vars[name] = value
}

// Expand replaces {name} placeholders with remembered values.
func (tc *TestContext) Expand(s string) string {
	for k, v := range tc.vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}
