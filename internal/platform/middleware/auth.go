package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"docverify/pkg/requestcontext"
)

// Roles carried in access tokens. A supervisor may do anything a reviewer can.
const (
	RoleReviewer   = requestcontext.RoleReviewer
	RoleSupervisor = requestcontext.RoleSupervisor
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	Subject string
	Role    string
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth validates the bearer token and stores the actor in the context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithActor(ctx, requestcontext.ActorInfo{ID: claims.Subject, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects actors whose role is not allowed. Must run after RequireAuth.
func RequireRole(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := requestcontext.Actor(ctx)
			if actor.IsZero() {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}
			if !HasRole(actor.Role, roles...) {
				logger.WarnContext(ctx, "forbidden - insufficient role",
					"actor", actor.ID,
					"role", actor.Role,
					"required", roles,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HasRole reports whether role satisfies any of the required roles.
func HasRole(role string, required ...string) bool {
	return requestcontext.ActorInfo{Role: role}.HasRole(required...)
}
