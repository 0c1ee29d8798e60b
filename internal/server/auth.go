package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/aristath/stockwatch/internal/domain"
	"github.com/rs/zerolog"
)

// Role is the access level granted by a token
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type roleContextKey struct{}

type tokenEntry struct {
	token []byte
	role  Role
}

// Authenticator resolves bearer tokens against a static token table
type Authenticator struct {
	tokens []tokenEntry
	log    zerolog.Logger
}

// NewAuthenticator creates an authenticator with one admin token and any
// number of user tokens. Blank tokens are ignored.
func NewAuthenticator(adminToken string, userTokens []string, log zerolog.Logger) *Authenticator {
	a := &Authenticator{log: log.With().Str("component", "auth").Logger()}

	if adminToken != "" {
		a.tokens = append(a.tokens, tokenEntry{token: []byte(adminToken), role: RoleAdmin})
	}
	for _, token := range userTokens {
		if token = strings.TrimSpace(token); token != "" {
			a.tokens = append(a.tokens, tokenEntry{token: []byte(token), role: RoleUser})
		}
	}

	return a
}

// Authenticate returns the role for the request's bearer token
func (a *Authenticator) Authenticate(r *http.Request) (Role, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", &domain.Error{Kind: domain.KindUnauthorized, Message: "missing bearer token"}
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", &domain.Error{Kind: domain.KindUnauthorized, Message: "malformed authorization header"}
	}

	presented := []byte(strings.TrimSpace(token))
	var role Role
	for _, entry := range a.tokens {
		if subtle.ConstantTimeCompare(presented, entry.token) == 1 && role == "" {
			role = entry.role
		}
	}
	if role == "" {
		return "", &domain.Error{Kind: domain.KindUnauthorized, Message: "invalid token"}
	}

	return role, nil
}

// RequireAdmin rejects requests without an admin token: 401 when the token
// is missing or unknown, 403 when it belongs to a user
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, err := a.Authenticate(r)
		if err != nil {
			a.log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected unauthenticated request")
			writeDomainError(w, err, a.log)
			return
		}

		if role != RoleAdmin {
			a.log.Warn().Str("path", r.URL.Path).Str("role", string(role)).Msg("Rejected non-admin request")
			writeDomainError(w, &domain.Error{Kind: domain.KindForbidden, Message: "admin role required"}, a.log)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), roleContextKey{}, role)))
	})
}

// RoleFromContext returns the role stored by RequireAdmin
func RoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(roleContextKey{}).(Role)
	return role, ok
}
