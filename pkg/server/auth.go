package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gridhelm/gridhelm/pkg/log"
)

// authMiddleware authenticates API requests. With no OIDC audience and no
// admin emails configured the instance is assumed to sit behind a trusted
// proxy and every request passes. Mutating requests additionally require an
// admin email.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))
		r = r.WithContext(ctx)

		if s.bypassAuth {
			next.ServeHTTP(w, r)
			return
		}

		token, err := s.requestToken(r)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusUnauthorized)
			return
		}

		email, err := s.verifyToken(r, token)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "auth token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid auth token", http.StatusUnauthorized)
			return
		}

		if r.Method != http.MethodGet && !s.isAdmin(email) {
			log.Ctx(ctx).WarnContext(ctx, "non-admin attempted mutation", slog.String("email", email))
			writeJSONError(w, "forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestToken extracts the ID token from the Authorization header or the
// auth cookie.
func (s *Server) requestToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", errors.New("invalid auth header")
		}
		return strings.TrimPrefix(authHeader, "Bearer "), nil
	}
	cookie, err := r.Cookie(authTokenCookie)
	if err != nil || cookie.Value == "" {
		return "", errors.New("missing auth token")
	}
	return cookie.Value, nil
}

// verifyToken validates the ID token and returns the email claim.
func (s *Server) verifyToken(r *http.Request, token string) (string, error) {
	if s.oidcVerifier == nil {
		return "", errors.New("no oidc verifier configured")
	}
	claims, err := s.oidcVerifier(r.Context(), token)
	if err != nil {
		return "", fmt.Errorf("token verification failed: %w", err)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return "", errors.New("email missing or unverified")
	}
	return claims.Email, nil
}

// isAdmin returns true if the email is in the adminEmails list.
func (s *Server) isAdmin(email string) bool {
	for _, adminEmail := range s.adminEmails {
		if email == adminEmail {
			return true
		}
	}
	return false
}
