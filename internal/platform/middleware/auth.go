package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"vigil/internal/token"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domainerrors"
	"vigil/pkg/httputil"
	"vigil/pkg/requestcontext"
)

// TokenValidator validates session tokens.
type TokenValidator interface {
	Validate(tokenString string) (*token.Claims, error)
}

// RequireSession validates the bearer token and injects the candidate and
// session IDs into the request context. Handlers downstream can trust both.
func RequireSession(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || raw == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.Validate(raw)
			if err != nil {
				logger.WarnContext(ctx, "rejected session token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}

			candidateID, err := id.ParseCandidateID(claims.CandidateID)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims"))
				return
			}
			sessionID, err := id.ParseSessionID(claims.SessionID)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims"))
				return
			}

			ctx = requestcontext.WithCandidateID(ctx, candidateID)
			ctx = requestcontext.WithSessionID(ctx, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
