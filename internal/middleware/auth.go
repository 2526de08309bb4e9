package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"mdbrowse/internal/auth"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/httputil"
)

// Auth resolves the request's actor: a bearer session token (user) or the
// dedicated agent-credential header (machine). Requests with no credential
// pass through unauthenticated; handlers decide whether that is allowed.
// Requests with an invalid credential are rejected here.
func Auth(sessions *auth.SessionManager, agents *auth.AgentResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if agentToken := r.Header.Get(auth.AgentTokenHeader); agentToken != "" {
				record, err := agents.Resolve(r.Context(), agentToken)
				if err != nil {
					logger.Debug("agent credential rejected", "path", r.URL.Path, "error", err)
					httputil.RespondError(w, r, http.StatusUnauthorized, "unauthorized", "invalid or expired agent token", "check the X-Agent-Token header")
					return
				}
				next.ServeHTTP(w, httputil.WithActor(r, auth.ActorFor(record)))
				return
			}

			if header := r.Header.Get("Authorization"); header != "" {
				tokenString, ok := strings.CutPrefix(header, "Bearer ")
				if !ok {
					httputil.RespondError(w, r, http.StatusUnauthorized, "unauthorized", "malformed Authorization header", "expected: Bearer <token>")
					return
				}

				claims, err := sessions.Verify(tokenString)
				if err != nil {
					httputil.RespondError(w, r, http.StatusUnauthorized, "unauthorized", "invalid or expired session token", "")
					return
				}

				actor := &auth.Actor{
					Type:     models.ActorUser,
					ID:       claims.Subject,
					Username: claims.Username,
					Role:     claims.Role,
				}
				next.ServeHTTP(w, httputil.WithActor(r, actor))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
