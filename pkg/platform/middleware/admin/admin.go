// Package admin guards operator endpoints (manual reconciliation) with a
// shared token.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "revalidation/pkg/domain-errors"
	"revalidation/pkg/platform/httputil"
	"revalidation/pkg/platform/secrets"
	"revalidation/pkg/requestcontext"
)

const TokenHeader = "X-Admin-Token"

// RequireAdminToken rejects every request when expectedToken is empty, so an
// unconfigured deployment never exposes the admin routes. expectedToken may be
// a bcrypt hash (see revalctl admin-token) or the plaintext token.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			if !tokenMatches(token, expectedToken) {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func tokenMatches(token, expected string) bool {
	if expected == "" || token == "" {
		return false
	}
	if secrets.IsHash(expected) {
		return secrets.Verify(token, expected) == nil
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}
