package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/quotation-engine/api/responses"
	"github.com/angelmondragon/quotation-engine/pkg/auth"
	"github.com/angelmondragon/quotation-engine/pkg/config"
	pkgerrors "github.com/angelmondragon/quotation-engine/pkg/errors"
	"github.com/angelmondragon/quotation-engine/pkg/logger"
)

const bearerScheme = "bearer"

// bearerToken extracts the credential from an Authorization header. A bare
// token without a scheme is accepted for CLI callers.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	scheme, rest, found := strings.Cut(header, " ")
	if found && strings.EqualFold(scheme, bearerScheme) {
		return strings.TrimSpace(rest)
	}
	if strings.EqualFold(header, bearerScheme) {
		return ""
	}
	return header
}

// Auth rejects requests without a valid access token and stores the caller's
// id and role on the request context.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	unauthorized := func(w http.ResponseWriter, r *http.Request, err error) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="quotation-engine"`)
		responses.WriteError(r.Context(), logg, w, err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				unauthorized(w, r, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := auth.ParseAccessToken(cfg, token)
			if err != nil {
				unauthorized(w, r, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithActor(r.Context(), claims.UserID, claims.Role)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				ctx = logg.WithActorRole(ctx, string(claims.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
