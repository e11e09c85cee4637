package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/constant"
	"github.com/rs/zerolog/log"
)

// Authorization guards huma operations. It is empty when no issuer is configured.
func (m Middleware) Authorization(ctx context.Context) huma.Middlewares {
	if !m.AuthEnabled() {
		return nil
	}
	return huma.Middlewares{m.NewOidcAuthorization(ctx)}
}

// Security is the operation security requirement matching Authorization.
func (m Middleware) Security() []map[string][]string {
	if !m.AuthEnabled() {
		return []map[string][]string{}
	}
	return []map[string][]string{{constant.OAPI_SECURITY_SCHEME: {}}}
}

func (m Middleware) NewOidcAuthorization(ctx context.Context) func(huma.Context, func(huma.Context)) {
	verifier := m.tokenVerifier(ctx)

	return func(ctx huma.Context, next func(huma.Context)) {
		bearerToken, ok := bearer(ctx.Header("Authorization"))
		if !ok {
			if err := huma.WriteErr(m.api, ctx, http.StatusForbidden, "missing/malformed authorization header"); err != nil {
				log.Warn().Err(err).Msg("oidc: failed write http error")
			}
			return
		}

		token, err := verifier.Verify(ctx.Context(), bearerToken)
		if err != nil {
			log.Debug().Err(err).Msg("oidc: failed to verify id token")
			if err := huma.WriteErr(m.api, ctx, http.StatusForbidden, "unauthorized access"); err != nil {
				log.Warn().Err(err).Msg("oidc: failed write http error")
			}
			return
		}

		ctx = huma.WithValue(ctx, constant.CONTEXT_KEY_PRINCIPAL, token)
		next(ctx)
	}
}

// HTTPAuthorization is the plain net/http flavour used on raw chi routes such
// as the websocket feed. Without an issuer it passes requests through.
func (m Middleware) HTTPAuthorization(ctx context.Context) func(http.Handler) http.Handler {
	if !m.AuthEnabled() {
		return func(next http.Handler) http.Handler { return next }
	}
	verifier := m.tokenVerifier(ctx)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearerToken, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "missing/malformed authorization header", http.StatusForbidden)
				return
			}
			token, err := verifier.Verify(r.Context(), bearerToken)
			if err != nil {
				log.Debug().Err(err).Msg("oidc: failed to verify id token")
				http.Error(w, "unauthorized access", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), constant.CONTEXT_KEY_PRINCIPAL, token)))
		})
	}
}

func bearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}
