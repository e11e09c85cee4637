package middleware

import (
	"context"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/danielgtaylor/huma/v2"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/config"
	"github.com/rs/zerolog/log"
)

type verifierCache struct {
	once     sync.Once
	verifier *oidc.IDTokenVerifier
}

type Middleware struct {
	api    huma.API
	config config.Config
	cache  *verifierCache
}

func NewMiddleware(api huma.API, config config.Config) Middleware {
	return Middleware{api, config, &verifierCache{}}
}

// AuthEnabled reports whether diagnostics routes require a bearer token.
func (m Middleware) AuthEnabled() bool {
	return m.config.Oidc.Issuer != ""
}

func (m Middleware) tokenVerifier(ctx context.Context) *oidc.IDTokenVerifier {
	m.cache.once.Do(func() {
		oidcProvider, err := oidc.NewProvider(ctx, m.config.Oidc.Issuer)
		if err != nil {
			log.Fatal().Err(err).Msg("oidc: failed create oidc provider instance")
		}
		m.cache.verifier = oidcProvider.VerifierContext(ctx, &oidc.Config{ClientID: m.config.Oidc.ClientId})
	})
	return m.cache.verifier
}
