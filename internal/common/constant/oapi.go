package constant

type contextKey string

const (
	CONTEXT_KEY_PRINCIPAL contextKey = "principal"
)

const (
	OAPI_SECURITY_SCHEME  = "Oidc"
	OAPI_TAG_MISC         = "Miscellaneous"
	OAPI_TAG_DIAGNOSTICS  = "Diagnostics"
	OAPI_SPEC_UI          = `<!doctypehtml><title>API Reference</title><meta charset=utf-8><meta content="width=device-width,initial-scale=1"name=viewport><body><script data-url=/openapi.json id=api-reference></script><script src=https://cdn.jsdelivr.net/npm/@scalar/api-reference></script>`
	OAPI_SPEC_DESCRIPTION = `
Diagnostics surface of the LoRa to FIWARE Orion telemetry bridge.

The bridge receives sensor readings over LoRa, parses them and reconciles the
configured entity in Orion with an attribute PATCH, falling back to entity
creation when Orion does not know the entity yet.
`
)
