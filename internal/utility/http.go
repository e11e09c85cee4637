package utility

import (
	"context"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/danielgtaylor/huma/v2"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/constant"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/errors"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/httperr"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/middleware"
)

type handler struct {
	startedAt time.Time
	now       func() time.Time
}

type Health struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

type UserInfo struct {
	Id string `json:"id"`
}

func RegisterHandler(ctx context.Context, router huma.API, middleware middleware.Middleware, startedAt time.Time) {
	h := handler{startedAt: startedAt, now: time.Now}

	huma.Register(router, huma.Operation{
		OperationID: "check-health",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Check health",
		Tags:        []string{constant.OAPI_TAG_MISC},
		Security:    []map[string][]string{},
	}, h.GetHealthz)

	if !middleware.AuthEnabled() {
		return
	}
	huma.Register(router, huma.Operation{
		OperationID: "userinfo",
		Method:      http.MethodGet,
		Path:        "/userinfo",
		Summary:     "Whoami?",
		Tags:        []string{constant.OAPI_TAG_MISC},
		Security:    middleware.Security(),
		Middlewares: middleware.Authorization(ctx),
	}, h.GetUserInfo)
}

func (h handler) GetHealthz(ctx context.Context, _ *struct{}) (*struct{ Body Health }, error) {
	uptime := h.now().Sub(h.startedAt).Truncate(time.Second)
	return &struct{ Body Health }{Body: Health{Status: "ok", Uptime: uptime.String()}}, nil
}

func (h handler) GetUserInfo(ctx context.Context, _ *struct{}) (*struct{ Body UserInfo }, error) {
	principal, ok := ctx.Value(constant.CONTEXT_KEY_PRINCIPAL).(*oidc.IDToken)
	if !ok {
		return httperr.Handle[struct{ Body UserInfo }](ctx,
			errors.NewInternalError("utility: failed to assert principal struct"),
		)
	}
	return &struct{ Body UserInfo }{Body: UserInfo{Id: principal.Subject}}, nil
}
