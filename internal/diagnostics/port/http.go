package port

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/constant"
	_errors "github.com/mirzahilmi/lora-orion-bridge/internal/common/errors"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/httperr"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/middleware"
	"github.com/mirzahilmi/lora-orion-bridge/internal/diagnostics"
	"github.com/mirzahilmi/lora-orion-bridge/internal/orion"
	"github.com/mirzahilmi/lora-orion-bridge/internal/reading"
	"github.com/rs/zerolog/log"
)

type handler struct {
	hub        *Hub
	tracker    *diagnostics.Tracker
	entityId   string
	entityType string
}

type Entity struct {
	Id   string
	Type string
}

type StatusOutput struct {
	Body diagnostics.Snapshot
}

type ParseInput struct {
	Body struct {
		Payload string `json:"payload" minLength:"1" doc:"Raw LoRa payload" example:"Lat: 40.712800, Lon: -74.006000, Temp: 25.5, Hum: 60.5"`
	}
}

type ParseResult struct {
	Reading reading.SensorReading `json:"reading"`
	Update  orion.UpdatePayload   `json:"update"`
	Entity  orion.EntityDocument  `json:"entity"`
}

type ParseOutput struct {
	Body ParseResult
}

// RegisterHandler mounts the diagnostics operations and returns the outcome
// hub, which runs until ctx is done.
func RegisterHandler(
	ctx context.Context,
	humaRouter huma.API,
	router chi.Router,
	middleware middleware.Middleware,
	tracker *diagnostics.Tracker,
	entity Entity,
) *Hub {
	h := handler{
		hub:        NewHub(),
		tracker:    tracker,
		entityId:   entity.Id,
		entityType: entity.Type,
	}
	go h.hub.run(ctx)

	huma.Register(humaRouter, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Last cycle outcome and counters",
		Tags:        []string{constant.OAPI_TAG_DIAGNOSTICS},
		Security:    middleware.Security(),
		Middlewares: middleware.Authorization(ctx),
	}, h.GetStatus)

	huma.Register(humaRouter, huma.Operation{
		OperationID: "parse-reading",
		Method:      http.MethodPost,
		Path:        "/readings/parse",
		Summary:     "Dry-run a radio payload through the parser and encoder",
		Tags:        []string{constant.OAPI_TAG_DIAGNOSTICS},
		Security:    []map[string][]string{},
	}, h.PostParse)

	router.With(middleware.HTTPAuthorization(ctx)).Get("/diagnostics/outcomes", h.Connect(ctx))

	return h.hub
}

func (h handler) GetStatus(ctx context.Context, _ *struct{}) (*StatusOutput, error) {
	return &StatusOutput{Body: h.tracker.Snapshot()}, nil
}

func (h handler) PostParse(ctx context.Context, input *ParseInput) (*ParseOutput, error) {
	r, err := reading.Parse(input.Body.Payload)
	if err != nil {
		return httperr.Handle[ParseOutput](ctx,
			_errors.NewValidationError(map[string]string{"body.payload": err.Error()}),
		)
	}

	update := orion.EncodeUpdate(r)
	return &ParseOutput{Body: ParseResult{
		Reading: r,
		Update:  update,
		Entity:  orion.EncodeEntity(h.entityId, h.entityType, update),
	}}, nil
}

func (h handler) Connect(ctx context.Context) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Msg("diagnostics: websocket upgrade failed")
			return
		}
		client := &Client{hub: h.hub, conn: conn, send: make(chan []byte, 256)}
		select {
		case client.hub.register <- client:
		case <-ctx.Done():
			_ = conn.Close()
			return
		}

		go client.readPump(ctx)
		go client.writePump(ctx)
	}
}
