package orion

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/mirzahilmi/lora-orion-bridge/internal/common/config"
	"github.com/mirzahilmi/lora-orion-bridge/internal/network"
	"github.com/rs/zerolog/log"
)

// Client reconciles one entity in Orion. It never remembers whether the
// entity exists; every Sync asks the server again.
type Client struct {
	baseURL      string
	entityId     string
	entityType   string
	transport    Transport
	connectivity network.Connectivity
}

func NewClient(cfg config.Orion, transport Transport, connectivity network.Connectivity) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseUrl, "/"),
		entityId:     cfg.EntityId,
		entityType:   cfg.EntityType,
		transport:    transport,
		connectivity: connectivity,
	}
}

func (c *Client) UpdateURL() string {
	return c.baseURL + "/" + url.PathEscape(c.entityId) + "/attrs"
}

func (c *Client) CreateURL() string {
	return c.baseURL
}

// Sync patches the entity attributes and creates the entity when Orion
// answers 404. A failed request is reported, not retried.
func (c *Client) Sync(ctx context.Context, payload UpdatePayload) Outcome {
	if c.connectivity != nil && !c.connectivity.IsConnected(ctx) {
		log.Warn().Msg("orion: uplink down, reconnecting before sync")
		if !c.connectivity.Reconnect(ctx) {
			log.Warn().Msg("orion: reconnect failed, sending anyway")
		}
	}

	body, err := payload.Marshal()
	if err != nil {
		log.Error().Err(err).Msg("orion: cannot encode update payload")
		return failure(0, err.Error(), nil)
	}

	updateURL := c.UpdateURL()
	log.Debug().Str("url", updateURL).RawJSON("payload", body).Msg("orion: patching entity attributes")

	resp, err := c.transport.Patch(ctx, updateURL, body)
	if err != nil && resp.StatusCode == 0 {
		log.Error().Err(err).Str("url", updateURL).Msg("orion: update request failed")
		return failure(0, err.Error(), nil)
	}

	switch resp.StatusCode {
	case http.StatusNoContent:
		log.Info().Str("entity", c.entityId).Msg("orion: attributes updated")
		return Outcome{Kind: Updated, Code: resp.StatusCode}
	case http.StatusNotFound:
		log.Warn().Str("entity", c.entityId).Msg("orion: entity does not exist, creating")
		return c.create(ctx, payload)
	default:
		event := log.Error().Int("status", resp.StatusCode).Str("url", updateURL)
		if len(resp.Body) > 0 {
			event = event.Bytes("response", resp.Body)
		}
		event.Msg("orion: update rejected")
		return failure(resp.StatusCode, http.StatusText(resp.StatusCode), resp.Body)
	}
}

func (c *Client) create(ctx context.Context, payload UpdatePayload) Outcome {
	body, err := EncodeEntity(c.entityId, c.entityType, payload).Marshal()
	if err != nil {
		log.Error().Err(err).Msg("orion: cannot encode entity document")
		return failure(0, err.Error(), nil)
	}

	resp, err := c.transport.Post(ctx, c.CreateURL(), body)
	if err != nil && resp.StatusCode == 0 {
		log.Error().Err(err).Str("url", c.CreateURL()).Msg("orion: create request failed")
		return failure(0, err.Error(), nil)
	}

	if resp.StatusCode != http.StatusCreated {
		event := log.Error().Int("status", resp.StatusCode).Str("url", c.CreateURL())
		if len(resp.Body) > 0 {
			event = event.Bytes("response", resp.Body)
		}
		event.Msg("orion: entity creation rejected")
		return failure(resp.StatusCode, http.StatusText(resp.StatusCode), resp.Body)
	}

	log.Info().Str("entity", c.entityId).Msg("orion: entity created")
	return Outcome{Kind: Created, Code: resp.StatusCode}
}
