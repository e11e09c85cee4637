package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/clock"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/config"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/middleware"
	"github.com/mirzahilmi/lora-orion-bridge/internal/diagnostics"
	"github.com/mirzahilmi/lora-orion-bridge/internal/diagnostics/port"
	"github.com/mirzahilmi/lora-orion-bridge/internal/indicator"
	"github.com/mirzahilmi/lora-orion-bridge/internal/ingest"
	"github.com/mirzahilmi/lora-orion-bridge/internal/network"
	"github.com/mirzahilmi/lora-orion-bridge/internal/orion"
	"github.com/mirzahilmi/lora-orion-bridge/internal/radio"
	"github.com/mirzahilmi/lora-orion-bridge/internal/utility"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
)

type bridge struct {
	machine *ingest.Machine
	probe   *network.Probe
	led     indicator.Indicator

	mqtt   mqtt.Client
	reader *radio.ReaderSource
	closer io.Closer
}

func setup(ctx context.Context) (*bridge, error) {
	startedAt := time.Now()
	middleware := middleware.NewMiddleware(api, cfg)

	utility.RegisterHandler(ctx, api, middleware, startedAt)
	tracker := diagnostics.NewTracker(startedAt)
	hub := port.RegisterHandler(ctx, api, router, middleware, tracker, port.Entity{
		Id:   cfg.Orion.EntityId,
		Type: cfg.Orion.EntityType,
	})
	meters, err := diagnostics.NewMeters(otel.Meter("bridge"))
	if err != nil {
		return nil, err
	}

	band, err := radio.ValidateFrequency(cfg.Radio.Frequency)
	if err != nil {
		return nil, err
	}

	led := indicator.NewLogIndicator(clock.Real{})
	probe, err := network.NewProbe(cfg.Network, cfg.Orion.BaseUrl, led, clock.Real{})
	if err != nil {
		return nil, err
	}
	gate := network.NewGate(probe)
	client := orion.NewClient(cfg.Orion, orion.NewHTTPTransport(cfg.Orion), gate)

	b := &bridge{probe: probe, led: led}
	var source radio.Source
	switch cfg.Radio.Source {
	case config.RadioSourceMqtt:
		mqttSource := radio.NewMQTTSource(cfg.Mqtt.Topic, cfg.Mqtt.Qos, cfg.Radio.QueueSize)
		mqttOpts := mqtt.NewClientOptions().
			AddBroker(cfg.Mqtt.BrokerUrl).
			SetClientID(cfg.Mqtt.ClientId).
			SetUsername(cfg.Mqtt.Username).
			SetPassword(cfg.Mqtt.Password).
			SetAutoReconnect(true).
			SetConnectRetry(true)
		mqttOpts.SetOnConnectHandler(func(c mqtt.Client) {
			log.Debug().Msg("mqtt: connected")
			radio.Subscribe(c, mqttSource.Handlers())
		})
		mqttOpts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Msg("mqtt: connection lost")
		})
		b.mqtt = mqtt.NewClient(mqttOpts)
		source = mqttSource
	default:
		b.reader = radio.NewReaderSource(cfg.Radio.QueueSize)
		source = b.reader
	}

	timing := ingest.DefaultTiming()
	timing.Quiescence = cfg.Quiescence()
	b.machine = ingest.NewMachine(source, client, gate, led,
		ingest.WithTiming(timing),
		ingest.WithObservers(tracker, hub, meters),
	)

	log.Info().
		Str("band", band).
		Float64("frequency", cfg.Radio.Frequency).
		Str("source", cfg.Radio.Source).
		Str("entity", cfg.Orion.EntityId).
		Str("orion", cfg.Orion.BaseUrl).
		Str("probe", probe.Address()).
		Msg("app: bridge configured")
	return b, nil
}

func (b *bridge) start(ctx context.Context) error {
	if b.mqtt != nil {
		token := b.mqtt.Connect()
		if token.WaitTimeout(10*time.Second) && token.Error() != nil {
			return fmt.Errorf("mqtt: failed to connect: %w", token.Error())
		}
	}
	if b.reader != nil {
		var input io.Reader = os.Stdin
		if cfg.Radio.Source == config.RadioSourceFile {
			file, err := os.Open(cfg.Radio.Path)
			if err != nil {
				return fmt.Errorf("radio: cannot open %s: %w", cfg.Radio.Path, err)
			}
			b.closer = file
			input = file
		}
		b.reader.Start(ctx, input)
		go b.watchReader(ctx)
	}

	go func() {
		if !b.probe.IsConnected(ctx) {
			b.probe.Reconnect(ctx)
		} else {
			b.led.Set(true)
		}
		log.Info().Msg("app: receiver ready, waiting for gps, temperature and humidity readings")
		if err := b.machine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("app: state machine stopped")
		}
	}()
	return nil
}

func (b *bridge) watchReader(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-b.reader.Done():
	}

	event := log.Info()
	if err := b.reader.Err(); err != nil {
		event = log.Error().Err(err)
	}
	event.
		Uint64("dropped", b.reader.Dropped()).
		Int("pending", b.reader.Pending()).
		Msg("radio: reader source finished")
}

func (b *bridge) stop() {
	if b.mqtt != nil {
		b.mqtt.Disconnect(250)
	}
	if b.closer != nil {
		if err := b.closer.Close(); err != nil {
			log.Warn().Err(err).Msg("radio: failed to close source")
		}
	}
}
