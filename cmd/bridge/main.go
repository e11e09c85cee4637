package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/config"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/constant"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/logging"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/telemetry"
	"github.com/mirzahilmi/lora-orion-bridge/internal/orion"
	"github.com/mirzahilmi/lora-orion-bridge/internal/reading"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type options struct {
	LogLevel   string `doc:"Log verbosity level" default:"info"`
	ConfigPath string `doc:"Configuration path, JSON or YAML; defaults apply when empty" name:"config"`
	Pretty     bool   `doc:"Human readable console logs" default:"false"`
}

var (
	api    huma.API
	router *chi.Mux
	cfg    config.Config
)

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *options) {
		logging.Init(options.LogLevel, options.Pretty)

		loaded, err := config.Load(options.ConfigPath)
		if err != nil {
			log.Fatal().Err(err).Msg("config: invalid configuration")
		}
		cfg = loaded
		if options.ConfigPath == "" {
			log.Warn().Msg("config: no config file given, using defaults")
		}
		ctx, mainCancel := context.WithCancel(context.Background())

		metrics, err := telemetry.Init()
		if err != nil {
			log.Fatal().Err(err).Msg("telemetry: failed to setup metrics")
		}

		oapi := huma.DefaultConfig("LoRa Orion Bridge - Diagnostics", "1.0.0")
		oapi.DocsPath = ""
		oapi.Info.Description = constant.OAPI_SPEC_DESCRIPTION
		if cfg.Oidc.Issuer != "" {
			oapi.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
				constant.OAPI_SECURITY_SCHEME: {
					Type: "oauth2",
					Flows: &huma.OAuthFlows{
						Implicit: &huma.OAuthFlow{
							AuthorizationURL: fmt.Sprintf(
								"%s/protocol/openid-connect/auth",
								cfg.Oidc.Issuer,
							),
							Scopes: map[string]string{
								"openid":  "openid",
								"profile": "profile",
							},
						},
					},
				},
			}
		}

		router = chi.NewRouter()
		router.Handle("/metrics", metrics.Handler())
		if cfg.IsDevelopment {
			router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				if _, err := w.Write([]byte(constant.OAPI_SPEC_UI)); err != nil {
					log.Debug().Err(err).Msg("docs: failed to write openapi editor ui")
				}
			})
		}

		api = humachi.New(router, oapi)
		app, err := setup(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("app: failed to setup")
		}

		addr := fmt.Sprintf(":%d", cfg.Port)
		server := http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second, // mitigate slowloris attacks
		}

		hooks.OnStart(func() {
			if err := app.start(ctx); err != nil {
				log.Fatal().Err(err).Msg("app: failed to start")
			}

			log.Info().Msg(fmt.Sprintf("http: listening on 0.0.0.0%s", addr))
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg(fmt.Sprintf("http: failed to listen on 0.0.0.0%s", addr))
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(
				context.Background(),
				time.Duration(cfg.ShutdownTimeout)*time.Second,
			)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				log.Fatal().Err(err).Msg("http: failed to shutdown")
			}
			mainCancel()
			app.stop()
			if err := metrics.Shutdown(ctx); err != nil {
				log.Warn().Err(err).Msg("telemetry: failed to flush metrics")
			}
			log.Info().Msg("http: shut down complete")
		})
	})

	cli.Root().AddCommand(&cobra.Command{
		Use:   "spec",
		Short: "Print the OpenAPI specification of the diagnostics API",
		RunE: func(cmd *cobra.Command, args []string) error {
			var spec []byte
			if len(args) == 1 && args[0] == "legacy" {
				raw, err := api.OpenAPI().DowngradeYAML()
				if err != nil {
					return err
				}
				spec = raw
			} else {
				raw, err := api.OpenAPI().YAML()
				if err != nil {
					return err
				}
				spec = raw
			}
			fmt.Println(string(spec))

			return nil
		},
	})

	cli.Root().AddCommand(&cobra.Command{
		Use:   "encode <payload>",
		Short: "Parse a radio payload and print the Orion update and entity documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := reading.Parse(args[0])
			if err != nil {
				return err
			}
			update := orion.EncodeUpdate(r)
			updateDoc, err := update.Marshal()
			if err != nil {
				return err
			}
			entityDoc, err := orion.EncodeEntity(cfg.Orion.EntityId, cfg.Orion.EntityType, update).Marshal()
			if err != nil {
				return err
			}

			client := orion.NewClient(cfg.Orion, nil, nil)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "PATCH %s\n%s\n", client.UpdateURL(), updateDoc)
			fmt.Fprintf(out, "POST %s\n%s\n", client.CreateURL(), entityDoc)
			return nil
		},
	})

	cli.Run()
}
