package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-accounts/httpauth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the account endpoints over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *App) error {
				if addr == "" {
					addr = app.cfg.Runtime.HTTPAddr
				}
				srv := newHTTPServer(app)
				app.GetLogger("http").Info("listening", "addr", addr)
				return srv.Listen(addr)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func newHTTPServer(app *App) *fiber.App {
	srv := fiber.New(fiber.Config{
		AppName:               "accountsctl",
		DisableStartupMessage: true,
		ErrorHandler:          httpauth.ErrorHandler,
	})

	httpauth.NewHandlers(app.service).Register(srv, httpauth.DefaultRoutes)

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}),
	)
	srv.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})
	return srv
}
