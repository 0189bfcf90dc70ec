package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stanthony/volunteer-hours/pkg/api"
)

// ServeCmd creates the serve command
func ServeCmd(get func() *AppContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registration form and punch in/out endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()

			if addr == "" {
				addr = app.Cfg.ServerAddr
			}

			registrar, err := app.Registrar()
			if err != nil {
				return fmt.Errorf("failed to create registrar: %w", err)
			}

			handler := api.NewHandler(api.Options{
				Punches:          app.PunchClock(),
				Registrations:    registrar,
				Storage:          app.Gateway,
				Services:         app.Cfg.Services,
				LocationStrategy: app.Cfg.Location.Strategy,
				DeviceWait:       app.Cfg.Location.DeviceWait,
				Logger:           app.Logger,
			})

			gin.SetMode(gin.ReleaseMode)
			router, err := api.NewRouter(handler, api.NewSessionStore(api.DefaultSessionTTL), app.Cfg.TrustedProxies, app.Logger)
			if err != nil {
				return err
			}

			if !app.Gateway.Durable() {
				app.Logger.Warn("Serving in demo mode: punches and registrations are NOT saved")
			}

			ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := api.Serve(ctx, addr, router, app.Logger); err != nil {
				return fmt.Errorf("server failed: %w", err)
			}

			app.Logger.Info("Server stopped", zap.String("addr", addr))
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to serverAddr from config)")

	return cmd
}
