package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stanthony/volunteer-hours/cmd/cli/commands"
	"github.com/stanthony/volunteer-hours/internal/config"
	"github.com/stanthony/volunteer-hours/pkg/utils/logging"
)

var (
	env     string
	verbose bool
	app     *commands.AppContext
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "volunteer-hours",
		Short: "Festival volunteer registration and punch clock",
		Long:  `Serves the volunteer registration form and geofenced punch in/out, and records both to the festival spreadsheet.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				app.Close()
				_ = app.Logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (selects volunteer_config.<env>.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")

	// Commands resolve the app lazily; it only exists once PersistentPreRunE has run
	get := func() *commands.AppContext { return app }

	rootCmd.AddCommand(commands.ServeCmd(get))
	rootCmd.AddCommand(commands.PunchCmd(get))
	rootCmd.AddCommand(commands.RegisterCmd(get))
	rootCmd.AddCommand(commands.ListPunchesCmd(get))
	rootCmd.AddCommand(commands.ListRegistrationsCmd(get))
	rootCmd.AddCommand(commands.HealthCmd(get))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, storage and clients
func initApp(ctx context.Context) error {
	logger, err := logging.New(env, logging.Options{Verbose: verbose})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Starting application", zap.String("environment", env))

	logger.Info("Loading configuration")
	cfg, err := config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Debug("Configuration loaded successfully",
		zap.String("store", cfg.Store),
		zap.String("location_strategy", cfg.Location.Strategy),
		zap.Float64("radius_meters", cfg.Venue.RadiusMeters))

	app, err = commands.NewAppContext(ctx, cfg, logger)
	if err != nil {
		return err
	}

	status := app.Gateway.Status()
	logger.Info("Application initialized",
		zap.String("storage_mode", string(status.Mode)),
		zap.Bool("durable", status.Durable))

	return nil
}
