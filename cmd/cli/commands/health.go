package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stanthony/volunteer-hours/pkg/api"
	"github.com/stanthony/volunteer-hours/pkg/core/model"
)

// HealthCmd creates the health command
func HealthCmd(get func() *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report whether storage is durable or in demo mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()
			status := app.Gateway.Status()

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(api.HealthResponse{
				Status:        "healthy",
				Timestamp:     time.Now().Format(model.TimestampLayout),
				SheetsEnabled: status.Durable,
				Mode:          status.Mode,
			}); err != nil {
				return fmt.Errorf("failed to write health report: %w", err)
			}

			if status.Source != "" {
				fmt.Fprintf(os.Stderr, "%sconnected using %s credential%s\n", colorDim, status.Source, colorReset)
			}
			return nil
		},
	}
}
