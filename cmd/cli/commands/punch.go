package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stanthony/volunteer-hours/pkg/core/location"
	"github.com/stanthony/volunteer-hours/pkg/core/services"
)

// PunchCmd creates the punch command
func PunchCmd(get func() *AppContext) *cobra.Command {
	var (
		service  string
		ip       string
		lat, lon float64
	)

	cmd := &cobra.Command{
		Use:   "punch <name> <in|out>",
		Short: "Record a punch in or out, gated by the venue geofence",
		Long: `Record a punch in or out for a volunteer.

With the device location strategy, pass the coordinates with --lat and --lon.
With the ip strategy, --ip looks up that address (empty looks up this machine).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()

			req := services.PunchRequest{
				Name:      args[0],
				Direction: args[1],
				Service:   service,
				Session:   services.NewSession(""),
				Location:  location.Request{ClientIP: ip},
			}
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				req.Location.Device = &location.DeviceReport{
					Status:    location.DeviceResolved,
					Latitude:  &lat,
					Longitude: &lon,
				}
			}

			app.Logger.Debug("punch command",
				zap.String("name", req.Name),
				zap.String("direction", req.Direction),
				zap.String("service", req.Service))

			result := app.PunchClock().RecordPunch(app.Ctx, req)
			printPunchResult(result, app.Gateway.Durable())

			if result.Outcome == services.OutcomePersistenceFailed {
				return fmt.Errorf("punch was not saved: %s", result.Detail)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Service or station worked")
	cmd.Flags().StringVar(&ip, "ip", "", "Client IP address for the ip location strategy")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Device latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Device longitude")

	return cmd
}

func printPunchResult(result services.PunchResult, durable bool) {
	switch result.Outcome {
	case services.OutcomeAccepted:
		fmt.Printf("\n%s✓ %s punched %s at %s%s\n", colorGreen, result.Event.ActorName, result.Event.Direction, result.Event.FormattedTimestamp(), colorReset)
		if result.Event.Location != "" {
			fmt.Printf("  Location: %s\n", result.Event.Location)
		}
		if result.Verse != nil {
			fmt.Printf("\n  \"%s\"\n  - %s\n", result.Verse.Text, result.Verse.Reference)
		}
	case services.OutcomeAlreadyRecorded:
		fmt.Printf("\n%sAlready recorded in this session%s\n", colorYellow, colorReset)
	case services.OutcomeRejected:
		fmt.Printf("\n%s✗ Rejected: %s%s\n", colorRed, result.Reason, colorReset)
		if result.DistanceMeters != nil {
			fmt.Printf("  %.0fm from the venue (limit %.0fm)\n", *result.DistanceMeters, result.RadiusMeters)
		}
		if result.Detail != "" {
			fmt.Printf("  %s\n", result.Detail)
		}
	case services.OutcomePersistenceFailed:
		fmt.Printf("\n%s✗ Failed to save punch: %s%s\n", colorRed, result.Detail, colorReset)
		if result.Event != nil {
			fmt.Println("  Record these details manually:")
			fmt.Printf("  %s | %s | %s | %s\n", result.Event.ActorName, result.Event.Service, result.Event.Direction, result.Event.FormattedTimestamp())
		}
	}

	printDemoWarning(durable)
	fmt.Println()
}
