package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stanthony/volunteer-hours/internal/config"
	"github.com/stanthony/volunteer-hours/pkg/core/model"
	"github.com/stanthony/volunteer-hours/pkg/core/services"
)

// RegisterCmd creates the register command
func RegisterCmd(get func() *AppContext) *cobra.Command {
	var (
		input services.RegistrationInput
		days  []string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a volunteer from the command line",
		Long: `Register a volunteer, e.g. for a paper sign-up sheet.

Availability is given once per day with --day:
  shifts variant:   --day "Friday, October 10, 2025=5:00 pm - 11:00 pm"
  stations variant: --day "Friday, October 10, 2025=Cosmetology:12-3pm;3-6pm"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()

			availability, err := parseAvailability(days, app.Cfg.Festival.Variant == config.VariantStations)
			if err != nil {
				return err
			}
			input.Availability = availability

			registrar, err := app.Registrar()
			if err != nil {
				return fmt.Errorf("failed to create registrar: %w", err)
			}

			result := registrar.SubmitRegistration(app.Ctx, input)

			switch result.Outcome {
			case services.OutcomeAccepted:
				fmt.Printf("\n%s✓ Thank you %s! Registration recorded.%s\n", colorGreen, result.Registration.FirstName, colorReset)
				fmt.Printf("  %s\n", result.Registration.AvailabilitySummary())
				if result.EmailSent {
					fmt.Printf("  Confirmation sent to %s\n", result.Registration.Email)
				}
			case services.OutcomeValidationFailed:
				fmt.Printf("\n%s✗ Please fix the following:%s\n", colorRed, colorReset)
				for _, fe := range result.Errors {
					fmt.Printf("  - %s\n", fe)
				}
			case services.OutcomePersistenceFailed:
				fmt.Printf("\n%s✗ Failed to save registration: %s%s\n", colorRed, result.Detail, colorReset)
				r := result.Registration
				fmt.Printf("  Registration details: %s, %s, %s\n", r.FullName(), r.Phone, r.Email)
			}
			printDemoWarning(app.Gateway.Durable())
			fmt.Println()

			if result.Outcome != services.OutcomeAccepted {
				return fmt.Errorf("registration %s", result.Outcome)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input.FirstName, "first", "", "First name")
	cmd.Flags().StringVar(&input.LastName, "last", "", "Last name")
	cmd.Flags().StringVar(&input.Phone, "phone", "", "Cell phone")
	cmd.Flags().StringVar(&input.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&input.AgeBracket, "age", "", "Age bracket")
	cmd.Flags().StringVar(&input.EmergencyContact, "emergency-contact", "", "Emergency contact name and phone")
	cmd.Flags().StringVar(&input.Experience, "experience", "", "Experience level")
	cmd.Flags().StringVar(&input.Notes, "notes", "", "Special skills or notes")
	cmd.Flags().StringArrayVar(&days, "day", nil, "Availability for one day (repeatable)")

	return cmd
}

// parseAvailability reads "DAY=SHIFT" entries, or "DAY=STATION:SLOT;SLOT" for stations.
// Day labels contain commas and slots contain colons, so slots are separated by semicolons
// and only the first colon splits the station from its slots.
func parseAvailability(entries []string, stations bool) ([]model.DayAvailability, error) {
	availability := make([]model.DayAvailability, 0, len(entries))
	for _, entry := range entries {
		day, choice, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(day) == "" || strings.TrimSpace(choice) == "" {
			return nil, fmt.Errorf("invalid --day %q, expected DAY=CHOICE", entry)
		}

		a := model.DayAvailability{Day: strings.TrimSpace(day)}
		if stations {
			station, slots, _ := strings.Cut(choice, ":")
			a.Station = strings.TrimSpace(station)
			for _, slot := range strings.Split(slots, ";") {
				if slot = strings.TrimSpace(slot); slot != "" {
					a.Slots = append(a.Slots, slot)
				}
			}
		} else {
			a.Shift = strings.TrimSpace(choice)
		}
		availability = append(availability, a)
	}
	return availability, nil
}
