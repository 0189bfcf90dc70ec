package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stanthony/volunteer-hours/pkg/db"
)

// ListRegistrationsCmd creates the listRegistrations command
func ListRegistrationsCmd(get func() *AppContext) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "listRegistrations",
		Short: "List volunteer registrations, optionally only those available on a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()

			registrations, err := app.Gateway.Registrations(app.Ctx)
			if err != nil {
				return fmt.Errorf("failed to list registrations: %w", err)
			}
			columns, err := app.Cfg.AvailabilityColumns()
			if err != nil {
				return fmt.Errorf("failed to build availability columns: %w", err)
			}
			registrations = filterRegistrationsByDay(registrations, columns, day)

			app.Logger.Debug("listRegistrations command",
				zap.Int("count", len(registrations)),
				zap.String("day", day))

			printDemoWarning(app.Gateway.Durable())
			printRegistrationTable(registrations, columns)
			return nil
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "Only show volunteers whose availability mentions this day, e.g. \"October 11\"")

	return cmd
}

// availabilityText renders stored availability as "day: shift" pairs.
// Without day columns the single summary cell is returned as is.
func availabilityText(r db.Registration, columns []string) string {
	if len(columns) == 0 {
		return strings.Join(r.Availability, " | ")
	}
	var parts []string
	for i, shift := range r.Availability {
		if shift == "" || i >= len(columns) {
			continue
		}
		parts = append(parts, columns[i]+": "+shift)
	}
	return strings.Join(parts, " | ")
}

func filterRegistrationsByDay(registrations []db.Registration, columns []string, day string) []db.Registration {
	day = strings.ToLower(strings.TrimSpace(day))
	if day == "" {
		return registrations
	}

	var filtered []db.Registration
	for _, r := range registrations {
		if strings.Contains(strings.ToLower(availabilityText(r, columns)), day) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func printRegistrationTable(registrations []db.Registration, columns []string) {
	fmt.Printf("\nRegistrations (%d)\n\n", len(registrations))
	if len(registrations) == 0 {
		return
	}

	names := make([]string, 0, len(registrations))
	for _, r := range registrations {
		names = append(names, r.FirstName+" "+r.LastName)
	}
	nameWidth := nameColumnWidth(names)

	fmt.Printf("%-*s%-16s%-8s%-22s%s\n", nameWidth, "Name", "Phone", "Age", "Submitted", "Availability")
	fmt.Println(strings.Repeat("-", nameWidth+16+8+22+30))

	for i, r := range registrations {
		fmt.Printf("%-*s%-16s%-8s%s%-22s%s%s\n",
			nameWidth, names[i], r.Phone, r.AgeBracket,
			colorDim, r.SubmittedAt, colorReset,
			availabilityText(r, columns))
	}
	fmt.Println()
}
