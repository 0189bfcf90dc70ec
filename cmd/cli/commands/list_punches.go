package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stanthony/volunteer-hours/pkg/core/services"
	"github.com/stanthony/volunteer-hours/pkg/db"
)

// ListPunchesCmd creates the listPunches command
func ListPunchesCmd(get func() *AppContext) *cobra.Command {
	var (
		name    string
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "listPunches",
		Short: "List recorded punches, or total hours per volunteer with --summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()

			punches, err := app.Gateway.Punches(app.Ctx)
			if err != nil {
				return fmt.Errorf("failed to list punches: %w", err)
			}
			punches = filterPunchesByName(punches, name)

			app.Logger.Debug("listPunches command",
				zap.Int("count", len(punches)),
				zap.Bool("summary", summary))

			printDemoWarning(app.Gateway.Durable())

			if summary {
				printHoursSummary(services.SummarizeHours(punches))
				return nil
			}
			printPunchTable(punches)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Only show punches for this exact name")
	cmd.Flags().BoolVar(&summary, "summary", false, "Total completed hours per volunteer")

	return cmd
}

func filterPunchesByName(punches []db.Punch, name string) []db.Punch {
	name = strings.TrimSpace(name)
	if name == "" {
		return punches
	}

	var filtered []db.Punch
	for _, p := range punches {
		if p.Name == name {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func nameColumnWidth(names []string) int {
	width := 20
	for _, n := range names {
		if len(n) > width {
			width = len(n)
		}
	}
	return width + 2
}

func printPunchTable(punches []db.Punch) {
	fmt.Printf("\nPunches (%d)\n\n", len(punches))
	if len(punches) == 0 {
		return
	}

	names := make([]string, 0, len(punches))
	for _, p := range punches {
		names = append(names, p.Name)
	}
	nameWidth := nameColumnWidth(names)

	fmt.Printf("%-*s%-22s%-6s%-18s%s\n", nameWidth, "Name", "Timestamp", "Dir", "Service", "Location")
	fmt.Println(strings.Repeat("-", nameWidth+22+6+18+10))

	for _, p := range punches {
		color := colorGreen
		if p.Direction == "Out" {
			color = colorYellow
		}
		fmt.Printf("%-*s%-22s%s%-6s%s%-18s%s%s%s\n",
			nameWidth, p.Name, p.Timestamp,
			color, p.Direction, colorReset,
			p.Service,
			colorDim, p.Location, colorReset)
	}
	fmt.Println()
}

func printHoursSummary(summaries []services.VolunteerHours) {
	fmt.Printf("\nVolunteer hours (%d volunteers)\n\n", len(summaries))
	if len(summaries) == 0 {
		return
	}

	names := make([]string, 0, len(summaries))
	for _, s := range summaries {
		names = append(names, s.Name)
	}
	nameWidth := nameColumnWidth(names)

	fmt.Printf("%-*s%-10s%-8s%s\n", nameWidth, "Name", "Hours", "Shifts", "Notes")
	fmt.Println(strings.Repeat("-", nameWidth+10+8+20))

	var total time.Duration
	for _, s := range summaries {
		total += s.Worked
		fmt.Printf("%-*s%-10s%-8d%s\n", nameWidth, s.Name, formatHours(s.Worked), s.Shifts, summaryNotes(s))
	}

	fmt.Println(strings.Repeat("-", nameWidth+10+8+20))
	fmt.Printf("%-*s%-10s\n\n", nameWidth, "Total", formatHours(total))
}

func summaryNotes(s services.VolunteerHours) string {
	var notes []string
	if s.OpenShift {
		notes = append(notes, colorYellow+"still punched in"+colorReset)
	}
	if s.Unmatched > 0 {
		notes = append(notes, fmt.Sprintf("%s%d unmatched%s", colorRed, s.Unmatched, colorReset))
	}
	return strings.Join(notes, ", ")
}

// formatHours renders a duration as decimal hours, e.g. 8.50
func formatHours(d time.Duration) string {
	return fmt.Sprintf("%.2f", d.Hours())
}
