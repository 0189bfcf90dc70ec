package db

import "github.com/stanthony/volunteer-hours/pkg/core/model"

// Logical table names. Sheets tabs may be titled differently (see sheetssql.WithTab).
const (
	TablePunch        = "punch"
	TableRegistration = "registration"
)

// Punch represents a database punch record
type Punch struct {
	Name      string `json:"name" ssql_header:"name" ssql_type:"text"`
	Service   string `json:"service" ssql_header:"service" ssql_type:"text"`
	Direction string `json:"direction" ssql_header:"direction" ssql_type:"text"`
	Timestamp string `json:"timestamp" ssql_header:"timestamp" ssql_type:"timestamp"`
	Location  string `json:"location" ssql_header:"location" ssql_type:"text"`
}

// Registration represents a database registration record.
// Availability holds one cell per festival day in the shift variant, or a
// single summary cell in the station variant; see Layout.
type Registration struct {
	FirstName        string   `json:"firstName" ssql_header:"first_name" ssql_type:"text"`
	LastName         string   `json:"lastName" ssql_header:"last_name" ssql_type:"text"`
	Phone            string   `json:"phone" ssql_header:"phone" ssql_type:"text"`
	Email            string   `json:"email" ssql_header:"email" ssql_type:"text"`
	AgeBracket       string   `json:"ageBracket" ssql_header:"age_bracket" ssql_type:"text"`
	Availability     []string `json:"availability" ssql_header:"availability" ssql_type:"text"`
	EmergencyContact string   `json:"emergencyContact" ssql_header:"emergency_contact" ssql_type:"text"`
	Experience       string   `json:"experience" ssql_header:"experience" ssql_type:"text"`
	Notes            string   `json:"notes" ssql_header:"notes" ssql_type:"text"`
	SubmittedAt      string   `json:"submittedAt" ssql_header:"submitted_at" ssql_type:"timestamp"`
}

// PunchFromEvent builds the stored row for an accepted punch
func PunchFromEvent(event model.PunchEvent) Punch {
	return Punch{
		Name:      event.ActorName,
		Service:   event.Service,
		Direction: string(event.Direction),
		Timestamp: event.FormattedTimestamp(),
		Location:  event.Location,
	}
}

// RegistrationFromModel builds the stored row for a validated registration.
// With days, availability is the chosen shift per day in that order (empty
// where none was chosen); without, it is the one-cell summary.
func RegistrationFromModel(reg model.Registration, days []string) Registration {
	availability := []string{reg.AvailabilitySummary()}
	if len(days) > 0 {
		chosen := make(map[string]string, len(reg.Availability))
		for _, a := range reg.Availability {
			chosen[a.Day] = a.Shift
		}
		availability = make([]string, len(days))
		for i, day := range days {
			availability[i] = chosen[day]
		}
	}

	return Registration{
		FirstName:        reg.FirstName,
		LastName:         reg.LastName,
		Phone:            reg.Phone,
		Email:            reg.Email,
		AgeBracket:       reg.AgeBracket,
		EmergencyContact: reg.EmergencyContact,
		Experience:       reg.Experience,
		Availability:     availability,
		Notes:            reg.Notes,
		SubmittedAt:      reg.SubmittedAt.Format(model.TimestampLayout),
	}
}
