package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stanthony/volunteer-hours/internal/config"
	"github.com/stanthony/volunteer-hours/pkg/core/model"
	"github.com/stanthony/volunteer-hours/pkg/db"
)

const (
	thursday = "Thursday, October 9, 2025"
	friday   = "Friday, October 10, 2025"
	saturday = "Saturday, October 11, 2025"
	sunday   = "Sunday, October 12, 2025"
)

// mockRegistrationStore implements RegistrationAppender for testing
type mockRegistrationStore struct {
	rows    []db.Registration
	err     error
	calls   int
	durable bool
}

func (m *mockRegistrationStore) AppendRegistration(ctx context.Context, registration db.Registration) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, registration)
	return nil
}

func (m *mockRegistrationStore) Durable() bool {
	return m.durable
}

// mockMailer implements Mailer for testing
type mockMailer struct {
	sent []string
	err  error
}

func (m *mockMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

func festivalConfig(variant string) *config.Config {
	cfg := &config.Config{
		Festival: config.FestivalConfig{
			Name:      "Harvest Festival",
			Variant:   variant,
			StartDate: "2025-10-09",
			Schedule:  "FREQ=DAILY;COUNT=4",
			Shifts:    []string{"11:00 am - 5:00 pm", "5:00 pm - 11:00 pm", "Other"},
			DayOverrides: []config.DayOverride{
				{RRule: "FREQ=WEEKLY;BYDAY=SU", Shifts: []string{"11:00 am - 4:30 pm", "4:30 pm - 10:00 pm", "Other"}},
			},
			AgeBrackets: []string{"14-18", "18+"},
		},
	}
	if variant == config.VariantStations {
		cfg.Festival.Stations = []config.StationConfig{
			{Name: "Cosmetology", Description: "Face painting"},
			{Name: "Inflatables"},
		}
		cfg.Festival.ExperienceLevels = []string{"First time", "Some experience"}
	}
	return cfg
}

func newTestRegistrar(t *testing.T, variant string, store RegistrationAppender, mailer Mailer) *Registrar {
	t.Helper()
	r, err := NewRegistrar(festivalConfig(variant), store, mailer, zap.NewNop())
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2025, 10, 1, 9, 30, 15, 700_000_000, time.Local) }
	return r
}

func shiftInput() RegistrationInput {
	return RegistrationInput{
		FirstName:  "Alex",
		LastName:   "Rivera",
		Phone:      "555-0100",
		AgeBracket: "18+",
		Availability: []model.DayAvailability{
			{Day: sunday, Shift: "4:30 pm - 10:00 pm"},
			{Day: thursday, Shift: "11:00 am - 5:00 pm"},
			{Day: friday, Shift: "Other"},
			{Day: saturday, Shift: "5:00 pm - 11:00 pm"},
		},
	}
}

func stationInput() RegistrationInput {
	return RegistrationInput{
		FirstName:        "Sam",
		LastName:         "Lee",
		Phone:            "555-0101",
		Email:            "sam@example.com",
		AgeBracket:       "14-18",
		EmergencyContact: "Pat Lee 555-0102",
		Experience:       "First time",
		Availability: []model.DayAvailability{
			{Day: friday, Station: "Cosmetology", Slots: []string{"11:00 am - 5:00 pm"}},
		},
	}
}

func TestNewRegistrar_Form(t *testing.T) {
	r := newTestRegistrar(t, config.VariantShifts, &mockRegistrationStore{}, nil)

	form := r.Form()
	require.Len(t, form.Days, 4)
	assert.Equal(t, thursday, form.Days[0].Label)
	assert.Equal(t, sunday, form.Days[3].Label)
	assert.Equal(t, "11:00 am - 4:30 pm", form.Days[3].Shifts[0], "sunday override applies")
	assert.Equal(t, []string{"14-18", "18+"}, form.AgeBrackets)
}

func TestSubmitRegistration_ShiftVariantAccepted(t *testing.T) {
	store := &mockRegistrationStore{durable: true}
	r := newTestRegistrar(t, config.VariantShifts, store, nil)

	result := r.SubmitRegistration(context.Background(), shiftInput())

	require.Equal(t, OutcomeAccepted, result.Outcome)
	require.Len(t, store.rows, 1)
	row := store.rows[0]
	assert.Equal(t, "Alex", row.FirstName)
	assert.Equal(t, "Rivera", row.LastName)
	assert.Equal(t, "2025-10-01 09:30:15", row.SubmittedAt)
	assert.Equal(t,
		[]string{"11:00 am - 5:00 pm", "Other", "5:00 pm - 11:00 pm", "4:30 pm - 10:00 pm"},
		row.Availability, "one shift per festival day, in festival order")
	assert.False(t, result.EmailSent)
}

func TestSubmitRegistration_MissingRequiredFields(t *testing.T) {
	store := &mockRegistrationStore{durable: true}
	mailer := &mockMailer{}
	r := newTestRegistrar(t, config.VariantShifts, store, mailer)

	input := shiftInput()
	input.FirstName = "  "
	input.Phone = ""

	result := r.SubmitRegistration(context.Background(), input)

	assert.Equal(t, OutcomeValidationFailed, result.Outcome)
	assert.Contains(t, result.Errors, FieldError{Field: "firstName", Rule: "required"})
	assert.Contains(t, result.Errors, FieldError{Field: "phone", Rule: "required"})
	assert.Equal(t, 0, store.calls, "invalid input never reaches storage")
	assert.Empty(t, mailer.sent)
}

func TestSubmitRegistration_ShiftVariantValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*RegistrationInput)
		want   FieldError
	}{
		{
			name:   "age bracket not offered",
			modify: func(in *RegistrationInput) { in.AgeBracket = "65+" },
			want:   FieldError{Field: "ageBracket", Rule: "oneof"},
		},
		{
			name:   "bad email",
			modify: func(in *RegistrationInput) { in.Email = "not-an-email" },
			want:   FieldError{Field: "email", Rule: "email"},
		},
		{
			name:   "missing day",
			modify: func(in *RegistrationInput) { in.Availability = in.Availability[1:] },
			want:   FieldError{Field: "availability[" + sunday + "]", Rule: "required"},
		},
		{
			name: "shift not offered that day",
			modify: func(in *RegistrationInput) {
				in.Availability[0] = model.DayAvailability{Day: sunday, Shift: "5:00 pm - 11:00 pm"}
			},
			want: FieldError{Field: "availability[" + sunday + "]", Rule: "oneof"},
		},
		{
			name: "unknown day",
			modify: func(in *RegistrationInput) {
				in.Availability = append(in.Availability, model.DayAvailability{Day: "Monday", Shift: "Other"})
			},
			want: FieldError{Field: "availability", Rule: "unknown_day"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockRegistrationStore{}
			r := newTestRegistrar(t, config.VariantShifts, store, nil)

			input := shiftInput()
			tt.modify(&input)
			result := r.SubmitRegistration(context.Background(), input)

			assert.Equal(t, OutcomeValidationFailed, result.Outcome)
			assert.Contains(t, result.Errors, tt.want)
			assert.Equal(t, 0, store.calls)
		})
	}
}

func TestSubmitRegistration_StationVariant(t *testing.T) {
	store := &mockRegistrationStore{durable: true}
	r := newTestRegistrar(t, config.VariantStations, store, nil)

	input := stationInput()
	input.Availability = append(input.Availability,
		model.DayAvailability{Day: saturday, Station: "Inflatables", Slots: []string{"5:00 pm - 11:00 pm", "Other"}},
		model.DayAvailability{Day: sunday, Station: "Cosmetology"},
	)

	result := r.SubmitRegistration(context.Background(), input)

	require.Equal(t, OutcomeAccepted, result.Outcome)
	require.Len(t, store.rows, 1)
	assert.Equal(t,
		[]string{friday + ": Cosmetology (11:00 am - 5:00 pm) | " + saturday + ": Inflatables (5:00 pm - 11:00 pm, Other)"},
		store.rows[0].Availability)
	assert.Equal(t, "Pat Lee 555-0102", store.rows[0].EmergencyContact)
	assert.Equal(t, "First time", store.rows[0].Experience)
}

func TestSubmitRegistration_StationVariantValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*RegistrationInput)
		want   FieldError
	}{
		{
			name:   "email required",
			modify: func(in *RegistrationInput) { in.Email = "" },
			want:   FieldError{Field: "email", Rule: "required"},
		},
		{
			name:   "emergency contact required",
			modify: func(in *RegistrationInput) { in.EmergencyContact = "" },
			want:   FieldError{Field: "emergencyContact", Rule: "required"},
		},
		{
			name:   "experience required",
			modify: func(in *RegistrationInput) { in.Experience = "" },
			want:   FieldError{Field: "experience", Rule: "required"},
		},
		{
			name:   "experience not offered",
			modify: func(in *RegistrationInput) { in.Experience = "Expert" },
			want:   FieldError{Field: "experience", Rule: "oneof"},
		},
		{
			name:   "no station and slot",
			modify: func(in *RegistrationInput) { in.Availability = nil },
			want:   FieldError{Field: "availability", Rule: "min"},
		},
		{
			name: "unknown station",
			modify: func(in *RegistrationInput) {
				in.Availability[0].Station = "Basketball"
			},
			want: FieldError{Field: "availability[" + friday + "].station", Rule: "oneof"},
		},
		{
			name: "slot not offered",
			modify: func(in *RegistrationInput) {
				in.Availability[0].Slots = []string{"midnight"}
			},
			want: FieldError{Field: "availability[" + friday + "].slots", Rule: "oneof"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockRegistrationStore{}
			r := newTestRegistrar(t, config.VariantStations, store, nil)

			input := stationInput()
			tt.modify(&input)
			result := r.SubmitRegistration(context.Background(), input)

			assert.Equal(t, OutcomeValidationFailed, result.Outcome)
			assert.Contains(t, result.Errors, tt.want)
			assert.Equal(t, 0, store.calls)
		})
	}
}

func TestSubmitRegistration_PersistenceFailureEchoesData(t *testing.T) {
	store := &mockRegistrationStore{durable: true, err: errors.New("sheet is protected")}
	mailer := &mockMailer{}
	r := newTestRegistrar(t, config.VariantStations, store, mailer)

	result := r.SubmitRegistration(context.Background(), stationInput())

	assert.Equal(t, OutcomePersistenceFailed, result.Outcome)
	assert.Contains(t, result.Detail, "sheet is protected")
	require.NotNil(t, result.Registration)
	assert.Equal(t, "Sam Lee", result.Registration.FullName())
	assert.Equal(t, "555-0101", result.Registration.Phone)
	assert.Equal(t, 1, store.calls)
	assert.Empty(t, mailer.sent)
}

func TestSubmitRegistration_TwiceStoresTwoRows(t *testing.T) {
	store := &mockRegistrationStore{durable: true}
	r := newTestRegistrar(t, config.VariantShifts, store, nil)

	r.SubmitRegistration(context.Background(), shiftInput())
	r.SubmitRegistration(context.Background(), shiftInput())

	assert.Len(t, store.rows, 2)
}

func TestSubmitRegistration_ConfirmationEmail(t *testing.T) {
	tests := []struct {
		name      string
		durable   bool
		email     string
		mailErr   error
		wantSent  bool
		wantCount int
	}{
		{name: "durable with email", durable: true, email: "alex@example.com", wantSent: true, wantCount: 1},
		{name: "demo mode", durable: false, email: "alex@example.com"},
		{name: "no email given", durable: true},
		{name: "mail failure does not change outcome", durable: true, email: "alex@example.com", mailErr: errors.New("smtp down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockRegistrationStore{durable: tt.durable}
			mailer := &mockMailer{err: tt.mailErr}
			r := newTestRegistrar(t, config.VariantShifts, store, mailer)

			input := shiftInput()
			input.Email = tt.email
			result := r.SubmitRegistration(context.Background(), input)

			assert.Equal(t, OutcomeAccepted, result.Outcome)
			assert.Equal(t, tt.wantSent, result.EmailSent)
			assert.Len(t, mailer.sent, tt.wantCount)
		})
	}
}

func TestConfirmationBody(t *testing.T) {
	body := confirmationBody(model.Registration{
		FirstName:    "Alex",
		Availability: []model.DayAvailability{{Day: friday, Shift: "Other"}},
	})

	assert.Contains(t, body, "Hi Alex,")
	assert.Contains(t, body, "  - "+friday+": Other\n")
}
