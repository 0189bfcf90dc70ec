package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stanthony/volunteer-hours/internal/config"
	"github.com/stanthony/volunteer-hours/pkg/core/model"
	"github.com/stanthony/volunteer-hours/pkg/db"
)

// RegistrationAppender defines the persistence needed to record registrations
type RegistrationAppender interface {
	AppendRegistration(ctx context.Context, registration db.Registration) error
	Durable() bool
}

// Mailer sends the optional confirmation email
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// RegistrationInput is the submitted form
type RegistrationInput struct {
	FirstName        string                  `json:"firstName" validate:"required,max=50"`
	LastName         string                  `json:"lastName" validate:"required,max=50"`
	Phone            string                  `json:"phone" validate:"required,max=30"`
	Email            string                  `json:"email" validate:"omitempty,email"`
	AgeBracket       string                  `json:"ageBracket" validate:"required"`
	EmergencyContact string                  `json:"emergencyContact"`
	Experience       string                  `json:"experience"`
	Availability     []model.DayAvailability `json:"availability"`
	Notes            string                  `json:"notes" validate:"max=2000"`
}

// stationRequirements are the extra fields the station sign-up asks for
type stationRequirements struct {
	Email            string `json:"email" validate:"required,email"`
	EmergencyContact string `json:"emergencyContact" validate:"required"`
	Experience       string `json:"experience" validate:"required"`
}

// FieldError names a field that failed validation and the rule it broke
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Rule
}

// RegistrationResult is the definite outcome of a submission
type RegistrationResult struct {
	Outcome      Outcome             `json:"outcome"`
	Errors       []FieldError        `json:"errors,omitempty"`
	Detail       string              `json:"detail,omitempty"`
	Registration *model.Registration `json:"registration,omitempty"`
	EmailSent    bool                `json:"emailSent"`
}

// RegistrationForm is everything a client needs to render the sign-up form
type RegistrationForm struct {
	Festival         string              `json:"festival"`
	Variant          string              `json:"variant"`
	Days             []model.FestivalDay `json:"days"`
	Stations         []model.Station     `json:"stations,omitempty"`
	AgeBrackets      []string            `json:"ageBrackets"`
	ExperienceLevels []string            `json:"experienceLevels,omitempty"`
}

// Registrar validates and records volunteer sign-ups
type Registrar struct {
	form   RegistrationForm
	store  RegistrationAppender
	mailer Mailer // nil disables confirmation emails
	logger *zap.Logger

	// columns spreads stored availability one cell per festival day; nil stores a summary
	columns []string

	validate *validator.Validate
	now      func() time.Time
}

// NewRegistrar builds the form description from cfg. mailer may be nil.
func NewRegistrar(cfg *config.Config, store RegistrationAppender, mailer Mailer, logger *zap.Logger) (*Registrar, error) {
	days, err := cfg.FestivalDays()
	if err != nil {
		return nil, fmt.Errorf("failed to build festival days: %w", err)
	}

	columns, err := cfg.AvailabilityColumns()
	if err != nil {
		return nil, fmt.Errorf("failed to build availability columns: %w", err)
	}

	form := RegistrationForm{
		Festival:         cfg.Festival.Name,
		Variant:          cfg.Festival.Variant,
		Days:             days,
		Stations:         cfg.Stations(),
		AgeBrackets:      append([]string(nil), cfg.Festival.AgeBrackets...),
		ExperienceLevels: append([]string(nil), cfg.Festival.ExperienceLevels...),
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	return &Registrar{
		form:     form,
		store:    store,
		mailer:   mailer,
		logger:   logger,
		columns:  columns,
		validate: v,
		now:      time.Now,
	}, nil
}

// Form returns the sign-up form description
func (r *Registrar) Form() RegistrationForm {
	return r.form
}

// SubmitRegistration validates the input and appends one row.
// Invalid input never reaches storage. There is no de-duplication: submitting twice stores two rows.
func (r *Registrar) SubmitRegistration(ctx context.Context, input RegistrationInput) RegistrationResult {
	input = normalizeInput(input)

	if fieldErrors := r.validateInput(input); len(fieldErrors) > 0 {
		return RegistrationResult{
			Outcome: OutcomeValidationFailed,
			Errors:  fieldErrors,
		}
	}

	registration := model.Registration{
		ID:               uuid.NewString(),
		FirstName:        input.FirstName,
		LastName:         input.LastName,
		Phone:            input.Phone,
		Email:            input.Email,
		AgeBracket:       input.AgeBracket,
		EmergencyContact: input.EmergencyContact,
		Experience:       input.Experience,
		Availability:     r.orderAvailability(input.Availability),
		Notes:            input.Notes,
		SubmittedAt:      r.now().Truncate(time.Second),
	}

	if err := r.store.AppendRegistration(ctx, db.RegistrationFromModel(registration, r.columns)); err != nil {
		r.logger.Error("Failed to record registration",
			zap.String("name", registration.FullName()),
			zap.String("phone", registration.Phone),
			zap.String("submitted_at", registration.SubmittedAt.Format(model.TimestampLayout)),
			zap.Error(err))
		return RegistrationResult{
			Outcome:      OutcomePersistenceFailed,
			Detail:       err.Error(),
			Registration: &registration,
		}
	}

	r.logger.Info("Volunteer registered",
		zap.String("id", registration.ID),
		zap.String("name", registration.FullName()),
		zap.Bool("durable", r.store.Durable()))

	return RegistrationResult{
		Outcome:      OutcomeAccepted,
		Registration: &registration,
		EmailSent:    r.sendConfirmation(ctx, registration),
	}
}

// sendConfirmation is best effort; its failure never changes the outcome
func (r *Registrar) sendConfirmation(ctx context.Context, registration model.Registration) bool {
	if r.mailer == nil || registration.Email == "" || !r.store.Durable() {
		return false
	}

	subject := fmt.Sprintf("%s: thank you for volunteering", r.form.Festival)
	if err := r.mailer.SendEmail(ctx, registration.Email, subject, confirmationBody(registration)); err != nil {
		r.logger.Warn("Failed to send confirmation email",
			zap.String("email", registration.Email),
			zap.Error(err))
		return false
	}
	return true
}

func confirmationBody(registration model.Registration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", registration.FirstName)
	b.WriteString("Thank you for registering to volunteer. We have you down for:\n\n")
	for _, a := range registration.Availability {
		fmt.Fprintf(&b, "  - %s\n", a.String())
	}
	b.WriteString("\nWe look forward to seeing you at the festival!\n")
	return b.String()
}

func (r *Registrar) validateInput(input RegistrationInput) []FieldError {
	var fieldErrors []FieldError

	fieldErrors = append(fieldErrors, r.structErrors(input)...)
	if r.form.Variant == config.VariantStations {
		fieldErrors = append(fieldErrors, r.structErrors(stationRequirements{
			Email:            input.Email,
			EmergencyContact: input.EmergencyContact,
			Experience:       input.Experience,
		})...)
	}

	if input.AgeBracket != "" && !slices.Contains(r.form.AgeBrackets, input.AgeBracket) {
		fieldErrors = append(fieldErrors, FieldError{Field: "ageBracket", Rule: "oneof"})
	}
	if input.Experience != "" && len(r.form.ExperienceLevels) > 0 && !slices.Contains(r.form.ExperienceLevels, input.Experience) {
		fieldErrors = append(fieldErrors, FieldError{Field: "experience", Rule: "oneof"})
	}

	if r.form.Variant == config.VariantStations {
		fieldErrors = append(fieldErrors, r.validateStationAvailability(input.Availability)...)
	} else {
		fieldErrors = append(fieldErrors, r.validateShiftAvailability(input.Availability)...)
	}

	return dedupeFieldErrors(fieldErrors)
}

func (r *Registrar) structErrors(s any) []FieldError {
	err := r.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []FieldError{{Field: "form", Rule: err.Error()}}
	}

	fieldErrors := make([]FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fieldErrors = append(fieldErrors, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return fieldErrors
}

// Shift variant: exactly one offered choice for every festival day
func (r *Registrar) validateShiftAvailability(availability []model.DayAvailability) []FieldError {
	var fieldErrors []FieldError
	chosen := make(map[string]model.DayAvailability, len(availability))

	for _, a := range availability {
		day, ok := r.day(a.Day)
		if !ok {
			fieldErrors = append(fieldErrors, FieldError{Field: "availability", Rule: "unknown_day"})
			continue
		}
		if _, dup := chosen[day.Label]; dup {
			fieldErrors = append(fieldErrors, FieldError{Field: availabilityField(day), Rule: "unique"})
			continue
		}
		chosen[day.Label] = a
		if !slices.Contains(day.Shifts, a.Shift) {
			fieldErrors = append(fieldErrors, FieldError{Field: availabilityField(day), Rule: "oneof"})
		}
	}

	for _, day := range r.form.Days {
		if _, ok := chosen[day.Label]; !ok {
			fieldErrors = append(fieldErrors, FieldError{Field: availabilityField(day), Rule: "required"})
		}
	}

	return fieldErrors
}

// Station variant: at least one day with a known station and at least one offered slot
func (r *Registrar) validateStationAvailability(availability []model.DayAvailability) []FieldError {
	var fieldErrors []FieldError
	seen := make(map[string]bool, len(availability))
	usable := 0

	for _, a := range availability {
		day, ok := r.day(a.Day)
		if !ok {
			fieldErrors = append(fieldErrors, FieldError{Field: "availability", Rule: "unknown_day"})
			continue
		}
		if seen[day.Label] {
			fieldErrors = append(fieldErrors, FieldError{Field: availabilityField(day), Rule: "unique"})
			continue
		}
		seen[day.Label] = true

		// A day with no slots picked is simply not offered
		if len(a.Slots) == 0 {
			continue
		}
		if !r.hasStation(a.Station) {
			fieldErrors = append(fieldErrors, FieldError{Field: availabilityField(day) + ".station", Rule: "oneof"})
			continue
		}
		for _, slot := range a.Slots {
			if !slices.Contains(day.Shifts, slot) {
				fieldErrors = append(fieldErrors, FieldError{Field: availabilityField(day) + ".slots", Rule: "oneof"})
				break
			}
		}
		usable++
	}

	if usable == 0 && len(fieldErrors) == 0 {
		fieldErrors = append(fieldErrors, FieldError{Field: "availability", Rule: "min"})
	}

	return fieldErrors
}

// orderAvailability keeps only offered days, in festival order
func (r *Registrar) orderAvailability(availability []model.DayAvailability) []model.DayAvailability {
	ordered := make([]model.DayAvailability, 0, len(availability))
	for _, day := range r.form.Days {
		for _, a := range availability {
			if a.Day != day.Label {
				continue
			}
			if r.form.Variant == config.VariantStations && len(a.Slots) == 0 {
				break
			}
			a.Slots = append([]string(nil), a.Slots...)
			ordered = append(ordered, a)
			break
		}
	}
	return ordered
}

func (r *Registrar) day(label string) (model.FestivalDay, bool) {
	for _, day := range r.form.Days {
		if day.Label == label {
			return day, true
		}
	}
	return model.FestivalDay{}, false
}

func (r *Registrar) hasStation(name string) bool {
	for _, s := range r.form.Stations {
		if s.Name == name {
			return true
		}
	}
	return false
}

func availabilityField(day model.FestivalDay) string {
	return "availability[" + day.Label + "]"
}

func normalizeInput(input RegistrationInput) RegistrationInput {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Email = strings.TrimSpace(input.Email)
	input.AgeBracket = strings.TrimSpace(input.AgeBracket)
	input.EmergencyContact = strings.TrimSpace(input.EmergencyContact)
	input.Experience = strings.TrimSpace(input.Experience)
	input.Notes = strings.TrimSpace(input.Notes)

	availability := make([]model.DayAvailability, 0, len(input.Availability))
	for _, a := range input.Availability {
		a.Day = strings.TrimSpace(a.Day)
		a.Shift = strings.TrimSpace(a.Shift)
		a.Station = strings.TrimSpace(a.Station)
		slots := make([]string, 0, len(a.Slots))
		for _, slot := range a.Slots {
			if slot = strings.TrimSpace(slot); slot != "" {
				slots = append(slots, slot)
			}
		}
		a.Slots = slots
		availability = append(availability, a)
	}
	input.Availability = availability

	return input
}

// The station checks can repeat an email error already reported by the base form
func dedupeFieldErrors(fieldErrors []FieldError) []FieldError {
	seen := make(map[string]bool, len(fieldErrors))
	out := fieldErrors[:0]
	for _, fe := range fieldErrors {
		if seen[fe.Field] {
			continue
		}
		seen[fe.Field] = true
		out = append(out, fe)
	}
	return out
}
