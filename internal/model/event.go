package model

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }

func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

type Event struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id" validate:"required"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description,omitempty" validate:"max=2000"`
	Category    Category  `json:"category" validate:"required"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Flexible    bool      `json:"flexible"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (e Event) Interval() Interval { return Interval{Start: e.Start, End: e.End} }

func (e Event) Duration() time.Duration { return e.End.Sub(e.Start) }

func (e Event) Overlaps(o Event) bool { return e.Interval().Overlaps(o.Interval()) }

// Shift moves the event to start at the given instant, keeping its duration.
func (e Event) Shift(start time.Time) Event {
	d := e.Duration()
	e.Start = start
	e.End = start.Add(d)
	return e
}

// In returns the event with its instants expressed in loc.
func (e Event) In(loc *time.Location) Event {
	e.Start = e.Start.In(loc)
	e.End = e.End.In(loc)
	return e
}

func (e Event) Validate() error {
	fields := make([]FieldError, 0)
	if err := validate.Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &ValidationError{Err: err}
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: strings.ToLower(fe.Field()), Message: describeTag(fe)})
		}
	}
	if e.Category != "" && !e.Category.IsValid() {
		fields = append(fields, FieldError{Field: "category", Message: "unknown category " + string(e.Category)})
	}
	if strings.TrimSpace(e.Title) == "" && !hasField(fields, "title") {
		fields = append(fields, FieldError{Field: "title", Message: "is required"})
	}
	if e.Start.IsZero() || e.End.IsZero() {
		fields = append(fields, FieldError{Field: "start", Message: "start and end are required"})
	} else if !e.End.After(e.Start) {
		return &ValidationError{Fields: append(fields, FieldError{Field: "end", Message: "must be after start"}), Err: ErrInvalidInterval}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

func hasField(fields []FieldError, name string) bool {
	for _, f := range fields {
		if f.Field == name {
			return true
		}
	}
	return false
}
