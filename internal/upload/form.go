package upload

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dharsanguruparan/CircularNest/internal/model"
)

// OrderDateLayout is the wire format of a circular's order date.
const OrderDateLayout = "2006-01-02"

const (
	defaultTitle     = "Untitled"
	defaultGuestName = "Anonymous"
)

// Form is the metadata sent with a PDF.
type Form struct {
	Title       string         `validate:"max=200"`
	Description string         `validate:"max=2000"`
	Category    model.Category `validate:"category"`
	OrderDate   string         `validate:"omitempty,orderdate"`
	GuestName   string         `validate:"max=100"`
	GuestEmail  string         `validate:"omitempty,email"`
}

// FormError lists the fields that failed validation and the rule each broke.
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s (%s)", name, e.Fields[name]))
	}
	return "invalid form: " + strings.Join(parts, ", ")
}

// NewValidator returns a validator with the category and orderdate rules
// registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, ok := model.ParseCategory(fl.Field().String())
		return ok
	})
	v.RegisterValidation("orderdate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(OrderDateLayout, fl.Field().String())
		return err == nil
	})
	return v
}

// normalize trims every field and fills defaults. Guest defaults only apply
// to guest submissions.
func (f Form) normalize(variant Variant) Form {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.OrderDate = strings.TrimSpace(f.OrderDate)
	f.GuestName = strings.TrimSpace(f.GuestName)
	f.GuestEmail = strings.TrimSpace(f.GuestEmail)
	if f.Title == "" {
		f.Title = defaultTitle
	}
	if strings.TrimSpace(string(f.Category)) == "" {
		f.Category = model.CategoryEducation
	} else if c, ok := model.ParseCategory(string(f.Category)); ok {
		f.Category = c
	}
	if variant == Guest {
		if f.GuestName == "" {
			f.GuestName = defaultGuestName
		}
	} else {
		f.GuestName = ""
		f.GuestEmail = ""
	}
	return f
}

func (f Form) validate(v *validator.Validate) error {
	err := v.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &FormError{Fields: fields}
}

// fields renders the multipart text fields for variant.
func (f Form) fields(variant Variant) map[string]string {
	out := map[string]string{
		"title":       f.Title,
		"description": f.Description,
		"category":    string(f.Category),
	}
	if f.OrderDate != "" {
		out["orderDate"] = f.OrderDate
	}
	switch variant {
	case AdminDirect:
		out["status"] = string(model.StatusApproved)
	case Guest:
		out["guestName"] = f.GuestName
		if f.GuestEmail != "" {
			out["guestEmail"] = f.GuestEmail
		}
	}
	return out
}
