package leads

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// ConsentRequiredMessage is reported on the consent field whenever the
// consent box was not ticked.
const ConsentRequiredMessage = "Please confirm you agree to be contacted about your enquiry"

// FieldErrors maps a form field name to the message of the first rule it broke.
type FieldErrors map[string]string

// ConsentMissing reports whether consent was among the failures.
func (fe FieldErrors) ConsentMissing() bool {
	_, ok := fe[FieldConsent]
	return ok
}

var (
	validate     = newValidator()
	strictPolicy = bluemonday.StrictPolicy()
)

// leadForm is the trimmed form as posted; tags carry the field rules.
type leadForm struct {
	FirstName         string `form:"first_name" validate:"required,min=2,max=80"`
	LastName          string `form:"last_name" validate:"required,min=2,max=80"`
	Email             string `form:"email" validate:"required,email,max=254"`
	Phone             string `form:"phone" validate:"required,min=7,max=24"`
	ContactMethod     string `form:"contact_method" validate:"required,contact_method"`
	TreatmentInterest string `form:"treatment_interest" validate:"required,min=2,max=120"`
	TargetArea        string `form:"target_area" validate:"required,target_area"`
	PreferredDate     string `form:"preferred_date" validate:"omitempty,max=40"`
	PreferredTime     string `form:"preferred_time" validate:"omitempty,max=40"`
	Message           string `form:"message" validate:"omitempty,max=2000"`
	Source            string `form:"source" validate:"omitempty,max=100"`
	PagePath          string `form:"page_path" validate:"omitempty,max=500"`
	UTMSource         string `form:"utm_source" validate:"omitempty,max=200"`
	UTMMedium         string `form:"utm_medium" validate:"omitempty,max=200"`
	UTMCampaign       string `form:"utm_campaign" validate:"omitempty,max=200"`
	UTMTerm           string `form:"utm_term" validate:"omitempty,max=200"`
	UTMContent        string `form:"utm_content" validate:"omitempty,max=200"`
}

func newValidator() *validator.Validate {
	v := validator.New()

	// Report errors under the posted field name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("form")
	})

	_ = v.RegisterValidation("contact_method", func(fl validator.FieldLevel) bool {
		switch ContactMethod(fl.Field().String()) {
		case ContactPhone, ContactEmail, ContactWhatsApp:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("target_area", func(fl validator.FieldLevel) bool {
		area := TargetArea(fl.Field().String())
		for _, known := range TargetAreas {
			if area == known {
				return true
			}
		}
		return false
	})
	return v
}

// Validate checks a raw booking form and returns the normalized lead, or the
// per-field errors. Consent is checked independently of every other field so
// a missing consent always shows up under FieldConsent.
func Validate(fields map[string]string) (*ValidatedLead, FieldErrors) {
	form := leadForm{
		FirstName:         value(fields, FieldFirstName),
		LastName:          value(fields, FieldLastName),
		Email:             value(fields, FieldEmail),
		Phone:             value(fields, FieldPhone),
		ContactMethod:     strings.ToLower(value(fields, FieldContactMethod)),
		TreatmentInterest: plainText(value(fields, FieldTreatmentInterest)),
		TargetArea:        strings.ToLower(value(fields, FieldTargetArea)),
		PreferredDate:     value(fields, FieldPreferredDate),
		PreferredTime:     value(fields, FieldPreferredTime),
		Message:           plainText(value(fields, FieldMessage)),
		Source:            value(fields, FieldSource),
		PagePath:          value(fields, FieldPagePath),
		UTMSource:         value(fields, FieldUTMSource),
		UTMMedium:         value(fields, FieldUTMMedium),
		UTMCampaign:       value(fields, FieldUTMCampaign),
		UTMTerm:           value(fields, FieldUTMTerm),
		UTMContent:        value(fields, FieldUTMContent),
	}

	errs := FieldErrors{}
	if err := validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			errs["form"] = "We could not read your enquiry"
		}
		for _, fe := range verrs {
			if _, seen := errs[fe.Field()]; !seen {
				errs[fe.Field()] = messageFor(fe)
			}
		}
	}
	if value(fields, FieldConsent) != CheckedMarker {
		errs[FieldConsent] = ConsentRequiredMessage
	}
	if len(errs) > 0 {
		return nil, errs
	}

	return &ValidatedLead{
		FirstName:         form.FirstName,
		LastName:          form.LastName,
		Email:             form.Email,
		Phone:             form.Phone,
		ContactMethod:     ContactMethod(form.ContactMethod),
		TreatmentInterest: form.TreatmentInterest,
		TargetArea:        TargetArea(form.TargetArea),
		PreferredDate:     optional(form.PreferredDate),
		PreferredTime:     optional(form.PreferredTime),
		Message:           optional(form.Message),
		Consent:           true,
		MarketingOptIn:    value(fields, FieldMarketingOptIn) == CheckedMarker,
		Attribution: Attribution{
			Source:      optional(form.Source),
			PagePath:    optional(form.PagePath),
			UTMSource:   optional(form.UTMSource),
			UTMMedium:   optional(form.UTMMedium),
			UTMCampaign: optional(form.UTMCampaign),
			UTMTerm:     optional(form.UTMTerm),
			UTMContent:  optional(form.UTMContent),
		},
	}, nil
}

var fieldLabels = map[string]string{
	FieldFirstName:         "First name",
	FieldLastName:          "Last name",
	FieldEmail:             "Email",
	FieldPhone:             "Phone number",
	FieldContactMethod:     "Contact method",
	FieldTreatmentInterest: "Treatment",
	FieldTargetArea:        "Treatment area",
	FieldPreferredDate:     "Preferred date",
	FieldPreferredTime:     "Preferred time",
	FieldMessage:           "Message",
}

func messageFor(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = "This field"
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Please enter a valid email address"
	case "min":
		if fe.Field() == FieldPhone {
			return "Please enter a valid phone number"
		}
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		if fe.Field() == FieldPhone {
			return "Please enter a valid phone number"
		}
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "contact_method":
		return "Choose phone, email or WhatsApp"
	case "target_area":
		return "Choose a treatment area"
	default:
		return label + " is invalid"
	}
}

func value(fields map[string]string, key string) string {
	return strings.TrimSpace(fields[key])
}

// plainText strips markup from free text, keeping ordinary punctuation intact.
func plainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
