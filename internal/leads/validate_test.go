package leads

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() map[string]string {
	return map[string]string{
		FieldFirstName:         "  Jane ",
		FieldLastName:          "Smith",
		FieldEmail:             " jane@example.com ",
		FieldPhone:             "+44 7700 900123",
		FieldContactMethod:     "WhatsApp",
		FieldTreatmentInterest: "Fat freezing",
		FieldTargetArea:        "love-handles",
		FieldPreferredDate:     "   ",
		FieldPreferredTime:     "morning",
		FieldMessage:           "",
		FieldConsent:           "on",
		FieldSource:            "booking-page",
		FieldPagePath:          "/book",
		FieldUTMSource:         "google",
	}
}

func strPtr(s string) *string { return &s }

func TestValidate_NormalizesValidForm(t *testing.T) {
	lead, errs := Validate(validForm())
	require.Nil(t, errs)
	require.NotNil(t, lead)

	want := &ValidatedLead{
		FirstName:         "Jane",
		LastName:          "Smith",
		Email:             "jane@example.com",
		Phone:             "+44 7700 900123",
		ContactMethod:     ContactWhatsApp,
		TreatmentInterest: "Fat freezing",
		TargetArea:        AreaLoveHandles,
		PreferredTime:     strPtr("morning"),
		Consent:           true,
		Attribution: Attribution{
			Source:    strPtr("booking-page"),
			PagePath:  strPtr("/book"),
			UTMSource: strPtr("google"),
		},
	}
	if diff := cmp.Diff(want, lead); diff != "" {
		t.Fatalf("validated lead mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_MarketingOptIn(t *testing.T) {
	form := validForm()
	form[FieldMarketingOptIn] = "on"
	lead, errs := Validate(form)
	require.Nil(t, errs)
	assert.True(t, lead.MarketingOptIn)

	form[FieldMarketingOptIn] = "yes"
	lead, errs = Validate(form)
	require.Nil(t, errs)
	assert.False(t, lead.MarketingOptIn)
}

func TestValidate_FieldRules(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   string
		message string
	}{
		{"blank first name", FieldFirstName, "   ", "First name is required"},
		{"short last name", FieldLastName, "S", "Last name must be at least 2 characters"},
		{"bad email", FieldEmail, "jane@", "Please enter a valid email address"},
		{"short phone", FieldPhone, "12345", "Please enter a valid phone number"},
		{"long phone", FieldPhone, strings.Repeat("1", 25), "Please enter a valid phone number"},
		{"unknown contact method", FieldContactMethod, "carrier pigeon", "Choose phone, email or WhatsApp"},
		{"unknown area", FieldTargetArea, "knees", "Choose a treatment area"},
		{"missing treatment", FieldTreatmentInterest, "", "Treatment is required"},
		{"long message", FieldMessage, strings.Repeat("a", 2001), "Message must be at most 2000 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			form[tt.field] = tt.value
			lead, errs := Validate(form)
			assert.Nil(t, lead)
			assert.Equal(t, FieldErrors{tt.field: tt.message}, errs)
			assert.False(t, errs.ConsentMissing())
		})
	}
}

func TestValidate_PhoneBoundaries(t *testing.T) {
	form := validForm()
	form[FieldPhone] = "1234567"
	_, errs := Validate(form)
	assert.Nil(t, errs)

	form[FieldPhone] = strings.Repeat("9", 24)
	_, errs = Validate(form)
	assert.Nil(t, errs)
}

func TestValidate_ConsentMissingIsReportedOnItsOwn(t *testing.T) {
	for _, consent := range []string{"", "off", "true", "ON"} {
		form := validForm()
		if consent == "" {
			delete(form, FieldConsent)
		} else {
			form[FieldConsent] = consent
		}
		lead, errs := Validate(form)
		assert.Nil(t, lead, "consent %q", consent)
		assert.Equal(t, FieldErrors{FieldConsent: ConsentRequiredMessage}, errs, "consent %q", consent)
		assert.True(t, errs.ConsentMissing())
	}
}

func TestValidate_ConsentMarkerIsTrimmed(t *testing.T) {
	form := validForm()
	form[FieldConsent] = " on "
	_, errs := Validate(form)
	assert.Nil(t, errs)
}

func TestValidate_ConsentMissingAlongsideOtherErrors(t *testing.T) {
	form := validForm()
	delete(form, FieldConsent)
	form[FieldEmail] = "nope"
	form[FieldFirstName] = ""

	_, errs := Validate(form)
	require.Len(t, errs, 3)
	assert.True(t, errs.ConsentMissing())
	assert.Equal(t, "Please enter a valid email address", errs[FieldEmail])
	assert.Equal(t, "First name is required", errs[FieldFirstName])
}

func TestValidate_EmptyForm(t *testing.T) {
	_, errs := Validate(nil)
	for _, field := range []string{FieldFirstName, FieldLastName, FieldEmail, FieldPhone, FieldContactMethod, FieldTreatmentInterest, FieldTargetArea, FieldConsent} {
		assert.Contains(t, errs, field)
	}
	assert.NotContains(t, errs, FieldMessage)
	assert.NotContains(t, errs, FieldPreferredDate)
}

func TestValidate_StripsMarkupFromFreeText(t *testing.T) {
	form := validForm()
	form[FieldTreatmentInterest] = "<b>Lipo</b> & tightening"
	form[FieldMessage] = "<script>alert(1)</script>Call after 5pm"

	lead, errs := Validate(form)
	require.Nil(t, errs)
	assert.Equal(t, "Lipo & tightening", lead.TreatmentInterest)
	require.NotNil(t, lead.Message)
	assert.Equal(t, "Call after 5pm", *lead.Message)
}

func TestValidate_MarkupOnlyMessageBecomesNil(t *testing.T) {
	form := validForm()
	form[FieldMessage] = "<img src=x>"
	lead, errs := Validate(form)
	require.Nil(t, errs)
	assert.Nil(t, lead.Message)
}
