package leads

import (
	"fmt"
	"strings"
	"time"
)

// Form field names posted by the booking form.
const (
	FieldFirstName         = "first_name"
	FieldLastName          = "last_name"
	FieldEmail             = "email"
	FieldPhone             = "phone"
	FieldContactMethod     = "contact_method"
	FieldTreatmentInterest = "treatment_interest"
	FieldTargetArea        = "target_area"
	FieldPreferredDate     = "preferred_date"
	FieldPreferredTime     = "preferred_time"
	FieldMessage           = "message"
	FieldConsent           = "consent"
	FieldMarketingOptIn    = "marketing_opt_in"
	FieldHoneypot          = "website"
	FieldSource            = "source"
	FieldPagePath          = "page_path"
	FieldUTMSource         = "utm_source"
	FieldUTMMedium         = "utm_medium"
	FieldUTMCampaign       = "utm_campaign"
	FieldUTMTerm           = "utm_term"
	FieldUTMContent        = "utm_content"
)

// CheckedMarker is the value a ticked checkbox posts for consent and opt-in.
const CheckedMarker = "on"

// Status is the admin-managed pipeline state of a lead.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusContacted Status = "CONTACTED"
	StatusBooked    Status = "BOOKED"
	StatusClosed    Status = "CLOSED"
)

// Statuses lists every status in pipeline order.
var Statuses = []Status{StatusNew, StatusContacted, StatusBooked, StatusClosed}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusBooked, StatusClosed:
		return true
	}
	return false
}

// ParseStatus accepts any casing and surrounding whitespace.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// ContactMethod is how the visitor prefers to be reached.
type ContactMethod string

const (
	ContactPhone    ContactMethod = "phone"
	ContactEmail    ContactMethod = "email"
	ContactWhatsApp ContactMethod = "whatsapp"
)

// TargetArea is the body area the treatment is for.
type TargetArea string

const (
	AreaChin        TargetArea = "chin"
	AreaStomach     TargetArea = "stomach"
	AreaLoveHandles TargetArea = "love-handles"
	AreaArms        TargetArea = "arms"
	AreaThighs      TargetArea = "thighs"
	AreaOther       TargetArea = "other"
)

// TargetAreas lists the accepted target areas.
var TargetAreas = []TargetArea{AreaChin, AreaStomach, AreaLoveHandles, AreaArms, AreaThighs, AreaOther}

// Attribution records where the visitor came from.
type Attribution struct {
	Source      *string `json:"source,omitempty"`
	PagePath    *string `json:"page_path,omitempty"`
	UTMSource   *string `json:"utm_source,omitempty"`
	UTMMedium   *string `json:"utm_medium,omitempty"`
	UTMCampaign *string `json:"utm_campaign,omitempty"`
	UTMTerm     *string `json:"utm_term,omitempty"`
	UTMContent  *string `json:"utm_content,omitempty"`
}

// ValidatedLead is a booking form submission that passed validation.
// Optional fields are nil when they were blank.
type ValidatedLead struct {
	FirstName         string        `json:"first_name"`
	LastName          string        `json:"last_name"`
	Email             string        `json:"email"`
	Phone             string        `json:"phone"`
	ContactMethod     ContactMethod `json:"contact_method"`
	TreatmentInterest string        `json:"treatment_interest"`
	TargetArea        TargetArea    `json:"target_area"`
	PreferredDate     *string       `json:"preferred_date,omitempty"`
	PreferredTime     *string       `json:"preferred_time,omitempty"`
	Message           *string       `json:"message,omitempty"`
	Consent           bool          `json:"consent"`
	MarketingOptIn    bool          `json:"marketing_opt_in"`
	Attribution
}

// Lead is a persisted booking enquiry.
type Lead struct {
	ID string `json:"id"`
	ValidatedLead
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins the name parts.
func (l *ValidatedLead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// Reference returns the customer-facing booking reference for the lead.
func (l *Lead) Reference() string {
	return Reference(l.ID)
}

// ListLeadsFilter narrows and pages the admin lead table.
type ListLeadsFilter struct {
	Status Status
	Limit  int
	Offset int
}

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

func (f ListLeadsFilter) normalized() ListLeadsFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
