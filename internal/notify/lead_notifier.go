package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/aesthetic-leads/internal/leads"
	"github.com/wolfman30/aesthetic-leads/pkg/logging"
)

// LeadNotifier emails the clinic inbox when a booking lead is stored.
type LeadNotifier struct {
	email   EmailSender
	to      string
	siteURL string
	logger  *logging.Logger
}

// NewLeadNotifier returns nil when there is no sender or no inbox address,
// which callers treat as notifications being disabled.
func NewLeadNotifier(email EmailSender, to, siteURL string, logger *logging.Logger) *LeadNotifier {
	if email == nil || strings.TrimSpace(to) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadNotifier{
		email:   email,
		to:      strings.TrimSpace(to),
		siteURL: strings.TrimRight(siteURL, "/"),
		logger:  logger,
	}
}

// NotifyNewLead sends a single summary email for lead. A nil notifier is a no-op.
func (n *LeadNotifier) NotifyNewLead(ctx context.Context, lead *leads.Lead) error {
	if n == nil || lead == nil {
		return nil
	}
	msg := EmailMessage{
		To:      n.to,
		ReplyTo: lead.Email,
		Subject: fmt.Sprintf("New booking request %s - %s", lead.Reference(), lead.FullName()),
		Body:    n.body(lead),
	}
	if err := n.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: new lead %s: %w", lead.ID, err)
	}
	n.logger.Debug("new lead notification sent", "lead_id", lead.ID)
	return nil
}

func (n *LeadNotifier) body(lead *leads.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A new consultation request came in from the website.\n\n")
	fmt.Fprintf(&b, "Reference: %s\n", lead.Reference())
	fmt.Fprintf(&b, "Name: %s\n", lead.FullName())
	fmt.Fprintf(&b, "Email: %s\n", lead.Email)
	fmt.Fprintf(&b, "Phone: %s\n", lead.Phone)
	fmt.Fprintf(&b, "Preferred contact: %s\n", lead.ContactMethod)
	fmt.Fprintf(&b, "Treatment: %s\n", lead.TreatmentInterest)
	fmt.Fprintf(&b, "Area: %s\n", lead.TargetArea)
	writeOptional(&b, "Preferred date", lead.PreferredDate)
	writeOptional(&b, "Preferred time", lead.PreferredTime)
	writeOptional(&b, "Message", lead.Message)
	if lead.MarketingOptIn {
		b.WriteString("Marketing opt-in: yes\n")
	}
	writeOptional(&b, "Source", lead.Source)
	writeOptional(&b, "Campaign", lead.UTMCampaign)
	if n.siteURL != "" {
		fmt.Fprintf(&b, "\nOpen in admin: %s/admin/leads/%s\n", n.siteURL, lead.ID)
	}
	return b.String()
}

func writeOptional(b *strings.Builder, label string, value *string) {
	if value == nil || *value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, truncate(*value, 500))
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
