package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dollarport/edu-site/internal/leads"
	"github.com/dollarport/edu-site/pkg/logging"
)

// Reason codes reported when the email notifier does not deliver.
const (
	ReasonMailCredentialsMissing = "mail_credentials_missing"
	ReasonMailSendFailed         = "mail_send_failed"
)

// DefaultHREmail receives lead notifications when no inbox is configured.
const DefaultHREmail = "hr.dollarport@gmail.com"

var istZone = time.FixedZone("IST", 5*60*60+30*60)

// EmailNotifier mails every stored lead to the HR inbox.
type EmailNotifier struct {
	sender EmailSender
	to     string
	logger *logging.Logger
	now    func() time.Time
}

// NewEmailNotifier creates the HR mail notifier. A nil sender is allowed and
// reports missing credentials on every lead.
func NewEmailNotifier(sender EmailSender, to string, logger *logging.Logger) *EmailNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(to) == "" {
		to = DefaultHREmail
	}
	return &EmailNotifier{sender: sender, to: to, logger: logger}
}

// Name implements leads.Notifier.
func (n *EmailNotifier) Name() string { return leads.NotifierEmail }

// Notify implements leads.Notifier.
func (n *EmailNotifier) Notify(ctx context.Context, lead leads.Lead) leads.NotifyResult {
	if n == nil || isNilSender(n.sender) {
		return leads.NotifyResult{Sent: false, Reason: ReasonMailCredentialsMissing}
	}

	msg := EmailMessage{
		To:      n.to,
		ReplyTo: lead.Email,
		Subject: LeadSubject(lead),
		Body:    LeadBody(lead),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Error("lead email send failed", "lead_id", lead.LeadID, "error", err)
		return leads.NotifyResult{Sent: false, Reason: ReasonMailSendFailed}
	}
	return leads.NotifyResult{Sent: true}
}

// LeadSubject formats the HR mail subject line.
func LeadSubject(lead leads.Lead) string {
	return fmt.Sprintf("New Lead: %s (%s)", lead.Name, lead.LeadType)
}

// LeadBody renders the plain text HR mail. Empty optional fields print as "-".
func LeadBody(lead leads.Lead) string {
	lines := []string{
		"New lead captured from DollarPort Edu website:",
		"Lead ID: " + lead.LeadID,
		"Lead Type: " + string(lead.LeadType),
		"Name: " + lead.Name,
		"Email: " + orDash(lead.Email),
		"Phone: " + lead.Phone,
		"Course Interest: " + orDash(lead.CourseInterest),
		"Experience Level: " + orDash(lead.ExperienceLevel),
		"Budget Range: " + orDash(lead.BudgetRange),
		"Message: " + orDash(lead.Message),
		"Source Page: " + orDash(lead.SourcePage),
		"UTM Source: " + orDash(lead.UTMSource),
		"UTM Medium: " + orDash(lead.UTMMedium),
		"UTM Campaign: " + orDash(lead.UTMCampaign),
		"Submitted At: " + FormatIST(lead.CreatedAt),
	}
	return strings.Join(lines, "\n")
}

// FormatIST renders t the way Indian-locale clients display timestamps,
// e.g. "16/10/2026, 3:40:00 pm".
func FormatIST(t time.Time) string {
	return t.In(istZone).Format("2/1/2006, 3:04:05 pm")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// isNilSender catches typed nils returned by constructors that signal
// missing configuration.
func isNilSender(s EmailSender) bool {
	switch v := s.(type) {
	case nil:
		return true
	case *SMTPSender:
		return v == nil
	case *SendGridSender:
		return v == nil
	case *SESSender:
		return v == nil
	}
	return false
}

var _ leads.Notifier = (*EmailNotifier)(nil)
