package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dollarport/edu-site/internal/leads"
	"github.com/dollarport/edu-site/pkg/logging"
)

var notifyTracer = otel.Tracer("dollarport.internal.notify")

// Reason codes reported when the spreadsheet webhook does not accept a lead.
const (
	ReasonSheetsWebhookMissing = "google_sheets_webhook_missing"
	ReasonSheetsSyncFailed     = "google_sheets_sync_failed"
)

const maxWebhookErrorBody = 2048

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SheetsNotifier posts each lead as JSON to a spreadsheet webhook such as a
// Google Apps Script endpoint.
type SheetsNotifier struct {
	url    string
	client HTTPDoer
	logger *logging.Logger
}

// NewSheetsNotifier creates the webhook notifier. An empty url is allowed and
// reports a missing webhook on every lead.
func NewSheetsNotifier(url string, client HTTPDoer, logger *logging.Logger) *SheetsNotifier {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SheetsNotifier{url: strings.TrimSpace(url), client: client, logger: logger}
}

// Name implements leads.Notifier.
func (n *SheetsNotifier) Name() string { return leads.NotifierSheets }

// Notify implements leads.Notifier.
func (n *SheetsNotifier) Notify(ctx context.Context, lead leads.Lead) leads.NotifyResult {
	if n == nil || n.url == "" {
		return leads.NotifyResult{Sent: false, Reason: ReasonSheetsWebhookMissing}
	}

	ctx, span := notifyTracer.Start(ctx, "notify.sheets")
	defer span.End()
	span.SetAttributes(attribute.String("dollarport.lead.id", lead.LeadID))

	if err := n.post(ctx, lead); err != nil {
		span.RecordError(err)
		n.logger.Error("google sheets sync failed", "lead_id", lead.LeadID, "error", err)
		return leads.NotifyResult{Sent: false, Reason: ReasonSheetsSyncFailed}
	}
	return leads.NotifyResult{Sent: true}
}

func (n *SheetsNotifier) post(ctx context.Context, lead leads.Lead) error {
	payload, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("notify: encode lead: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxWebhookErrorBody))
		return fmt.Errorf("notify: webhook returned %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

var _ leads.Notifier = (*SheetsNotifier)(nil)
