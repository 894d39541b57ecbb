package leads

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dollarport/edu-site/pkg/logging"
)

var leadsTracer = otel.Tracer("dollarport.internal.leads")

// Notifier names that surface in the caller-facing response.
const (
	NotifierEmail  = "email"
	NotifierSheets = "sheets"
)

const defaultNotifyTimeout = 10 * time.Second

// NotifyResult is the outcome of one side-channel delivery. Failures are
// data, never errors.
type NotifyResult struct {
	Sent   bool   `json:"sent"`
	Reason string `json:"reason,omitempty"`
}

// Notifier reports a stored lead to a human or business tool.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, lead Lead) NotifyResult
}

// NotificationRecorder receives per-notifier outcomes. metrics.LeadMetrics
// satisfies it.
type NotificationRecorder interface {
	ObserveNotification(notifier string, sent bool, reason string)
}

// SubmitResult is returned once a lead is stored and every notifier has
// finished.
type SubmitResult struct {
	Lead          Lead
	Notifications map[string]NotifyResult
}

// EmailSent reports whether the email notifier delivered.
func (r *SubmitResult) EmailSent() bool { return r.Notifications[NotifierEmail].Sent }

// SheetsSynced reports whether the spreadsheet webhook accepted the lead.
func (r *SubmitResult) SheetsSynced() bool { return r.Notifications[NotifierSheets].Sent }

// ServiceConfig wires the intake pipeline.
type ServiceConfig struct {
	Store         Store
	Notifiers     []Notifier
	NotifyTimeout time.Duration
	Normalizer    Normalizer
	Metrics       NotificationRecorder
	Logger        *logging.Logger
}

// Service runs validate → persist → notify for one submission at a time.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	store         Store
	notifiers     []Notifier
	notifyTimeout time.Duration
	normalizer    Normalizer
	metrics       NotificationRecorder
	logger        *logging.Logger
}

// NewService creates the lead intake service. Notifier names key the
// per-submission results, so they must be unique.
func NewService(cfg ServiceConfig) (*Service, error) {
	seen := make(map[string]struct{}, len(cfg.Notifiers))
	for _, n := range cfg.Notifiers {
		if n == nil {
			return nil, fmt.Errorf("leads: nil notifier")
		}
		if _, dup := seen[n.Name()]; dup {
			return nil, fmt.Errorf("leads: duplicate notifier name %q", n.Name())
		}
		seen[n.Name()] = struct{}{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = defaultNotifyTimeout
	}
	return &Service{
		store:         cfg.Store,
		notifiers:     cfg.Notifiers,
		notifyTimeout: cfg.NotifyTimeout,
		normalizer:    cfg.Normalizer,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
	}, nil
}

// Submit validates and stores a submission, then fans it out to every
// notifier. The returned error is always a *Error; notifier failures only
// show up in SubmitResult.
func (s *Service) Submit(ctx context.Context, sub Submission, defaultType LeadType) (*SubmitResult, error) {
	ctx, span := leadsTracer.Start(ctx, "leads.submit")
	defer span.End()

	lead, err := s.normalizer.Normalize(sub, defaultType)
	if err != nil {
		span.SetAttributes(attribute.String("dollarport.lead.stage", "validate"))
		return nil, err
	}
	span.SetAttributes(
		attribute.String("dollarport.lead.id", lead.LeadID),
		attribute.String("dollarport.lead.type", string(lead.LeadType)),
	)

	if s.store == nil {
		return nil, ErrStorage(fmt.Errorf("leads: store not configured"))
	}
	if err := s.store.Append(ctx, lead); err != nil {
		span.RecordError(err)
		s.logger.Error("lead persist failed", "lead_id", lead.LeadID, "stage", "persist", "error", err)
		return nil, ErrStorage(err)
	}
	s.logger.Info("lead stored", "lead_id", lead.LeadID, "lead_type", lead.LeadType, "source_page", lead.SourcePage)

	// The lead is already durable, so delivery continues even if the
	// caller has gone away.
	notifyCtx := context.WithoutCancel(ctx)
	return &SubmitResult{
		Lead:          lead,
		Notifications: s.fanOut(notifyCtx, lead),
	}, nil
}

func (s *Service) fanOut(ctx context.Context, lead Lead) map[string]NotifyResult {
	results := make([]NotifyResult, len(s.notifiers))
	var wg sync.WaitGroup
	for i, n := range s.notifiers {
		wg.Add(1)
		go func(i int, n Notifier) {
			defer wg.Done()
			results[i] = s.runNotifier(ctx, n, lead)
		}(i, n)
	}
	wg.Wait()

	out := make(map[string]NotifyResult, len(s.notifiers))
	for i, n := range s.notifiers {
		res := results[i]
		out[n.Name()] = res
		if s.metrics != nil {
			s.metrics.ObserveNotification(n.Name(), res.Sent, res.Reason)
		}
		if !res.Sent {
			s.logger.Warn("lead notification not delivered",
				"lead_id", lead.LeadID,
				"stage", "notify",
				"notifier", n.Name(),
				"reason", res.Reason,
			)
		}
	}
	return out
}

func (s *Service) runNotifier(ctx context.Context, n Notifier, lead Lead) (res NotifyResult) {
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("lead notifier panicked", "lead_id", lead.LeadID, "notifier", n.Name(), "panic", fmt.Sprint(r))
			res = NotifyResult{Sent: false, Reason: n.Name() + "_panic"}
		}
	}()
	return n.Notify(ctx, lead)
}
