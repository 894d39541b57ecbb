package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dollarport/edu-site/pkg/logging"
)

const maxBodyBytes = 64 << 10

// Submitter is the part of Service the handler depends on.
type Submitter interface {
	Submit(ctx context.Context, sub Submission, defaultType LeadType) (*SubmitResult, error)
}

// SubmissionRecorder receives per-request outcomes. metrics.LeadMetrics
// satisfies it.
type SubmissionRecorder interface {
	ObserveSubmission(route, outcome string, seconds float64)
}

// Submission outcomes reported to the recorder.
const (
	OutcomeStored       = "stored"
	OutcomeClientError  = "client_error"
	OutcomeStorageError = "storage_error"
	OutcomeRateLimited  = "rate_limited"
)

const rateLimitedMsg = "Too many submissions. Please try again shortly."

// Route describes how one form endpoint defaults and redirects.
type Route struct {
	Name            string
	DefaultLeadType LeadType
	SuccessRedirect string
	FailedRedirect  string
}

var (
	// LeadsRoute backs POST /leads, used by the inline lead widgets.
	LeadsRoute = Route{
		Name:            "leads",
		DefaultLeadType: LeadTypeGeneralInquiry,
		SuccessRedirect: "/contact?success=1",
		FailedRedirect:  "/contact?failed=1",
	}
	// ContactRoute backs POST /contact, the enrollment form.
	ContactRoute = Route{
		Name:            "contact",
		DefaultLeadType: LeadTypeCourseEnrollment,
		SuccessRedirect: "/contact?success=1",
		FailedRedirect:  "/contact?failed=1",
	}
)

// SubmitResponse is the JSON acknowledgment for programmatic callers.
type SubmitResponse struct {
	OK           bool   `json:"ok"`
	LeadID       string `json:"leadId"`
	Stored       bool   `json:"stored"`
	EmailSent    bool   `json:"emailSent"`
	SheetsSynced bool   `json:"sheetsSynced"`
}

// ErrorResponse is the JSON failure body.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Handler handles HTTP requests for leads
type Handler struct {
	service Submitter
	metrics SubmissionRecorder
	logger  *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(service Submitter, metrics SubmissionRecorder, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		metrics: metrics,
		logger:  logger,
	}
}

// SubmitLead handles POST /leads requests
func (h *Handler) SubmitLead(w http.ResponseWriter, r *http.Request) {
	h.Handle(LeadsRoute).ServeHTTP(w, r)
}

// SubmitContact handles POST /contact requests
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	h.Handle(ContactRoute).ServeHTTP(w, r)
}

// Handle returns the submission handler for a route.
func (h *Handler) Handle(route Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wantsJSON := WantsJSON(r)

		sub, err := parseSubmission(w, r)
		var result *SubmitResult
		if err == nil {
			result, err = h.service.Submit(r.Context(), sub, route.DefaultLeadType)
		}

		if err != nil {
			status, message, outcome := classify(err)
			h.observe(route, outcome, start)
			if outcome == OutcomeClientError {
				h.logger.Info("lead submission rejected", "route", route.Name, "error", err)
			} else {
				h.logger.Error("lead submission failed", "route", route.Name, "error", err)
			}
			if wantsJSON {
				writeJSON(w, status, ErrorResponse{OK: false, Message: message})
				return
			}
			http.Redirect(w, r, route.FailedRedirect, http.StatusFound)
			return
		}

		h.observe(route, OutcomeStored, start)
		if wantsJSON {
			writeJSON(w, http.StatusOK, SubmitResponse{
				OK:           true,
				LeadID:       result.Lead.LeadID,
				Stored:       true,
				EmailSent:    result.EmailSent(),
				SheetsSynced: result.SheetsSynced(),
			})
			return
		}
		http.Redirect(w, r, route.SuccessRedirect, http.StatusFound)
	}
}

// Throttled answers a submission rejected by the rate limiter without
// touching the pipeline.
func (h *Handler) Throttled(route Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.observe(route, OutcomeRateLimited, time.Now())
		h.logger.Warn("lead submission throttled", "route", route.Name, "remote_ip", r.RemoteAddr)
		if WantsJSON(r) {
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{OK: false, Message: rateLimitedMsg})
			return
		}
		http.Redirect(w, r, route.FailedRedirect, http.StatusFound)
	}
}

// WantsJSON reports whether the caller asked for a JSON response rather
// than a redirect.
func WantsJSON(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (h *Handler) observe(route Route, outcome string, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.ObserveSubmission(route.Name, outcome, time.Since(start).Seconds())
}

func classify(err error) (status int, message, outcome string) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindClientInput {
		return http.StatusBadRequest, e.Message, OutcomeClientError
	}
	return http.StatusInternalServerError, submissionFailedMsg, OutcomeStorageError
}

// parseSubmission reads form-encoded, multipart or JSON bodies into a flat
// field map.
func parseSubmission(w http.ResponseWriter, r *http.Request) (Submission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	sub := Submission{
		Fields:  map[string]string{},
		Referer: r.Referer(),
		Path:    r.URL.Path,
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return sub, ErrClientInput("Invalid request body.", fmt.Errorf("%w: %v", ErrMalformedBody, err))
		}
		for key, value := range raw {
			if s, ok := stringify(value); ok {
				sub.Fields[key] = s
			}
		}
		return sub, nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return sub, ErrClientInput("Invalid request body.", fmt.Errorf("%w: %v", ErrMalformedBody, err))
		}
	default:
		if err := r.ParseForm(); err != nil {
			return sub, ErrClientInput("Invalid request body.", fmt.Errorf("%w: %v", ErrMalformedBody, err))
		}
	}
	for key, values := range r.PostForm {
		if len(values) > 0 {
			sub.Fields[key] = values[0]
		}
	}
	return sub, nil
}

func stringify(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
