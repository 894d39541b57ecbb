package leads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dollarport/edu-site/pkg/logging"
)

type observedSubmission struct {
	route   string
	outcome string
}

type fakeSubmissionRecorder struct {
	mu   sync.Mutex
	seen []observedSubmission
}

func (f *fakeSubmissionRecorder) ObserveSubmission(route, outcome string, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, observedSubmission{route, outcome})
}

func newTestHandler(t *testing.T, store Store, notifiers ...Notifier) (*Handler, *fakeSubmissionRecorder) {
	t.Helper()
	rec := &fakeSubmissionRecorder{}
	svc := mustService(t, ServiceConfig{
		Store:     store,
		Notifiers: notifiers,
		Logger:    logging.Discard(),
	})
	return NewHandler(svc, rec, logging.Discard()), rec
}

func formRequest(path string, values url.Values, xhr bool) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if xhr {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	return req
}

func TestSubmitContact_XHRSuccess(t *testing.T) {
	store, _ := NewFileStore(filepath.Join(t.TempDir(), "leads.ndjson"))
	handler, rec := newTestHandler(t, store)

	req := formRequest("/contact", url.Values{"name": {"Anu"}, "phone": {"9999999999"}}, true)
	w := httptest.NewRecorder()
	handler.SubmitContact(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON content type, got %q", ct)
	}

	var resp SubmitResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK || !resp.Stored {
		t.Fatalf("expected ok and stored, got %+v", resp)
	}
	if resp.LeadID == "" {
		t.Fatal("expected lead id in response")
	}
	if resp.EmailSent || resp.SheetsSynced {
		t.Fatalf("expected no notifications without notifiers, got %+v", resp)
	}

	var stored []Lead
	_ = store.Scan(context.Background(), func(l Lead) error {
		stored = append(stored, l)
		return nil
	})
	if len(stored) != 1 {
		t.Fatalf("expected one stored lead, got %d", len(stored))
	}
	if stored[0].LeadType != LeadTypeCourseEnrollment {
		t.Fatalf("expected course_enrollment default, got %s", stored[0].LeadType)
	}
	if stored[0].LeadID != resp.LeadID {
		t.Fatalf("response id %s does not match stored id %s", resp.LeadID, stored[0].LeadID)
	}
	if stored[0].SourcePage != "/contact" {
		t.Fatalf("expected request path as source page, got %q", stored[0].SourcePage)
	}
	if len(rec.seen) != 1 || rec.seen[0] != (observedSubmission{"contact", OutcomeStored}) {
		t.Fatalf("unexpected metrics %+v", rec.seen)
	}
}

func TestSubmitContact_FormPostRedirects(t *testing.T) {
	repo := newMemoryStore()
	handler, _ := newTestHandler(t, repo)

	req := formRequest("/contact", url.Values{"name": {"Anu"}, "phone": {"9999999999"}}, false)
	w := httptest.NewRecorder()
	handler.SubmitContact(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected status %d, got %d", http.StatusFound, w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/contact?success=1" {
		t.Fatalf("expected success redirect, got %q", loc)
	}
	if len(repo.list()) != 1 {
		t.Fatalf("expected one stored lead, got %d", len(repo.list()))
	}
}

func TestSubmitLead_MissingNameXHR(t *testing.T) {
	repo := newMemoryStore()
	handler, rec := newTestHandler(t, repo)

	req := formRequest("/leads", url.Values{"name": {""}, "phone": {"9999999999"}}, true)
	w := httptest.NewRecorder()
	handler.SubmitLead(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OK || resp.Message != "Name and phone are required." {
		t.Fatalf("unexpected error body %+v", resp)
	}
	if len(repo.list()) != 0 {
		t.Fatalf("expected nothing stored, got %d", len(repo.list()))
	}
	if len(rec.seen) != 1 || rec.seen[0].outcome != OutcomeClientError {
		t.Fatalf("unexpected metrics %+v", rec.seen)
	}
}

func TestSubmitLead_MissingPhoneFormRedirectsToFailure(t *testing.T) {
	repo := newMemoryStore()
	handler, _ := newTestHandler(t, repo)

	req := formRequest("/leads", url.Values{"name": {"Anu"}}, false)
	w := httptest.NewRecorder()
	handler.SubmitLead(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected status %d, got %d", http.StatusFound, w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/contact?failed=1" {
		t.Fatalf("expected failure redirect, got %q", loc)
	}
	if len(repo.list()) != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestSubmitLead_StorageFailure(t *testing.T) {
	handler, rec := newTestHandler(t, failingStore{})

	req := formRequest("/leads", url.Values{"name": {"Anu"}, "phone": {"1"}}, false)
	req.Header.Set("Accept", "text/html, application/json")
	w := httptest.NewRecorder()
	handler.SubmitLead(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Message != "Lead submission failed" {
		t.Fatalf("expected generic failure message, got %q", resp.Message)
	}
	if strings.Contains(w.Body.String(), "disk full") {
		t.Fatal("internal error leaked to caller")
	}
	if len(rec.seen) != 1 || rec.seen[0].outcome != OutcomeStorageError {
		t.Fatalf("unexpected metrics %+v", rec.seen)
	}
}

func TestSubmitLead_StorageFailureFormRedirects(t *testing.T) {
	handler, _ := newTestHandler(t, failingStore{})

	req := formRequest("/leads", url.Values{"name": {"Anu"}, "phone": {"1"}}, false)
	w := httptest.NewRecorder()
	handler.SubmitLead(w, req)

	if w.Code != http.StatusFound || w.Header().Get("Location") != "/contact?failed=1" {
		t.Fatalf("expected failure redirect, got %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestSubmitLead_NotifierOutcomesInResponse(t *testing.T) {
	repo := newMemoryStore()
	handler, _ := newTestHandler(t, repo,
		&fakeNotifier{name: NotifierEmail, result: NotifyResult{Sent: false, Reason: "mail_credentials_missing"}},
		&fakeNotifier{name: NotifierSheets, result: NotifyResult{Sent: true}},
	)

	req := formRequest("/leads", url.Values{"name": {"Anu"}, "phone": {"1"}, "leadType": {"Mentorship Call"}}, true)
	w := httptest.NewRecorder()
	handler.SubmitLead(w, req)

	var resp SubmitResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK || resp.EmailSent || !resp.SheetsSynced {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got := repo.list()[0].LeadType; got != LeadTypeMentorshipCall {
		t.Fatalf("expected mentorship_call, got %s", got)
	}
}

func TestSubmitLead_JSONBody(t *testing.T) {
	repo := newMemoryStore()
	handler, _ := newTestHandler(t, repo)

	body := `{"name":"Anu","phone":9999999999,"leadType":"demo_class","utm_source":"yt"}`
	req := httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", "https://www.thedollarport.com/tools")
	w := httptest.NewRecorder()
	handler.SubmitLead(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	lead := repo.list()[0]
	if lead.Phone != "9999999999" {
		t.Fatalf("expected numeric phone preserved, got %q", lead.Phone)
	}
	if lead.LeadType != LeadTypeDemoClass || lead.UTMSource != "yt" {
		t.Fatalf("unexpected lead %+v", lead)
	}
	if lead.SourcePage != "https://www.thedollarport.com/tools" {
		t.Fatalf("expected referer as source page, got %q", lead.SourcePage)
	}
}

func TestSubmitLead_InvalidJSON(t *testing.T) {
	handler, _ := newTestHandler(t, newMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	w := httptest.NewRecorder()
	handler.SubmitLead(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestWantsJSON(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    bool
	}{
		{"plain form", map[string]string{"Accept": "text/html"}, false},
		{"xhr marker", map[string]string{"X-Requested-With": "XMLHttpRequest"}, true},
		{"accept json", map[string]string{"Accept": "application/json"}, true},
		{"accept mixed", map[string]string{"Accept": "text/html,application/json;q=0.9"}, true},
		{"other marker", map[string]string{"X-Requested-With": "fetch"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/leads", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := WantsJSON(req); got != tc.want {
				t.Fatalf("WantsJSON() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestThrottled(t *testing.T) {
	handler, rec := newTestHandler(t, newMemoryStore())

	req := formRequest("/contact", url.Values{"name": {"Anu"}, "phone": {"1"}}, true)
	w := httptest.NewRecorder()
	handler.Throttled(ContactRoute).ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, w.Code)
	}
	if len(rec.seen) != 1 || rec.seen[0] != (observedSubmission{"contact", OutcomeRateLimited}) {
		t.Fatalf("unexpected metrics %+v", rec.seen)
	}

	req = formRequest("/contact", url.Values{"name": {"Anu"}, "phone": {"1"}}, false)
	w = httptest.NewRecorder()
	handler.Throttled(ContactRoute).ServeHTTP(w, req)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/contact?failed=1" {
		t.Fatalf("expected failure redirect, got %d %q", w.Code, w.Header().Get("Location"))
	}
}
