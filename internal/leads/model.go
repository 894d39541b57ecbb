package leads

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"
)

// LeadType categorises what the prospect asked for.
type LeadType string

const (
	LeadTypeCourseEnrollment LeadType = "course_enrollment"
	LeadTypeMentorshipCall   LeadType = "mentorship_call"
	LeadTypeDemoClass        LeadType = "demo_class"
	LeadTypeToolAccess       LeadType = "tool_access"
	LeadTypeCommunityJoin    LeadType = "community_join"
	LeadTypeGeneralInquiry   LeadType = "general_inquiry"
)

var validLeadTypes = map[LeadType]struct{}{
	LeadTypeCourseEnrollment: {},
	LeadTypeMentorshipCall:   {},
	LeadTypeDemoClass:        {},
	LeadTypeToolAccess:       {},
	LeadTypeCommunityJoin:    {},
	LeadTypeGeneralInquiry:   {},
}

// Valid reports whether t is one of the known lead types.
func (t LeadType) Valid() bool {
	_, ok := validLeadTypes[t]
	return ok
}

// Field length limits, counted in Unicode code points.
const (
	MaxNameLen            = 120
	MaxEmailLen           = 180
	MaxPhoneLen           = 40
	MaxCourseInterestLen  = 160
	MaxExperienceLevelLen = 80
	MaxBudgetRangeLen     = 80
	MaxMessageLen         = 1000
	MaxSourcePageLen      = 200
	MaxUTMSourceLen       = 120
	MaxUTMMediumLen       = 120
	MaxUTMCampaignLen     = 150
)

// Lead is a single captured form submission. Values are never modified
// after Normalize returns them.
type Lead struct {
	LeadID          string    `json:"leadId"`
	LeadType        LeadType  `json:"leadType"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	CourseInterest  string    `json:"courseInterest"`
	ExperienceLevel string    `json:"experienceLevel"`
	BudgetRange     string    `json:"budgetRange"`
	Message         string    `json:"message"`
	SourcePage      string    `json:"sourcePage"`
	UTMSource       string    `json:"utmSource"`
	UTMMedium       string    `json:"utmMedium"`
	UTMCampaign     string    `json:"utmCampaign"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Submission is the raw, unvalidated input of a lead form.
type Submission struct {
	Fields  map[string]string
	Referer string
	Path    string
}

func (s Submission) field(keys ...string) string {
	for _, key := range keys {
		if v := s.Fields[key]; v != "" {
			return v
		}
	}
	return ""
}

// Normalizer turns submissions into leads. The zero value uses the wall
// clock and the default id scheme.
type Normalizer struct {
	Now   func() time.Time
	NewID func(time.Time) string
}

// Normalize trims and bounds every field, resolves the lead type and
// provenance, and stamps an id and creation time. A missing name or phone
// yields a client input error.
func (n Normalizer) Normalize(sub Submission, defaultType LeadType) (Lead, error) {
	name := normalizeText(sub.field("name"), MaxNameLen)
	phone := normalizeText(sub.field("phone"), MaxPhoneLen)
	if name == "" || phone == "" {
		return Lead{}, ErrClientInput(requiredFieldsMessage, ErrMissingRequired)
	}

	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	newID := NewLeadID
	if n.NewID != nil {
		newID = n.NewID
	}
	createdAt := now().UTC().Truncate(time.Millisecond)

	sourcePage := normalizeText(sub.field("sourcePage"), MaxSourcePageLen)
	if sourcePage == "" {
		sourcePage = normalizeText(sub.Referer, MaxSourcePageLen)
	}
	if sourcePage == "" {
		sourcePage = normalizeText(sub.Path, MaxSourcePageLen)
	}

	return Lead{
		LeadID:          newID(createdAt),
		LeadType:        NormalizeLeadType(sub.field("leadType", "lead_type"), defaultType),
		Name:            name,
		Email:           normalizeText(sub.field("email"), MaxEmailLen),
		Phone:           phone,
		CourseInterest:  normalizeText(sub.field("courseInterest"), MaxCourseInterestLen),
		ExperienceLevel: normalizeText(sub.field("experienceLevel"), MaxExperienceLevelLen),
		BudgetRange:     normalizeText(sub.field("budgetRange"), MaxBudgetRangeLen),
		Message:         normalizeText(sub.field("message"), MaxMessageLen),
		SourcePage:      sourcePage,
		UTMSource:       normalizeText(sub.field("utmSource", "utm_source"), MaxUTMSourceLen),
		UTMMedium:       normalizeText(sub.field("utmMedium", "utm_medium"), MaxUTMMediumLen),
		UTMCampaign:     normalizeText(sub.field("utmCampaign", "utm_campaign"), MaxUTMCampaignLen),
		CreatedAt:       createdAt,
	}, nil
}

// NormalizeLeadType lower-cases value, turns whitespace runs into
// underscores and returns it when it names a known type. Anything else
// yields fallback, or general_inquiry when fallback itself is unknown.
func NormalizeLeadType(value string, fallback LeadType) LeadType {
	candidate := LeadType(strings.Join(strings.Fields(strings.ToLower(value)), "_"))
	if candidate.Valid() {
		return candidate
	}
	if fallback.Valid() {
		return fallback
	}
	return LeadTypeGeneralInquiry
}

// NewLeadID returns "LD-<unix millis>-<0..9999>". Two submissions in the same
// millisecond collide with probability 1/10000.
func NewLeadID(t time.Time) string {
	return fmt.Sprintf("LD-%d-%d", t.UnixMilli(), rand.IntN(10000))
}

func normalizeText(value string, maxLen int) string {
	return truncateRunes(strings.TrimSpace(value), maxLen)
}

func truncateRunes(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	count := 0
	for i := range s {
		if count == maxLen {
			return s[:i]
		}
		count++
	}
	return s
}
