package leads

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 123456789, time.UTC)

func testNormalizer() Normalizer {
	return Normalizer{
		Now:   func() time.Time { return fixedNow },
		NewID: func(time.Time) string { return "LD-test" },
	}
}

func TestNormalize_PopulatesEveryField(t *testing.T) {
	sub := Submission{
		Fields: map[string]string{
			"name":            "  Anu  ",
			"email":           "anu@example.com ",
			"phone":           " 9999999999",
			"courseInterest":  "Online Session",
			"experienceLevel": "Beginner",
			"budgetRange":     "10k-25k",
			"message":         "Please call after 6pm",
			"sourcePage":      "/courses",
			"leadType":        "Demo Class",
			"utmSource":       "instagram",
			"utmMedium":       "social",
			"utmCampaign":     "diwali",
		},
		Referer: "https://example.com/ignored",
		Path:    "/leads",
	}

	lead, err := testNormalizer().Normalize(sub, LeadTypeGeneralInquiry)
	require.NoError(t, err)

	assert.Equal(t, "LD-test", lead.LeadID)
	assert.Equal(t, LeadTypeDemoClass, lead.LeadType)
	assert.Equal(t, "Anu", lead.Name)
	assert.Equal(t, "anu@example.com", lead.Email)
	assert.Equal(t, "9999999999", lead.Phone)
	assert.Equal(t, "Online Session", lead.CourseInterest)
	assert.Equal(t, "Beginner", lead.ExperienceLevel)
	assert.Equal(t, "10k-25k", lead.BudgetRange)
	assert.Equal(t, "Please call after 6pm", lead.Message)
	assert.Equal(t, "/courses", lead.SourcePage)
	assert.Equal(t, "instagram", lead.UTMSource)
	assert.Equal(t, "social", lead.UTMMedium)
	assert.Equal(t, "diwali", lead.UTMCampaign)
	assert.True(t, lead.CreatedAt.Equal(fixedNow.Truncate(time.Millisecond)))
}

func TestNormalize_MissingRequired(t *testing.T) {
	cases := map[string]map[string]string{
		"empty name":       {"name": "", "phone": "9999999999"},
		"blank name":       {"name": "   ", "phone": "9999999999"},
		"missing phone":    {"name": "Anu"},
		"whitespace phone": {"name": "Anu", "phone": "\t \n"},
		"nothing":          {},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := testNormalizer().Normalize(Submission{Fields: fields}, LeadTypeGeneralInquiry)
			require.Error(t, err)
			assert.True(t, IsClientInput(err))
			assert.True(t, errors.Is(err, ErrMissingRequired))

			var tagged *Error
			require.True(t, errors.As(err, &tagged))
			assert.Equal(t, "Name and phone are required.", tagged.Message)
		})
	}
}

func TestNormalize_TruncatesInsteadOfRejecting(t *testing.T) {
	long := func(n int) string { return strings.Repeat("é", n) }
	sub := Submission{Fields: map[string]string{
		"name":            long(500),
		"email":           long(500),
		"phone":           long(500),
		"courseInterest":  long(500),
		"experienceLevel": long(500),
		"budgetRange":     long(500),
		"message":         long(5000),
		"sourcePage":      long(500),
		"utmSource":       long(500),
		"utmMedium":       long(500),
		"utmCampaign":     long(500),
	}}

	lead, err := testNormalizer().Normalize(sub, LeadTypeGeneralInquiry)
	require.NoError(t, err)

	checks := []struct {
		field string
		value string
		max   int
	}{
		{"name", lead.Name, MaxNameLen},
		{"email", lead.Email, MaxEmailLen},
		{"phone", lead.Phone, MaxPhoneLen},
		{"courseInterest", lead.CourseInterest, MaxCourseInterestLen},
		{"experienceLevel", lead.ExperienceLevel, MaxExperienceLevelLen},
		{"budgetRange", lead.BudgetRange, MaxBudgetRangeLen},
		{"message", lead.Message, MaxMessageLen},
		{"sourcePage", lead.SourcePage, MaxSourcePageLen},
		{"utmSource", lead.UTMSource, MaxUTMSourceLen},
		{"utmMedium", lead.UTMMedium, MaxUTMMediumLen},
		{"utmCampaign", lead.UTMCampaign, MaxUTMCampaignLen},
	}
	for _, c := range checks {
		assert.Equal(t, c.max, utf8.RuneCountInString(c.value), c.field)
		assert.True(t, utf8.ValidString(c.value), c.field)
	}
}

func TestNormalize_SourcePageFallbacks(t *testing.T) {
	base := map[string]string{"name": "Anu", "phone": "1"}

	lead, err := testNormalizer().Normalize(Submission{Fields: base, Referer: "https://site/tools", Path: "/leads"}, "")
	require.NoError(t, err)
	assert.Equal(t, "https://site/tools", lead.SourcePage)

	lead, err = testNormalizer().Normalize(Submission{Fields: base, Path: "/leads"}, "")
	require.NoError(t, err)
	assert.Equal(t, "/leads", lead.SourcePage)

	longRef := "https://site/" + strings.Repeat("a", 600)
	lead, err = testNormalizer().Normalize(Submission{Fields: base, Referer: longRef, Path: "/leads"}, "")
	require.NoError(t, err)
	assert.Equal(t, MaxSourcePageLen, utf8.RuneCountInString(lead.SourcePage))

	longPath := "/" + strings.Repeat("p", 300)
	lead, err = testNormalizer().Normalize(Submission{Fields: base, Path: longPath}, "")
	require.NoError(t, err)
	assert.Equal(t, MaxSourcePageLen, utf8.RuneCountInString(lead.SourcePage))
}

func TestNormalize_SnakeCaseAliases(t *testing.T) {
	sub := Submission{Fields: map[string]string{
		"name":         "Anu",
		"phone":        "1",
		"lead_type":    "tool_access",
		"utm_source":   "google",
		"utm_medium":   "cpc",
		"utm_campaign": "brand",
	}}
	lead, err := testNormalizer().Normalize(sub, LeadTypeGeneralInquiry)
	require.NoError(t, err)
	assert.Equal(t, LeadTypeToolAccess, lead.LeadType)
	assert.Equal(t, "google", lead.UTMSource)
	assert.Equal(t, "cpc", lead.UTMMedium)
	assert.Equal(t, "brand", lead.UTMCampaign)
}

func TestNormalizeLeadType(t *testing.T) {
	cases := []struct {
		in       string
		fallback LeadType
		want     LeadType
	}{
		{"course_enrollment", LeadTypeGeneralInquiry, LeadTypeCourseEnrollment},
		{"Mentorship Call", LeadTypeGeneralInquiry, LeadTypeMentorshipCall},
		{"  DEMO \t  class ", LeadTypeGeneralInquiry, LeadTypeDemoClass},
		{"community_join", LeadTypeGeneralInquiry, LeadTypeCommunityJoin},
		{"garbage", LeadTypeCourseEnrollment, LeadTypeCourseEnrollment},
		{"", LeadTypeCourseEnrollment, LeadTypeCourseEnrollment},
		{"tool-access", LeadTypeGeneralInquiry, LeadTypeGeneralInquiry},
		{"<script>", "not_a_type", LeadTypeGeneralInquiry},
	}
	for _, tc := range cases {
		got := NormalizeLeadType(tc.in, tc.fallback)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
		assert.True(t, got.Valid())
	}
}

func TestNewLeadID_Format(t *testing.T) {
	re := regexp.MustCompile(`^LD-\d+-\d{1,4}$`)
	id := NewLeadID(fixedNow)
	assert.Regexp(t, re, id)
	assert.True(t, strings.HasPrefix(id, "LD-1792315800123-"), id)
}

func TestNormalizer_ZeroValueUsesDefaults(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	lead, err := Normalizer{}.Normalize(Submission{Fields: map[string]string{"name": "A", "phone": "1"}}, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(lead.LeadID, "LD-"))
	assert.True(t, lead.CreatedAt.After(before))
	assert.Equal(t, LeadTypeGeneralInquiry, lead.LeadType)
}
