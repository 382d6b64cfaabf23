package intake

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-bot/internal/domain"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

func staffValues(age string) Values {
	return Values{"name": "Alex", "age": age, "ign": "alex_mc", "country": "India", "experience": "Moderated two servers"}
}

func TestParseRating(t *testing.T) {
	for _, raw := range []string{"1", "2", "3", "4", "5", " 5 "} {
		n, err := ParseRating(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, strings.TrimSpace(raw), string(rune('0'+n)))
	}

	for _, raw := range []string{"0", "6", "abc", "3.5", "", "-1", "+3", "05x", "10", "٣"} {
		_, err := ParseRating(raw)
		require.Error(t, err, raw)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), raw)
		assert.Equal(t, "Rating must be a number between 1 and 5.", apperrors.ToDomainError(err).Message)
	}
}

func TestStaffApplicationAge(t *testing.T) {
	for _, age := range []string{"17", "42", "9"} {
		req, err := ParseSubmission(FormStaff, staffValues(age))
		require.NoError(t, err, age)
		assert.Equal(t, domain.CategoryStaff, req.Category())
		assert.Contains(t, req.Summary(), "Age: "+age)
	}

	for _, age := range []string{"seventeen", "1a", "4.2", "-5", " ", "1 7"} {
		_, err := ParseSubmission(FormStaff, staffValues(age))
		require.Error(t, err, age)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), age)
	}

	_, err := ParseSubmission(FormStaff, staffValues("x7"))
	assert.Equal(t, "Age must contain only numbers!", apperrors.ToDomainError(err).Message)
}

func TestStaffApplicationSummary(t *testing.T) {
	req, err := ParseSubmission(FormStaff, staffValues("17"))
	require.NoError(t, err)
	assert.Equal(t,
		"Name: Alex\nAge: 17\nIGN: alex_mc\nCountry: India\nExperience & Languages: Moderated two servers",
		req.Summary())
}

func TestInGameNameLimit(t *testing.T) {
	_, err := ParseSubmission(FormAppeal, Values{"ign": strings.Repeat("a", 17), "reason": "x", "appeal": "y"})
	require.Error(t, err)
	assert.Equal(t, "ign", apperrors.ToDomainError(err).Details["field"])

	req, err := ParseSubmission(FormAppeal, Values{"ign": strings.Repeat("é", 16), "reason": "x", "appeal": "y"})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryAppeal, req.Category())
}

func TestRequiredFieldsTrimmed(t *testing.T) {
	_, err := ParseSubmission(FormReport, Values{"player": "   ", "reason": "griefing"})
	require.Error(t, err)
	assert.Equal(t, "Player Name is required.", apperrors.ToDomainError(err).Message)

	req, err := ParseSubmission(FormReport, Values{"player": "  Steve ", "reason": "griefing"})
	require.NoError(t, err)
	assert.Equal(t, "Reported Player: Steve\nReason: griefing", req.Summary())
}

func TestBugReport(t *testing.T) {
	req, err := ParseSubmission(FormBug, Values{"bug": "Crash on login", "description": "App crashes..."})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryBug, req.Category())
	assert.Equal(t, "Crash on login", req.Title())
	assert.Equal(t, "Bug Found: Crash on login\nDescription: App crashes...", req.Summary())
}

func TestRankPurchase(t *testing.T) {
	req, err := ParseSubmission(FormRank+":VIP", Values{"ign": "notch"})
	require.NoError(t, err)
	purchase, ok := req.(RankPurchase)
	require.True(t, ok)
	assert.Equal(t, "VIP", purchase.Rank)
	assert.Equal(t, "Rank: VIP\nIGN: notch", purchase.Summary())

	_, err = ParseSubmission(FormRank, Values{"ign": "notch"})
	assert.Error(t, err)
}

func TestGeneralRequestLimits(t *testing.T) {
	_, err := ParseSubmission(FormGeneral+":support", Values{"title": strings.Repeat("t", 101), "description": "d"})
	require.Error(t, err)

	_, err = ParseSubmission(FormGeneral+":support", Values{"title": "t", "description": strings.Repeat("d", 1001)})
	require.Error(t, err)

	req, err := ParseSubmission(FormGeneral+":support", Values{"title": strings.Repeat("t", 100), "description": strings.Repeat("d", 1000)})
	require.NoError(t, err)
	assert.Equal(t, domain.CategorySupport, req.Category())

	req, err = ParseSubmission(FormGeneral+":unknown", Values{"title": "t", "description": "d"})
	require.NoError(t, err)
	assert.Equal(t, domain.CategorySupport, req.Category())
}

func TestUnknownForm(t *testing.T) {
	_, err := ParseSubmission("form_nope", Values{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestFormFor(t *testing.T) {
	assert.Equal(t, FormStaff, FormFor(domain.CategoryStaff).ID)
	assert.Equal(t, FormAppeal, FormFor(domain.CategoryAppeal).ID)
	assert.Equal(t, FormBug, FormFor(domain.CategoryBug).ID)
	assert.Equal(t, FormReport, FormFor(domain.CategoryReport).ID)
	support := FormFor(domain.CategorySupport)
	assert.Equal(t, "form_general:support", support.ID)
	assert.Equal(t, "Create Support Ticket", support.Title)
}

func TestTransactionRecord(t *testing.T) {
	_, err := ParseTransaction(Values{"app": "GPay", "payer": "me@upi", "utr": "", "date": "01/02/2024", "time": "10:30"})
	require.Error(t, err)

	tx, err := ParseTransaction(Values{"app": "GPay", "payer": "me@upi", "utr": "123456", "date": "01/02/2024", "time": "10:30"})
	require.NoError(t, err)
	assert.Equal(t, "App Used: GPay\nUser ID: me@upi\nUTR Number: 123456\nDate: 01/02/2024\nTime: 10:30", tx.Record())
}

func TestParseFeedback(t *testing.T) {
	fb, err := ParseFeedback(Values{"rating": "5", "feedback": "Great help"})
	require.NoError(t, err)
	assert.Equal(t, 5, fb.Rating)
	assert.Equal(t, "Great help", fb.Comments)

	_, err = ParseFeedback(Values{"rating": "6", "feedback": "Great help"})
	assert.Error(t, err)

	_, err = ParseFeedback(Values{"rating": "4", "feedback": ""})
	assert.Error(t, err)
}
