package intake

import (
	"fmt"
	"strings"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// Form custom ids. Parameterised forms append ":<value>".
const (
	FormStaff       = "form_staff"
	FormAppeal      = "form_appeal"
	FormBug         = "form_bug"
	FormReport      = "form_report"
	FormRank        = "form_rank"
	FormGeneral     = "form_general"
	FormTransaction = "form_transaction"
	FormFeedback    = "form_feedback"
)

const ignLimit = 16

// StaffForm collects a staff application.
func StaffForm() Form {
	return Form{ID: FormStaff, Title: "Staff Application", Fields: []Field{
		{ID: "name", Label: "Name", Placeholder: "Your name", Style: StyleShort, Required: true},
		{ID: "age", Label: "Age", Placeholder: "Your age (numbers only)", Style: StyleShort, Required: true,
			MinLength: 1, MaxLength: 2, DigitsOnly: true, DigitsMessage: "Age must contain only numbers!"},
		{ID: "ign", Label: "In-game Name", Placeholder: "Your Minecraft username", Style: StyleShort, Required: true, MaxLength: ignLimit},
		{ID: "country", Label: "Country", Placeholder: "Your country", Style: StyleShort, Required: true},
		{ID: "experience", Label: "Experience & Languages", Placeholder: "Tell us about your experience and languages you speak", Style: StyleParagraph, Required: true},
	}}
}

// AppealForm collects a ban appeal.
func AppealForm() Form {
	return Form{ID: FormAppeal, Title: "Ban Appeal", Fields: []Field{
		{ID: "ign", Label: "In-game Name", Placeholder: "Your Minecraft username", Style: StyleShort, Required: true, MaxLength: ignLimit},
		{ID: "reason", Label: "Reason for Ban", Placeholder: "What were you banned for?", Style: StyleParagraph, Required: true},
		{ID: "appeal", Label: "Appeal Description", Placeholder: "Why should your ban be lifted?", Style: StyleParagraph, Required: true},
	}}
}

// BugForm collects a bug report.
func BugForm() Form {
	return Form{ID: FormBug, Title: "Bug Report", Fields: []Field{
		{ID: "bug", Label: "Bug Found", Placeholder: "What bug did you find?", Style: StyleShort, Required: true},
		{ID: "description", Label: "Description", Placeholder: "Provide detailed information about the bug", Style: StyleParagraph, Required: true},
	}}
}

// ReportForm collects a player report.
func ReportForm() Form {
	return Form{ID: FormReport, Title: "Report Player", Fields: []Field{
		{ID: "player", Label: "Player Name", Placeholder: "Enter the player's username", Style: StyleShort, Required: true},
		{ID: "reason", Label: "Reason", Placeholder: "Explain why you're reporting this player", Style: StyleParagraph, Required: true},
	}}
}

// RankForm collects the in-game name for a rank chosen beforehand.
func RankForm(rank string) Form {
	return Form{ID: FormRank + ":" + rank, Title: fmt.Sprintf("Purchase %s Rank", rank), Fields: []Field{
		{ID: "ign", Label: "Minecraft IGN", Placeholder: "Enter your Minecraft username", Style: StyleShort, Required: true, MaxLength: ignLimit},
	}}
}

// GeneralForm is the title and description form used by categories without their own.
func GeneralForm(category domain.Category) Form {
	name := string(category)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return Form{ID: FormGeneral + ":" + string(category), Title: fmt.Sprintf("Create %s Ticket", name), Fields: []Field{
		{ID: "title", Label: "Title", Placeholder: "Brief description of your issue", Style: StyleShort, Required: true, MaxLength: 100},
		{ID: "description", Label: "Description", Placeholder: "Provide detailed information about your request", Style: StyleParagraph, Required: true, MaxLength: 1000},
	}}
}

// TransactionForm collects payment proof.
func TransactionForm() Form {
	return Form{ID: FormTransaction, Title: "Complete Transaction", Fields: []Field{
		{ID: "app", Label: "App Used for Payment", Style: StyleShort, Required: true},
		{ID: "payer", Label: "Your ID", Style: StyleShort, Required: true},
		{ID: "utr", Label: "UTR Number", Style: StyleShort, Required: true},
		{ID: "date", Label: "Date (DD/MM/YYYY)", Style: StyleShort, Required: true},
		{ID: "time", Label: "Time (HH:MM)", Style: StyleShort, Required: true},
	}}
}

// FeedbackForm collects the closing rating and comments.
func FeedbackForm() Form {
	return Form{ID: FormFeedback, Title: "Ticket Feedback", Fields: []Field{
		{ID: "rating", Label: "Rate your experience (1-5 stars)", Placeholder: "Enter a number between 1 and 5", Style: StyleShort, Required: true},
		{ID: "feedback", Label: "Feedback", Placeholder: "Please provide your feedback.", Style: StyleParagraph, Required: true},
	}}
}

// FormFor returns the creation form for a category. Rank purchases need the rank first
// and are built with RankForm.
func FormFor(category domain.Category) Form {
	switch category {
	case domain.CategoryStaff:
		return StaffForm()
	case domain.CategoryAppeal:
		return AppealForm()
	case domain.CategoryBug:
		return BugForm()
	case domain.CategoryReport:
		return ReportForm()
	default:
		return GeneralForm(category)
	}
}
