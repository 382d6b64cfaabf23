package intake

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spec-kit/ticket-bot/internal/domain"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// Request is a validated ticket-creation submission.
type Request interface {
	Category() domain.Category
	Title() string
	Summary() string
}

// StaffApplication is a submitted staff application.
type StaffApplication struct {
	Name       string
	Age        int
	IGN        string
	Country    string
	Experience string
}

func (StaffApplication) Category() domain.Category { return domain.CategoryStaff }
func (r StaffApplication) Title() string           { return "Staff Application: " + r.Name }
func (r StaffApplication) Summary() string {
	return fmt.Sprintf("Name: %s\nAge: %d\nIGN: %s\nCountry: %s\nExperience & Languages: %s",
		r.Name, r.Age, r.IGN, r.Country, r.Experience)
}

// BanAppeal is a submitted ban appeal.
type BanAppeal struct {
	IGN    string
	Reason string
	Appeal string
}

func (BanAppeal) Category() domain.Category { return domain.CategoryAppeal }
func (r BanAppeal) Title() string           { return "Ban Appeal: " + r.IGN }
func (r BanAppeal) Summary() string {
	return fmt.Sprintf("IGN: %s\nBan Reason: %s\nAppeal Description: %s", r.IGN, r.Reason, r.Appeal)
}

// BugReport is a submitted bug report.
type BugReport struct {
	Bug         string
	Description string
}

func (BugReport) Category() domain.Category { return domain.CategoryBug }
func (r BugReport) Title() string           { return r.Bug }
func (r BugReport) Summary() string {
	return fmt.Sprintf("Bug Found: %s\nDescription: %s", r.Bug, r.Description)
}

// PlayerReport is a submitted player report.
type PlayerReport struct {
	Player string
	Reason string
}

func (PlayerReport) Category() domain.Category { return domain.CategoryReport }
func (r PlayerReport) Title() string           { return "Player Report: " + r.Player }
func (r PlayerReport) Summary() string {
	return fmt.Sprintf("Reported Player: %s\nReason: %s", r.Player, r.Reason)
}

// RankPurchase is a rank order; the rank comes from the selection step.
type RankPurchase struct {
	Rank string
	IGN  string
}

func (RankPurchase) Category() domain.Category { return domain.CategoryRank }
func (r RankPurchase) Title() string           { return fmt.Sprintf("%s Rank for %s", r.Rank, r.IGN) }
func (r RankPurchase) Summary() string {
	return fmt.Sprintf("Rank: %s\nIGN: %s", r.Rank, r.IGN)
}

// GeneralRequest is a title and description for categories without a dedicated form.
type GeneralRequest struct {
	Kind        domain.Category
	Heading     string
	Description string
}

func (r GeneralRequest) Category() domain.Category { return r.Kind }
func (r GeneralRequest) Title() string             { return r.Heading }
func (r GeneralRequest) Summary() string           { return r.Description }

// Transaction is the payment proof submitted on a rank ticket.
type Transaction struct {
	App   string
	Payer string
	UTR   string
	Date  string
	Time  string
}

// Record is the text persisted and logged for the transaction.
func (t Transaction) Record() string {
	return fmt.Sprintf("App Used: %s\nUser ID: %s\nUTR Number: %s\nDate: %s\nTime: %s",
		t.App, t.Payer, t.UTR, t.Date, t.Time)
}

// Feedback is the creator's closing rating and comments.
type Feedback struct {
	Rating   int
	Comments string
}

// ratingMessage is shown for any rating outside 1-5.
const ratingMessage = "Rating must be a number between 1 and 5."

// ParseRating accepts exactly the strings "1" through "5" after trimming.
func ParseRating(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if !IsDigits(raw) {
		return 0, apperrors.NewValidationError(ratingMessage, map[string]any{"field": "rating"})
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 5 {
		return 0, apperrors.NewValidationError(ratingMessage, map[string]any{"field": "rating"})
	}
	return n, nil
}

// ParseSubmission validates a creation form by its custom id and returns the typed request.
func ParseSubmission(formID string, raw Values) (Request, error) {
	base, param, _ := strings.Cut(formID, ":")
	switch base {
	case FormStaff:
		v, err := StaffForm().Validate(raw)
		if err != nil {
			return nil, err
		}
		age, err := strconv.Atoi(v["age"])
		if err != nil {
			return nil, apperrors.NewValidationError("Age must contain only numbers!", map[string]any{"field": "age"})
		}
		return StaffApplication{Name: v["name"], Age: age, IGN: v["ign"], Country: v["country"], Experience: v["experience"]}, nil
	case FormAppeal:
		v, err := AppealForm().Validate(raw)
		if err != nil {
			return nil, err
		}
		return BanAppeal{IGN: v["ign"], Reason: v["reason"], Appeal: v["appeal"]}, nil
	case FormBug:
		v, err := BugForm().Validate(raw)
		if err != nil {
			return nil, err
		}
		return BugReport{Bug: v["bug"], Description: v["description"]}, nil
	case FormReport:
		v, err := ReportForm().Validate(raw)
		if err != nil {
			return nil, err
		}
		return PlayerReport{Player: v["player"], Reason: v["reason"]}, nil
	case FormRank:
		if strings.TrimSpace(param) == "" {
			return nil, apperrors.NewValidationError("Please choose a rank first.", nil)
		}
		v, err := RankForm(param).Validate(raw)
		if err != nil {
			return nil, err
		}
		return RankPurchase{Rank: param, IGN: v["ign"]}, nil
	case FormGeneral:
		category, ok := domain.ParseCategory(param)
		if !ok {
			category = domain.CategorySupport
		}
		v, err := GeneralForm(category).Validate(raw)
		if err != nil {
			return nil, err
		}
		return GeneralRequest{Kind: category, Heading: v["title"], Description: v["description"]}, nil
	default:
		return nil, apperrors.NewValidationError("Unknown form.", map[string]any{"form": formID})
	}
}

// ParseTransaction validates the transaction form.
func ParseTransaction(raw Values) (Transaction, error) {
	v, err := TransactionForm().Validate(raw)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{App: v["app"], Payer: v["payer"], UTR: v["utr"], Date: v["date"], Time: v["time"]}, nil
}

// ParseFeedback validates the feedback form, rating included.
func ParseFeedback(raw Values) (Feedback, error) {
	v, err := FeedbackForm().Validate(raw)
	if err != nil {
		return Feedback{}, err
	}
	rating, err := ParseRating(v["rating"])
	if err != nil {
		return Feedback{}, err
	}
	return Feedback{Rating: rating, Comments: v["feedback"]}, nil
}
