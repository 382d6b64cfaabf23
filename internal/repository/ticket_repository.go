package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// TicketFilter captures admin search parameters.
type TicketFilter struct {
	CreatorID   *snowflake.ID
	AssigneeID  *snowflake.ID
	Categories  []domain.Category
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// ErrTicketNotOpen is returned when a close targets a ticket that is already closed.
var ErrTicketNotOpen = errors.New("ticket is not open")

// TicketRepository encapsulates ticket persistence. Every mutation reports
// pgx.ErrNoRows when the ticket does not exist. Close and CloseWithFeedback only
// move open tickets and report ErrTicketNotOpen otherwise.
type TicketRepository interface {
	NextTicketNumber(ctx context.Context) (int64, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByNumber(ctx context.Context, number int64) (*domain.Ticket, error)
	GetByChannel(ctx context.Context, channelID snowflake.ID) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Assign(ctx context.Context, number int64, assigneeID *snowflake.ID) error
	UpdatePriority(ctx context.Context, number int64, priority domain.TicketPriority) error
	StorePaymentMethod(ctx context.Context, number int64, method string) error
	StoreTransaction(ctx context.Context, number int64, record string) error
	SetSummaryMessage(ctx context.Context, number int64, messageID snowflake.ID) error
	Lock(ctx context.Context, number int64, at time.Time) error
	Close(ctx context.Context, number int64, at time.Time) error
	CloseWithFeedback(ctx context.Context, number int64, rating int, feedback string, at time.Time) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `number, channel_id, creator_id, category, title, body, priority, assignee_id, status,
       rank, payment_method, transaction_info, feedback, rating, summary_message_id,
       created_at, updated_at, locked_at, closed_at`

func (r *ticketRepository) NextTicketNumber(ctx context.Context) (int64, error) {
	var number int64
	err := r.pool.QueryRow(ctx, `SELECT nextval('ticket_number_seq')`).Scan(&number)
	return number, err
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (number, channel_id, creator_id, category, title, body, priority, assignee_id, status, rank, summary_message_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Number,
		int64(ticket.ChannelID),
		int64(ticket.CreatorID),
		string(ticket.Category),
		ticket.Title,
		ticket.Body,
		string(ticket.Priority),
		idArg(ticket.AssigneeID),
		string(ticket.Status),
		ticket.Rank,
		idArg(ticket.SummaryMessageID),
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number int64) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE number=$1`, number)
}

func (r *ticketRepository) GetByChannel(ctx context.Context, channelID snowflake.ID) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE channel_id=$1`, int64(channelID))
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatorID != nil {
		args = append(args, int64(*filter.CreatorID))
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, int64(*filter.AssigneeID))
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			args = append(args, string(category))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, string(pr))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY number DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Assign(ctx context.Context, number int64, assigneeID *snowflake.ID) error {
	return r.exec(ctx, `UPDATE tickets SET assignee_id=$1, updated_at=NOW() WHERE number=$2`, idArg(assigneeID), number)
}

func (r *ticketRepository) UpdatePriority(ctx context.Context, number int64, priority domain.TicketPriority) error {
	return r.exec(ctx, `UPDATE tickets SET priority=$1, updated_at=NOW() WHERE number=$2`, string(priority), number)
}

func (r *ticketRepository) StorePaymentMethod(ctx context.Context, number int64, method string) error {
	return r.exec(ctx, `UPDATE tickets SET payment_method=$1, updated_at=NOW() WHERE number=$2`, method, number)
}

func (r *ticketRepository) StoreTransaction(ctx context.Context, number int64, record string) error {
	return r.exec(ctx, `UPDATE tickets SET transaction_info=$1, updated_at=NOW() WHERE number=$2`, record, number)
}

func (r *ticketRepository) SetSummaryMessage(ctx context.Context, number int64, messageID snowflake.ID) error {
	return r.exec(ctx, `UPDATE tickets SET summary_message_id=$1, updated_at=NOW() WHERE number=$2`, int64(messageID), number)
}

func (r *ticketRepository) Lock(ctx context.Context, number int64, at time.Time) error {
	return r.exec(ctx, `UPDATE tickets SET locked_at=COALESCE(locked_at, $1), updated_at=NOW() WHERE number=$2`, at, number)
}

func (r *ticketRepository) Close(ctx context.Context, number int64, at time.Time) error {
	const query = `
        UPDATE tickets SET status=$1, closed_at=$2, updated_at=NOW()
        WHERE number=$3 AND status=$4`
	return r.closeOpen(ctx, number, query, string(domain.TicketStatusClosed), at, number, string(domain.TicketStatusOpen))
}

func (r *ticketRepository) CloseWithFeedback(ctx context.Context, number int64, rating int, feedback string, at time.Time) error {
	const query = `
        UPDATE tickets SET status=$1, closed_at=$2, rating=$3, feedback=$4, updated_at=NOW()
        WHERE number=$5 AND status=$6`
	return r.closeOpen(ctx, number, query, string(domain.TicketStatusClosed), at, rating, feedback, number, string(domain.TicketStatusOpen))
}

func (r *ticketRepository) closeOpen(ctx context.Context, number int64, query string, args ...any) error {
	err := r.exec(ctx, query, args...)
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE number=$1)`, number).Scan(&exists); err != nil {
		return fmt.Errorf("check ticket %d: %w", number, err)
	}
	if exists {
		return ErrTicketNotOpen
	}
	return pgx.ErrNoRows
}

func (r *ticketRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket                     domain.Ticket
		channelID, creatorID       int64
		assigneeID, summaryID      *int64
		category, priority, status string
		rating                     *int16
	)
	if err := row.Scan(
		&ticket.Number,
		&channelID,
		&creatorID,
		&category,
		&ticket.Title,
		&ticket.Body,
		&priority,
		&assigneeID,
		&status,
		&ticket.Rank,
		&ticket.PaymentMethod,
		&ticket.Transaction,
		&ticket.Feedback,
		&rating,
		&summaryID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.LockedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	ticket.ChannelID = snowflake.ID(channelID)
	ticket.CreatorID = snowflake.ID(creatorID)
	ticket.Category = domain.Category(category)
	ticket.Priority = domain.TicketPriority(priority)
	ticket.Status = domain.TicketStatus(status)
	ticket.AssigneeID = idPtr(assigneeID)
	ticket.SummaryMessageID = idPtr(summaryID)
	if rating != nil {
		v := int(*rating)
		ticket.Rating = &v
	}
	return &ticket, nil
}

func idArg(id *snowflake.ID) *int64 {
	if id == nil {
		return nil
	}
	v := int64(*id)
	return &v
}

func idPtr(v *int64) *snowflake.ID {
	if v == nil {
		return nil
	}
	id := snowflake.ID(*v)
	return &id
}
