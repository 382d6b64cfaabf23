package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// CatalogRepository persists ranks, payment methods and the price table.
type CatalogRepository interface {
	ListRanks(ctx context.Context) ([]domain.Rank, error)
	AddRank(ctx context.Context, name string) (bool, error)
	RemoveRank(ctx context.Context, name string) (bool, error)
	ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, name string) (*domain.PaymentMethod, error)
	AddPaymentMethod(ctx context.Context, name string) (bool, error)
	SetPaymentDetails(ctx context.Context, name, identifier, qr string) error
	SetPrice(ctx context.Context, price domain.Price) error
	ListPrices(ctx context.Context, rank string) ([]domain.Price, error)
}

type catalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository builds repository.
func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{pool: pool}
}

func (r *catalogRepository) ListRanks(ctx context.Context) ([]domain.Rank, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, created_at FROM ranks ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Rank
	for rows.Next() {
		var rank domain.Rank
		if err := rows.Scan(&rank.Name, &rank.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, rank)
	}
	return result, rows.Err()
}

// AddRank reports false when a rank with the same name (case-insensitive) exists.
func (r *catalogRepository) AddRank(ctx context.Context, name string) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `INSERT INTO ranks (name) VALUES ($1) ON CONFLICT DO NOTHING`, name)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *catalogRepository) RemoveRank(ctx context.Context, name string) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ranks WHERE lower(name)=lower($1)`, name)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *catalogRepository) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, identifier, qr, created_at FROM payment_methods ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PaymentMethod
	for rows.Next() {
		var method domain.PaymentMethod
		if err := rows.Scan(&method.Name, &method.Identifier, &method.QR, &method.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, method)
	}
	return result, rows.Err()
}

func (r *catalogRepository) GetPaymentMethod(ctx context.Context, name string) (*domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	err := r.pool.QueryRow(ctx,
		`SELECT name, identifier, qr, created_at FROM payment_methods WHERE name=$1`, name,
	).Scan(&method.Name, &method.Identifier, &method.QR, &method.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *catalogRepository) AddPaymentMethod(ctx context.Context, name string) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `INSERT INTO payment_methods (name) VALUES ($1) ON CONFLICT DO NOTHING`, name)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *catalogRepository) SetPaymentDetails(ctx context.Context, name, identifier, qr string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE payment_methods SET identifier=$1, qr=$2 WHERE name=$3`, identifier, qr, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *catalogRepository) SetPrice(ctx context.Context, price domain.Price) error {
	const query = `
        INSERT INTO rank_prices (rank, method, amount) VALUES ($1,$2,$3)
        ON CONFLICT (rank, method) DO UPDATE SET amount=EXCLUDED.amount`
	_, err := r.pool.Exec(ctx, query, price.Rank, price.Method, price.Amount)
	return err
}

func (r *catalogRepository) ListPrices(ctx context.Context, rank string) ([]domain.Price, error) {
	rows, err := r.pool.Query(ctx, `SELECT rank, method, amount::float8 FROM rank_prices WHERE rank=$1 ORDER BY method`, rank)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Price
	for rows.Next() {
		var price domain.Price
		if err := rows.Scan(&price.Rank, &price.Method, &price.Amount); err != nil {
			return nil, err
		}
		result = append(result, price)
	}
	return result, rows.Err()
}
