package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/repository"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

const catalogNameLimit = 100

// CatalogService manages ranks, payment methods and prices.
type CatalogService struct {
	catalog repository.CatalogRepository
	logger  *zap.Logger
}

// NewCatalogService builds service.
func NewCatalogService(catalog repository.CatalogRepository, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{catalog: catalog, logger: logger}
}

func cleanName(kind, raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", apperrors.NewValidationError(fmt.Sprintf("%s name is required.", kind), nil)
	}
	if len([]rune(name)) > catalogNameLimit {
		return "", apperrors.NewValidationError(fmt.Sprintf("%s name must be at most %d characters.", kind, catalogNameLimit), nil)
	}
	return name, nil
}

// ListRanks returns ranks in the order they were added.
func (s *CatalogService) ListRanks(ctx context.Context) ([]domain.Rank, error) {
	ranks, err := s.catalog.ListRanks(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return ranks, nil
}

// AddRank adds a purchasable rank.
func (s *CatalogService) AddRank(ctx context.Context, raw string) (string, error) {
	name, err := cleanName("Rank", raw)
	if err != nil {
		return "", err
	}
	added, err := s.catalog.AddRank(ctx, name)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	if !added {
		return "", apperrors.NewConflict(fmt.Sprintf("Rank %s already exists.", name), map[string]any{"rank": name})
	}
	s.logger.Info("rank added", zap.String("rank", name))
	return name, nil
}

// RemoveRank deletes a rank and its prices.
func (s *CatalogService) RemoveRank(ctx context.Context, raw string) (string, error) {
	name, err := cleanName("Rank", raw)
	if err != nil {
		return "", err
	}
	removed, err := s.catalog.RemoveRank(ctx, name)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	if !removed {
		return "", apperrors.NewNotFound("rank", map[string]any{"rank": name})
	}
	s.logger.Info("rank removed", zap.String("rank", name))
	return name, nil
}

// ListPaymentMethods returns accepted payment methods.
func (s *CatalogService) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	methods, err := s.catalog.ListPaymentMethods(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return methods, nil
}

// AddPaymentMethod adds an accepted payment method with no details set.
func (s *CatalogService) AddPaymentMethod(ctx context.Context, raw string) (string, error) {
	name, err := cleanName("Payment method", raw)
	if err != nil {
		return "", err
	}
	added, err := s.catalog.AddPaymentMethod(ctx, name)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	if !added {
		return "", apperrors.NewConflict(fmt.Sprintf("Payment method %s already exists.", name), map[string]any{"method": name})
	}
	s.logger.Info("payment method added", zap.String("method", name))
	return name, nil
}

// SetPaymentDetails sets the payee id and QR asset of a method. Blank values are stored
// as "not set yet".
func (s *CatalogService) SetPaymentDetails(ctx context.Context, rawMethod, identifier, qr string) (*domain.PaymentMethod, error) {
	name, err := cleanName("Payment method", rawMethod)
	if err != nil {
		return nil, err
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		identifier = domain.NotSetYet
	}
	qr = strings.TrimSpace(qr)
	if qr == "" {
		qr = domain.NotSetYet
	}
	if err := s.catalog.SetPaymentDetails(ctx, name, identifier, qr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("payment method", map[string]any{"method": name})
		}
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("payment details set", zap.String("method", name))
	return &domain.PaymentMethod{Name: name, Identifier: identifier, QR: qr}, nil
}

// SetPrice sets what a rank costs through one payment method.
func (s *CatalogService) SetPrice(ctx context.Context, rawRank, rawMethod string, amount float64) (*domain.Price, error) {
	rank, err := cleanName("Rank", rawRank)
	if err != nil {
		return nil, err
	}
	methodName, err := cleanName("Payment method", rawMethod)
	if err != nil {
		return nil, err
	}
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, apperrors.NewValidationError("Price must be a non-negative number.", map[string]any{"price": amount})
	}

	ranks, err := s.catalog.ListRanks(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	found := ""
	for _, r := range ranks {
		if strings.EqualFold(r.Name, rank) {
			found = r.Name
			break
		}
	}
	if found == "" {
		return nil, apperrors.NewNotFound("rank", map[string]any{"rank": rank})
	}
	method, err := s.catalog.GetPaymentMethod(ctx, methodName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("payment method", map[string]any{"method": methodName})
		}
		return nil, apperrors.NewInternalError(err)
	}

	price := domain.Price{Rank: found, Method: method.Name, Amount: amount}
	if err := s.catalog.SetPrice(ctx, price); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("price set", zap.String("rank", price.Rank), zap.String("method", price.Method), zap.Float64("amount", amount))
	return &price, nil
}

// ListPrices returns the price table for a rank.
func (s *CatalogService) ListPrices(ctx context.Context, rank string) ([]domain.Price, error) {
	prices, err := s.catalog.ListPrices(ctx, strings.TrimSpace(rank))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return prices, nil
}
