package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/api/dto"
	"github.com/spec-kit/ticket-bot/internal/domain"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// CatalogAdmin is the rank and payment catalog as the admin API sees it.
type CatalogAdmin interface {
	ListRanks(ctx context.Context) ([]domain.Rank, error)
	AddRank(ctx context.Context, name string) (string, error)
	RemoveRank(ctx context.Context, name string) (string, error)
	ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
	AddPaymentMethod(ctx context.Context, name string) (string, error)
	SetPaymentDetails(ctx context.Context, method, identifier, qr string) (*domain.PaymentMethod, error)
	SetPrice(ctx context.Context, rank, method string, amount float64) (*domain.Price, error)
	ListPrices(ctx context.Context, rank string) ([]domain.Price, error)
}

// CatalogHandler exposes catalog administration over HTTP.
type CatalogHandler struct {
	catalog CatalogAdmin
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog CatalogAdmin) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListRanks GET /admin/ranks.
func (h *CatalogHandler) ListRanks(c *fiber.Ctx) error {
	ranks, err := h.catalog.ListRanks(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.RankResponse, 0, len(ranks))
	for _, rank := range ranks {
		items = append(items, dto.RankResponse{Name: rank.Name, CreatedAt: rank.CreatedAt})
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddRank POST /admin/ranks.
func (h *CatalogHandler) AddRank(c *fiber.Ctx) error {
	var req dto.RankRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	name, err := h.catalog.AddRank(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.RankRequest{Name: name}})
}

// RemoveRank DELETE /admin/ranks/:name.
func (h *CatalogHandler) RemoveRank(c *fiber.Ctx) error {
	if _, err := h.catalog.RemoveRank(c.UserContext(), c.Params("name")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListMethods GET /admin/methods.
func (h *CatalogHandler) ListMethods(c *fiber.Ctx) error {
	methods, err := h.catalog.ListPaymentMethods(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.PaymentMethodResponse, 0, len(methods))
	for i := range methods {
		items = append(items, methodResponse(&methods[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddMethod POST /admin/methods.
func (h *CatalogHandler) AddMethod(c *fiber.Ctx) error {
	var req dto.PaymentMethodRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	name, err := h.catalog.AddPaymentMethod(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.PaymentMethodResponse{
		Name:       name,
		Identifier: domain.NotSetYet,
		QR:         domain.NotSetYet,
	}})
}

// SetMethodDetails PUT /admin/methods/:name.
func (h *CatalogHandler) SetMethodDetails(c *fiber.Ctx) error {
	var req dto.PaymentDetailsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	method, err := h.catalog.SetPaymentDetails(c.UserContext(), c.Params("name"), req.Identifier, req.QR)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": methodResponse(method)})
}

// ListPrices GET /admin/ranks/:name/prices.
func (h *CatalogHandler) ListPrices(c *fiber.Ctx) error {
	prices, err := h.catalog.ListPrices(c.UserContext(), c.Params("name"))
	if err != nil {
		return err
	}
	items := make([]dto.PriceResponse, 0, len(prices))
	for _, price := range prices {
		items = append(items, dto.PriceResponse{Rank: price.Rank, Method: price.Method, Amount: price.Amount})
	}
	return c.JSON(fiber.Map{"data": items})
}

// SetPrice PUT /admin/ranks/:name/prices.
func (h *CatalogHandler) SetPrice(c *fiber.Ctx) error {
	var req dto.PriceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Amount == nil {
		return apperrors.NewValidationError("method and amount required", nil)
	}
	price, err := h.catalog.SetPrice(c.UserContext(), c.Params("name"), req.Method, *req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PriceResponse{Rank: price.Rank, Method: price.Method, Amount: price.Amount}})
}

func methodResponse(method *domain.PaymentMethod) dto.PaymentMethodResponse {
	return dto.PaymentMethodResponse{Name: method.Name, Identifier: method.Identifier, QR: method.QR}
}
