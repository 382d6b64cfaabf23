package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/api/http/handlers"
	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/repository"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

type stubAuth struct{}

func (stubAuth) LoginAdmin(_ context.Context, username, password string) (string, time.Time, error) {
	if username != "admin" || password != "pw" {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	return "token", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

type stubCatalog struct {
	ranks  []string
	prices []domain.Price
	last   *domain.Price
}

func (s *stubCatalog) ListRanks(context.Context) ([]domain.Rank, error) {
	out := make([]domain.Rank, 0, len(s.ranks))
	for _, name := range s.ranks {
		out = append(out, domain.Rank{Name: name})
	}
	return out, nil
}

func (s *stubCatalog) AddRank(_ context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.NewValidationError("Rank name cannot be empty.", nil)
	}
	s.ranks = append(s.ranks, name)
	return name, nil
}

func (s *stubCatalog) RemoveRank(_ context.Context, name string) (string, error) {
	for i, rank := range s.ranks {
		if rank == name {
			s.ranks = append(s.ranks[:i], s.ranks[i+1:]...)
			return name, nil
		}
	}
	return "", apperrors.NewNotFound("rank", nil)
}

func (s *stubCatalog) ListPaymentMethods(context.Context) ([]domain.PaymentMethod, error) {
	return []domain.PaymentMethod{{Name: "UPI", Identifier: "shop@upi", QR: domain.NotSetYet}}, nil
}

func (s *stubCatalog) AddPaymentMethod(_ context.Context, name string) (string, error) {
	return name, nil
}

func (s *stubCatalog) SetPaymentDetails(_ context.Context, method, identifier, qr string) (*domain.PaymentMethod, error) {
	return &domain.PaymentMethod{Name: method, Identifier: identifier, QR: qr}, nil
}

func (s *stubCatalog) SetPrice(_ context.Context, rank, method string, amount float64) (*domain.Price, error) {
	if amount < 0 {
		return nil, apperrors.NewValidationError("Price must be a non-negative number.", nil)
	}
	s.last = &domain.Price{Rank: rank, Method: method, Amount: amount}
	return s.last, nil
}

func (s *stubCatalog) ListPrices(_ context.Context, rank string) ([]domain.Price, error) {
	var out []domain.Price
	for _, price := range s.prices {
		if price.Rank == rank {
			out = append(out, price)
		}
	}
	return out, nil
}

type stubTickets struct {
	filter repository.TicketFilter
}

func (s *stubTickets) Get(_ context.Context, number int64) (*domain.Ticket, error) {
	if number != 7 {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	rank := "VIP"
	return &domain.Ticket{
		Number:    7,
		ChannelID: snowflake.ID(42),
		CreatorID: snowflake.ID(3000),
		Category:  domain.CategoryRank,
		Title:     "Rank Purchase: VIP",
		Rank:      &rank,
		Status:    domain.TicketStatusOpen,
		Priority:  domain.TicketPriorityNone,
	}, nil
}

func (s *stubTickets) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	s.filter = filter
	return []domain.Ticket{{Number: 1, Category: domain.CategoryBug, Status: domain.TicketStatusOpen}}, nil
}

func (s *stubTickets) History(_ context.Context, number int64) ([]domain.TicketHistory, error) {
	if _, err := s.Get(context.Background(), number); err != nil {
		return nil, err
	}
	return []domain.TicketHistory{{ID: 1, TicketNumber: 7, ChangeType: domain.ChangeTypeAssignee}}, nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app     *fiber.App
	catalog *stubCatalog
	tickets *stubTickets
	token   string
}

func newTestServer(t *testing.T, deps map[string]handlers.Pinger) *testServer {
	t.Helper()
	tokens := auth.NewTokenManager("secret", 5*time.Minute, "ticket-bot")
	token, _, err := tokens.IssueToken("admin", domain.SubjectTypeAdmin)
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	catalog := &stubCatalog{
		ranks:  []string{"VIP"},
		prices: []domain.Price{{Rank: "VIP", Method: "UPI", Amount: 499}},
	}
	tickets := &stubTickets{}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("ticket-bot", "test", deps),
		Auth:           handlers.NewAuthHandler(stubAuth{}),
		Catalog:        handlers.NewCatalogHandler(catalog),
		Tickets:        handlers.NewTicketsHandler(tickets),
		Metrics:        handlers.NewMetricsHandler(metrics),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})
	return &testServer{app: app, catalog: catalog, tickets: tickets, token: token}
}

func (s *testServer) do(t *testing.T, method, path, body string, authed bool) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	envelope, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error envelope: %v", body)
	return envelope["code"].(string)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, map[string]handlers.Pinger{"postgres": pinger{}, "redis": nil})

	status, body := srv.do(t, nethttp.MethodGet, "/health/live", "", false)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = srv.do(t, nethttp.MethodGet, "/health/ready", "", false)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, map[string]any{"postgres": "ok"}, body["dependencies"])
}

func TestReadyReportsFailingDependency(t *testing.T) {
	srv := newTestServer(t, map[string]handlers.Pinger{
		"postgres": pinger{},
		"redis":    pinger{err: errors.New("connection refused")},
	})

	status, body := srv.do(t, nethttp.MethodGet, "/health/ready", "", false)
	assert.Equal(t, nethttp.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(t, body))
}

func TestAdminLogin(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, nethttp.MethodPost, "/auth/admin/login", `{"username":"admin","password":"pw"}`, false)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "token", body["token"])

	status, body = srv.do(t, nethttp.MethodPost, "/auth/admin/login", `{"username":"admin","password":"nope"}`, false)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthorized, errorCode(t, body))

	status, body = srv.do(t, nethttp.MethodPost, "/auth/admin/login", `{"username":"admin"}`, false)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidation, errorCode(t, body))
}

func TestAdminRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, nethttp.MethodGet, "/admin/ranks", "", false)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthorized, errorCode(t, body))
}

func TestCatalogRoutes(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, nethttp.MethodPost, "/admin/ranks", `{"name":" MVP "}`, true)
	assert.Equal(t, nethttp.StatusCreated, status)
	assert.Equal(t, map[string]any{"name": "MVP"}, body["data"])
	assert.Equal(t, []string{"VIP", "MVP"}, srv.catalog.ranks)

	status, body = srv.do(t, nethttp.MethodGet, "/admin/ranks", "", true)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["data"], 2)

	status, _ = srv.do(t, nethttp.MethodDelete, "/admin/ranks/MVP", "", true)
	assert.Equal(t, nethttp.StatusNoContent, status)

	status, body = srv.do(t, nethttp.MethodDelete, "/admin/ranks/Legend", "", true)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(t, body))

	status, body = srv.do(t, nethttp.MethodGet, "/admin/ranks/VIP/prices", "", true)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, []any{map[string]any{"rank": "VIP", "method": "UPI", "amount": 499.0}}, body["data"])

	status, _ = srv.do(t, nethttp.MethodPut, "/admin/ranks/VIP/prices", `{"method":"PayPal","amount":9.5}`, true)
	assert.Equal(t, nethttp.StatusOK, status)
	require.NotNil(t, srv.catalog.last)
	assert.Equal(t, domain.Price{Rank: "VIP", Method: "PayPal", Amount: 9.5}, *srv.catalog.last)

	status, body = srv.do(t, nethttp.MethodPut, "/admin/ranks/VIP/prices", `{"method":"PayPal"}`, true)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidation, errorCode(t, body))

	status, body = srv.do(t, nethttp.MethodPut, "/admin/methods/UPI", `{"identifier":"new@upi"}`, true)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "new@upi", body["data"].(map[string]any)["identifier"])
}

func TestTicketRoutes(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, nethttp.MethodGet, "/admin/tickets?category=bug,rank&status=open&creator_id=3000&page=2&page_size=10", "", true)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["data"], 1)
	filter := srv.tickets.filter
	assert.Equal(t, []domain.Category{domain.CategoryBug, domain.CategoryRank}, filter.Categories)
	assert.Equal(t, []domain.TicketStatus{domain.TicketStatusOpen}, filter.Statuses)
	require.NotNil(t, filter.CreatorID)
	assert.Equal(t, snowflake.ID(3000), *filter.CreatorID)
	assert.Equal(t, 10, filter.Offset)
	assert.Equal(t, 10, filter.Limit)

	status, body = srv.do(t, nethttp.MethodGet, "/admin/tickets?category=lottery", "", true)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidation, errorCode(t, body))

	status, body = srv.do(t, nethttp.MethodGet, "/admin/tickets/7", "", true)
	assert.Equal(t, nethttp.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "ticket-0007", data["channel"])
	assert.Equal(t, "VIP", data["rank"])

	status, body = srv.do(t, nethttp.MethodGet, "/admin/tickets/7/history", "", true)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = srv.do(t, nethttp.MethodGet, "/admin/tickets/8", "", true)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(t, body))

	status, body = srv.do(t, nethttp.MethodGet, "/admin/tickets/abc", "", true)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidation, errorCode(t, body))
}

func TestMetricsAndUnknownRoute(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, nethttp.MethodGet, "/nowhere", "", false)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(t, body))

	status, body = srv.do(t, nethttp.MethodGet, "/admin/metrics", "", true)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Contains(t, body["data"], "requests")
}

func TestErrorBodyCarriesRequestID(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := srv.app.Test(httptest.NewRequest(nethttp.MethodGet, "/admin/tickets", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	reqID := resp.Header.Get(fiber.HeaderXRequestID)
	require.NotEmpty(t, reqID)
	var body struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeUnauthorized, body.Error.Code)
	assert.Equal(t, reqID, body.Error.RequestID)
}
