package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ticketing/internal/auth"
	"ticketing/internal/models"
	"ticketing/internal/service"
	"ticketing/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discardPublisher[E models.Event] struct {
	mu     sync.Mutex
	events []E
}

func (p *discardPublisher[E]) Publish(ctx context.Context, event E) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type testServer struct {
	router *gin.Engine
	issuer *auth.Issuer
	repo   *store.MemoryStore
}

func newTestServer(t *testing.T, checks map[string]Checker) *testServer {
	gin.SetMode(gin.TestMode)

	s := &testServer{
		router: gin.New(),
		issuer: auth.NewIssuer("secret", time.Hour),
		repo:   store.NewMemoryStore(),
	}

	tickets := service.NewTicketService(s.repo,
		&discardPublisher[models.TicketCreatedEvent]{},
		&discardPublisher[models.TicketUpdatedEvent]{})
	orders := service.NewOrderService(s.repo, s.repo, nil,
		&discardPublisher[models.OrderCreatedEvent]{},
		&discardPublisher[models.OrderCancelledEvent]{},
		15*time.Minute)
	users := service.NewUserService(s.repo, &auth.Bcrypt{Cost: 4}, s.issuer)

	api := NewHandler(s.issuer, checks).SetupRoutes(s.router)
	NewTicketsHandler(tickets).Register(api)
	NewOrdersHandler(orders).Register(api)
	NewUsersHandler(users, time.Hour, false).Register(api)
	return s
}

func (s *testServer) session(t *testing.T, userID string) *http.Cookie {
	token, err := s.issuer.Sign(&models.User{ID: userID, Email: userID + "@test.com"})
	require.NoError(t, err)
	return &http.Cookie{Name: auth.SessionCookie, Value: token}
}

func (s *testServer) do(method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, map[string]Checker{
		"database": func(ctx context.Context) error { return nil },
	})

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/ready", "", nil).Code)
}

func TestReadyReportsFailedCheck(t *testing.T) {
	s := newTestServer(t, map[string]Checker{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	})

	w := s.do(http.MethodGet, "/ready", "", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestCreateTicketRequiresAuth(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/tickets", `{"title":"concert","price":20}`, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateAndFetchTicket(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.session(t, "u1")

	w := s.do(http.MethodPost, "/api/tickets", `{"title":"concert","price":20}`, cookie)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Ticket
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, int64(0), created.Version)
	assert.True(t, created.Price.Equal(decimal.NewFromInt(20)))

	w = s.do(http.MethodGet, "/api/tickets/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/tickets/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateTicketValidation(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.session(t, "u1")

	w := s.do(http.MethodPost, "/api/tickets", `{"title":"","price":20}`, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/tickets", `{"title":"concert","price":-10}`, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/tickets", `not json`, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTicketByOtherUser(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, s.repo.InsertTicket(context.Background(), &models.Ticket{
		ID: "T1", Title: "concert", Price: decimal.NewFromInt(20), UserID: "u1",
	}))

	w := s.do(http.MethodPut, "/api/tickets/T1", `{"title":"opera","price":30}`, s.session(t, "u2"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPut, "/api/tickets/T1", `{"title":"opera","price":30}`, s.session(t, "u1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":1`)
}

func TestOrderFlow(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, s.repo.InsertTicket(context.Background(), &models.Ticket{
		ID: "T1", Title: "concert", Price: decimal.NewFromInt(20), UserID: "seller",
	}))
	buyer := s.session(t, "buyer")

	w := s.do(http.MethodPost, "/api/orders", `{"ticketId":"T1"}`, buyer)
	require.Equal(t, http.StatusCreated, w.Code)
	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, models.OrderStatusCreated, order.Status)

	w = s.do(http.MethodPost, "/api/orders", `{"ticketId":"T1"}`, s.session(t, "other"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already reserved")

	w = s.do(http.MethodGet, "/api/orders/"+order.ID, "", s.session(t, "other"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/orders/"+order.ID, "", buyer)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ticket":{`)

	w = s.do(http.MethodDelete, "/api/orders/"+order.ID, "", buyer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"cancelled"`)

	w = s.do(http.MethodGet, "/api/orders", "", buyer)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), order.ID)
}

func TestCreateOrderRequiresTicketID(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/orders", `{}`, s.session(t, "buyer"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignupSetsSession(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/users/signup", `{"email":"a@b.com","password":"password"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)

	w = s.do(http.MethodGet, "/api/users/currentuser", "", session)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"a@b.com"`)

	w = s.do(http.MethodPost, "/api/users/signup", `{"email":"a@b.com","password":"password"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSigninAndSignout(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(http.MethodPost, "/api/users/signup", `{"email":"a@b.com","password":"password"}`, nil)

	w := s.do(http.MethodPost, "/api/users/signin", `{"email":"a@b.com","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/users/signin", `{"email":"a@b.com","password":"password"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/users/signout", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), auth.SessionCookie+"=;")
}

func TestCurrentUserAnonymous(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/users/currentuser", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"currentUser":null}`, w.Body.String())
}
