package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JKeiyuru/cornells-sub002/internal/dbtest"
	"github.com/JKeiyuru/cornells-sub002/internal/models"
	"github.com/JKeiyuru/cornells-sub002/internal/quotes"
	"github.com/JKeiyuru/cornells-sub002/internal/ratelimit"
	"github.com/JKeiyuru/cornells-sub002/internal/repo"
	"github.com/JKeiyuru/cornells-sub002/internal/service"
	middleware "github.com/JKeiyuru/cornells-sub002/pkg/middleware/auth"
	"github.com/JKeiyuru/cornells-sub002/pkg/tokens"
)

var (
	accessSecret  = []byte("access-secret-for-tests")
	refreshSecret = []byte("refresh-secret-for-tests")
)

type testServer struct {
	e      *echo.Echo
	repo   *repo.GormRepo
	quotes *service.QuoteService
	ready  error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	r := &repo.GormRepo{DB: dbtest.Open(t)}
	ts := &testServer{e: echo.New(), repo: r, quotes: &service.QuoteService{Repo: r}}
	ts.e.HTTPErrorHandler = ErrorHandler(false)

	Register(ts.e, &Deps{
		Auth:    middleware.NewAuth(accessSecret),
		Catalog: &CatalogHTTP{Svc: &service.CatalogService{Repo: r}},
		Cart:    &CartHTTP{Svc: &service.CartService{Repo: r}},
		Orders:  &OrderHTTP{Svc: &service.OrderService{Repo: r}},
		Session: &AuthHTTP{Svc: &service.AuthService{
			Repo:          r,
			Limiter:       ratelimit.NewMemoryLimiter(5, time.Minute),
			AccessSecret:  accessSecret,
			RefreshSecret: refreshSecret,
		}},
		Users:  &UserHTTP{Svc: &service.UserService{Repo: r}},
		Quotes: &QuoteHTTP{Svc: ts.quotes},
		Ready:  func(context.Context) error { return ts.ready },
	})
	return ts
}

func (ts *testServer) seedUser(t *testing.T, role string) (uuid.UUID, string) {
	t.Helper()
	u := &models.User{
		Name:           "Achieng",
		Email:          uuid.NewString()[:8] + "@example.com",
		PasswordHash:   "x",
		Role:           role,
		Addresses:      []models.Address{},
		MembershipTier: models.TierBronze,
		IsActive:       true,
	}
	require.NoError(t, ts.repo.CreateUser(context.Background(), u))
	tok, err := tokens.NewAccessToken(accessSecret, u.ID.String(), role, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return u.ID, tok
}

func (ts *testServer) seedProduct(t *testing.T, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Title:      "Ankara Skirt",
		Price:      250,
		Stock:      stock,
		IsActive:   true,
		Brand:      "Cornells",
		Categories: []string{"Skirts"},
		Images:     []string{"https://cdn.example.com/skirt.jpg"},
		MOQ:        1,
	}
	require.NoError(t, ts.repo.CreateProduct(context.Background(), p))
	return p
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func orderBody(p *models.Product, qty int, total float64) map[string]any {
	return map[string]any{
		"items":           []map[string]any{{"productId": p.ID, "quantity": qty}},
		"shippingAddress": map[string]any{"street": "4 Moi Ave", "city": "Mombasa", "country": "KE"},
		"paymentMethod":   "mpesa",
		"totalAmount":     total,
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ts.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.ready = errors.New("db down")
	rec, body := ts.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestOrders_RequireSession(t *testing.T) {
	ts := newTestServer(t)
	p := ts.seedProduct(t, 5)

	rec, body := ts.do(t, http.MethodPost, "/api/v1/orders", "", orderBody(p, 1, 250))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUnauthorized, body["code"])

	_, tok := ts.seedUser(t, middleware.RoleUser)
	rec, body = ts.do(t, http.MethodGet, "/api/v1/orders", tok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, CodeForbidden, body["code"])
}

func TestCreateOrder_Flow(t *testing.T) {
	ts := newTestServer(t)
	p := ts.seedProduct(t, 5)
	userID, tok := ts.seedUser(t, middleware.RoleUser)

	rec, body := ts.do(t, http.MethodPost, "/api/v1/orders", tok, orderBody(p, 3, 750))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	order := body["order"].(map[string]any)
	assert.Equal(t, userID.String(), order["userId"])
	assert.Equal(t, "pending", order["status"])

	got, err := ts.repo.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)

	rec, body = ts.do(t, http.MethodPost, "/api/v1/orders", tok, orderBody(p, 3, 750))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInsufficientStock, body["code"])
	items := body["items"].([]any)
	require.Len(t, items, 1)
	short := items[0].(map[string]any)
	assert.Equal(t, p.ID.String(), short["productId"])
	assert.EqualValues(t, 2, short["available"])

	rec, _ = ts.do(t, http.MethodPut, "/api/v1/orders/"+order["id"].(string)+"/cancel", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, err = ts.repo.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)

	rec, body = ts.do(t, http.MethodPut, "/api/v1/orders/"+order["id"].(string)+"/cancel", tok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeConflict, body["code"])
}

func TestCreateOrder_RejectsBadInput(t *testing.T) {
	ts := newTestServer(t)
	p := ts.seedProduct(t, 5)
	_, tok := ts.seedUser(t, middleware.RoleUser)

	withExtra := orderBody(p, 1, 250)
	withExtra["unitPrice"] = 1
	rec, body := ts.do(t, http.MethodPost, "/api/v1/orders", tok, withExtra)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, body["code"])

	rec, body = ts.do(t, http.MethodPost, "/api/v1/orders", tok, orderBody(p, 0, 0))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, body["code"])
	assert.NotEmpty(t, body["errors"])

	rec, body = ts.do(t, http.MethodGet, "/api/v1/orders/not-a-uuid", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, body["code"])
}

func TestProducts_ListIsPaged(t *testing.T) {
	ts := newTestServer(t)
	for range 3 {
		ts.seedProduct(t, 5)
	}

	rec, body := ts.do(t, http.MethodGet, "/api/v1/products?limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, body["products"], 2)
	assert.EqualValues(t, 3, body["totalProducts"])
	assert.EqualValues(t, 1, body["currentPage"])
	assert.EqualValues(t, 2, body["totalPages"])
	assert.Equal(t, true, body["hasNextPage"])
	assert.Equal(t, false, body["hasPrevPage"])

	rec, body = ts.do(t, http.MethodGet, "/api/v1/products?minPrice=cheap", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, body["code"])
}

func TestProducts_AdminOnlyWrites(t *testing.T) {
	ts := newTestServer(t)
	_, userTok := ts.seedUser(t, middleware.RoleUser)
	_, adminTok := ts.seedUser(t, middleware.RoleAdmin)

	product := map[string]any{
		"title":      "Maasai Sandals",
		"price":      1200,
		"stock":      8,
		"brand":      "Cornells",
		"categories": []string{"Shoes"},
		"images":     []string{"https://cdn.example.com/sandals.jpg"},
	}
	rec, _ := ts.do(t, http.MethodPost, "/api/v1/products", userTok, product)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := ts.do(t, http.MethodPost, "/api/v1/products", adminTok, product)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Maasai Sandals", body["product"].(map[string]any)["title"])
}

func TestCart_AddAndCount(t *testing.T) {
	ts := newTestServer(t)
	p := ts.seedProduct(t, 5)
	_, tok := ts.seedUser(t, middleware.RoleUser)

	rec, _ := ts.do(t, http.MethodPost, "/api/v1/cart", tok, map[string]any{"productId": p.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, body := ts.do(t, http.MethodGet, "/api/v1/cart/count", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
	assert.EqualValues(t, 2, body["totalQuantity"])

	rec, body = ts.do(t, http.MethodPost, "/api/v1/cart", tok, map[string]any{"productId": p.ID, "quantity": 11})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, body["code"])
}

func TestAuth_LoginSetsCookiesAndRefreshRotates(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name": "Otieno", "email": "Otieno@Example.com", "password": "kikoi-2024",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, body := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "otieno@example.com", "password": "kikoi-2024",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, body["accessToken"])

	cookies := map[string]*http.Cookie{}
	for _, ck := range rec.Result().Cookies() {
		cookies[ck.Name] = ck
	}
	require.Contains(t, cookies, tokens.AccessCookie)
	require.Contains(t, cookies, tokens.RefreshCookie)
	assert.True(t, cookies[tokens.RefreshCookie].HttpOnly)

	refresh := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: tokens.RefreshCookie, Value: cookies[tokens.RefreshCookie].Value})
		rec := httptest.NewRecorder()
		ts.e.ServeHTTP(rec, req)
		return rec
	}
	assert.Equal(t, http.StatusOK, refresh().Code)
	assert.Equal(t, http.StatusUnauthorized, refresh().Code)

	rec, body = ts.do(t, http.MethodGet, "/api/v1/users/me", cookies[tokens.AccessCookie].Value, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "otieno@example.com", body["user"].(map[string]any)["email"])
}

func TestAuth_WrongPassword(t *testing.T) {
	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "nobody@example.com", "password": "whatever1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", body["message"])
}

func TestQuotes_UnavailableWithoutStore(t *testing.T) {
	ts := newTestServer(t)
	p := ts.seedProduct(t, 5)

	rec, body := ts.do(t, http.MethodPost, "/api/v1/products/"+p.ID.String()+"/quote", "", map[string]any{
		"name": "Amina", "email": "amina@example.com", "quantity": 20, "message": "bulk",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeUnavailable, body["code"])
	assert.NotEqual(t, internalMessage, body["message"])
}

type quoteLog struct{ saved []quotes.Request }

func (q *quoteLog) Insert(_ context.Context, r *quotes.Request) error {
	q.saved = append(q.saved, *r)
	return nil
}

func (q *quoteLog) List(context.Context, string, int64) ([]quotes.Request, error) {
	return q.saved, nil
}

func TestQuotes_LinkSignedInCaller(t *testing.T) {
	ts := newTestServer(t)
	store := &quoteLog{}
	ts.quotes.Store = store
	p := ts.seedProduct(t, 5)
	userID, token := ts.seedUser(t, middleware.RoleUser)
	path := "/api/v1/products/" + p.ID.String() + "/quote"
	body := map[string]any{"name": "Amina", "email": "amina@example.com", "quantity": 20}

	rec, _ := ts.do(t, http.MethodPost, path, "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = ts.do(t, http.MethodPost, path, token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = ts.do(t, http.MethodPost, path, "not-a-jwt", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, store.saved, 3)
	assert.Empty(t, store.saved[0].UserID)
	assert.Equal(t, userID.String(), store.saved[1].UserID)
	assert.Empty(t, store.saved[2].UserID)
}
