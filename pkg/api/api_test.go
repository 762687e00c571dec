package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"stockflow/pkg/api"
	"stockflow/pkg/app"
	"stockflow/pkg/auth"
	"stockflow/pkg/event"
	"stockflow/pkg/webhook"
)

type recordingSender struct {
	mu   sync.Mutex
	sent map[string][]webhook.Envelope
}

func (s *recordingSender) Send(_ context.Context, url string, body []byte) error {
	var env webhook.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = make(map[string][]webhook.Envelope)
	}
	s.sent[url] = append(s.sent[url], env)
	return nil
}

func (s *recordingSender) to(url string) []webhook.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]webhook.Envelope(nil), s.sent[url]...)
}

type harness struct {
	t      *testing.T
	h      http.Handler
	sender *recordingSender
	events *event.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sender := &recordingSender{}
	rec := &event.Recorder{}
	a, err := app.New(context.Background(), app.MemoryStores(), app.Options{
		Auth:    auth.Config{Secret: "test", BcryptCost: bcrypt.MinCost},
		Sender:  sender,
		Mirrors: []event.Publisher{rec},
	})
	if err != nil {
		t.Fatalf("assemble app: %v", err)
	}
	srv := api.NewServer(api.Deps{
		Auth:          a.Auth,
		Stock:         a.Stock,
		Products:      a.Products,
		Packaging:     a.Packaging,
		Sales:         a.Sales,
		Subscriptions: a.Subscriptions,
	})
	return &harness{t: t, h: srv.Router(), sender: sender, events: rec}
}

func (h *harness) do(method, path, token string, body any, out any) int {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.h.ServeHTTP(rr, req)
	if out != nil && rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
			h.t.Fatalf("%s %s: decode %q: %v", method, path, rr.Body.String(), err)
		}
	}
	return rr.Code
}

func (h *harness) signup(email, role, token string) (string, string) {
	h.t.Helper()
	var res auth.Result
	code := h.do(http.MethodPost, "/api/auth/signup", token,
		map[string]string{"email": email, "password": "pw", "firstName": "F", "lastName": "L", "role": role}, &res)
	if code != http.StatusCreated {
		h.t.Fatalf("signup %s: status %d", email, code)
	}
	return res.Token, res.UserID
}

type errBody struct {
	Path      string `json:"path"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

func TestHealthIsPublic(t *testing.T) {
	h := newHarness(t)
	var body map[string]string
	if code := h.do(http.MethodGet, "/api/health", "", nil, &body); code != http.StatusOK || body["status"] != "UP" {
		t.Fatalf("health: %d %v", code, body)
	}
}

func TestAuthGuards(t *testing.T) {
	h := newHarness(t)
	var e errBody
	if code := h.do(http.MethodGet, "/api/stock/quantity?category=WATER", "", nil, &e); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if e.Status != 401 || e.Path != "/api/stock/quantity" || e.RequestID == "" || e.Error != "Unauthorized" {
		t.Fatalf("unexpected error body %+v", e)
	}

	admin, _ := h.signup("admin@example.com", "ADMIN", "")
	seller, _ := h.signup("seller@example.com", "", "")
	if code := h.do(http.MethodGet, "/api/stock/quantity?category=WATER", seller, nil, nil); code != http.StatusForbidden {
		t.Fatalf("seller on stock: expected 403, got %d", code)
	}
	if code := h.do(http.MethodGet, "/api/admin/whoami", seller, nil, nil); code != http.StatusForbidden {
		t.Fatalf("seller on admin: expected 403, got %d", code)
	}
	var who struct {
		Username string   `json:"username"`
		Roles    []string `json:"roles"`
	}
	if code := h.do(http.MethodGet, "/api/admin/whoami", admin, nil, &who); code != http.StatusOK || who.Username != "admin@example.com" {
		t.Fatalf("whoami: %d %+v", code, who)
	}

	// non-seller signup needs an admin once the store is bootstrapped
	var res auth.Result
	if code := h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "x@example.com", "password": "pw", "role": "ADMIN"}, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
	if code := h.do(http.MethodPost, "/api/auth/signup", admin, map[string]string{"email": "x@example.com", "password": "pw", "role": "INDUSTRIAL_AGENT"}, &res); code != http.StatusCreated {
		t.Fatalf("admin signup: %d", code)
	}
	if code := h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "X@example.com", "password": "pw"}, nil); code != http.StatusConflict {
		t.Fatalf("duplicate email: expected 409, got %d", code)
	}

	var login auth.Result
	if code := h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "seller@example.com", "password": "nope"}, nil); code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", code)
	}
	if code := h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "seller@example.com", "password": "pw"}, &login); code != http.StatusOK || login.Token == "" {
		t.Fatalf("login: %d", code)
	}
	if code := h.do(http.MethodPost, "/api/auth/logout", login.Token, nil, nil); code != http.StatusNoContent {
		t.Fatalf("logout: %d", code)
	}
	if code := h.do(http.MethodGet, "/api/sales", login.Token, nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("revoked token: expected 401, got %d", code)
	}
	if code := h.do(http.MethodGet, "/api/sales", seller, nil, nil); code != http.StatusOK {
		t.Fatalf("other token of the same user stays valid, got %d", code)
	}
}

type stockBody struct {
	Category string          `json:"category"`
	Quantity decimal.Decimal `json:"quantity"`
}

func TestStockEndpoints(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.signup("admin@example.com", "ADMIN", "")

	var got stockBody
	if code := h.do(http.MethodPost, "/api/stock/increase", admin, map[string]any{"category": "water", "quantity": 100}, &got); code != http.StatusOK {
		t.Fatalf("increase: %d", code)
	}
	if got.Category != "WATER" || !got.Quantity.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected %+v", got)
	}
	if code := h.do(http.MethodPost, "/api/stock/decrease", admin, map[string]any{"category": "WATER", "quantity": "100.5"}, nil); code != http.StatusConflict {
		t.Fatalf("overdraw: expected 409, got %d", code)
	}
	if code := h.do(http.MethodPost, "/api/stock/increase", admin, map[string]any{"category": "WATER", "quantity": -1}, nil); code != http.StatusBadRequest {
		t.Fatalf("negative: expected 400, got %d", code)
	}
	if code := h.do(http.MethodPost, "/api/stock/increase", admin, map[string]any{"category": "MILK", "quantity": 1}, nil); code != http.StatusBadRequest {
		t.Fatalf("unknown category: expected 400, got %d", code)
	}
	if code := h.do(http.MethodPost, "/api/stock/increase", admin, "{", nil); code != http.StatusBadRequest {
		t.Fatalf("malformed body: expected 400, got %d", code)
	}
	if code := h.do(http.MethodGet, "/api/stock/quantity?category=WATER", admin, nil, &got); code != http.StatusOK || !got.Quantity.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("quantity: %d %+v", code, got)
	}

	evs := h.events.Events()
	if len(evs) != 1 || evs[0].Type != event.StockChanged {
		t.Fatalf("expected exactly one stock event, got %+v", evs)
	}
}

func TestProductionPackagingAndSales(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.signup("admin@example.com", "ADMIN", "")
	agent, _ := h.signup("agent@example.com", "COMMERCIAL_AGENT", admin)
	seller, sellerID := h.signup("seller@example.com", "", "")

	var hook webhook.Subscription
	if code := h.do(http.MethodPost, "/api/webhooks/subscriptions", admin,
		map[string]any{"targetUrl": "https://hooks.example.com/sales", "eventTypes": []string{"SALE_TO_SELLER_CREATED"}}, &hook); code != http.StatusCreated {
		t.Fatalf("subscribe: %d", code)
	}
	if code := h.do(http.MethodPost, "/api/webhooks/subscriptions", admin, map[string]any{"targetUrl": "https://hooks.example.com/sales"}, nil); code != http.StatusConflict {
		t.Fatalf("duplicate subscription: expected 409, got %d", code)
	}

	h.do(http.MethodPost, "/api/stock/increase", admin, map[string]any{"category": "JUICE", "quantity": 19}, nil)

	var unitIDs []string
	for i := 0; i < 15; i++ {
		var u struct {
			ID string `json:"id"`
		}
		path := "/api/commercial/units"
		if i%2 == 0 {
			path = "/api/industrial/units"
		}
		if code := h.do(http.MethodPost, path, admin, map[string]any{"category": "JUICE", "capacity": 1.0, "price": "1.20"}, &u); code != http.StatusCreated {
			t.Fatalf("mint %d: %d", i, code)
		}
		unitIDs = append(unitIDs, u.ID)
	}
	if code := h.do(http.MethodPost, "/api/commercial/units", agent, map[string]any{"category": "JUICE", "capacity": 5, "price": 1}, nil); code != http.StatusConflict {
		t.Fatalf("mint beyond stock: expected 409, got %d", code)
	}
	if code := h.do(http.MethodPost, "/api/commercial/units", agent, map[string]any{"category": "JUICE", "capacity": 1.5, "price": 1}, nil); code != http.StatusBadRequest {
		t.Fatalf("bad capacity: expected 400, got %d", code)
	}

	var bundle struct {
		ID       string `json:"id"`
		Quantity int    `json:"quantity"`
	}
	if code := h.do(http.MethodPost, "/api/commercial/bundles", agent, map[string]any{"unitIds": unitIDs[:14], "price": 15}, nil); code != http.StatusBadRequest {
		t.Fatalf("short bundle: expected 400, got %d", code)
	}
	if code := h.do(http.MethodPost, "/api/commercial/bundles", agent, map[string]any{"unitIds": unitIDs, "quantity": 15, "price": 15}, &bundle); code != http.StatusCreated || bundle.Quantity != 15 {
		t.Fatalf("assemble: %d %+v", code, bundle)
	}
	if code := h.do(http.MethodPost, "/api/commercial/bundles", agent, map[string]any{"unitIds": unitIDs, "price": 15}, nil); code != http.StatusConflict {
		t.Fatalf("rebundle: expected 409, got %d", code)
	}
	var listedUnits, listedBundles []struct {
		ID string `json:"id"`
	}
	if code := h.do(http.MethodGet, "/api/commercial/units", agent, nil, &listedUnits); code != http.StatusOK || len(listedUnits) != 15 {
		t.Fatalf("list units: %d %d", code, len(listedUnits))
	}
	if code := h.do(http.MethodGet, "/api/commercial/bundles", agent, nil, &listedBundles); code != http.StatusOK || len(listedBundles) != 1 || listedBundles[0].ID != bundle.ID {
		t.Fatalf("list bundles: %d %+v", code, listedBundles)
	}

	var count map[string]int
	h.do(http.MethodPost, "/api/packaging/carts", admin, nil, &count)
	if code := h.do(http.MethodPost, "/api/packaging/carts", admin, nil, &count); code != http.StatusOK || count["carts"] != 2 {
		t.Fatalf("add cart: %d %v", code, count)
	}
	if code := h.do(http.MethodPost, "/api/packaging/carts/1/bundles", admin, map[string]string{"bundleId": bundle.ID}, &count); code != http.StatusOK || count["packedBundles"] != 1 {
		t.Fatalf("add bundle: %d %v", code, count)
	}
	inline := map[string]any{"bundle": map[string]any{"capacity": "1.0", "quantity": 3, "unitIds": unitIDs[:3], "price": 3}}
	if code := h.do(http.MethodPost, "/api/packaging/carts/1/bundles", admin, inline, nil); code != http.StatusBadRequest {
		t.Fatalf("malformed inline bundle: expected 400, got %d", code)
	}
	if code := h.do(http.MethodGet, "/api/commercial/bundles", agent, nil, &listedBundles); code != http.StatusOK || len(listedBundles) != 1 {
		t.Fatalf("malformed inline bundle must not be saved: %d %+v", code, listedBundles)
	}
	if code := h.do(http.MethodPost, "/api/packaging/carts/7/bundles", admin, map[string]string{"bundleId": bundle.ID}, nil); code != http.StatusNotFound {
		t.Fatalf("bad cart index: expected 404, got %d", code)
	}
	if code := h.do(http.MethodDelete, "/api/packaging/carts/0/bundles/0", admin, nil, nil); code != http.StatusNotFound {
		t.Fatalf("empty cart: expected 404, got %d", code)
	}
	if code := h.do(http.MethodDelete, "/api/packaging/carts/0", admin, nil, &count); code != http.StatusOK || count["carts"] != 1 {
		t.Fatalf("remove cart: %d %v", code, count)
	}

	sale := map[string]any{
		"channel":  "TO_SELLER",
		"sellerId": sellerID,
		"lines": []map[string]any{
			{"kind": "bundle", "productId": bundle.ID, "quantity": 2, "unitPrice": "15.50"},
			{"kind": "UNIT", "productId": unitIDs[0], "quantity": 3, "unitPrice": "1.10"},
		},
	}
	var created struct {
		ID    string          `json:"id"`
		Total decimal.Decimal `json:"total"`
	}
	if code := h.do(http.MethodPost, "/api/sales", seller, sale, nil); code != http.StatusForbidden {
		t.Fatalf("seller on TO_SELLER: expected 403, got %d", code)
	}
	if code := h.do(http.MethodPost, "/api/sales", agent, sale, &created); code != http.StatusCreated {
		t.Fatalf("create sale: %d", code)
	}
	if !created.Total.Equal(decimal.RequireFromString("34.30")) {
		t.Fatalf("expected total 34.30, got %s", created.Total)
	}

	back := map[string]any{
		"channel":  "from-seller",
		"sellerId": sellerID,
		"lines":    []map[string]any{{"kind": "BUNDLE", "productId": bundle.ID, "quantity": 1, "unitPrice": 1}},
	}
	if code := h.do(http.MethodPost, "/api/sales", seller, back, nil); code != http.StatusBadRequest {
		t.Fatalf("bundle from seller: expected 400, got %d", code)
	}

	var list []struct {
		ID string `json:"id"`
	}
	if code := h.do(http.MethodGet, "/api/sales?channel=TO_SELLER&sellerId="+sellerID, seller, nil, &list); code != http.StatusOK || len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("list: %d %+v", code, list)
	}
	if code := h.do(http.MethodGet, "/api/sales?from=2001-01-01&to=2001-01-02", seller, nil, &list); code != http.StatusOK || len(list) != 0 {
		t.Fatalf("list outside range: %d %+v", code, list)
	}
	if code := h.do(http.MethodGet, "/api/sales?from=yesterday", seller, nil, nil); code != http.StatusBadRequest {
		t.Fatalf("bad date: expected 400, got %d", code)
	}
	if code := h.do(http.MethodGet, "/api/sales/"+created.ID, seller, nil, nil); code != http.StatusOK {
		t.Fatalf("get sale: %d", code)
	}
	if code := h.do(http.MethodGet, "/api/sales/nope", seller, nil, nil); code != http.StatusNotFound {
		t.Fatalf("missing sale: expected 404, got %d", code)
	}

	got := h.sender.to("https://hooks.example.com/sales")
	if len(got) != 1 || got[0].EventType != event.SaleToSellerCreated || got[0].Payload["saleId"] != created.ID {
		t.Fatalf("expected one sale webhook, got %+v", got)
	}

	var stats struct {
		RawStock      map[string]decimal.Decimal `json:"rawStock"`
		PackedBundles int                        `json:"packedBundles"`
		SalesCount    int                        `json:"salesCount"`
	}
	if code := h.do(http.MethodGet, "/api/admin/stats", admin, nil, &stats); code != http.StatusOK {
		t.Fatalf("stats: %d", code)
	}
	if !stats.RawStock["JUICE"].Equal(decimal.NewFromInt(4)) || stats.PackedBundles != 1 || stats.SalesCount != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(stats.RawStock) != 4 {
		t.Fatalf("expected every category in stats, got %v", stats.RawStock)
	}

	if code := h.do(http.MethodDelete, "/api/webhooks/subscriptions/"+hook.ID, admin, nil, nil); code != http.StatusNoContent {
		t.Fatalf("unsubscribe: %d", code)
	}
	if code := h.do(http.MethodDelete, "/api/webhooks/subscriptions/"+hook.ID, admin, nil, nil); code != http.StatusNotFound {
		t.Fatalf("unsubscribe twice: expected 404, got %d", code)
	}
}

func TestCatalogue(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.signup("admin@example.com", "ADMIN", "")
	var cats []string
	if code := h.do(http.MethodGet, "/api/commercial/categories", admin, nil, &cats); code != http.StatusOK || len(cats) != 4 {
		t.Fatalf("categories: %d %v", code, cats)
	}
	var caps []float64
	if code := h.do(http.MethodGet, "/api/commercial/capacities", admin, nil, &caps); code != http.StatusOK {
		t.Fatalf("capacities: %d", code)
	}
	if fmt.Sprint(caps) != "[0.5 1 2 5]" {
		t.Fatalf("unexpected capacities %v", caps)
	}
}
