package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"stockflow/pkg/apperr"
	"stockflow/pkg/event"
	"stockflow/pkg/otel"
	"stockflow/pkg/sale"
	"stockflow/pkg/stock"
	"stockflow/pkg/user"
)

// saleRequest records a sale.
type saleRequest struct {
	Channel  string      `json:"channel"`
	SellerID string      `json:"sellerId"`
	Lines    []sale.Line `json:"lines"`
}

// createSaleHandler records a sale on either channel.
// @Summary Record a sale
// @Tags sales
// @Accept json
// @Produce json
// @Param sale body saleRequest true "Sale"
// @Success 201 {object} sale.Sale
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Security ApiKeyAuth
// @Router /api/sales [post]
func (s *Server) createSaleHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "createSaleHandler")
	defer span.End()

	var req saleRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ch, err := sale.ParseChannel(req.Channel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, _ := identityFrom(ctx)
	sl, err := s.sales.Create(ctx, ch, req.SellerID, req.Lines, id.Roles)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("sale.id", sl.ID), attribute.String("sale.channel", string(ch)))
	writeJSON(w, http.StatusCreated, sl)
}

func parseDay(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, apperr.New(apperr.KindBadRequest, "dates must look like 2006-01-02: "+v)
	}
	return t, nil
}

// listSalesHandler lists sales matching the optional filters.
// @Summary List sales
// @Tags sales
// @Produce json
// @Param channel query string false "TO_SELLER or FROM_SELLER"
// @Param from query string false "First day, inclusive (YYYY-MM-DD)"
// @Param to query string false "Last day, inclusive (YYYY-MM-DD)"
// @Param sellerId query string false "Seller id"
// @Success 200 {array} sale.Sale
// @Security ApiKeyAuth
// @Router /api/sales [get]
func (s *Server) listSalesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listSalesHandler")
	defer span.End()

	q := r.URL.Query()
	var f sale.Filter
	if v := q.Get("channel"); v != "" {
		ch, err := sale.ParseChannel(v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		f.Channel = ch
	}
	var err error
	if f.From, err = parseDay(q.Get("from")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if f.To, err = parseDay(q.Get("to")); err != nil {
		s.writeError(w, r, err)
		return
	}
	f.SellerID = q.Get("sellerId")

	sales, err := s.sales.List(ctx, f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sales == nil {
		sales = []sale.Sale{}
	}
	writeJSON(w, http.StatusOK, sales)
}

// getSaleHandler fetches a sale.
// @Summary Get sale
// @Tags sales
// @Produce json
// @Param id path string true "Sale ID"
// @Success 200 {object} sale.Sale
// @Failure 404 {object} errorResponse
// @Security ApiKeyAuth
// @Router /api/sales/{id} [get]
func (s *Server) getSaleHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "getSaleHandler")
	defer span.End()

	id := mux.Vars(r)["id"]
	sl, ok, err := s.sales.Get(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeError(w, r, apperr.New(apperr.KindNotFound, "sale not found: "+id))
		return
	}
	writeJSON(w, http.StatusOK, sl)
}

// subscriptionRequest registers a webhook.
type subscriptionRequest struct {
	TargetURL  string       `json:"targetUrl"`
	EventTypes []event.Type `json:"eventTypes"`
}

// createSubscriptionHandler registers a webhook.
// @Summary Create webhook subscription
// @Tags webhooks
// @Accept json
// @Produce json
// @Param subscription body subscriptionRequest true "Subscription"
// @Success 201 {object} webhook.Subscription
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Security ApiKeyAuth
// @Router /api/webhooks/subscriptions [post]
func (s *Server) createSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "createSubscriptionHandler")
	defer span.End()

	var req subscriptionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.subs.Create(ctx, req.TargetURL, req.EventTypes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// listSubscriptionsHandler lists webhooks.
// @Summary List webhook subscriptions
// @Tags webhooks
// @Produce json
// @Success 200 {array} webhook.Subscription
// @Security ApiKeyAuth
// @Router /api/webhooks/subscriptions [get]
func (s *Server) listSubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listSubscriptionsHandler")
	defer span.End()

	subs, err := s.subs.List(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// deleteSubscriptionHandler removes a webhook.
// @Summary Delete webhook subscription
// @Tags webhooks
// @Param id path string true "Subscription ID"
// @Success 204
// @Failure 404 {object} errorResponse
// @Security ApiKeyAuth
// @Router /api/webhooks/subscriptions/{id} [delete]
func (s *Server) deleteSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "deleteSubscriptionHandler")
	defer span.End()

	if err := s.subs.Delete(ctx, mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statsResponse is the admin overview.
type statsResponse struct {
	RawStock      map[stock.Category]decimal.Decimal `json:"rawStock"`
	PackedBundles int                                `json:"packedBundles"`
	SalesCount    int                                `json:"salesCount"`
}

// statsHandler summarizes stock, packaging and sales.
// @Summary Admin statistics
// @Tags admin
// @Produce json
// @Success 200 {object} statsResponse
// @Security ApiKeyAuth
// @Router /api/admin/stats [get]
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "statsHandler")
	defer span.End()

	packed, err := s.yard.TotalBundles(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := s.sales.Count(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{RawStock: s.stock.Snapshot(), PackedBundles: packed, SalesCount: n})
}

// whoamiResponse describes the caller.
type whoamiResponse struct {
	UserID   string      `json:"userId"`
	Username string      `json:"username"`
	Roles    []user.Role `json:"roles"`
}

// whoamiHandler returns the caller's identity.
// @Summary Who am I
// @Tags admin
// @Produce json
// @Success 200 {object} whoamiResponse
// @Security ApiKeyAuth
// @Router /api/admin/whoami [get]
func (s *Server) whoamiHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	writeJSON(w, http.StatusOK, whoamiResponse{UserID: id.UserID, Username: id.Email, Roles: id.Roles})
}

// healthHandler reports liveness.
// @Summary Health
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/health [get]
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}
