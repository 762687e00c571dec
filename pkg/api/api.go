// Package api exposes the stock, product, packaging, sale and webhook
// services over HTTP.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel/trace"

	"stockflow/pkg/auth"
	"stockflow/pkg/logger"
	"stockflow/pkg/packaging"
	"stockflow/pkg/product"
	"stockflow/pkg/sale"
	"stockflow/pkg/stock"
	"stockflow/pkg/user"
	"stockflow/pkg/webhook"
)

// Deps are the services the API serves.
type Deps struct {
	Log           *logger.Logger
	Tracer        trace.Tracer
	Auth          *auth.Service
	Stock         *stock.Service
	Products      *product.Service
	Packaging     *packaging.Service
	Sales         *sale.Service
	Subscriptions *webhook.SubscriptionService
}

// Server holds the HTTP handlers.
type Server struct {
	log      *logger.Logger
	tracer   trace.Tracer
	auth     *auth.Service
	stock    *stock.Service
	products *product.Service
	yard     *packaging.Service
	sales    *sale.Service
	subs     *webhook.SubscriptionService
}

// NewServer creates a Server.
func NewServer(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		log:      log,
		tracer:   d.Tracer,
		auth:     d.Auth,
		stock:    d.Stock,
		products: d.Products,
		yard:     d.Packaging,
		sales:    d.Sales,
		subs:     d.Subscriptions,
	}
}

// Router builds the route table. Every group below /api except health and
// auth requires a bearer token carrying one of the listed roles.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID, s.logRequests, s.traceMiddleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errRouteNotFound)
	})
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	authR := api.PathPrefix("/auth").Subrouter()
	authR.Use(s.optionalAuth)
	authR.HandleFunc("/signup", s.signupHandler).Methods(http.MethodPost)
	authR.HandleFunc("/login", s.loginHandler).Methods(http.MethodPost)
	authR.HandleFunc("/logout", s.logoutHandler).Methods(http.MethodPost)

	stockR := s.group(api, "/stock", user.IndustrialAgent, user.Admin)
	stockR.HandleFunc("/increase", s.increaseStockHandler).Methods(http.MethodPost)
	stockR.HandleFunc("/decrease", s.decreaseStockHandler).Methods(http.MethodPost)
	stockR.HandleFunc("/quantity", s.stockQuantityHandler).Methods(http.MethodGet)

	industrial := s.group(api, "/industrial", user.IndustrialAgent, user.Admin)
	industrial.HandleFunc("/units", s.mintUnitHandler).Methods(http.MethodPost)

	commercial := s.group(api, "/commercial", user.CommercialAgent, user.Admin)
	commercial.HandleFunc("/units", s.mintUnitHandler).Methods(http.MethodPost)
	commercial.HandleFunc("/units", s.listUnitsHandler).Methods(http.MethodGet)
	commercial.HandleFunc("/bundles", s.assembleBundleHandler).Methods(http.MethodPost)
	commercial.HandleFunc("/bundles", s.listBundlesHandler).Methods(http.MethodGet)
	commercial.HandleFunc("/categories", s.categoriesHandler).Methods(http.MethodGet)
	commercial.HandleFunc("/capacities", s.capacitiesHandler).Methods(http.MethodGet)

	pack := s.group(api, "/packaging", user.IndustrialAgent, user.Admin)
	pack.HandleFunc("/carts", s.addCartHandler).Methods(http.MethodPost)
	pack.HandleFunc("/carts", s.listCartsHandler).Methods(http.MethodGet)
	pack.HandleFunc("/carts/{index}", s.removeCartHandler).Methods(http.MethodDelete)
	pack.HandleFunc("/carts/{index}/bundles", s.addBundleHandler).Methods(http.MethodPost)
	pack.HandleFunc("/carts/{index}/bundles/{bundleIndex}", s.removeBundleHandler).Methods(http.MethodDelete)
	pack.HandleFunc("/summary", s.packagingSummaryHandler).Methods(http.MethodGet)

	sales := s.group(api, "/sales", user.Admin, user.CommercialAgent, user.Seller)
	sales.HandleFunc("", s.createSaleHandler).Methods(http.MethodPost)
	sales.HandleFunc("", s.listSalesHandler).Methods(http.MethodGet)
	sales.HandleFunc("/{id}", s.getSaleHandler).Methods(http.MethodGet)

	hooks := s.group(api, "/webhooks/subscriptions", user.Admin)
	hooks.HandleFunc("", s.createSubscriptionHandler).Methods(http.MethodPost)
	hooks.HandleFunc("", s.listSubscriptionsHandler).Methods(http.MethodGet)
	hooks.HandleFunc("/{id}", s.deleteSubscriptionHandler).Methods(http.MethodDelete)

	admin := s.group(api, "/admin", user.Admin)
	admin.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)
	admin.HandleFunc("/whoami", s.whoamiHandler).Methods(http.MethodGet)

	return r
}

func (s *Server) group(parent *mux.Router, prefix string, roles ...user.Role) *mux.Router {
	g := parent.PathPrefix(prefix).Subrouter()
	g.Use(s.authenticate, requireRoles(roles...))
	return g
}
