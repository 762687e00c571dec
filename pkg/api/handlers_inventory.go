package api

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"stockflow/pkg/apperr"
	"stockflow/pkg/otel"
	"stockflow/pkg/product"
	"stockflow/pkg/stock"
)

// stockRequest moves raw stock of one category.
type stockRequest struct {
	Category string          `json:"category"`
	Quantity decimal.Decimal `json:"quantity"`
}

// stockResponse reports the quantity of a category.
type stockResponse struct {
	Category stock.Category  `json:"category"`
	Quantity decimal.Decimal `json:"quantity"`
}

type stockOp func(s *stock.Service, r *http.Request, c stock.Category, amount decimal.Decimal) (decimal.Decimal, error)

func (s *Server) moveStock(w http.ResponseWriter, r *http.Request, name string, op stockOp) {
	ctx, span := otel.AddSpan(r.Context(), name)
	defer span.End()

	var req stockRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := stock.ParseCategory(req.Category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("stock.category", string(c)), attribute.String("stock.amount", req.Quantity.String()))
	q, err := op(s.stock, r.WithContext(ctx), c, req.Quantity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stockResponse{Category: c, Quantity: q})
}

// increaseStockHandler adds raw stock.
// @Summary Increase raw stock
// @Tags stock
// @Accept json
// @Produce json
// @Param movement body stockRequest true "Movement"
// @Success 200 {object} stockResponse
// @Failure 400 {object} errorResponse
// @Security ApiKeyAuth
// @Router /api/stock/increase [post]
func (s *Server) increaseStockHandler(w http.ResponseWriter, r *http.Request) {
	s.moveStock(w, r, "increaseStockHandler", func(st *stock.Service, r *http.Request, c stock.Category, a decimal.Decimal) (decimal.Decimal, error) {
		return st.Increase(r.Context(), c, a)
	})
}

// decreaseStockHandler removes raw stock.
// @Summary Decrease raw stock
// @Tags stock
// @Accept json
// @Produce json
// @Param movement body stockRequest true "Movement"
// @Success 200 {object} stockResponse
// @Failure 409 {object} errorResponse "insufficient stock"
// @Security ApiKeyAuth
// @Router /api/stock/decrease [post]
func (s *Server) decreaseStockHandler(w http.ResponseWriter, r *http.Request) {
	s.moveStock(w, r, "decreaseStockHandler", func(st *stock.Service, r *http.Request, c stock.Category, a decimal.Decimal) (decimal.Decimal, error) {
		return st.Decrease(r.Context(), c, a)
	})
}

// stockQuantityHandler reads the quantity of a category.
// @Summary Raw stock quantity
// @Tags stock
// @Produce json
// @Param category query string true "Category"
// @Success 200 {object} stockResponse
// @Security ApiKeyAuth
// @Router /api/stock/quantity [get]
func (s *Server) stockQuantityHandler(w http.ResponseWriter, r *http.Request) {
	_, span := otel.AddSpan(r.Context(), "stockQuantityHandler")
	defer span.End()

	c, err := stock.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stockResponse{Category: c, Quantity: s.stock.Quantity(c)})
}

// unitRequest mints one bottle.
type unitRequest struct {
	Category string          `json:"category"`
	Capacity decimal.Decimal `json:"capacity"`
	Price    decimal.Decimal `json:"price"`
}

// mintUnitHandler mints a unit from raw stock.
// @Summary Mint a unit
// @Tags products
// @Accept json
// @Produce json
// @Param unit body unitRequest true "Unit"
// @Success 201 {object} product.Unit
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse "insufficient stock"
// @Security ApiKeyAuth
// @Router /api/industrial/units [post]
// @Router /api/commercial/units [post]
func (s *Server) mintUnitHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "mintUnitHandler")
	defer span.End()

	var req unitRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := stock.ParseCategory(req.Category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.products.Mint(ctx, c, req.Capacity, req.Price)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("unit.id", u.ID))
	writeJSON(w, http.StatusCreated, u)
}

// bundleRequest assembles units into a box. Quantity 0 means "whatever the
// capacity requires".
type bundleRequest struct {
	UnitIDs  []string        `json:"unitIds"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// assembleBundleHandler boxes existing units.
// @Summary Assemble a bundle
// @Tags products
// @Accept json
// @Produce json
// @Param bundle body bundleRequest true "Bundle"
// @Success 201 {object} product.Bundle
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Security ApiKeyAuth
// @Router /api/commercial/bundles [post]
func (s *Server) assembleBundleHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "assembleBundleHandler")
	defer span.End()

	var req bundleRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.products.Assemble(ctx, req.UnitIDs, req.Quantity, req.Price)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("bundle.id", b.ID))
	writeJSON(w, http.StatusCreated, b)
}

// categoriesHandler lists the stock categories.
// @Summary Categories
// @Tags products
// @Produce json
// @Success 200 {array} string
// @Security ApiKeyAuth
// @Router /api/commercial/categories [get]
func (s *Server) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stock.Categories())
}

// capacitiesHandler lists the supported unit capacities.
// @Summary Capacities
// @Tags products
// @Produce json
// @Success 200 {array} number
// @Security ApiKeyAuth
// @Router /api/commercial/capacities [get]
func (s *Server) capacitiesHandler(w http.ResponseWriter, r *http.Request) {
	caps := product.Capacities()
	out := make([]float64, len(caps))
	for i, c := range caps {
		out[i] = c.InexactFloat64()
	}
	writeJSON(w, http.StatusOK, out)
}

// listUnitsHandler lists minted units, oldest first.
// @Summary List units
// @Tags products
// @Produce json
// @Success 200 {array} product.Unit
// @Security ApiKeyAuth
// @Router /api/commercial/units [get]
func (s *Server) listUnitsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listUnitsHandler")
	defer span.End()

	units, err := s.products.Units(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}

// listBundlesHandler lists assembled bundles, oldest first.
// @Summary List bundles
// @Tags products
// @Produce json
// @Success 200 {array} product.Bundle
// @Security ApiKeyAuth
// @Router /api/commercial/bundles [get]
func (s *Server) listBundlesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listBundlesHandler")
	defer span.End()

	bundles, err := s.products.Bundles(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bundles)
}

// countResponse carries the counters returned by packaging changes.
type countResponse struct {
	Carts         *int `json:"carts,omitempty"`
	PackedBundles *int `json:"packedBundles,omitempty"`
}

// addCartHandler adds an empty cart.
// @Summary Add cart
// @Tags packaging
// @Produce json
// @Success 200 {object} countResponse
// @Security ApiKeyAuth
// @Router /api/packaging/carts [post]
func (s *Server) addCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "addCartHandler")
	defer span.End()

	n, err := s.yard.AddCart(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Carts: &n})
}

// removeCartHandler deletes the cart at index.
// @Summary Remove cart
// @Tags packaging
// @Produce json
// @Param index path int true "Cart index (0-based)"
// @Success 200 {object} countResponse
// @Failure 404 {object} errorResponse
// @Security ApiKeyAuth
// @Router /api/packaging/carts/{index} [delete]
func (s *Server) removeCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "removeCartHandler")
	defer span.End()

	index, err := pathIndex(r, "index")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.yard.RemoveCart(ctx, index); err != nil {
		s.writeError(w, r, err)
		return
	}
	sum, err := s.yard.Summary(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Carts: &sum.Carts})
}

// addBundleRequest references a saved bundle by id, or carries the unit ids,
// quantity and price of a bundle to assemble.
type addBundleRequest struct {
	BundleID string          `json:"bundleId,omitempty"`
	Bundle   *product.Bundle `json:"bundle,omitempty"`
}

// addBundleHandler loads a bundle onto a cart.
// @Summary Add bundle to cart
// @Tags packaging
// @Accept json
// @Produce json
// @Param index path int true "Cart index (0-based)"
// @Param bundle body addBundleRequest true "Bundle"
// @Success 200 {object} countResponse
// @Failure 404 {object} errorResponse
// @Security ApiKeyAuth
// @Router /api/packaging/carts/{index}/bundles [post]
func (s *Server) addBundleHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "addBundleHandler")
	defer span.End()

	index, err := pathIndex(r, "index")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req addBundleRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var b product.Bundle
	switch {
	case req.Bundle != nil:
		b = *req.Bundle
	case req.BundleID != "":
		if b, err = s.products.Bundle(ctx, req.BundleID); err != nil {
			s.writeError(w, r, err)
			return
		}
	default:
		s.writeError(w, r, apperr.New(apperr.KindBadRequest, "bundleId or bundle is required"))
		return
	}
	n, err := s.yard.AddBundle(ctx, index, b)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{PackedBundles: &n})
}

// removeBundleHandler unloads a bundle from a cart.
// @Summary Remove bundle from cart
// @Tags packaging
// @Produce json
// @Param index path int true "Cart index (0-based)"
// @Param bundleIndex path int true "Bundle index within the cart (0-based)"
// @Success 200 {object} countResponse
// @Failure 404 {object} errorResponse
// @Security ApiKeyAuth
// @Router /api/packaging/carts/{index}/bundles/{bundleIndex} [delete]
func (s *Server) removeBundleHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "removeBundleHandler")
	defer span.End()

	ci, err := pathIndex(r, "index")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bi, err := pathIndex(r, "bundleIndex")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.yard.RemoveBundle(ctx, ci, bi); err != nil {
		s.writeError(w, r, err)
		return
	}
	sum, err := s.yard.Summary(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{PackedBundles: &sum.PackedBundles})
}

// listCartsHandler lists carts in index order.
// @Summary List carts
// @Tags packaging
// @Produce json
// @Success 200 {array} packaging.Cart
// @Security ApiKeyAuth
// @Router /api/packaging/carts [get]
func (s *Server) listCartsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listCartsHandler")
	defer span.End()

	carts, err := s.yard.Carts(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, carts)
}

// packagingSummaryHandler counts carts and packed bundles.
// @Summary Packaging summary
// @Tags packaging
// @Produce json
// @Success 200 {object} packaging.Summary
// @Security ApiKeyAuth
// @Router /api/packaging/summary [get]
func (s *Server) packagingSummaryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "packagingSummaryHandler")
	defer span.End()

	sum, err := s.yard.Summary(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
