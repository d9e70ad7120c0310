// Package httpapi exposes one cart and the catalog over JSON HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/ahinestrog/cartengine/internal/cart"
	"github.com/ahinestrog/cartengine/internal/catalog"
	"github.com/ahinestrog/cartengine/internal/order"
)

const requestTimeout = 5 * time.Second

type Server struct {
	store    *cart.Store
	catalog  catalog.Repository
	checkout *order.Checkout
	log      zerolog.Logger
}

func New(store *cart.Store, products catalog.Repository, checkout *order.Checkout, log zerolog.Logger) *Server {
	return &Server{
		store:    store,
		catalog:  products,
		checkout: checkout,
		log:      log.With().Str("component", "http").Logger(),
	}
}

// Handler returns the routed API wrapped in CORS for the given origins.
func (s *Server) Handler(origins []string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", s.handleCart)
	mux.HandleFunc("DELETE /cart", s.handleClear)
	mux.HandleFunc("POST /cart/items", s.handleAdd)
	mux.HandleFunc("PATCH /cart/items/{key}", s.handleUpdate)
	mux.HandleFunc("DELETE /cart/items/{key}", s.handleRemove)
	mux.HandleFunc("POST /cart/checkout", s.handleCheckout)
	mux.HandleFunc("POST /cart/buy-now", s.handleBuyNow)
	mux.HandleFunc("GET /products", s.handleProducts)
	mux.HandleFunc("GET /products/{id}", s.handleProduct)

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.logRequests(mux))
}

func (s *Server) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type cartView struct {
	cart.Snapshot
	OriginalSubtotal float64 `json:"originalSubtotal"`
	Savings          float64 `json:"savings"`
}

func viewOf(snap cart.Snapshot) cartView {
	return cartView{Snapshot: snap, OriginalSubtotal: cart.OriginalSubtotal(snap.Items), Savings: snap.Savings()}
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(s.store.Snapshot()))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.store.ClearCart()
	writeJSON(w, http.StatusOK, viewOf(s.store.Snapshot()))
}

type addRequest struct {
	ProductID int64    `json:"productId"`
	Quantity  *float64 `json:"quantity"`
	Variant   string   `json:"variant"`
}

// resolve looks up the product and checks the requested quantity and
// variant against it.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (cart.Product, int, string, bool) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "")
		return cart.Product{}, 0, "", false
	}
	qty := 1.0
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	ctx, cancel := s.ctx(r)
	defer cancel()
	p, err := s.catalog.Get(ctx, req.ProductID)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error(), "")
		return cart.Product{}, 0, "", false
	}
	if err != nil {
		s.log.Error().Err(err).Int64("product_id", req.ProductID).Msg("catalog lookup")
		writeError(w, http.StatusInternalServerError, "catalog unavailable", "")
		return cart.Product{}, 0, "", false
	}
	if err := cart.ValidateQuantity(qty, p.Stock); err != nil {
		writeValidation(w, err)
		return cart.Product{}, 0, "", false
	}
	if !knownVariant(p.Product, req.Variant) {
		writeError(w, http.StatusUnprocessableEntity, "unknown variant "+strconv.Quote(req.Variant), "UNKNOWN_VARIANT")
		return cart.Product{}, 0, "", false
	}
	return p.Product, int(qty), req.Variant, true
}

func knownVariant(p cart.Product, variant string) bool {
	if variant == "" || len(p.Variants) == 0 {
		return true
	}
	for _, v := range p.Variants {
		if v.Label() == variant {
			return true
		}
	}
	return false
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	p, qty, variant, ok := s.resolve(w, r)
	if !ok {
		return
	}
	s.store.AddItem(p, qty, variant)
	writeJSON(w, http.StatusOK, viewOf(s.store.Snapshot()))
}

type updateRequest struct {
	Quantity *float64 `json:"quantity"`
}

// handleUpdate sets a row's quantity. Zero or less removes the row; above
// the snapshotted stock is rejected.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	it, ok := s.store.Find(key)
	if !ok {
		writeError(w, http.StatusNotFound, "no cart item "+strconv.Quote(key), "")
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "quantity required", "")
		return
	}
	qty, n := *req.Quantity, 0
	if qty > 0 {
		if err := cart.ValidateQuantity(qty, it.Product.Stock); err != nil {
			writeValidation(w, err)
			return
		}
		n = int(qty)
	} else if err := cart.ValidateQuantity(qty, it.Product.Stock); cart.KindOf(err) == cart.NotAnInteger {
		writeValidation(w, err)
		return
	}
	s.store.UpdateQuantity(key, n)
	writeJSON(w, http.StatusOK, viewOf(s.store.Snapshot()))
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if _, ok := s.store.Find(key); !ok {
		writeError(w, http.StatusNotFound, "no cart item "+strconv.Quote(key), "")
		return
	}
	s.store.RemoveItem(key)
	writeJSON(w, http.StatusOK, viewOf(s.store.Snapshot()))
}

type orderResponse struct {
	OrderID string `json:"orderId"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()
	req, err := s.checkout.Run(ctx)
	if errors.Is(err, order.ErrEmptyCart) {
		writeError(w, http.StatusConflict, "Cart is empty", "EMPTY_CART")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, "order dispatch failed", "")
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{OrderID: req.ID.String(), Message: req.Message, Link: req.Link})
}

func (s *Server) handleBuyNow(w http.ResponseWriter, r *http.Request) {
	p, qty, variant, ok := s.resolve(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.ctx(r)
	defer cancel()
	req, err := s.checkout.BuyNow(ctx, p, qty, variant)
	if err != nil {
		writeError(w, http.StatusBadGateway, "order dispatch failed", "")
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{OrderID: req.ID.String(), Message: req.Message, Link: req.Link})
}

type productsResponse struct {
	Items []catalog.Product `json:"items"`
	Total int64             `json:"total"`
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := s.ctx(r)
	defer cancel()
	items, err := s.catalog.List(ctx, q, limit, offset)
	if err != nil {
		s.log.Error().Err(err).Msg("list products")
		writeError(w, http.StatusInternalServerError, "catalog unavailable", "")
		return
	}
	total, err := s.catalog.Count(ctx, q)
	if err != nil {
		s.log.Error().Err(err).Msg("count products")
		writeError(w, http.StatusInternalServerError, "catalog unavailable", "")
		return
	}
	writeJSON(w, http.StatusOK, productsResponse{Items: items, Total: total})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id", "")
		return
	}
	ctx, cancel := s.ctx(r)
	defer cancel()
	p, err := s.catalog.Get(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error(), "")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "catalog unavailable", "")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Stock *int   `json:"stock,omitempty"`
}

func writeValidation(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error(), Kind: cart.KindOf(err).String()}
	var ve *cart.ValidationError
	if errors.As(err, &ve) && ve.Kind == cart.AboveMaximum {
		stock := ve.Stock
		body.Stock = &stock
	}
	writeJSON(w, http.StatusUnprocessableEntity, body)
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
