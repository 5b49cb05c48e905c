package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/goldwin-storefront/internal/domain/cart"
	"github.com/xenking/goldwin-storefront/internal/domain/product"
)

// DurableHeader is set to "false" when a cart response was not persisted or
// was built from an unreadable record.
const DurableHeader = "X-Cart-Durable"

var quantityRangeMessage = "quantity must be between 1 and " + strconv.Itoa(cart.MaxQuantity)

// getCart serves GET /api/cart.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	res := h.store(w, r).Read(r.Context())
	h.writeResult(w, res)
}

// getSummary serves GET /api/cart/summary.
func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	res := h.store(w, r).Read(r.Context())
	markDurability(w, res)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSummary(e, h.policy.Summarize(res.Cart))
	})
}

// addItem serves POST /api/cart/items {"productId":"1","quantity":2}.
func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var (
		productID string
		quantity  = 1
	)
	err := readBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			productID, err = d.Str()
		case "quantity":
			quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if productID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}
	if quantity < 1 || quantity > cart.MaxQuantity {
		writeError(w, http.StatusBadRequest, quantityRangeMessage)
		return
	}

	p, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.internalError(w, r, errors.Wrap(err, "get product"))
		return
	}

	s := h.store(w, r)
	h.mutated(w, r, s, "add", s.Add(r.Context(), *p, quantity))
}

// setQuantity serves PUT /api/cart/items/{productId} {"quantity":3}.
func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	var (
		quantity int
		seen     bool
	)
	err := readBody(r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		var err error
		quantity, err = d.Int()
		seen = err == nil
		return err
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !seen {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}
	// Zero or less is a removal, so only the upper bound is rejected.
	if quantity > cart.MaxQuantity {
		writeError(w, http.StatusBadRequest, quantityRangeMessage)
		return
	}

	s := h.store(w, r)
	h.mutated(w, r, s, "set_quantity", s.SetQuantity(r.Context(), chi.URLParam(r, "productId"), quantity))
}

// removeItem serves DELETE /api/cart/items/{productId}.
func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	s := h.store(w, r)
	h.mutated(w, r, s, "remove", s.Remove(r.Context(), chi.URLParam(r, "productId")))
}

// clearCart serves DELETE /api/cart.
func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	s := h.store(w, r)
	h.mutated(w, r, s, "clear", s.Clear(r.Context()))
}

// mutated notifies subscribers of the session, records the mutation and
// writes the resulting cart.
func (h *Handler) mutated(w http.ResponseWriter, r *http.Request, s *cart.Store, op string, res cart.Result) {
	h.bus.Publish(s.Key())
	h.mutations.Add(r.Context(), 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("durable", res.Durable()),
	))
	h.writeResult(w, res)
}

func (h *Handler) writeResult(w http.ResponseWriter, res cart.Result) {
	markDurability(w, res)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeCartView(e, res.Cart)
	})
}

func markDurability(w http.ResponseWriter, res cart.Result) {
	if !res.Durable() {
		w.Header().Set(DurableHeader, "false")
	}
}
