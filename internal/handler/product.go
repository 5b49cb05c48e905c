package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/goldwin-storefront/internal/domain/product"
)

// listProducts serves GET /api/product.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	products, err := h.products.List(r.Context(), f)
	if err != nil {
		h.internalError(w, r, errors.Wrap(err, "list products"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeProducts(e, products)
	})
}

// featuredProducts serves GET /api/product/featured.
func (h *Handler) featuredProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.Featured(r.Context(), h.cfg.FeaturedLimit)
	if err != nil {
		h.internalError(w, r, errors.Wrap(err, "featured products"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeProducts(e, products)
	})
}

// getProduct serves GET /api/product/{id}.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.internalError(w, r, errors.Wrap(err, "get product"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.resolveImages(*p).Encode(e)
	})
}

// listCategories serves GET /api/category.
func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.products.Categories(r.Context())
	if err != nil {
		h.internalError(w, r, errors.Wrap(err, "list categories"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, c := range categories {
			h.encodeCategory(e, c)
		}
		e.ArrEnd()
	})
}

// getCategory serves GET /api/category/{slug} with the category's products.
func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.products.CategoryBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		h.internalError(w, r, errors.Wrap(err, "get category"))
		return
	}

	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.Category = c.Slug
	products, err := h.products.List(ctx, f)
	if err != nil {
		h.internalError(w, r, errors.Wrap(err, "list category products"))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("category")
		h.encodeCategory(e, *c)
		e.FieldStart("products")
		h.encodeProducts(e, products)
		e.ObjEnd()
	})
}

// parseFilter reads listing criteria from query parameters.
func parseFilter(q url.Values) (product.Filter, error) {
	f := product.Filter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}

	var err error
	if f.Sort, err = product.ParseSort(q.Get("sort")); err != nil {
		return f, err
	}
	if v := q.Get("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil || f.Limit < 0 {
			return f, errors.Errorf("invalid limit %q", v)
		}
	}
	for name, dst := range map[string]*decimal.NullDecimal{
		"minPrice": &f.MinPrice,
		"maxPrice": &f.MaxPrice,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return f, errors.Errorf("invalid %s %q", name, v)
		}
		*dst = decimal.NewNullDecimal(d)
	}
	for name, dst := range map[string]*bool{
		"onSale":  &f.OnSale,
		"inStock": &f.InStock,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.Errorf("invalid %s %q", name, v)
		}
		*dst = b
	}
	return f, nil
}

// internalError logs err and writes a generic 500.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
