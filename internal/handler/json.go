package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/goldwin-storefront/internal/domain/cart"
	"github.com/xenking/goldwin-storefront/internal/domain/pricing"
	"github.com/xenking/goldwin-storefront/internal/domain/product"
)

// maxBodySize bounds request bodies; cart requests are tiny.
const maxBodySize = 1 << 16

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// readBody decodes a JSON object body, calling field for every key.
func readBody(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if len(data) > maxBodySize {
		return errors.New("body too large")
	}
	if len(data) == 0 {
		return errors.New("empty body")
	}
	return jx.DecodeBytes(data).Obj(field)
}

// imageURL resolves a stored image path against the configured base.
func (h *Handler) imageURL(path string) string {
	if h.cfg.ImageBaseURL == "" || strings.Contains(path, "://") {
		return path
	}
	return strings.TrimRight(h.cfg.ImageBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// resolveImages returns p with image URLs resolved against the base.
func (h *Handler) resolveImages(p product.Product) product.Product {
	if h.cfg.ImageBaseURL == "" {
		return p
	}
	p = p.Clone()
	for i, img := range p.Images {
		p.Images[i] = h.imageURL(img)
	}
	return p
}

func (h *Handler) encodeProducts(e *jx.Encoder, products []product.Product) {
	e.ArrStart()
	for _, p := range products {
		h.resolveImages(p).Encode(e)
	}
	e.ArrEnd()
}

func (h *Handler) encodeCategory(e *jx.Encoder, c product.Category) {
	c.Image = h.imageURL(c.Image)
	c.Encode(e)
}

// encodeCart writes the cart with per-line subtotals.
func (h *Handler) encodeCart(e *jx.Encoder, c cart.Cart) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range c.Items {
		e.ObjStart()
		e.FieldStart("product")
		h.resolveImages(l.Product).Encode(e)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("subtotal")
		e.Str(pricing.Format(l.Subtotal()))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total")
	e.Str(pricing.Format(c.Total))
	e.FieldStart("itemCount")
	e.Int(c.ItemCount)
	e.ObjEnd()
}

// encodeSummary writes the summary with amounts as fixed two-digit strings.
func encodeSummary(e *jx.Encoder, s pricing.Summary) {
	e.ObjStart()
	e.FieldStart("subtotal")
	e.Str(pricing.Format(s.Subtotal))
	e.FieldStart("shipping")
	e.Str(pricing.Format(s.Shipping))
	e.FieldStart("tax")
	e.Str(pricing.Format(s.Tax))
	e.FieldStart("total")
	e.Str(pricing.Format(s.Total))
	e.FieldStart("freeShipping")
	e.Bool(s.FreeShipping())
	e.FieldStart("freeShippingRemaining")
	e.Str(pricing.Format(s.FreeShippingRemaining))
	e.ObjEnd()
}

// encodeCartView writes {"cart":{...},"summary":{...}}.
func (h *Handler) encodeCartView(e *jx.Encoder, c cart.Cart) {
	e.ObjStart()
	e.FieldStart("cart")
	h.encodeCart(e, c)
	e.FieldStart("summary")
	encodeSummary(e, h.policy.Summarize(c))
	e.ObjEnd()
}
