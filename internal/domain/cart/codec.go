package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/goldwin-storefront/internal/domain/product"
)

// ErrCorruptRecord is reported when a stored cart record does not decode to a
// valid cart.
var ErrCorruptRecord = errors.New("corrupt cart record")

// Marshal encodes c as the persisted cart record:
//
//	{"items":[{"product":{...},"quantity":1}],"total":10.5,"itemCount":1}
func Marshal(c Cart) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	EncodeCart(e, c)
	return append([]byte(nil), e.Bytes()...)
}

// EncodeCart writes c to e.
func EncodeCart(e *jx.Encoder, c Cart) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range c.Items {
		e.ObjStart()
		e.FieldStart("product")
		l.Product.Encode(e)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total")
	product.EncodeDecimal(e, c.Total)
	e.FieldStart("itemCount")
	e.Int(c.ItemCount)
	e.ObjEnd()
}

// Unmarshal decodes a persisted cart record. Aggregates are recomputed from
// the lines. Any structural problem or invariant violation (non-positive
// quantity, duplicate product, negative price) yields ErrCorruptRecord.
func Unmarshal(data []byte) (Cart, error) {
	var (
		c        Cart
		hasItems bool
	)
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return Cart{}, errors.Wrap(ErrCorruptRecord, "not an object")
	}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			hasItems = true
			items, err := decodeLines(d)
			if err != nil {
				return errors.Wrap(err, "items")
			}
			c.Items = items
		case "total":
			if _, err := product.DecodeDecimal(d); err != nil {
				return errors.Wrap(err, "total")
			}
		case "itemCount":
			if _, err := d.Int(); err != nil {
				return errors.Wrap(err, "itemCount")
			}
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return Cart{}, errors.Wrapf(ErrCorruptRecord, "decode: %s", err)
	}
	if !hasItems {
		return Cart{}, errors.Wrap(ErrCorruptRecord, "missing items")
	}
	if err := validate(c); err != nil {
		return Cart{}, err
	}
	c.recompute()
	return c, nil
}

func decodeLines(d *jx.Decoder) ([]Line, error) {
	items := []Line{}
	err := d.Arr(func(d *jx.Decoder) error {
		var (
			l          Line
			hasProduct bool
			hasQty     bool
		)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "product":
				if err := l.Product.Decode(d); err != nil {
					return errors.Wrap(err, "product")
				}
				hasProduct = true
			case "quantity":
				q, err := d.Int()
				if err != nil {
					return errors.Wrap(err, "quantity")
				}
				l.Quantity = q
				hasQty = true
			default:
				return d.Skip()
			}
			return nil
		}); err != nil {
			return err
		}
		if !hasProduct || !hasQty {
			return errors.New("line requires product and quantity")
		}
		items = append(items, l)
		return nil
	})
	return items, err
}

func validate(c Cart) error {
	seen := make(map[string]struct{}, len(c.Items))
	for _, l := range c.Items {
		if l.Quantity < 1 || l.Quantity > MaxQuantity {
			return errors.Wrapf(ErrCorruptRecord, "product %s: quantity %d", l.Product.ID, l.Quantity)
		}
		if l.Product.Price.IsNegative() {
			return errors.Wrapf(ErrCorruptRecord, "product %s: negative price", l.Product.ID)
		}
		if _, dup := seen[l.Product.ID]; dup {
			return errors.Wrapf(ErrCorruptRecord, "duplicate product %s", l.Product.ID)
		}
		seen[l.Product.ID] = struct{}{}
	}
	return nil
}
