package product

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Encode writes p as a JSON object.
func (p Product) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	EncodeDecimal(e, p.Price)
	if p.OriginalPrice.Valid {
		e.FieldStart("originalPrice")
		EncodeDecimal(e, p.OriginalPrice.Decimal)
	}
	e.FieldStart("images")
	encodeStrings(e, p.Images)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("rating")
	e.Float64(p.Rating)
	e.FieldStart("reviews")
	e.Int(p.Reviews)
	e.FieldStart("inStock")
	e.Bool(p.InStock)
	e.FieldStart("features")
	encodeStrings(e, p.Features)
	e.ObjEnd()
}

// Decode reads p from a JSON object. Unknown fields are skipped; id and price
// are required.
func (p *Product) Decode(d *jx.Decoder) error {
	var (
		v        Product
		hasPrice bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			v.ID, err = d.Str()
		case "name":
			v.Name, err = d.Str()
		case "description":
			v.Description, err = d.Str()
		case "price":
			v.Price, err = DecodeDecimal(d)
			hasPrice = err == nil
		case "originalPrice":
			v.OriginalPrice, err = DecodeNullDecimal(d)
		case "images":
			v.Images, err = decodeStrings(d)
		case "category":
			v.Category, err = d.Str()
		case "rating":
			v.Rating, err = d.Float64()
		case "reviews":
			v.Reviews, err = d.Int()
		case "inStock":
			v.InStock, err = d.Bool()
		case "features":
			v.Features, err = decodeStrings(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if v.ID == "" {
		return errors.New("missing id")
	}
	if !hasPrice {
		return errors.New("missing price")
	}
	*p = v
	return nil
}

// Encode writes c as a JSON object.
func (c Category) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("slug")
	e.Str(c.Slug)
	e.FieldStart("image")
	e.Str(c.Image)
	e.FieldStart("productCount")
	e.Int(c.ProductCount)
	e.ObjEnd()
}

// Decode reads c from a JSON object.
func (c *Category) Decode(d *jx.Decoder) error {
	var v Category
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			v.ID, err = d.Str()
		case "name":
			v.Name, err = d.Str()
		case "slug":
			v.Slug, err = d.Str()
		case "image":
			v.Image, err = d.Str()
		case "productCount":
			v.ProductCount, err = d.Int()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if v.Slug == "" {
		return errors.New("missing slug")
	}
	*c = v
	return nil
}

// EncodeDecimal writes d as a JSON number without loss of precision.
func EncodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

// DecodeDecimal reads a JSON number into a decimal. Strings are rejected.
func DecodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() != jx.Number {
		return decimal.Decimal{}, errors.New("expected number")
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(string(n))
}

// DecodeNullDecimal reads a JSON number or null.
func DecodeNullDecimal(d *jx.Decoder) (decimal.NullDecimal, error) {
	if d.Next() == jx.Null {
		return decimal.NullDecimal{}, d.Null()
	}
	v, err := DecodeDecimal(d)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(v), nil
}

func encodeStrings(e *jx.Encoder, ss []string) {
	e.ArrStart()
	for _, s := range ss {
		e.Str(s)
	}
	e.ArrEnd()
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}
