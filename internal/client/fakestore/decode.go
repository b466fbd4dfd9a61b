package fakestore

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/procart/internal/domain/product"
)

func decodeProducts(d *jx.Decoder) ([]product.Product, error) {
	products := make([]product.Product, 0)
	idx := 0
	if err := d.Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "product #%d", idx)
		}
		products = append(products, p)
		idx++
		return nil
	}); err != nil {
		return nil, err
	}
	return products, nil
}

func decodeCategories(d *jx.Decoder) ([]string, error) {
	categories := make([]string, 0)
	if err := d.Arr(func(d *jx.Decoder) error {
		c, err := d.Str()
		if err != nil {
			return errors.Wrap(err, "category")
		}
		categories = append(categories, c)
		return nil
	}); err != nil {
		return nil, err
	}
	return categories, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = decodeID(d)
		case "title":
			p.Title, err = decodeString(d)
		case "price":
			p.Price, err = decodeDecimal(d)
		case "description":
			p.Description, err = decodeString(d)
		case "category":
			p.Category, err = decodeString(d)
		case "image":
			p.Image, err = decodeString(d)
		case "rating":
			p.Rating, err = decodeRating(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	}); err != nil {
		return product.Product{}, err
	}
	if err := validateProduct(p); err != nil {
		return product.Product{}, err
	}
	return p, nil
}

func validateProduct(p product.Product) error {
	switch {
	case p.ID == "":
		return errors.New("missing id")
	case strings.TrimSpace(p.Title) == "":
		return errors.Errorf("product %s: empty title", p.ID)
	case p.Price.IsNegative():
		return errors.Errorf("product %s: negative price %s", p.ID, p.Price)
	}
	return nil
}

func decodeRating(d *jx.Decoder) (product.Rating, error) {
	var r product.Rating
	if d.Next() == jx.Null {
		return r, d.Null()
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "rate":
			r.Rate, err = decodeDecimal(d)
		case "count":
			r.Count, err = d.Int()
		default:
			return d.Skip()
		}
		return err
	})
	return r, err
}

// decodeID accepts both numeric and string identifiers.
func decodeID(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	case jx.String:
		return d.Str()
	default:
		return "", errors.Errorf("unexpected id type %s", d.Next())
	}
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = n.String()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	default:
		return decimal.Zero, errors.Errorf("unexpected number type %s", d.Next())
	}
	return decimal.NewFromString(raw)
}

// decodeString treats null as the empty string.
func decodeString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
