package main

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/bouquet-checkout/internal/domain/catalog"
)

// decodeProducts parses a JSON array of products. Prices are decimal
// strings or numbers.
func decodeProducts(data []byte) ([]catalog.Product, error) {
	var products []catalog.Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var p catalog.Product
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "id":
				return str(d, &p.ID)
			case "name":
				return str(d, &p.Name)
			case "description":
				return str(d, &p.Description)
			case "category":
				return str(d, &p.Category)
			case "price":
				raw, err := d.Raw()
				if err != nil {
					return err
				}
				s := string(raw)
				if len(s) >= 2 && s[0] == '"' {
					s = s[1 : len(s)-1]
				}
				if p.Price, err = decimal.NewFromString(s); err != nil {
					return errors.Wrap(err, "price")
				}
				return nil
			case "image":
				return d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "thumbnail":
						return str(d, &p.Image.Thumbnail)
					case "mobile":
						return str(d, &p.Image.Mobile)
					case "desktop":
						return str(d, &p.Image.Desktop)
					default:
						return d.Skip()
					}
				})
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		if p.ID == "" {
			return errors.Errorf("product %d has no id", len(products))
		}
		if !p.Price.IsPositive() {
			return errors.Errorf("product %s: price must be positive", p.ID)
		}
		products = append(products, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

func str(d *jx.Decoder, dst *string) error {
	v, err := d.Str()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
