// Package geocode implements reverse geocoding against a Nominatim
// compatible HTTP API.
package geocode

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/bouquet-checkout/internal/domain/address"
)

// maxBody bounds the response size read from the geocoder.
const maxBody = 1 << 20

// Config configures the Nominatim client.
type Config struct {
	BaseURL   string
	UserAgent string
	Language  string
	Timeout   time.Duration
}

// Client is a Nominatim reverse geocoding client.
type Client struct {
	http      *http.Client
	reverse   *url.URL
	userAgent string
	language  string
}

var _ address.Geocoder = (*Client)(nil)

// New creates a Client. The HTTP transport is instrumented with otelhttp
// using the given options.
func New(cfg Config, opts ...otelhttp.Option) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", cfg.BaseURL)
	}

	return &Client{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, opts...),
		},
		reverse:   base.JoinPath("reverse"),
		userAgent: cfg.UserAgent,
		language:  cfg.Language,
	}, nil
}

// Reverse looks up the address at pos. A response without a match yields an
// empty Place.
func (c *Client) Reverse(ctx context.Context, pos address.Position) (*address.Place, error) {
	u := *c.reverse
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("lat", strconv.FormatFloat(pos.Lat, 'f', 7, 64))
	q.Set("lon", strconv.FormatFloat(pos.Lon, 'f', 7, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.language != "" {
		req.Header.Set("Accept-Language", c.language)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	place, err := decodeReverse(jx.DecodeBytes(body))
	if err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return place, nil
}

// decodeReverse parses a jsonv2 reverse response.
func decodeReverse(d *jx.Decoder) (*address.Place, error) {
	var (
		p       address.Place
		noMatch bool
	)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "name":
			return readString(d, &p.Name)
		case "display_name":
			return readString(d, &p.DisplayName)
		case "error":
			noMatch = true
			return d.Skip()
		case "address":
			return decodeAddress(d, &p)
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	if noMatch {
		return &address.Place{}, nil
	}
	return &p, nil
}

func decodeAddress(d *jx.Decoder, p *address.Place) error {
	fields := map[string]*string{
		"road":          &p.Road,
		"street":        &p.Street,
		"pedestrian":    &p.Pedestrian,
		"path":          &p.Path,
		"residential":   &p.Residential,
		"lane":          &p.Lane,
		"service":       &p.Service,
		"house_number":  &p.HouseNumber,
		"neighbourhood": &p.Neighbourhood,
		"suburb":        &p.Suburb,
		"city":          &p.City,
		"town":          &p.Town,
		"village":       &p.Village,
	}
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if dst, ok := fields[string(key)]; ok {
			return readString(d, dst)
		}
		return d.Skip()
	})
}

// readString reads a string value, skipping values of other types.
func readString(d *jx.Decoder, dst *string) error {
	if d.Next() != jx.String {
		return d.Skip()
	}
	v, err := d.Str()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
