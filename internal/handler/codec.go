package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

const maxBodySize = 64 << 10

// requestError marks malformed or incomplete request bodies.
type requestError struct {
	err error
}

func (e *requestError) Error() string {
	return "invalid request: " + e.err.Error()
}

func (e *requestError) Unwrap() error {
	return e.err
}

func badRequest(msg string) error {
	return &requestError{err: errors.New(msg)}
}

// decodeBody reads a JSON object from the request and calls field for every
// key. An empty body is treated as an empty object.
func decodeBody(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return &requestError{err: err}
	}
	if len(data) == 0 {
		return nil
	}
	if err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		return field(d, string(key))
	}); err != nil {
		return &requestError{err: err}
	}
	return nil
}

// money writes d as a JSON number with two decimals.
func money(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.StringFixed(2)))
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
