package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"

	"github.com/xenking/bouquet-checkout/internal/domain/catalog"
)

// ListProducts returns every product in the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, _ *http.Request) {
	products := h.catalog.List()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range products {
			h.encodeProduct(e, p)
		}
		e.ArrEnd()
	})
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Product(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeProduct(e, p)
	})
}

// encodeProduct writes a product with image paths prefixed by imageBaseURL.
func (h *Handler) encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	money(e, p.Price)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("image")
	e.ObjStart()
	e.FieldStart("thumbnail")
	e.Str(h.imageURL(p.Image.Thumbnail))
	e.FieldStart("mobile")
	e.Str(h.imageURL(p.Image.Mobile))
	e.FieldStart("desktop")
	e.Str(h.imageURL(p.Image.Desktop))
	e.ObjEnd()
	e.ObjEnd()
}

func (h *Handler) imageURL(path string) string {
	if path == "" || strings.Contains(path, "://") {
		return path
	}
	return h.imageBaseURL + path
}
