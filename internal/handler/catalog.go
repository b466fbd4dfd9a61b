package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/procart/internal/catalog"
	"github.com/xenking/procart/internal/domain/product"
)

// GetCatalog returns the catalog state together with the visible page.
func (h *Handler) GetCatalog(w http.ResponseWriter, _ *http.Request) {
	h.respondCatalog(w, http.StatusOK)
}

// LoadCatalog reloads products and categories from the source.
func (h *Handler) LoadCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.LoadAll(r.Context()); err != nil {
		if errors.Is(err, product.ErrNetwork) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeInternal(w, r, err)
		return
	}
	h.respondCatalog(w, http.StatusOK)
}

// SetCategory selects a category and rewinds to the first page.
func (h *Handler) SetCategory(w http.ResponseWriter, r *http.Request) {
	var label string
	if err := decodeField(w, r, "category", func(d *jx.Decoder) (err error) {
		label, err = decodeOptStr(d)
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.catalog.Update(func(c *catalog.Cursor) {
		c.Category = label
		c.Page = 1
	})
	h.respondCatalog(w, http.StatusOK)
}

// SetSearch sets the title search query and rewinds to the first page.
func (h *Handler) SetSearch(w http.ResponseWriter, r *http.Request) {
	var query string
	if err := decodeField(w, r, "query", func(d *jx.Decoder) (err error) {
		query, err = decodeOptStr(d)
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.catalog.Update(func(c *catalog.Cursor) {
		c.Query = query
		c.Page = 1
	})
	h.respondCatalog(w, http.StatusOK)
}

// SetPage moves the page cursor. Any integer is accepted.
func (h *Handler) SetPage(w http.ResponseWriter, r *http.Request) {
	var page int
	if err := decodeField(w, r, "page", func(d *jx.Decoder) (err error) {
		page, err = d.Int()
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.catalog.SetCurrentPage(page)
	h.respondCatalog(w, http.StatusOK)
}

// ListCategories returns the loaded category labels.
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	st := h.catalog.Snapshot()

	var e jx.Encoder
	encodeStrings(&e, st.Categories)
	writeJSON(w, http.StatusOK, &e)
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Product(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
		return
	case errors.Is(err, product.ErrNetwork):
		writeError(w, http.StatusBadGateway, err.Error())
		return
	case err != nil:
		writeInternal(w, r, err)
		return
	}

	var e jx.Encoder
	encodeProduct(&e, *p)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) respondCatalog(w http.ResponseWriter, status int) {
	st, res := h.catalog.Read()

	var e jx.Encoder
	encodeCatalog(&e, st, res)
	writeJSON(w, status, &e)
}

// decodeOptStr reads a string, treating null as empty.
func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
