// Package handler exposes the catalog store over a small JSON HTTP API.
//
// It plays the presentation role: changing a filter also rewinds the page
// cursor to the first page, which the store itself never does.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/procart/internal/catalog"
	"github.com/xenking/procart/internal/catalog/view"
	"github.com/xenking/procart/internal/domain/product"
)

// maxBodySize bounds command request bodies.
const maxBodySize = 64 << 10

// Catalog is the part of catalog.Store used by the handler.
type Catalog interface {
	LoadAll(ctx context.Context) error
	SetCurrentPage(n int)
	Update(fn func(c *catalog.Cursor))
	Snapshot() catalog.State
	Read() (catalog.State, view.Result)
	Product(ctx context.Context, id string) (*product.Product, error)
}

// Handler serves the catalog API.
type Handler struct {
	catalog Catalog
}

// NewHandler constructs a Handler over c.
func NewHandler(c Catalog) *Handler {
	return &Handler{catalog: c}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/catalog", h.GetCatalog)
	mux.HandleFunc("POST /api/catalog/load", h.LoadCatalog)
	mux.HandleFunc("PUT /api/catalog/category", h.SetCategory)
	mux.HandleFunc("PUT /api/catalog/search", h.SetSearch)
	mux.HandleFunc("PUT /api/catalog/page", h.SetPage)
	mux.HandleFunc("GET /api/catalog/categories", h.ListCategories)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError responds with {"code":status,"message":msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, status, &e)
}

// writeInternal logs err and responds 500 without leaking it.
func writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

var (
	errMissingField = errors.New("missing field")
	errTrailingData = errors.New("unexpected data after object")
)

// decodeField reads a JSON object body and passes the value of field to fn.
// Other fields are ignored; anything after the object is rejected.
func decodeField(w http.ResponseWriter, r *http.Request, field string, fn func(d *jx.Decoder) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	found := false
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != field {
			return d.Skip()
		}
		found = true
		if err := fn(d); err != nil {
			return errors.Wrapf(err, "decode %q", field)
		}
		return nil
	}); err != nil {
		return err
	}
	if d.Next() != jx.Invalid {
		return errTrailingData
	}
	if !found {
		return errors.Wrapf(errMissingField, "%q", field)
	}
	return nil
}
