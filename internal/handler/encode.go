package handler

import (
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/procart/internal/catalog"
	"github.com/xenking/procart/internal/catalog/view"
	"github.com/xenking/procart/internal/domain/product"
)

func encodeCatalog(e *jx.Encoder, st catalog.State, res view.Result) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str(st.LoadStatus.String()) })
		if st.LastError != "" {
			e.Field("error", func(e *jx.Encoder) { e.Str(st.LastError) })
		}
		e.Field("category", func(e *jx.Encoder) { e.Str(st.SelectedCategory) })
		e.Field("query", func(e *jx.Encoder) { e.Str(st.SearchQuery) })
		e.Field("currentPage", func(e *jx.Encoder) { e.Int(res.CurrentPage) })
		e.Field("pageSize", func(e *jx.Encoder) { e.Int(st.PageSize) })
		e.Field("totalPages", func(e *jx.Encoder) { e.Int(res.TotalPages) })
		e.Field("totalCount", func(e *jx.Encoder) { e.Int(res.TotalCount) })
		e.Field("categories", func(e *jx.Encoder) { encodeStrings(e, st.Categories) })
		e.Field("products", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, p := range res.Products {
					encodeProduct(e, p)
				}
			})
		})
	})
}

// encodeProduct writes p with the shortened title and description shown on
// list cards.
func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("title", func(e *jx.Encoder) { e.Str(p.Title) })
		e.Field("titleShort", func(e *jx.Encoder) { e.Str(view.Truncate(p.Title, view.TitleLimit)) })
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, p.Price) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("descriptionShort", func(e *jx.Encoder) {
			e.Str(view.Truncate(p.Description, view.DescriptionLimit))
		})
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("image", func(e *jx.Encoder) { e.Str(p.Image) })
		e.Field("rating", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("rate", func(e *jx.Encoder) { encodeDecimal(e, p.Rating.Rate) })
				e.Field("count", func(e *jx.Encoder) { e.Int(p.Rating.Count) })
			})
		})
	})
}

func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.String()))
}

func encodeStrings(e *jx.Encoder, items []string) {
	e.Arr(func(e *jx.Encoder) {
		for _, s := range items {
			e.Str(s)
		}
	})
}
