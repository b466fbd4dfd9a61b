package view

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/procart/internal/domain/product"
)

// --- Helpers ---

func newTestProduct(id, title, category string) product.Product {
	return product.Product{
		ID:       id,
		Title:    title,
		Price:    decimal.NewFromInt(10),
		Category: category,
		Image:    "img.jpg",
	}
}

// makeProducts builds n products titled "Item <i>" in the given category.
func makeProducts(n int, category string, offset int) []product.Product {
	out := make([]product.Product, n)
	for i := range n {
		id := fmt.Sprintf("%d", offset+i+1)
		out[i] = newTestProduct(id, "Item "+id, category)
	}
	return out
}

func ids(products []product.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

// --- Tests ---

func TestProject_NoFilters(t *testing.T) {
	products := makeProducts(20, "a", 0)

	res := Project(Input{Products: products, Page: 1, PageSize: 8})

	require.Len(t, res.Products, 8)
	assert.Equal(t, ids(products[:8]), ids(res.Products))
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 1, res.CurrentPage)
	assert.Equal(t, 20, res.TotalCount)
}

func TestProject_DefaultPageSize(t *testing.T) {
	res := Project(Input{Products: makeProducts(10, "a", 0), Page: 1})

	assert.Len(t, res.Products, DefaultPageSize)
	assert.Equal(t, 2, res.TotalPages)
}

func TestProject_CategoryScenario(t *testing.T) {
	products := append(makeProducts(6, "a", 0), makeProducts(4, "b", 6)...)

	res := Project(Input{Products: products, Category: "b", Page: 1, PageSize: 8})

	assert.Len(t, res.Products, 4)
	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, []string{"7", "8", "9", "10"}, ids(res.Products))
}

func TestProject_SeventeenProducts(t *testing.T) {
	products := makeProducts(17, "a", 0)

	tests := []struct {
		page    int
		wantLen int
		wantIDs []string
	}{
		{page: 1, wantLen: 8},
		{page: 2, wantLen: 8},
		{page: 3, wantLen: 1, wantIDs: []string{"17"}},
		{page: 4, wantLen: 0},
		{page: 0, wantLen: 0},
		{page: -3, wantLen: 0},
		{page: 1 << 40, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			res := Project(Input{Products: products, Page: tt.page, PageSize: 8})

			assert.Len(t, res.Products, tt.wantLen)
			assert.NotNil(t, res.Products)
			assert.Equal(t, 3, res.TotalPages)
			assert.Equal(t, tt.page, res.CurrentPage, "page is echoed unclamped")
			if tt.wantIDs != nil {
				assert.Equal(t, tt.wantIDs, ids(res.Products))
			}
		})
	}
}

func TestProject_Empty(t *testing.T) {
	tests := []struct {
		name  string
		input Input
	}{
		{name: "no products", input: Input{Page: 1, PageSize: 8}},
		{name: "nothing matches", input: Input{
			Products: makeProducts(5, "a", 0),
			Query:    "zzz",
			Page:     1,
			PageSize: 8,
		}},
		{name: "unknown category", input: Input{
			Products: makeProducts(5, "a", 0),
			Category: "missing",
			Page:     1,
			PageSize: 8,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Project(tt.input)

			assert.Empty(t, res.Products)
			assert.Zero(t, res.TotalPages)
			assert.Zero(t, res.TotalCount)
		})
	}
}

func TestProject_Deterministic(t *testing.T) {
	in := Input{
		Products: append(makeProducts(9, "a", 0), makeProducts(9, "b", 9)...),
		Category: "b",
		Query:    "item 1",
		Page:     1,
		PageSize: 4,
	}

	first := Project(in)
	second := Project(in)

	assert.Equal(t, first, second)
}

func TestFilter_Search(t *testing.T) {
	products := []product.Product{
		newTestProduct("1", "Mens Casual Premium Slim Fit T-Shirts", "men's clothing"),
		newTestProduct("2", "John Hardy Women's Legends Naga Bracelet", "jewelery"),
		newTestProduct("3", "MBJ Women's Solid Short Sleeve Boat Neck V", "women's clothing"),
		newTestProduct("4", "Opna Women's Short Sleeve Moisture", "women's clothing"),
	}

	tests := []struct {
		name     string
		category string
		query    string
		want     []string
	}{
		{name: "no filters", want: []string{"1", "2", "3", "4"}},
		{name: "case insensitive", query: "SHIRT", want: []string{"1"}},
		{name: "lower query", query: "women's", want: []string{"2", "3", "4"}},
		{name: "substring spans words", query: "short sleeve", want: []string{"3", "4"}},
		{name: "category only", category: "women's clothing", want: []string{"3", "4"}},
		{name: "category and query", category: "women's clothing", query: "opna", want: []string{"4"}},
		{name: "category is exact", category: "Women's Clothing", want: []string{}},
		{name: "query not trimmed", query: " naga ", want: []string{"2"}},
		{name: "query with surrounding spaces misses", query: "  naga", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(products, tt.category, tt.query)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestFilter_Idempotent(t *testing.T) {
	products := append(makeProducts(6, "a", 0), makeProducts(4, "b", 6)...)

	once := Filter(products, "a", "item")
	twice := Filter(once, "a", "item")

	assert.Equal(t, ids(once), ids(twice))
}

func TestFilter_UnicodeFolding(t *testing.T) {
	products := []product.Product{
		newTestProduct("1", "STRASSE Rucksack", "bags"),
		newTestProduct("2", "Ärmel-Jacke", "coats"),
	}

	assert.Equal(t, []string{"2"}, ids(Filter(products, "", "ärmel")))
	assert.Equal(t, []string{"1"}, ids(Filter(products, "", "strasse")))
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	products := makeProducts(4, "a", 0)
	before := ids(products)

	got := Filter(products, "", "item 2")
	require.Len(t, got, 1)
	got[0].Title = "changed"

	assert.Equal(t, before, ids(products))
	assert.Equal(t, "Item 2", products[1].Title)
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{total: 0, size: 8, want: 0},
		{total: 1, size: 8, want: 1},
		{total: 8, size: 8, want: 1},
		{total: 9, size: 8, want: 2},
		{total: 17, size: 8, want: 3},
		{total: 5, size: 0, want: 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.total, tt.size), "total=%d size=%d", tt.total, tt.size)
	}
}

func TestPaginate_NoAliasing(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page := Paginate(items, 1, 2)
	require.Equal(t, []int{1, 2}, page)

	page = append(page, 99)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, items)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{name: "shorter", text: "abc", limit: 5, want: "abc"},
		{name: "exact boundary", text: "abcde", limit: 5, want: "abcde"},
		{name: "one over", text: "abcdef", limit: 5, want: "abcde..."},
		{name: "mid word", text: "hello world", limit: 7, want: "hello w..."},
		{name: "empty", text: "", limit: 0, want: ""},
		{name: "zero limit", text: "abc", limit: 0, want: "..."},
		{name: "negative limit", text: "abc", limit: -1, want: "..."},
		{name: "runes not bytes", text: "héllo wörld", limit: 5, want: "héllo..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.text, tt.limit))
		})
	}
}

func TestTruncate_Length(t *testing.T) {
	text := strings.Repeat("x", TitleLimit+20)

	got := Truncate(text, TitleLimit)

	assert.Len(t, got, TitleLimit+len(Ellipsis))
	assert.True(t, strings.HasSuffix(got, Ellipsis))
}
