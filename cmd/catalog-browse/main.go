// Command catalog-browse prints one page of the remote product catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/procart/internal/catalog"
	"github.com/xenking/procart/internal/catalog/view"
	"github.com/xenking/procart/internal/client/fakestore"
	"github.com/xenking/procart/internal/domain/product"
)

type options struct {
	baseURL    string
	category   string
	search     string
	page       int
	pageSize   int
	timeout    time.Duration
	categories bool
	product    string
}

func main() {
	var opts options
	flag.StringVar(&opts.baseURL, "base-url", fakestore.DefaultBaseURL, "catalog API base URL")
	flag.StringVar(&opts.category, "category", "", "show only this category")
	flag.StringVar(&opts.search, "search", "", "case-insensitive title search")
	flag.IntVar(&opts.page, "page", 1, "page to show, starting at 1")
	flag.IntVar(&opts.pageSize, "page-size", view.DefaultPageSize, "products per page")
	flag.DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	flag.BoolVar(&opts.categories, "categories", false, "list categories and exit")
	flag.StringVar(&opts.product, "product", "", "show a single product by ID and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		slog.Error("browse failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	client, err := fakestore.New(fakestore.Config{
		BaseURL: opts.baseURL,
		Timeout: opts.timeout,
	})
	if err != nil {
		return errors.Wrap(err, "create client")
	}
	store := catalog.New(client, catalog.Options{
		PageSize: opts.pageSize,
		Logger:   zap.NewNop(),
	})

	switch {
	case opts.product != "":
		p, err := store.Product(ctx, opts.product)
		if err != nil {
			return err
		}
		return printProduct(out, p)
	case opts.categories:
		// Straight from the client: the store swallows category failures.
		categories, err := client.FetchCategories(ctx)
		if err != nil {
			return errors.Wrap(err, "list categories")
		}
		for _, c := range categories {
			if _, err := fmt.Fprintln(out, c); err != nil {
				return err
			}
		}
		return nil
	}

	if err := store.LoadCatalog(ctx); err != nil {
		return err
	}
	store.Update(func(c *catalog.Cursor) {
		c.Category = opts.category
		c.Query = opts.search
		c.Page = opts.page
	})

	return printPage(out, store.View())
}

func printPage(out io.Writer, res view.Result) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tCATEGORY\tRATING")
	for _, p := range res.Products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s (%d)\n",
			p.ID,
			view.Truncate(p.Title, view.TitleLimit),
			p.Price.StringFixed(2),
			p.Category,
			p.Rating.Rate.StringFixed(1),
			p.Rating.Count,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\npage %d of %d, %d matching products\n",
		res.CurrentPage, res.TotalPages, res.TotalCount)
	return err
}

func printProduct(out io.Writer, p *product.Product) error {
	_, err := fmt.Fprintf(out, "%s  %s\n%s  %s  rated %s by %d\n\n%s\n",
		p.ID, p.Title,
		p.Price.StringFixed(2), p.Category, p.Rating.Rate.StringFixed(1), p.Rating.Count,
		p.Description,
	)
	return err
}
