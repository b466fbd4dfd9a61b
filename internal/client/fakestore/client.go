// Package fakestore implements product.Source over the Fake Store HTTP API
// (or any server exposing the same read-only endpoints).
package fakestore

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/procart/internal/domain/product"
)

// DefaultBaseURL is the public Fake Store API.
const DefaultBaseURL = "https://fakestoreapi.com"

const (
	userAgent    = "procart-catalog/1.0"
	maxBodyBytes = 16 << 20
	tracerName   = "github.com/xenking/procart/internal/client/fakestore"
)

var _ product.Source = (*Client)(nil)

// Config holds the client settings. Zero values select defaults.
type Config struct {
	// BaseURL is the API root; endpoints are resolved relative to it.
	BaseURL string
	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration
	// Transport is the underlying round tripper, http.DefaultTransport when nil.
	Transport      http.RoundTripper
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client fetches the catalog. It is safe for concurrent use.
type Client struct {
	http   *http.Client
	base   *url.URL
	tracer trace.Tracer
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("unsupported base url scheme %q", base.Scheme)
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = noop.NewTracerProvider()
	}

	var transportOpts []otelhttp.Option
	transportOpts = append(transportOpts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	if cfg.MeterProvider != nil {
		transportOpts = append(transportOpts, otelhttp.WithMeterProvider(cfg.MeterProvider))
	}

	return &Client{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(cfg.Transport, transportOpts...),
		},
		base:   base,
		tracer: cfg.TracerProvider.Tracer(tracerName),
	}, nil
}

// FetchProducts retrieves the full product list in source order.
func (c *Client) FetchProducts(ctx context.Context) (_ []product.Product, rerr error) {
	const op = "fetch products"
	ctx, span := c.tracer.Start(ctx, "fakestore.FetchProducts")
	defer func() { endSpan(span, rerr) }()

	u := c.endpoint("products")
	body, err := c.get(ctx, op, u)
	if err != nil {
		return nil, err
	}
	products, err := decodeProducts(jx.DecodeBytes(body))
	if err != nil {
		return nil, &product.NetworkError{Op: op, URL: u, Err: errors.Wrap(err, "decode")}
	}
	span.SetAttributes(attribute.Int("catalog.products", len(products)))
	return products, nil
}

// FetchCategories retrieves the category labels in source order.
func (c *Client) FetchCategories(ctx context.Context) (_ []string, rerr error) {
	const op = "fetch categories"
	ctx, span := c.tracer.Start(ctx, "fakestore.FetchCategories")
	defer func() { endSpan(span, rerr) }()

	u := c.endpoint("products", "categories")
	body, err := c.get(ctx, op, u)
	if err != nil {
		return nil, err
	}
	categories, err := decodeCategories(jx.DecodeBytes(body))
	if err != nil {
		return nil, &product.NetworkError{Op: op, URL: u, Err: errors.Wrap(err, "decode")}
	}
	return categories, nil
}

// FetchProduct retrieves a single product. The API answers unknown ids with
// an empty body, which is reported as product.ErrNotFound.
func (c *Client) FetchProduct(ctx context.Context, id string) (_ *product.Product, rerr error) {
	const op = "fetch product"
	ctx, span := c.tracer.Start(ctx, "fakestore.FetchProduct",
		trace.WithAttributes(attribute.String("catalog.product_id", id)),
	)
	defer func() {
		if errors.Is(rerr, product.ErrNotFound) {
			endSpan(span, nil)
			return
		}
		endSpan(span, rerr)
	}()

	if strings.TrimSpace(id) == "" {
		return nil, product.ErrNotFound
	}
	u := c.endpoint("products", id)
	body, err := c.get(ctx, op, u)
	if err != nil {
		var netErr *product.NetworkError
		if errors.As(err, &netErr) && netErr.StatusCode == http.StatusNotFound {
			return nil, product.ErrNotFound
		}
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, product.ErrNotFound
	}
	p, err := decodeProduct(jx.DecodeBytes(body))
	if err != nil {
		return nil, &product.NetworkError{Op: op, URL: u, Err: errors.Wrap(err, "decode")}
	}
	return &p, nil
}

func (c *Client) endpoint(segments ...string) string {
	return c.base.JoinPath(segments...).String()
}

// get performs a GET request and returns the body of a 2xx response.
// Every failure is reported as *product.NetworkError.
func (c *Client) get(ctx context.Context, op, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, &product.NetworkError{Op: op, URL: u, Err: errors.Wrap(err, "create request")}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &product.NetworkError{Op: op, URL: u, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))
		return nil, &product.NetworkError{
			Op:         op,
			URL:        u,
			StatusCode: res.StatusCode,
			Err:        errors.New(http.StatusText(res.StatusCode)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, &product.NetworkError{Op: op, URL: u, StatusCode: res.StatusCode, Err: errors.Wrap(err, "read body")}
	}
	return body, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
