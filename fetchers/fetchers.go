// Package fetchers exposes the public dispatch entry points: one fetcher per
// backend family, all returning the same unified Response.
package fetchers

import (
	"context"
	"net/http"
	"time"

	"github.com/use-agent/fetchkit/engine"
	"github.com/use-agent/fetchkit/parser"
	"github.com/use-agent/fetchkit/storage"
	"github.com/use-agent/fetchkit/validate"
)

// Config is the shared parsing/matching configuration applied uniformly
// regardless of which backend executes the request. Pointer fields default
// to true when nil.
type Config struct {
	// HugeTree allows parsing very large documents. Default true.
	HugeTree *bool

	// KeepComments preserves HTML comments while parsing. Default false.
	KeepComments bool

	// AutoMatch toggles the auto-match feature globally. Default true.
	AutoMatch *bool

	// Storage is the auto-match backend; nil selects the local SQLite store.
	Storage storage.Store

	// StorageArgs carries backend-specific settings for the storage layer.
	StorageArgs map[string]any

	// Debug enables verbose logging.
	Debug bool

	// AutomatchDomain unifies auto-match keys across different websites.
	// Must be a string; any other kind is ignored with a logged warning.
	AutomatchDomain any
}

// BaseFetcher holds the resolved parsing options. It is read-only after
// construction and safe to share across concurrent dispatch calls.
type BaseFetcher struct {
	parsing parser.Options
}

func newBase(cfg Config) BaseFetcher {
	parsing := parser.Options{
		HugeTree:     boolOr(cfg.HugeTree, true),
		KeepComments: cfg.KeepComments,
		AutoMatch:    boolOr(cfg.AutoMatch, true),
		Storage:      cfg.Storage,
		StorageArgs:  cfg.StorageArgs,
		Debug:        cfg.Debug,
	}

	domain, _ := validate.Check(cfg.AutomatchDomain,
		[]validate.Kind{validate.String, validate.Nil}, nil, false, "automatch_domain")
	if s, ok := domain.(string); ok {
		parsing.AutomatchDomain = s
	}

	return BaseFetcher{parsing: parsing}
}

// Parsing exposes the resolved options, e.g. for custom engine wiring.
func (b *BaseFetcher) Parsing() parser.Options { return b.parsing }

// Fetcher is the synchronous-HTTP dispatch family.
type Fetcher struct {
	BaseFetcher
}

// NewFetcher creates an HTTP fetcher with the given shared configuration.
func NewFetcher(cfg Config) *Fetcher {
	return &Fetcher{BaseFetcher: newBase(cfg)}
}

// RequestOptions are the per-request knobs of the HTTP family. Pointer
// fields default to true when nil.
type RequestOptions struct {
	// FollowRedirects enables redirect following. Default true.
	FollowRedirects *bool

	// Timeout is the whole-request deadline in seconds. Default 10.
	Timeout float64

	// StealthyHeaders adds a real browser's header set and a referer as if
	// the request came from a search of the target's domain. Default true.
	StealthyHeaders *bool

	// Headers are forwarded to the transport, overriding the stealthy set.
	Headers map[string]string

	// Body and ContentType apply to POST/PUT requests.
	Body        []byte
	ContentType string

	// Proxy is a connection string or an engine.Proxy record.
	Proxy any

	// MaxPerSecond paces requests through this call's transport when
	// positive.
	MaxPerSecond float64
}

func (o *RequestOptions) defaults() {
	if o.Timeout <= 0 {
		o.Timeout = 10
	}
}

// Get performs an HTTP GET and returns the unified response.
func (f *Fetcher) Get(ctx context.Context, url string, opts *RequestOptions) (*parser.Response, error) {
	return f.do(ctx, http.MethodGet, url, opts)
}

// Post performs an HTTP POST.
func (f *Fetcher) Post(ctx context.Context, url string, opts *RequestOptions) (*parser.Response, error) {
	return f.do(ctx, http.MethodPost, url, opts)
}

// Put performs an HTTP PUT.
func (f *Fetcher) Put(ctx context.Context, url string, opts *RequestOptions) (*parser.Response, error) {
	return f.do(ctx, http.MethodPut, url, opts)
}

// Delete performs an HTTP DELETE.
func (f *Fetcher) Delete(ctx context.Context, url string, opts *RequestOptions) (*parser.Response, error) {
	return f.do(ctx, http.MethodDelete, url, opts)
}

// do follows the single dispatch protocol: validate and normalize the
// parameters, build the backend configuration, invoke the backend exactly
// once and hand back its normalized result.
func (f *Fetcher) do(ctx context.Context, method, url string, opts *RequestOptions) (*parser.Response, error) {
	o := RequestOptions{}
	if opts != nil {
		o = *opts
	}
	o.defaults()

	proxy, err := engine.NormalizeProxy(o.Proxy)
	if err != nil {
		return nil, err
	}

	eng := engine.NewStatic(engine.StaticConfig{
		FollowRedirects: boolOr(o.FollowRedirects, true),
		Timeout:         time.Duration(o.Timeout * float64(time.Second)),
		Proxy:           proxy,
		MaxPerSecond:    o.MaxPerSecond,
		Parsing:         f.parsing,
	})
	return eng.Do(ctx, engine.StaticRequest{
		Method:          method,
		URL:             url,
		StealthyHeaders: boolOr(o.StealthyHeaders, true),
		Headers:         o.Headers,
		Body:            o.Body,
		ContentType:     o.ContentType,
	})
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
