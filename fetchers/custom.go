package fetchers

import (
	"context"

	"github.com/use-agent/fetchkit/engine"
	"github.com/use-agent/fetchkit/parser"
)

// CustomFetcher dispatches through a caller-supplied engine. The candidate
// is capability-checked before anything else happens; an engine that fails
// the check never sees the network.
type CustomFetcher struct {
	BaseFetcher
}

// NewCustomFetcher creates a custom-engine fetcher.
func NewCustomFetcher(cfg Config) *CustomFetcher {
	return &CustomFetcher{BaseFetcher: newBase(cfg)}
}

// Fetch validates the candidate through engine.Check, hands it the shared
// parsing options plus the call-time kwargs if it implements
// engine.Configurable, and invokes its fetch capability exactly once.
func (f *CustomFetcher) Fetch(ctx context.Context, url string, candidate any, kwargs map[string]any) (*parser.Response, error) {
	eng, err := engine.Check(candidate)
	if err != nil {
		return nil, err
	}
	if c, ok := candidate.(engine.Configurable); ok {
		c.Configure(f.parsing, kwargs)
	}
	return eng.Fetch(ctx, url)
}
