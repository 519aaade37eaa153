package parser

import "github.com/use-agent/fetchkit/storage"

// Options is the document-parsing configuration shared by every request a
// fetcher instance issues. It is read-only after construction and safe to
// share across concurrent dispatch calls.
type Options struct {
	// HugeTree allows parsing very large documents. When disabled, documents
	// above the node budget are rejected to protect memory.
	HugeTree bool

	// KeepComments preserves HTML comment nodes in the parsed tree.
	KeepComments bool

	// AutoMatch enables element fingerprint persistence and relocation.
	AutoMatch bool

	// Storage is the auto-match backend. Nil selects the default local
	// SQLite store, configured through StorageArgs.
	Storage storage.Store

	// StorageArgs carries backend-specific settings, e.g. "database" for the
	// SQLite path.
	StorageArgs map[string]any

	// Debug enables verbose logging of parsing decisions.
	Debug bool

	// AutomatchDomain, when set, replaces the request URL as the identity
	// used for auto-match correlation, unifying keys across domains.
	AutomatchDomain string
}

// DefaultOptions returns the documented defaults: huge trees allowed,
// comments dropped, auto-match on.
func DefaultOptions() Options {
	return Options{
		HugeTree:  true,
		AutoMatch: true,
	}
}
