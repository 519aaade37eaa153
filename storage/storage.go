// Package storage persists element fingerprints for the auto-match feature:
// re-locating previously identified page elements across structurally
// similar pages, keyed by domain identity.
package storage

// Element is the stored fingerprint of a previously located node.
type Element struct {
	Tag        string            `json:"tag"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Text       string            `json:"text,omitempty"`
	Path       []string          `json:"path"`
	ParentTag  string            `json:"parent_tag,omitempty"`
	Siblings   []string          `json:"siblings,omitempty"`
	Children   []string          `json:"children,omitempty"`
}

// Store is the persistence capability the auto-match layer depends on.
// Identifier is the auto-match identity (a domain, or the configured
// automatch domain override); selector is the caller's lookup key.
type Store interface {
	Save(identifier, selector string, el *Element) error
	Retrieve(identifier, selector string) (*Element, error)
	Close() error
}
