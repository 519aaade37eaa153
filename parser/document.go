// Package parser wraps parsed HTML documents and the unified response type
// returned by every fetch engine.
package parser

import (
	"fmt"
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/use-agent/fetchkit/storage"
)

// maxTreeNodes is the node budget applied when Options.HugeTree is disabled.
const maxTreeNodes = 1 << 20

// Document is a parsed HTML page with CSS querying and auto-match support.
type Document struct {
	doc  *goquery.Document
	url  string
	opts Options

	store storage.Store
}

// NewDocument parses text into a Document. url is the page identity used for
// relative-link resolution and auto-match keying.
func NewDocument(text, url string, opts Options) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parser: parse document: %w", err)
	}

	root := doc.Get(0)
	if !opts.HugeTree {
		if n := countNodes(root); n > maxTreeNodes {
			return nil, fmt.Errorf("parser: document has %d nodes, above the %d budget", n, maxTreeNodes)
		}
	}
	if !opts.KeepComments {
		stripComments(root)
	}

	return &Document{doc: doc, url: url, opts: opts}, nil
}

// URL returns the page identity this document was parsed under.
func (d *Document) URL() string { return d.url }

// CSS returns the elements matching a CSS selector. Invalid selectors are
// reported as errors instead of panicking.
func (d *Document) CSS(selector string) (*goquery.Selection, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("parser: invalid selector %q: %w", selector, err)
	}
	return d.doc.FindMatcher(matcher), nil
}

// Title returns the trimmed contents of the first <title> element.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// FullText returns the document's visible text content.
func (d *Document) FullText() string {
	return d.doc.Text()
}

// HTML serializes the document back to HTML.
func (d *Document) HTML() (string, error) {
	return d.doc.Html()
}

// Readability runs the Mozilla Readability algorithm on the document.
// The second return value reports whether extraction succeeded; on failure
// the Article carries the raw HTML so callers never lose content.
func (d *Document) Readability() (readability.Article, bool) {
	raw, err := d.doc.Html()
	if err != nil {
		return readability.Article{}, false
	}

	parsedURL, err := nurl.Parse(d.url)
	if err != nil {
		slog.Warn("readability: invalid source URL, falling back to raw HTML",
			"url", d.url, "error", err)
		return readability.Article{Content: raw}, false
	}

	article, err := readability.FromReader(strings.NewReader(raw), parsedURL)
	if err != nil {
		slog.Warn("readability: extraction failed, falling back to raw HTML",
			"url", d.url, "error", err)
		return readability.Article{Content: raw}, false
	}
	return article, true
}

// Markdown converts the document to Markdown. Relative links are resolved
// against the document's domain so the output is self-contained.
func (d *Document) Markdown() (string, error) {
	raw, err := d.doc.Html()
	if err != nil {
		return "", err
	}

	domain := ""
	if u, err := nurl.Parse(d.url); err == nil {
		domain = u.Host
	}

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
	return conv.ConvertString(raw, converter.WithDomain(domain))
}

// matchIdentity is the key auto-match data is stored under: the configured
// domain override when present, otherwise the page's hostname.
func (d *Document) matchIdentity() string {
	if d.opts.AutomatchDomain != "" {
		return d.opts.AutomatchDomain
	}
	if u, err := nurl.Parse(d.url); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return d.url
}

func (d *Document) matchStore() (storage.Store, error) {
	if d.store != nil {
		return d.store, nil
	}
	if d.opts.Storage != nil {
		d.store = d.opts.Storage
		return d.store, nil
	}

	path := ""
	if v, ok := d.opts.StorageArgs["database"].(string); ok {
		path = v
	}
	st, err := storage.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	d.store = st
	return st, nil
}

func countNodes(n *html.Node) int {
	count := 1
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count += countNodes(c)
	}
	return count
}

func stripComments(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			stripComments(c)
		}
		c = next
	}
}
