package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/use-agent/fetchkit/storage"
)

// ErrAutoMatchDisabled is returned by auto-match operations when the feature
// is turned off in Options.
var ErrAutoMatchDisabled = errors.New("parser: auto-match is disabled")

// SaveMatch fingerprints the first element matching selector and persists it
// under the document's match identity, so Relocate can find the element again
// on structurally similar pages.
func (d *Document) SaveMatch(selector string) error {
	if !d.opts.AutoMatch {
		return ErrAutoMatchDisabled
	}

	sel, err := d.CSS(selector)
	if err != nil {
		return err
	}
	if sel.Length() == 0 {
		return fmt.Errorf("parser: no element matches %q", selector)
	}

	st, err := d.matchStore()
	if err != nil {
		return err
	}

	el := fingerprint(sel.Get(0))
	if d.opts.Debug {
		slog.Debug("auto-match: saving element", "identifier", d.matchIdentity(), "selector", selector, "tag", el.Tag)
	}
	return st.Save(d.matchIdentity(), selector, el)
}

// Relocate finds the element previously saved under selector. The selector
// itself is tried first; if it no longer matches, candidates with the same
// tag are scored against the stored fingerprint and the best match wins.
func (d *Document) Relocate(selector string) (*goquery.Selection, error) {
	if !d.opts.AutoMatch {
		return nil, ErrAutoMatchDisabled
	}

	sel, err := d.CSS(selector)
	if err != nil {
		return nil, err
	}
	if sel.Length() > 0 {
		return sel.First(), nil
	}

	st, err := d.matchStore()
	if err != nil {
		return nil, err
	}
	saved, err := st.Retrieve(d.matchIdentity(), selector)
	if err != nil {
		return nil, err
	}

	var best *html.Node
	bestScore := 0
	d.doc.Find(saved.Tag).Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		if score := similarity(saved, fingerprint(n)); score > bestScore {
			bestScore = score
			best = n
		}
	})
	if best == nil {
		return nil, fmt.Errorf("parser: could not relocate element for %q", selector)
	}

	if d.opts.Debug {
		slog.Debug("auto-match: relocated element", "selector", selector, "score", bestScore)
	}
	return d.doc.FindNodes(best), nil
}

// fingerprint captures the identifying shape of an element: its tag,
// attributes, text, ancestor path and neighborhood.
func fingerprint(n *html.Node) *storage.Element {
	el := &storage.Element{
		Tag:        n.Data,
		Attributes: make(map[string]string, len(n.Attr)),
		Path:       nodePath(n),
	}
	for _, a := range n.Attr {
		if v := a.Val; v != "" {
			el.Attributes[a.Key] = v
		}
	}
	el.Text = firstText(n)

	if p := n.Parent; p != nil && p.Type == html.ElementNode {
		el.ParentTag = p.Data
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c != n && c.Type == html.ElementNode {
				el.Siblings = append(el.Siblings, c.Data)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			el.Children = append(el.Children, c.Data)
		}
	}
	return el
}

// similarity scores how closely a candidate fingerprint resembles the saved
// one. Attributes weigh double; path, text, parent and neighborhood overlap
// each add one point per match.
func similarity(saved, candidate *storage.Element) int {
	if saved.Tag != candidate.Tag {
		return 0
	}
	score := 1
	for k, v := range saved.Attributes {
		if candidate.Attributes[k] == v {
			score += 2
		}
	}
	if saved.Text != "" && saved.Text == candidate.Text {
		score++
	}
	if saved.ParentTag != "" && saved.ParentTag == candidate.ParentTag {
		score++
	}
	score += suffixOverlap(saved.Path, candidate.Path)
	score += countOverlap(saved.Children, candidate.Children)
	score += countOverlap(saved.Siblings, candidate.Siblings)
	return score
}

func nodePath(n *html.Node) []string {
	var path []string
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode {
			path = append([]string{cur.Data}, path...)
		}
	}
	return path
}

func firstText(n *html.Node) string {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			if t := strings.TrimSpace(c.Data); t != "" {
				return t
			}
		}
	}
	return ""
}

func suffixOverlap(a, b []string) int {
	count := 0
	for i, j := len(a)-1, len(b)-1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		if a[i] != b[j] {
			break
		}
		count++
	}
	return count
}

func countOverlap(a, b []string) int {
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	count := 0
	for _, s := range b {
		if seen[s] > 0 {
			seen[s]--
			count++
		}
	}
	return count
}
