package parser

import (
	"fmt"

	"github.com/use-agent/fetchkit/status"
)

// Raw carries the backend-specific values an engine hands over after a fetch,
// before normalization.
type Raw struct {
	URL            string
	Text           string
	Body           []byte
	Status         int
	Reason         string
	Cookies        map[string]string
	Headers        map[string]string
	RequestHeaders map[string]string
	Encoding       string
}

// Response unifies the output of every fetch engine: a parsed document plus
// the transport metadata of the request that produced it. It is constructed
// exactly once per dispatch call and owned by the caller; treat it as
// immutable.
type Response struct {
	*Document

	// URL is the effective identity of the result. When an automatch domain
	// override is configured it replaces the request URL, unifying auto-match
	// keys across domains.
	URL string

	Status         int
	Reason         string
	Cookies        map[string]string
	Headers        map[string]string
	RequestHeaders map[string]string

	// Body and Text carry the same content as bytes and decoded string.
	Body     []byte
	Text     string
	Encoding string
}

// NewResponse normalizes a raw backend result into a Response. A missing
// reason phrase is derived from the status registry; a missing encoding
// defaults to utf-8.
func NewResponse(raw Raw, opts Options) (*Response, error) {
	if raw.Status < 0 {
		return nil, fmt.Errorf("parser: negative status code %d", raw.Status)
	}

	url := raw.URL
	if opts.AutomatchDomain != "" {
		url = opts.AutomatchDomain
	}

	reason := raw.Reason
	if reason == "" {
		reason = status.Phrase(raw.Status)
	}

	encoding := raw.Encoding
	if encoding == "" {
		encoding = "utf-8"
	}

	text := raw.Text
	body := raw.Body
	if text == "" && len(body) > 0 {
		text = string(body)
	}
	if len(body) == 0 && text != "" {
		body = []byte(text)
	}

	doc, err := NewDocument(text, url, opts)
	if err != nil {
		return nil, err
	}

	return &Response{
		Document:       doc,
		URL:            url,
		Status:         raw.Status,
		Reason:         reason,
		Cookies:        orEmpty(raw.Cookies),
		Headers:        orEmpty(raw.Headers),
		RequestHeaders: orEmpty(raw.RequestHeaders),
		Body:           body,
		Text:           text,
		Encoding:       encoding,
	}, nil
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
