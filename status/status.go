// Package status maps HTTP status codes to their reason phrases.
//
// Reference: https://developer.mozilla.org/en-US/docs/Web/HTTP/Status
package status

import "sync"

// UnknownPhrase is returned for any code outside the registry.
const UnknownPhrase = "Unknown Status Code"

// phrases is the fixed registry. It is never mutated after init.
var phrases = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	102: "Processing",
	103: "Early Hints",
	200: "OK",
	201: "Created",
	202: "Accepted",
	203: "Non-Authoritative Information",
	204: "No Content",
	205: "Reset Content",
	206: "Partial Content",
	207: "Multi-Status",
	208: "Already Reported",
	226: "IM Used",
	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	305: "Use Proxy",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Payload Too Large",
	414: "URI Too Long",
	415: "Unsupported Media Type",
	416: "Range Not Satisfiable",
	417: "Expectation Failed",
	418: "I'm a teapot",
	421: "Misdirected Request",
	422: "Unprocessable Entity",
	423: "Locked",
	424: "Failed Dependency",
	425: "Too Early",
	426: "Upgrade Required",
	428: "Precondition Required",
	429: "Too Many Requests",
	431: "Request Header Fields Too Large",
	451: "Unavailable For Legal Reasons",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
	506: "Variant Also Negotiates",
	507: "Insufficient Storage",
	508: "Loop Detected",
	510: "Not Extended",
	511: "Network Authentication Required",
}

// cacheCap bounds the memo cache of distinct codes looked up so far.
const cacheCap = 128

var memo = struct {
	mu      sync.RWMutex
	entries map[int]string
}{entries: make(map[int]string, cacheCap)}

// Phrase returns the reason phrase for an HTTP status code, or UnknownPhrase
// for codes outside the registry. Lookups are memoized per distinct code in
// a bounded cache and are safe for concurrent use.
func Phrase(code int) string {
	memo.mu.RLock()
	phrase, ok := memo.entries[code]
	memo.mu.RUnlock()
	if ok {
		return phrase
	}

	phrase, ok = phrases[code]
	if !ok {
		phrase = UnknownPhrase
	}

	memo.mu.Lock()
	// Evict one arbitrary entry at capacity (map iteration is random in Go).
	if len(memo.entries) >= cacheCap {
		for k := range memo.entries {
			delete(memo.entries, k)
			break
		}
	}
	memo.entries[code] = phrase
	memo.mu.Unlock()

	return phrase
}
