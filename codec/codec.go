// Package codec decodes Card Service payloads.
//
// The service answers in JSON by default; CBOR and msgpack are accepted when the
// response says so in its Content-Type.
package codec

import (
	"mime"
	"strings"
)

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Format is a wire format understood by For.
type Format string

const (
	FormatJSON    Format = "json"
	FormatCBOR    Format = "cbor"
	FormatMsgpack Format = "msgpack"
)

// Accept is an Accept header value listing every supported format, JSON first.
const Accept = "application/json, application/cbor;q=0.9, application/msgpack;q=0.8"

// FormatOf maps a Content-Type header to a Format. Unknown or empty types fall back
// to JSON and report ok=false.
func FormatOf(contentType string) (f Format, ok bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return FormatJSON, false
	}
	switch strings.ToLower(mt) {
	case "application/json", "text/json":
		return FormatJSON, true
	case "application/cbor":
		return FormatCBOR, true
	case "application/msgpack", "application/x-msgpack", "application/vnd.msgpack":
		return FormatMsgpack, true
	default:
		if strings.HasSuffix(mt, "+json") {
			return FormatJSON, true
		}
		return FormatJSON, false
	}
}

// For returns the codec of f for values of type V. Unknown formats get JSON.
func For[V any](f Format) Codec[V] {
	switch f {
	case FormatCBOR:
		return defaultCBOR[V]()
	case FormatMsgpack:
		return Msgpack[V]{}
	default:
		return JSON[V]{}
	}
}
