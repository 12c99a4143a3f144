package codec

import (
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// CBOR is a Codec that serializes values using fxamacker/cbor.
// The zero value is NOT ready to use. Construct with NewCBOR or MustCBOR.
//
// Struct fields without a `cbor` tag fall back to their `json` tag, so the same
// record types decode from JSON and CBOR bodies.
//
// Use deterministic=true for canonical encoding (RFC 8949 Core Deterministic)
// when you need byte-for-byte stable outputs. Otherwise PreferredUnsortedEncOptions
// are used. Time values are encoded as RFC3339Nano.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

// NewCBOR constructs a CBOR codec.
func NewCBOR[V any](deterministic bool) (CBOR[V], error) {
	em, dm, err := cborModes(deterministic)
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR is like NewCBOR but panics on error.
func MustCBOR[V any](deterministic bool) CBOR[V] {
	c, err := NewCBOR[V](deterministic)
	if err != nil {
		panic(err)
	}
	return c
}

// Encode encodes v as CBOR using the configured EncMode.
func (c CBOR[V]) Encode(v V) ([]byte, error) {
	return c.enc.Marshal(v)
}

// Decode decodes b into a V using the configured DecMode.
func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}

type cborModePair struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// shared non-deterministic modes; modes are immutable and safe for concurrent use
var sharedCBOR = sync.OnceValue(func() cborModePair {
	em, dm, err := cborModes(false)
	if err != nil {
		panic(err)
	}
	return cborModePair{enc: em, dec: dm}
})

func defaultCBOR[V any]() CBOR[V] {
	m := sharedCBOR()
	return CBOR[V]{enc: m.enc, dec: m.dec}
}

func cborModes(deterministic bool) (cbor.EncMode, cbor.DecMode, error) {
	var eo cbor.EncOptions
	if deterministic {
		eo = cbor.CoreDetEncOptions()
	} else {
		eo = cbor.PreferredUnsortedEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano

	em, err := eo.EncMode()
	if err != nil {
		return nil, nil, err
	}
	dm, err := (cbor.DecOptions{}).DecMode()
	if err != nil {
		return nil, nil, err
	}
	return em, dm, nil
}
