// Package codec defines the serialization boundary between Go values and the
// bytes held by cache providers and file stores. Implementations must be
// symmetric: Decode(Encode(v)) yields an equivalent v.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
