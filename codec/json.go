package codec

import "encoding/json"

// JSON is the default codec. It is the only format whose cache payloads and
// on-disk envelopes stay human-inspectable, which is why it is the fallback
// wherever a codec option is left nil.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
