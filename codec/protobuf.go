package codec

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/proto"
)

// Protobuf serializes a single message. Use ProtobufSeq for row sets.
type Protobuf[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g., func() *mypb.Faq { return &mypb.Faq{} })
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}
func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}

// ProtobufSeq serializes a slice of messages as a varint-delimited stream
// (see protodelim). This is the form a layered accessor stores, since cached
// values are whole row sets.
type ProtobufSeq[T proto.Message] struct {
	new func() T
}

func NewProtobufSeq[T proto.Message](ctor func() T) ProtobufSeq[T] {
	return ProtobufSeq[T]{new: ctor}
}

func (c ProtobufSeq[T]) Encode(vs []T) ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range vs {
		if _, err := protodelim.MarshalTo(&buf, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (c ProtobufSeq[T]) Decode(b []byte) ([]T, error) {
	r := bufio.NewReader(bytes.NewReader(b))
	var out []T
	for {
		m := c.new()
		err := protodelim.UnmarshalFrom(r, m)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
}
