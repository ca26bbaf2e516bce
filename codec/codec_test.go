package codec

import (
	"strings"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"
)

func TestLimitRejectsOversizedPayload(t *testing.T) {
	c := Limit[[]string]{Inner: JSON[[]string]{}, MaxDecode: 8}

	b, err := c.Encode([]string{"0123456789abcdef"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := c.Decode(b); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected too-large error, got %v", err)
	}

	// MaxDecode <= 0 disables the cap.
	open := Limit[[]string]{Inner: JSON[[]string]{}}
	got, err := open.Decode(b)
	if err != nil || len(got) != 1 {
		t.Fatalf("uncapped Decode: got=%v err=%v", got, err)
	}
}

func TestProtobufSeqFraming(t *testing.T) {
	c := NewProtobufSeq(func() *structpb.Struct { return &structpb.Struct{} })

	rows := make([]*structpb.Struct, 0, 2)
	for _, name := range []string{"first", "second"} {
		s, err := structpb.NewStruct(map[string]any{"name": name})
		if err != nil {
			t.Fatalf("NewStruct: %v", err)
		}
		rows = append(rows, s)
	}

	b, err := c.Encode(rows)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].Fields["name"].GetStringValue() != "first" || got[1].Fields["name"].GetStringValue() != "second" {
		t.Fatalf("order or content lost: %v", got)
	}

	// Truncated stream must error, not silently drop rows.
	if _, err := c.Decode(b[:len(b)-1]); err == nil {
		t.Fatalf("expected error on truncated stream")
	}

	// Empty set round-trips to empty.
	eb, err := c.Encode(nil)
	if err != nil || len(eb) != 0 {
		t.Fatalf("empty Encode: b=%v err=%v", eb, err)
	}
	if got, err := c.Decode(eb); err != nil || len(got) != 0 {
		t.Fatalf("empty Decode: got=%v err=%v", got, err)
	}
}
