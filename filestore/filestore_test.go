package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veiloq/cascade/codec"
)

type faq struct {
	Question string `json:"question" msgpack:"question"`
	Position int    `json:"position" msgpack:"position"`
}

func newStore(t *testing.T) *Store[faq] {
	t.Helper()
	s, err := New[faq](Options[faq]{Root: t.TempDir()})
	require.NoError(t, err)
	return s
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	rows := []faq{{Question: "Why?", Position: 1}, {Question: "How?", Position: 2}}
	require.NoError(t, s.Write(ctx, "faqs", rows))

	got, ok, err := s.Read(ctx, "faqs")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rows, got)

	// On disk it is the documented envelope, not a bare array.
	b, err := os.ReadFile(s.Path("faqs"))
	require.NoError(t, err)
	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &env))
	assert.Contains(t, env, "data")
}

func TestReadMissingIsMiss(t *testing.T) {
	s := newStore(t)
	got, ok, err := s.Read(context.Background(), "absent")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestCorruptFileReportsErrCorrupt(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Write(ctx, "faqs", []faq{{Question: "?", Position: 1}}))
	require.NoError(t, os.WriteFile(s.Path("faqs"), []byte("{nope"), 0o644))

	_, ok, err := s.Read(ctx, "faqs")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrCorrupt), "want ErrCorrupt, got %v", err)

	// The corrupt file stays on disk until an explicit write or removal.
	_, statErr := os.Stat(s.Path("faqs"))
	assert.NoError(t, statErr)
}

func TestWriteReplacesPreviousContent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Write(ctx, "faqs", []faq{{Question: "old", Position: 1}}))
	require.NoError(t, s.Write(ctx, "faqs", []faq{{Question: "new", Position: 1}}))

	got, ok, err := s.Read(ctx, "faqs")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Question)

	// no temp droppings left behind
	entries, err := os.ReadDir(filepath.Dir(s.Path("faqs")))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Write(ctx, "faqs", []faq{{Question: "?", Position: 1}}))
	require.NoError(t, s.Remove(ctx, "faqs"))
	require.NoError(t, s.Remove(ctx, "faqs"))

	ok, err := s.Exists(ctx, "faqs")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveAllLeavesForeignFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := New[faq](Options[faq]{Root: root})
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "faqs", []faq{{Question: "?", Position: 1}}))
	require.NoError(t, s.Write(ctx, "settings", []faq{{Question: "!", Position: 2}}))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.txt"), []byte("keep"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	require.NoError(t, s.RemoveAll(ctx))

	for _, key := range []string{"faqs", "settings"} {
		ok, err := s.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, "key %s should be gone", key)
	}
	_, err = os.Stat(filepath.Join(root, "README.txt"))
	assert.NoError(t, err, "foreign file must survive")
	_, err = os.Stat(filepath.Join(root, "sub"))
	assert.NoError(t, err, "subdirectory must survive")

	// removing from a now-empty (or missing) root stays quiet
	require.NoError(t, s.RemoveAll(ctx))
}

func TestBadKeysRejected(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, key := range []string{"", ".", "..", "a/b", `a\b`} {
		err := s.Write(ctx, key, nil)
		assert.True(t, errors.Is(err, ErrBadKey), "key %q: got %v", key, err)
	}
}

func TestMsgpackEnvelope(t *testing.T) {
	ctx := context.Background()
	s, err := New[faq](Options[faq]{
		Root:  t.TempDir(),
		Ext:   ".msgpack",
		Codec: codec.Msgpack[Envelope[faq]]{},
	})
	require.NoError(t, err)

	rows := []faq{{Question: "binary?", Position: 1}}
	require.NoError(t, s.Write(ctx, "faqs", rows))
	got, ok, err := s.Read(ctx, "faqs")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rows, got)
	assert.Equal(t, ".msgpack", filepath.Ext(s.Path("faqs")))
}
