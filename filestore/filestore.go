// Package filestore implements the durable file layer: one file per logical
// key under a storage root, holding a codec-encoded envelope of the rows.
// Files survive cache restarts and are consulted after a cache miss, before
// the relational source.
//
// The layer is never isolation-aware: every caller shares the same file for
// a key regardless of cache partitioning.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/veiloq/cascade/codec"
)

// Envelope is the file payload shape: a single data field holding the rows.
type Envelope[V any] struct {
	Data []V `json:"data" msgpack:"data" cbor:"data"`
}

var (
	// ErrCorrupt wraps decode failures. Readers treat it as a miss; the file
	// itself is left in place for inspection and is only removed by an
	// explicit invalidation or a subsequent write.
	ErrCorrupt = errors.New("filestore: corrupt file")

	// ErrBadKey rejects keys that would escape the storage root.
	ErrBadKey = errors.New("filestore: invalid key")
)

type Options[V any] struct {
	// Root is the storage directory. Created on first write.
	Root string

	// Ext is the filename extension including the dot; "" => ".json".
	// Keep it aligned with the codec so files stay openable by hand.
	Ext string

	// Codec encodes the envelope; nil => codec.JSON.
	Codec codec.Codec[Envelope[V]]

	DirMode  os.FileMode // 0 => 0o755
	FileMode os.FileMode // 0 => 0o644
}

type Store[V any] struct {
	root     string
	ext      string
	codec    codec.Codec[Envelope[V]]
	dirMode  os.FileMode
	fileMode os.FileMode
}

func New[V any](opts Options[V]) (*Store[V], error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("filestore: root is required")
	}
	ext := opts.Ext
	if ext == "" {
		ext = ".json"
	}
	if !strings.HasPrefix(ext, ".") {
		return nil, fmt.Errorf("filestore: ext %q must start with a dot", opts.Ext)
	}
	c := opts.Codec
	if c == nil {
		c = codec.JSON[Envelope[V]]{}
	}
	dirMode := opts.DirMode
	if dirMode == 0 {
		dirMode = 0o755
	}
	fileMode := opts.FileMode
	if fileMode == 0 {
		fileMode = 0o644
	}
	return &Store[V]{
		root:     opts.Root,
		ext:      ext,
		codec:    c,
		dirMode:  dirMode,
		fileMode: fileMode,
	}, nil
}

// Path returns the file a key is stored at.
func (s *Store[V]) Path(key string) string {
	return filepath.Join(s.root, key+s.ext)
}

// Read loads the rows for key. A missing file is (nil, false, nil); an
// unparseable file is (nil, false, err) with err wrapping ErrCorrupt.
func (s *Store[V]) Read(_ context.Context, key string) ([]V, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	env, err := s.codec.Decode(b)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return env.Data, true, nil
}

// Write replaces the file for key atomically (temp file + rename), creating
// the storage root if needed.
func (s *Store[V]) Write(_ context.Context, key string, rows []V) error {
	if err := checkKey(key); err != nil {
		return err
	}
	b, err := s.codec.Encode(Envelope[V]{Data: rows})
	if err != nil {
		return fmt.Errorf("filestore: encode %q: %w", key, err)
	}
	if err := os.MkdirAll(s.root, s.dirMode); err != nil {
		return fmt.Errorf("filestore: mkdir %q: %w", s.root, err)
	}
	tmp, err := os.CreateTemp(s.root, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("filestore: temp file for %q: %w", key, err)
	}
	tmpName := tmp.Name()
	_, werr := tmp.Write(b)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Chmod(tmpName, s.fileMode)
	}
	if werr == nil {
		werr = os.Rename(tmpName, s.Path(key))
	}
	if werr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("filestore: write %q: %w", key, werr)
	}
	return nil
}

// Exists reports whether a file is present for key, without decoding it.
func (s *Store[V]) Exists(_ context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	if _, err := os.Stat(s.Path(key)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Remove deletes the file for key. Removing an absent file is not an error.
func (s *Store[V]) Remove(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.Path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("filestore: remove %q: %w", key, err)
	}
	return nil
}

// RemoveAll deletes every file under the root carrying the configured
// extension. Foreign files and subdirectories are left alone.
func (s *Store[V]) RemoveAll(_ context.Context) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("filestore: list %q: %w", s.root, err)
	}
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), s.ext) {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, e.Name())); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func checkKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	return nil
}
