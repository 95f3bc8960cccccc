package shelf

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/gob"
	"errors"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/carbocation/pfx"
	"github.com/xi2/xz"
)

type dataType byte

const (
	dataTypePlain dataType = iota
	dataTypeGzip
	dataTypeXZ
	dataTypeZlib
)

var byteCodeSigs = map[dataType][]byte{
	dataTypeGzip: {0x1f, 0x8b, 0x08},
	dataTypeXZ:   {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	dataTypeZlib: {0x78},
}

// detectDataType matches the leading bytes of a shelf file against the
// compressed formats it may be stored in.
func detectDataType(head []byte) dataType {
Outer:
	for dt, sig := range byteCodeSigs {
		if len(head) < len(sig) {
			continue
		}
		for position := range sig {
			if head[position] != sig[position] {
				continue Outer
			}
		}
		return dt
	}
	return dataTypePlain
}

// FileShelf keeps every value zlib-compressed in memory and writes the whole
// map to disk as gob on Sync and Close. Paths ending in .gz are written
// gzip-compressed. Shelves found xz-compressed on disk open read only.
type FileShelf struct {
	mu       sync.Mutex
	path     string
	values   map[string][]byte
	readOnly bool
	dirty    bool
}

// OpenFile loads the shelf at path, or starts an empty one if the file does
// not exist yet.
func OpenFile(path string) (*FileShelf, error) {
	s := &FileShelf{path: path, values: make(map[string][]byte)}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return nil, pfx.Err(err)
	}
	if len(head) == 0 {
		return s, nil
	}

	var r io.Reader = br
	switch detectDataType(head) {
	case dataTypeGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, pfx.Err(err)
		}
		defer gz.Close()
		r = gz
	case dataTypeXZ:
		xr, err := xz.NewReader(br, 0)
		if err != nil {
			return nil, pfx.Err(err)
		}
		r = xr
		s.readOnly = true
	case dataTypeZlib:
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, pfx.Err(err)
		}
		defer zr.Close()
		r = zr
	}

	if err := gob.NewDecoder(r).Decode(&s.values); err != nil {
		return nil, pfx.Err(err)
	}
	return s, nil
}

// Get returns the decompressed value stored under key.
func (s *FileShelf) Get(key string) ([]byte, error) {
	s.mu.Lock()
	packed, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return nil, ErrKeyNotFound
	}

	zr, err := zlib.NewReader(bytes.NewReader(packed))
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer zr.Close()

	value, err := io.ReadAll(zr)
	if err != nil {
		return nil, pfx.Err(err)
	}
	return value, nil
}

// Put compresses and stores value under key. Nothing reaches disk before Sync
// or Close.
func (s *FileShelf) Put(key string, value []byte) error {
	if s.readOnly {
		return ErrReadOnly
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(value); err != nil {
		return pfx.Err(err)
	}
	if err := zw.Close(); err != nil {
		return pfx.Err(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = buf.Bytes()
	s.dirty = true
	return nil
}

// Keys lists the stored keys in lexical order.
func (s *FileShelf) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Sync writes the shelf to disk if anything changed since the last write.
func (s *FileShelf) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return pfx.Err(err)
	}

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(s.path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}

	if err := gob.NewEncoder(w).Encode(s.values); err != nil {
		f.Close()
		return pfx.Err(err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			f.Close()
			return pfx.Err(err)
		}
	}
	if err := f.Close(); err != nil {
		return pfx.Err(err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return pfx.Err(err)
	}

	s.dirty = false
	return nil
}

// Close syncs the shelf.
func (s *FileShelf) Close() error {
	return s.Sync()
}
