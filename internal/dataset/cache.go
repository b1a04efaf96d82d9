package dataset

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/xxh3"

	"sales-dashboard/internal/models"
)

const cacheVersion = "v2"

var errCacheCorrupt = errors.New("dataset cache checksum mismatch")

// cacheFilename keys the snapshot on source path and encoding. Aliases are
// not part of the key.
func (l *Loader) cacheFilename(path string) string {
	key := xxh3.HashString(path + "\x00" + l.opts.Encoding + "\x00" + cacheVersion)
	return filepath.Join(l.opts.CacheDir, fmt.Sprintf("%s-%016x.gob.zst", filepath.Base(path), key))
}

// A cache file is the xxh3 sum of the gob payload, big endian, followed by
// the zstd-compressed payload.
func (l *Loader) saveToCache(path string, ds *models.Dataset) error {
	if err := os.MkdirAll(l.opts.CacheDir, 0755); err != nil {
		return err
	}

	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(ds); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	out := binary.BigEndian.AppendUint64(nil, xxh3.Hash(payload.Bytes()))
	out = enc.EncodeAll(payload.Bytes(), out)

	tmp := l.cacheFilename(path) + ".tmp"
	if err := os.WriteFile(tmp, out, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, l.cacheFilename(path))
}

func (l *Loader) loadFromCache(path string) (*models.Dataset, error) {
	raw, err := os.ReadFile(l.cacheFilename(path))
	if err != nil {
		return nil, err
	}
	if len(raw) < 8 {
		return nil, errCacheCorrupt
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	payload, err := dec.DecodeAll(raw[8:], nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	if xxh3.Hash(payload) != binary.BigEndian.Uint64(raw[:8]) {
		return nil, errCacheCorrupt
	}

	var ds models.Dataset
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &ds, nil
}
