// Package checksum maintains bounded fingerprint histories used to detect
// which feed entries are new or changed between syncs.
package checksum

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/fnv"
)

// DefaultLimit caps the number of fingerprints retained when dumping.
const DefaultLimit = 300

const version = 1

// record size on the wire: 8-byte key + 8-byte sum.
const recordSize = 16

// Checksum is a bounded set of (entry identity, content fingerprint) pairs
// ordered by recency. The zero value is not usable; call New or Load.
type Checksum struct {
	keys  []uint64
	index map[uint64]uint64
}

// New returns an empty history: every entry offered to Update is new.
func New() *Checksum {
	return &Checksum{index: make(map[uint64]uint64)}
}

// Load decodes a history produced by Dump. Decoding fails only on a
// structurally broken blob; callers that treat malformed data as "no
// history" should use DecodeBase64 instead.
func Load(data []byte) (*Checksum, error) {
	if len(data) == 0 {
		return New(), nil
	}
	if data[0] != version {
		return nil, errors.New("checksum: unsupported version")
	}
	body := data[1:]
	if len(body)%recordSize != 0 {
		return nil, errors.New("checksum: truncated data")
	}
	c := New()
	for i := 0; i < len(body); i += recordSize {
		key := binary.BigEndian.Uint64(body[i:])
		sum := binary.BigEndian.Uint64(body[i+8:])
		c.touch(key, sum)
	}
	return c, nil
}

// Dump serializes the most recent limit fingerprints, oldest first so the
// next Load preserves recency order. A limit <= 0 uses DefaultLimit.
func (c *Checksum) Dump(limit int) []byte {
	if limit <= 0 {
		limit = DefaultLimit
	}
	keys := c.keys
	if len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}
	out := make([]byte, 1, 1+len(keys)*recordSize)
	out[0] = version
	var buf [recordSize]byte
	for _, key := range keys {
		binary.BigEndian.PutUint64(buf[:8], key)
		binary.BigEndian.PutUint64(buf[8:], c.index[key])
		out = append(out, buf[:]...)
	}
	return out
}

// Update records the fingerprint for an entry and reports whether the entry
// is new or its content changed since it was last seen. Seen entries are
// promoted to most recent either way.
func (c *Checksum) Update(ident, content string) bool {
	key := digest(ident)
	sum := digest(content)
	prev, ok := c.index[key]
	c.touch(key, sum)
	return !ok || prev != sum
}

// Size returns the number of retained fingerprints.
func (c *Checksum) Size() int {
	return len(c.keys)
}

func (c *Checksum) touch(key, sum uint64) {
	if _, ok := c.index[key]; ok {
		for i, k := range c.keys {
			if k == key {
				c.keys = append(c.keys[:i], c.keys[i+1:]...)
				break
			}
		}
	}
	c.keys = append(c.keys, key)
	c.index[key] = sum
}

func digest(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s)) //nolint:errcheck // fnv never fails
	return h.Sum64()
}

// EncodeBase64 dumps the history and wraps it in URL-safe base64 for the
// RPC boundary. An empty history encodes to the empty string.
func EncodeBase64(c *Checksum, limit int) string {
	if c == nil || c.Size() == 0 {
		return ""
	}
	return base64.URLEncoding.EncodeToString(c.Dump(limit))
}

// DecodeBase64 decodes a history from the RPC boundary. Absent or malformed
// data yields an empty history, so a first sync treats all entries as new.
func DecodeBase64(s string) *Checksum {
	if s == "" {
		return New()
	}
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return New()
	}
	c, err := Load(data)
	if err != nil {
		return New()
	}
	return c
}
