// Package idgen mints category and template ids: the kind, a dash, and a
// 12-character lowercase nanoid ("tpl-4f0c9qz1m2ab").
package idgen

import (
	"strconv"
	"sync/atomic"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	size     = 12
)

var fallbackSeq atomic.Uint64

// ForKind returns a new id for an entity kind ("cat" or "tpl"). It never
// fails: without a random source it falls back to a time-and-counter id,
// unique within the process.
func ForKind(kind string) string {
	id, err := nanoid.Generate(alphabet, size)
	if err != nil {
		return fallback(kind)
	}
	return kind + "-" + id
}

func fallback(kind string) string {
	n := fallbackSeq.Add(1)
	return kind + "-" + strconv.FormatInt(time.Now().UnixNano(), 36) + strconv.FormatUint(n, 36)
}
